package query

import (
	"strings"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
)

// Request is the declarative form of a query as it arrives from a caller.
type Request struct {
	Skip        *int              `json:"skip,omitempty" yaml:"skip,omitempty"`
	Take        *int              `json:"take,omitempty" yaml:"take,omitempty"`
	Where       string            `json:"where,omitempty" yaml:"where,omitempty"`
	OrderBy     string            `json:"orderBy,omitempty" yaml:"orderBy,omitempty"`
	OrderByDesc string            `json:"orderByDesc,omitempty" yaml:"orderByDesc,omitempty"`
	Fields      string            `json:"fields,omitempty" yaml:"fields,omitempty"`
	Include     string            `json:"include,omitempty" yaml:"include,omitempty"`
	Meta        map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// AggregateCall is one "NAME(ARG)" entry of Request.Include.
type AggregateCall struct {
	Name string
	Args []string
	// Label is the entry as written, used as the response key.
	Label string
}

// Aggregates parses the Include list. Entries without parentheses (such as
// "Total") are not aggregate calls and are skipped.
func (r Request) Aggregates() ([]AggregateCall, error) {
	var calls []AggregateCall
	for _, raw := range splitList(r.Include) {
		open := strings.IndexByte(raw, '(')
		if open < 0 {
			continue
		}
		if !strings.HasSuffix(raw, ")") || open == 0 {
			return nil, mserrors.QueryParseError("malformed aggregate: " + raw)
		}
		call := AggregateCall{
			Name:  strings.TrimSpace(raw[:open]),
			Label: raw,
		}
		if inner := strings.TrimSpace(raw[open+1 : len(raw)-1]); inner != "" {
			call.Args = []string{inner}
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// Includes reports whether name appears in Include, ignoring case.
func (r Request) Includes(name string) bool {
	for _, entry := range splitList(r.Include) {
		if strings.EqualFold(entry, name) {
			return true
		}
	}
	return false
}

// FromRequest builds a query for typ from r.
func FromRequest[T any](typ *schema.Type[T], r Request) (*Query[T], error) {
	b := NewBuilder(typ)
	if err := b.ApplyWhere(r.Where); err != nil {
		return nil, err
	}
	if r.OrderBy != "" || r.OrderByDesc != "" {
		// OrderBy keys sort first, OrderByDesc keys break their ties.
		asc := parseOrderBy(typ, splitList(r.OrderBy), true)
		desc := parseOrderBy(typ, splitList(r.OrderByDesc), false)
		b.OrderBy(NewOrderBy(append(asc.Fields(), desc.Fields()...)...))
	}
	if r.Fields != "" {
		b.Select(splitList(r.Fields)...)
	}
	b.Limit(r.Skip, r.Take)
	b.Params(r.Meta)
	return b.Build(), nil
}

// splitList splits on commas that are not inside parentheses.
func splitList(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, ch := range s {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if part := strings.TrimSpace(s[start:i]); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}
