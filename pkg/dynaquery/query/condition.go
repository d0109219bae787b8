package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// Term is the logical combinator of a condition expression.
type Term int

const (
	TermDefault Term = iota
	TermAnd
	TermOr
)

func (t Term) String() string {
	switch t {
	case TermAnd:
		return "AND"
	case TermOr:
		return "OR"
	default:
		return "DEFAULT"
	}
}

// Condition aliases registered by default.
const (
	AliasEquals       = "="
	AliasNotEqual     = "<>"
	AliasLessEqual    = "<="
	AliasLess         = "<"
	AliasGreater      = ">"
	AliasGreaterEqual = ">="
	AliasStartsWith   = "StartsWith"
	AliasContains     = "Contains"
	AliasEndsWith     = "EndsWith"
	AliasIn           = "In"
	AliasBetween      = "Between"
	AliasLike         = "Like"
	AliasFalse        = "false"
)

// Condition is a named predicate over a field value and an operand.
type Condition interface {
	Alias() string
	Match(field, operand value.Value) bool
}

// MatchFunc adapts a plain function to a Condition body.
type MatchFunc func(field, operand value.Value) bool

type funcCondition struct {
	alias string
	fn    MatchFunc
}

func (c funcCondition) Alias() string                         { return c.alias }
func (c funcCondition) Match(field, operand value.Value) bool { return c.fn(field, operand) }

// NewCondition builds a Condition from an alias and a match function.
func NewCondition(alias string, fn MatchFunc) Condition {
	return funcCondition{alias: alias, fn: fn}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Condition{}
)

// Register adds c to the alias table, replacing any condition with the same
// alias (case-insensitive).
func Register(c Condition) error {
	if c == nil || strings.TrimSpace(c.Alias()) == "" {
		return mserrors.NewError(mserrors.ErrQueryParse, "condition alias must not be empty")
	}
	registryMu.Lock()
	registry[strings.ToLower(c.Alias())] = c
	registryMu.Unlock()
	return nil
}

func mustRegister(c Condition) {
	if err := Register(c); err != nil {
		panic(err)
	}
}

// Lookup finds a registered condition by alias, ignoring case.
func Lookup(alias string) (Condition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[strings.ToLower(alias)]
	return c, ok
}

// Resolve is Lookup returning an error for unknown aliases.
func Resolve(alias string) (Condition, error) {
	c, ok := Lookup(alias)
	if !ok {
		return nil, mserrors.QueryParseError(fmt.Sprintf("unknown condition %q", alias))
	}
	return c, nil
}

// Aliases lists the registered aliases, sorted.
func Aliases() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for _, c := range registry {
		out = append(out, c.Alias())
	}
	sort.Strings(out)
	return out
}
