// Package query holds the query descriptor: conditions, ordering, paging and
// field selection for one query against one record type.
package query

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// Builder accumulates query state. It is not safe for concurrent use; call
// Build to obtain an immutable Query.
type Builder[T any] struct {
	typ        *schema.Type[T]
	conditions []ConditionExpression[T]
	order      *OrderBy[T]
	skip, take *int
	selection  []string
	params     map[string]string
}

func NewBuilder[T any](typ *schema.Type[T]) *Builder[T] {
	return &Builder[T]{typ: typ, params: map[string]string{}}
}

func (b *Builder[T]) Type() *schema.Type[T] { return b.typ }

// And appends a narrowing condition on field.
func (b *Builder[T]) And(field string, cond Condition, operand any) error {
	return b.add(TermAnd, field, cond, operand)
}

// Or appends a widening condition on field.
func (b *Builder[T]) Or(field string, cond Condition, operand any) error {
	return b.add(TermOr, field, cond, operand)
}

// Where appends a condition named by alias.
func (b *Builder[T]) Where(term Term, field, alias string, operand any) error {
	cond, err := Resolve(alias)
	if err != nil {
		return err
	}
	return b.add(term, field, cond, operand)
}

func (b *Builder[T]) add(term Term, field string, cond Condition, operand any) error {
	f, err := b.typ.MustField(field)
	if err != nil {
		return err
	}
	if cond == nil {
		return mserrors.NewError(mserrors.ErrQueryParse, "nil condition for field "+f.Name)
	}
	b.conditions = append(b.conditions, ConditionExpression[T]{
		Field:     f,
		Condition: cond,
		Operand:   coerceOperand(value.Of(operand), f.Kind),
		Term:      term,
	})
	return nil
}

// coerceOperand parses text operands (or list items) into the field's kind
// and widens integers for real fields. Text holding a fractional number stays
// real on integer fields so the comparison never loses the fraction. Other
// operands are kept as given.
func coerceOperand(v value.Value, kind value.Kind) value.Value {
	if kind == value.KindNull || v.IsNull() {
		return v
	}
	if v.Kind() == value.KindList && kind != value.KindList {
		items := v.Items()
		out := make([]value.Value, len(items))
		for i, it := range items {
			out[i] = coerceOperand(it, kind)
		}
		return value.List(out...)
	}
	if v.Kind() != value.KindText && !(v.Kind() == value.KindInt && kind == value.KindReal) {
		return v
	}
	if s, ok := v.AsText(); ok && kind == value.KindInt {
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return value.Real(f)
			}
		}
	}
	if c, ok := value.Convert(v, kind); ok {
		return c
	}
	return v
}

// Select restricts output to the named fields. No names means all fields.
func (b *Builder[T]) Select(fields ...string) *Builder[T] {
	b.selection = nil
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			b.selection = append(b.selection, f)
		}
	}
	return b
}

func (b *Builder[T]) OrderByFields(names ...string) *Builder[T] {
	b.order = parseOrderBy(b.typ, names, true)
	return b
}

func (b *Builder[T]) OrderByFieldsDescending(names ...string) *Builder[T] {
	b.order = parseOrderBy(b.typ, names, false)
	return b
}

func (b *Builder[T]) OrderByPrimaryKey() *Builder[T] {
	b.order = NewOrderBy(OrderField[T]{Field: b.typ.PrimaryKey(), Ascending: true})
	return b
}

// OrderBy installs a prebuilt ordering.
func (b *Builder[T]) OrderBy(o *OrderBy[T]) *Builder[T] {
	b.order = o
	return b
}

// Limit sets the paging window. A nil bound is unset.
func (b *Builder[T]) Limit(skip, take *int) *Builder[T] {
	b.skip, b.take = skip, take
	return b
}

func (b *Builder[T]) Skip(n int) *Builder[T] {
	b.skip = &n
	return b
}

func (b *Builder[T]) Take(n int) *Builder[T] {
	b.take = &n
	return b
}

// Join is accepted for compatibility with relational query surfaces and has
// no effect.
func (b *Builder[T]) Join(...string) *Builder[T] { return b }

// LeftJoin has no effect.
func (b *Builder[T]) LeftJoin(...string) *Builder[T] { return b }

func (b *Builder[T]) Param(key, val string) *Builder[T] {
	b.params[key] = val
	return b
}

func (b *Builder[T]) Params(params map[string]string) *Builder[T] {
	maps.Copy(b.params, params)
	return b
}

func (b *Builder[T]) HasConditions() bool { return len(b.conditions) > 0 }

// FirstMatchingField resolves name against the query's record type.
func (b *Builder[T]) FirstMatchingField(name string) (*schema.Field[T], bool) {
	return b.typ.Field(strings.TrimPrefix(strings.TrimSpace(name), "-"))
}

// Build freezes the accumulated state into a Query with a fresh id.
func (b *Builder[T]) Build() *Query[T] {
	q := &Query[T]{
		id:         uuid.NewString(),
		typ:        b.typ,
		conditions: slices.Clone(b.conditions),
		order:      b.order,
		params:     maps.Clone(b.params),
	}
	if b.skip != nil {
		q.skip, q.hasSkip = *b.skip, true
	}
	if b.take != nil {
		q.take, q.hasTake = *b.take, true
	}
	if len(b.selection) > 0 {
		q.selection = make(map[string]struct{}, len(b.selection))
		for _, f := range b.selection {
			q.selection[strings.ToLower(f)] = struct{}{}
		}
		q.selectionNames = slices.Clone(b.selection)
	}
	return q
}

// Query is the immutable descriptor handed to the pipeline.
type Query[T any] struct {
	id             string
	typ            *schema.Type[T]
	conditions     []ConditionExpression[T]
	order          *OrderBy[T]
	skip, take     int
	hasSkip        bool
	hasTake        bool
	selection      map[string]struct{}
	selectionNames []string
	params         map[string]string
}

func (q *Query[T]) ID() string            { return q.id }
func (q *Query[T]) Type() *schema.Type[T] { return q.typ }

// Conditions returns the condition expressions in insertion order.
func (q *Query[T]) Conditions() []ConditionExpression[T] { return slices.Clone(q.conditions) }

func (q *Query[T]) HasConditions() bool { return len(q.conditions) > 0 }

// OrderBy returns the ordering or nil.
func (q *Query[T]) OrderBy() *OrderBy[T] { return q.order }

func (q *Query[T]) Offset() (int, bool) { return q.skip, q.hasSkip }
func (q *Query[T]) Rows() (int, bool)   { return q.take, q.hasTake }

// HasSelection reports whether a field selection is active.
func (q *Query[T]) HasSelection() bool { return q.selection != nil }

// Selected reports whether name is in the selection, ignoring case. Every
// field is selected when no selection is active.
func (q *Query[T]) Selected(name string) bool {
	if q.selection == nil {
		return true
	}
	_, ok := q.selection[strings.ToLower(name)]
	return ok
}

// Selection returns the selected names as given, or nil.
func (q *Query[T]) Selection() []string { return slices.Clone(q.selectionNames) }

func (q *Query[T]) Param(key string) (string, bool) {
	v, ok := q.params[key]
	return v, ok
}

func (q *Query[T]) Params() map[string]string { return maps.Clone(q.params) }
