package query

import (
	"slices"
	"strings"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// OrderField is one sort key.
type OrderField[T any] struct {
	Field     *schema.Field[T]
	Ascending bool
}

// OrderBy compares records key by key; the first non-zero comparison decides.
type OrderBy[T any] struct {
	fields []OrderField[T]
}

func NewOrderBy[T any](fields ...OrderField[T]) *OrderBy[T] {
	return &OrderBy[T]{fields: slices.Clone(fields)}
}

// parseOrderBy resolves names against typ. Unknown names are skipped. A
// leading '-' inverts the default direction for that name.
func parseOrderBy[T any](typ *schema.Type[T], names []string, ascending bool) *OrderBy[T] {
	var fields []OrderField[T]
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		asc := ascending
		if strings.HasPrefix(name, "-") {
			name = name[1:]
			asc = !asc
		}
		f, ok := typ.Field(name)
		if !ok {
			continue
		}
		fields = append(fields, OrderField[T]{Field: f, Ascending: asc})
	}
	return &OrderBy[T]{fields: fields}
}

func (o *OrderBy[T]) Fields() []OrderField[T] { return slices.Clone(o.fields) }

func (o *OrderBy[T]) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

func (o *OrderBy[T]) Compare(a, b *T) int {
	for _, k := range o.fields {
		c := value.Compare(k.Field.Get(a), k.Field.Get(b))
		if c == 0 {
			continue
		}
		if !k.Ascending {
			return -c
		}
		return c
	}
	return 0
}

// Sort orders recs in place, keeping the relative order of equal records.
func (o *OrderBy[T]) Sort(recs []*T) {
	if o.Len() == 0 {
		return
	}
	slices.SortStableFunc(recs, o.Compare)
}

// String renders the keys in request form, e.g. "Id,-Amount".
func (o *OrderBy[T]) String() string {
	if o == nil {
		return ""
	}
	parts := make([]string, len(o.fields))
	for i, k := range o.fields {
		if k.Ascending {
			parts[i] = k.Field.Name
		} else {
			parts[i] = "-" + k.Field.Name
		}
	}
	return strings.Join(parts, ",")
}
