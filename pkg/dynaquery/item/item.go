// Package item is the dynamic record shape returned by external stores: an
// attribute map typed through a schema description.
package item

import (
	"encoding/json"
	"sort"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// Item is one record keyed by field name.
type Item struct {
	attrs map[string]value.Value
}

func New() *Item { return &Item{attrs: map[string]value.Value{}} }

// FromMap builds an Item from native Go values.
func FromMap(m map[string]any) *Item {
	it := &Item{attrs: make(map[string]value.Value, len(m))}
	for k, v := range m {
		it.attrs[k] = value.Of(v)
	}
	return it
}

func (it *Item) Get(name string) value.Value { return it.attrs[name] }

func (it *Item) Set(name string, v value.Value) {
	if it.attrs == nil {
		it.attrs = map[string]value.Value{}
	}
	if v.IsNull() {
		delete(it.attrs, name)
		return
	}
	it.attrs[name] = v
}

func (it *Item) Delete(name string) { delete(it.attrs, name) }

func (it *Item) Len() int { return len(it.attrs) }

// Names returns the attribute names in sorted order.
func (it *Item) Names() []string {
	names := make([]string, 0, len(it.attrs))
	for k := range it.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (it *Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(it.attrs)
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var m map[string]value.Value
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	it.attrs = make(map[string]value.Value, len(m))
	for k, v := range m {
		if !v.IsNull() {
			it.attrs[k] = v
		}
	}
	return nil
}

// NewType builds the field registry for items described by d. Values written
// through the registry are converted to the declared kind; values that do not
// convert are kept as read.
func NewType(d schema.Description) (*schema.Type[Item], error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	b := schema.NewType[Item](d.Name, New)
	for _, spec := range d.Fields {
		b.With(field(spec))
	}
	return b.Build()
}

func field(spec schema.FieldSpec) *schema.Field[Item] {
	name := spec.Name
	kind := spec.Kind()
	return &schema.Field[Item]{
		Name:          name,
		Kind:          kind,
		PrimaryKey:    spec.PrimaryKey,
		AutoIncrement: spec.AutoIncrement,
		Get:           func(it *Item) value.Value { return it.Get(name) },
		Set: func(it *Item, v value.Value) {
			if c, ok := value.Convert(v, kind); ok {
				v = c
			}
			it.Set(name, v)
		},
		Reset: func(it *Item) { it.Delete(name) },
	}
}

// Clone copies the attribute map so the copy can be modified independently.
func (it *Item) Clone() *Item {
	cp := &Item{attrs: make(map[string]value.Value, len(it.attrs))}
	for k, v := range it.attrs {
		cp.attrs[k] = v
	}
	return cp
}

// Decode builds an Item from attributes keyed by store name, converting each
// to the declared kind. Attributes d does not declare are dropped.
func Decode(d schema.Description, attrs map[string]value.Value) *Item {
	it := &Item{attrs: make(map[string]value.Value, len(d.Fields))}
	for _, spec := range d.Fields {
		v, ok := attrs[spec.StoreName()]
		if !ok || v.IsNull() {
			continue
		}
		if c, ok := value.Convert(v, spec.Kind()); ok {
			v = c
		}
		it.attrs[spec.Name] = v
	}
	return it
}

// Encode returns the item's declared attributes keyed by store name.
// Missing attributes are included as null.
func Encode(d schema.Description, it *Item) map[string]value.Value {
	out := make(map[string]value.Value, len(d.Fields))
	for _, spec := range d.Fields {
		out[spec.StoreName()] = it.Get(spec.Name)
	}
	return out
}
