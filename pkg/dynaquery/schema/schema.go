// Package schema describes record types as an explicit registry of named
// field accessors, built once per type.
package schema

import (
	"strings"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// IdField is the conventional primary key name used when no field is marked.
const IdField = "Id"

// Field is the accessor set for one named field of T.
type Field[T any] struct {
	Name          string
	Kind          value.Kind
	PrimaryKey    bool
	AutoIncrement bool

	// Get reads the field. It is always set.
	Get func(rec *T) value.Value
	// Set writes the field; nil means the field is read-only.
	Set func(rec *T, v value.Value)
	// Reset restores the field's zero value; nil means it cannot be reset.
	Reset func(rec *T)
}

// Writable reports whether the field has a setter.
func (f *Field[T]) Writable() bool { return f != nil && f.Set != nil }

// Type is the immutable field registry of a record type.
type Type[T any] struct {
	name       string
	fields     []*Field[T]
	byName     map[string]*Field[T]
	primaryKey *Field[T]
	newFn      func() *T
}

func (t *Type[T]) Name() string { return t.name }

// Fields returns the fields in declaration order.
func (t *Type[T]) Fields() []*Field[T] { return t.fields }

// Field looks a field up by name, ignoring case.
func (t *Type[T]) Field(name string) (*Field[T], bool) {
	f, ok := t.byName[strings.ToLower(name)]
	return f, ok
}

// MustField is Field returning a FieldNotFound error.
func (t *Type[T]) MustField(name string) (*Field[T], error) {
	f, ok := t.Field(name)
	if !ok {
		return nil, mserrors.FieldNotFound(name)
	}
	return f, nil
}

// PrimaryKey is resolved in this order: a field marked PrimaryKey, a field
// marked AutoIncrement, a field literally named "Id", the first field.
func (t *Type[T]) PrimaryKey() *Field[T] { return t.primaryKey }

// AutoIncrement returns the first auto-increment field, if any.
func (t *Type[T]) AutoIncrement() (*Field[T], bool) {
	for _, f := range t.fields {
		if f.AutoIncrement {
			return f, true
		}
	}
	return nil, false
}

// New allocates a fresh record.
func (t *Type[T]) New() *T {
	if t.newFn != nil {
		return t.newFn()
	}
	return new(T)
}

// Populate copies every field of src that dst's type can write, matching
// field names case-insensitively.
func Populate[D, S any](dstType *Type[D], dst *D, srcType *Type[S], src *S) {
	for _, df := range dstType.fields {
		if df.Set == nil {
			continue
		}
		sf, ok := srcType.Field(df.Name)
		if !ok {
			continue
		}
		df.Set(dst, sf.Get(src))
	}
}

func resolvePrimaryKey[T any](fields []*Field[T]) *Field[T] {
	for _, f := range fields {
		if f.PrimaryKey {
			return f
		}
	}
	for _, f := range fields {
		if f.AutoIncrement {
			return f
		}
	}
	for _, f := range fields {
		if f.Name == IdField {
			return f
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}
