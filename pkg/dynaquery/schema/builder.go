package schema

import (
	"fmt"
	"strings"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type float interface {
	~float32 | ~float64
}

// FieldOption marks a field.
type FieldOption func(*fieldFlags)

type fieldFlags struct {
	primaryKey    bool
	autoIncrement bool
}

func PrimaryKey() FieldOption    { return func(f *fieldFlags) { f.primaryKey = true } }
func AutoIncrement() FieldOption { return func(f *fieldFlags) { f.autoIncrement = true } }

func applyOptions[T any](f *Field[T], opts []FieldOption) *Field[T] {
	var flags fieldFlags
	for _, o := range opts {
		o(&flags)
	}
	f.PrimaryKey = flags.primaryKey
	f.AutoIncrement = flags.autoIncrement
	return f
}

// Integer declares an integer field through a pointer to its storage.
func Integer[T any, N integer](name string, ref func(*T) *N, opts ...FieldOption) *Field[T] {
	return applyOptions(&Field[T]{
		Name: name,
		Kind: value.KindInt,
		Get:  func(r *T) value.Value { return value.Int(int64(*ref(r))) },
		Set: func(r *T, v value.Value) {
			c, _ := value.Convert(v, value.KindInt)
			i, _ := c.AsInt()
			*ref(r) = N(i)
		},
		Reset: func(r *T) { *ref(r) = 0 },
	}, opts)
}

// Float declares a real-number field.
func Float[T any, F float](name string, ref func(*T) *F, opts ...FieldOption) *Field[T] {
	return applyOptions(&Field[T]{
		Name: name,
		Kind: value.KindReal,
		Get:  func(r *T) value.Value { return value.Real(float64(*ref(r))) },
		Set: func(r *T, v value.Value) {
			c, _ := value.Convert(v, value.KindReal)
			f, _ := c.AsReal()
			*ref(r) = F(f)
		},
		Reset: func(r *T) { *ref(r) = 0 },
	}, opts)
}

// String declares a text field.
func String[T any](name string, ref func(*T) *string, opts ...FieldOption) *Field[T] {
	return applyOptions(&Field[T]{
		Name: name,
		Kind: value.KindText,
		Get:  func(r *T) value.Value { return value.Text(*ref(r)) },
		Set: func(r *T, v value.Value) {
			if v.IsNull() {
				*ref(r) = ""
				return
			}
			*ref(r) = value.Canonical(v)
		},
		Reset: func(r *T) { *ref(r) = "" },
	}, opts)
}

// Bool declares a boolean field.
func Bool[T any](name string, ref func(*T) *bool, opts ...FieldOption) *Field[T] {
	return applyOptions(&Field[T]{
		Name: name,
		Kind: value.KindBool,
		Get:  func(r *T) value.Value { return value.Bool(*ref(r)) },
		Set: func(r *T, v value.Value) {
			c, _ := value.Convert(v, value.KindBool)
			b, _ := c.AsBool()
			*ref(r) = b
		},
		Reset: func(r *T) { *ref(r) = false },
	}, opts)
}

// Bytes declares a raw-bytes field. A nil slice reads as null.
func Bytes[T any](name string, ref func(*T) *[]byte, opts ...FieldOption) *Field[T] {
	return applyOptions(&Field[T]{
		Name: name,
		Kind: value.KindBytes,
		Get: func(r *T) value.Value {
			b := *ref(r)
			if b == nil {
				return value.Null()
			}
			return value.Bytes(b)
		},
		Set: func(r *T, v value.Value) {
			c, _ := value.Convert(v, value.KindBytes)
			b, _ := c.AsBytes()
			*ref(r) = b
		},
		Reset: func(r *T) { *ref(r) = nil },
	}, opts)
}

// Nullable declares a field stored as a pointer; nil reads as null. V must be
// the native Go type of kind (int64, float64, string, bool or []byte).
func Nullable[T any, V any](name string, kind value.Kind, ref func(*T) **V, opts ...FieldOption) *Field[T] {
	return applyOptions(&Field[T]{
		Name: name,
		Kind: kind,
		Get: func(r *T) value.Value {
			p := *ref(r)
			if p == nil {
				return value.Null()
			}
			return value.Of(*p)
		},
		Set: func(r *T, v value.Value) {
			if v.IsNull() {
				*ref(r) = nil
				return
			}
			c, _ := value.Convert(v, kind)
			if x, ok := c.Native().(V); ok {
				*ref(r) = &x
			}
		},
		Reset: func(r *T) { *ref(r) = nil },
	}, opts)
}

// Computed declares a read-only field.
func Computed[T any](name string, kind value.Kind, get func(*T) value.Value) *Field[T] {
	return &Field[T]{Name: name, Kind: kind, Get: get}
}

// Builder assembles a Type.
type Builder[T any] struct {
	name   string
	fields []*Field[T]
	newFn  func() *T
}

// NewType starts a type description. newFn may be nil.
func NewType[T any](name string, newFn func() *T) *Builder[T] {
	return &Builder[T]{name: name, newFn: newFn}
}

// With appends fields in declaration order.
func (b *Builder[T]) With(fields ...*Field[T]) *Builder[T] {
	b.fields = append(b.fields, fields...)
	return b
}

// Build validates the description and freezes it.
func (b *Builder[T]) Build() (*Type[T], error) {
	if len(b.fields) == 0 {
		return nil, mserrors.NewError(mserrors.ErrSchema, fmt.Sprintf("type %q must have at least one field", b.name))
	}
	byName := make(map[string]*Field[T], len(b.fields))
	for _, f := range b.fields {
		if f == nil || f.Get == nil {
			return nil, mserrors.NewError(mserrors.ErrSchema, fmt.Sprintf("type %q: field without getter", b.name))
		}
		if !fieldNameRe.MatchString(f.Name) {
			return nil, mserrors.NewError(mserrors.ErrSchema, "invalid field name: "+f.Name)
		}
		key := strings.ToLower(f.Name)
		if _, dup := byName[key]; dup {
			return nil, mserrors.NewError(mserrors.ErrSchema, "duplicate field name: "+f.Name)
		}
		byName[key] = f
	}
	fields := make([]*Field[T], len(b.fields))
	copy(fields, b.fields)
	return &Type[T]{
		name:       b.name,
		fields:     fields,
		byName:     byName,
		primaryKey: resolvePrimaryKey(fields),
		newFn:      b.newFn,
	}, nil
}

// MustBuild is Build that panics; meant for package-level type declarations.
func (b *Builder[T]) MustBuild() *Type[T] {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
