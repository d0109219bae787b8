// Package value holds the dynamically typed scalar read from record fields
// together with the comparison and arithmetic used by filtering, ordering
// and aggregation.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindReal
	KindText
	KindBytes
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// ParseKind maps a schema type name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "int", "integer", "long", "number":
		return KindInt, true
	case "real", "float", "double", "decimal":
		return KindReal, true
	case "text", "string", "keyword":
		return KindText, true
	case "bytes", "binary", "blob":
		return KindBytes, true
	case "bool", "boolean":
		return KindBool, true
	case "list", "array":
		return KindList, true
	}
	return KindNull, false
}

// Value is a closed tagged variant. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	l    []Value
}

func Null() Value            { return Value{} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Real(f float64) Value   { return Value{kind: KindReal, f: f} }
func Text(s string) Value    { return Value{kind: KindText, s: s} }
func Bytes(b []byte) Value   { return Value{kind: KindBytes, s: string(b)} }
func List(vs ...Value) Value { return Value{kind: KindList, l: vs} }

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload when v is an Int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsReal returns the real payload when v is a Real.
func (v Value) AsReal() (float64, bool) { return v.f, v.kind == KindReal }

// AsText returns the string payload when v is Text.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsBytes returns a copy of the payload when v is Bytes.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return []byte(v.s), true
}

func (v Value) AsBool() (bool, bool) { return v.i != 0, v.kind == KindBool }

// Items returns the elements of a List, or v itself as a single element.
func (v Value) Items() []Value {
	if v.kind == KindList {
		return v.l
	}
	return []Value{v}
}

// Equal reports whether a and b hold the same variant and payload.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindList {
		if len(a.l) != len(b.l) {
			return false
		}
		for i := range a.l {
			if !Equal(a.l[i], b.l[i]) {
				return false
			}
		}
		return true
	}
	if a.kind == KindReal {
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	}
	return a.i == b.i && a.s == b.s
}

// Key returns a string that is equal for two values exactly when Equal holds.
// It is used for set membership (COUNT DISTINCT).
func (v Value) Key() string {
	if v.kind == KindReal && v.f == 0 {
		v.f = 0
	}
	return string(rune('0'+v.kind)) + ":" + Canonical(v)
}

func (v Value) String() string { return Canonical(v) }

// Of converts a native Go value into a Value. Maps and structs fall back to
// their JSON text (encoding/json sorts map keys, so the text is stable).
func Of(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Value:
		if t == nil {
			return Null()
		}
		return *t
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Int(int64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return Int(int64(t))
	case float32:
		return Real(float64(t))
	case float64:
		return Real(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		if f, err := t.Float64(); err == nil {
			return Real(f)
		}
		return Text(t.String())
	case string:
		return Text(t)
	case []byte:
		return Bytes(t)
	case bool:
		return Bool(t)
	case time.Time:
		return Text(t.UTC().Format(time.RFC3339Nano))
	case []Value:
		return List(t...)
	case []any:
		vs := make([]Value, len(t))
		for i := range t {
			vs[i] = Of(t[i])
		}
		return List(vs...)
	case []string:
		vs := make([]Value, len(t))
		for i := range t {
			vs[i] = Text(t[i])
		}
		return List(vs...)
	case []int64:
		vs := make([]Value, len(t))
		for i := range t {
			vs[i] = Int(t[i])
		}
		return List(vs...)
	case []float64:
		vs := make([]Value, len(t))
		for i := range t {
			vs[i] = Real(t[i])
		}
		return List(vs...)
	case fmt.Stringer:
		return Text(t.String())
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return Text(fmt.Sprintf("%v", x))
		}
		return Text(string(b))
	}
}

// Native converts v back into a plain Go value (nil, int64, float64, string,
// []byte, bool or []any).
func (v Value) Native() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	case KindBytes:
		return []byte(v.s)
	case KindBool:
		return v.i != 0
	case KindList:
		out := make([]any, len(v.l))
		for i := range v.l {
			out[i] = v.l[i].Native()
		}
		return out
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindReal && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return json.Marshal(Canonical(v))
	}
	return json.Marshal(v.Native())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var x any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return err
	}
	*v = Of(x)
	return nil
}
