package value

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Convert coerces v into kind. Null stays null. Text is parsed; numbers are
// widened or truncated. ok is false when the payload cannot be represented.
func Convert(v Value, kind Kind) (Value, bool) {
	if v.IsNull() || v.kind == kind {
		return v, true
	}
	switch kind {
	case KindInt:
		switch v.kind {
		case KindReal:
			return Int(int64(v.f)), true
		case KindBool:
			return Int(v.i), true
		case KindText:
			s := strings.TrimSpace(v.s)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return Int(i), true
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return Int(int64(f)), true
			}
		}
	case KindReal:
		switch v.kind {
		case KindInt:
			return Real(float64(v.i)), true
		case KindText:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
				return Real(f), true
			}
		}
	case KindText:
		return Text(Canonical(v)), true
	case KindBytes:
		if v.kind == KindText {
			if b, err := base64.StdEncoding.DecodeString(v.s); err == nil {
				return Bytes(b), true
			}
			return Bytes([]byte(v.s)), true
		}
	case KindBool:
		switch v.kind {
		case KindInt:
			return Bool(v.i != 0), true
		case KindText:
			if b, err := strconv.ParseBool(strings.TrimSpace(v.s)); err == nil {
				return Bool(b), true
			}
		}
	case KindList:
		return List(v), true
	}
	return v, false
}

// Parse reads literal text the way a query string would spell it: integers,
// reals, true/false and null become typed values, anything else is Text.
func Parse(s string) Value {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "null":
		return Null()
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return Real(f)
	}
	return Text(s)
}
