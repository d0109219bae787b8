package value

import (
	"bytes"
	"cmp"
	"encoding/base64"
	"strconv"
	"strings"
)

// Compare orders two values and returns -1, 0 or +1.
//
// Null sorts after every non-null value. Values of the same kind use their
// native order. Otherwise both sides are tried as integers, then as reals,
// and finally compared ordinally by their canonical text.
func Compare(a, b Value) int {
	if a.IsNull() || b.IsNull() {
		switch {
		case a.IsNull() && b.IsNull():
			return 0
		case a.IsNull():
			return 1
		default:
			return -1
		}
	}

	if a.kind == b.kind {
		if c, ok := compareNative(a, b); ok {
			return c
		}
	}

	if ai, ok := CoerceInt(a); ok {
		if bi, ok := CoerceInt(b); ok {
			return cmp.Compare(ai, bi)
		}
	}

	if af, ok := CoerceReal(a); ok {
		if bf, ok := CoerceReal(b); ok {
			return cmp.Compare(af, bf)
		}
	}

	return strings.Compare(Canonical(a), Canonical(b))
}

func compareNative(a, b Value) (int, bool) {
	switch a.kind {
	case KindInt, KindBool:
		return cmp.Compare(a.i, b.i), true
	case KindReal:
		return cmp.Compare(a.f, b.f), true
	case KindText:
		return strings.Compare(a.s, b.s), true
	case KindBytes:
		return bytes.Compare([]byte(a.s), []byte(b.s)), true
	case KindList:
		n := min(len(a.l), len(b.l))
		for i := 0; i < n; i++ {
			if c := Compare(a.l[i], b.l[i]); c != 0 {
				return c, true
			}
		}
		return cmp.Compare(len(a.l), len(b.l)), true
	}
	return 0, false
}

// CoerceInt succeeds only for integer-typed values.
func CoerceInt(v Value) (int64, bool) {
	if v.kind == KindInt {
		return v.i, true
	}
	return 0, false
}

// CoerceReal succeeds for integer- and real-typed values.
func CoerceReal(v Value) (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindReal:
		return v.f, true
	}
	return 0, false
}

// Canonical returns the deterministic text form of v used as the last
// comparison tier and for string concatenation.
func Canonical(v Value) string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBytes:
		return base64.StdEncoding.EncodeToString([]byte(v.s))
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.l {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(Canonical(e))
		}
		sb.WriteByte(']')
		return sb.String()
	}
	return ""
}
