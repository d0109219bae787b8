package value

// Add sums two values. Two integers add as an integer; if either side is
// real the sum is real. A side that is not numeric is dropped in favour of
// the numeric one. When neither side is numeric the canonical texts are
// concatenated.
func Add(a, b Value) Value {
	ai, aInt := CoerceInt(a)
	bi, bInt := CoerceInt(b)
	if aInt && bInt {
		return Int(ai + bi)
	}

	af, aReal := CoerceReal(a)
	bf, bReal := CoerceReal(b)
	switch {
	case aReal && bReal:
		return Real(af + bf)
	case aReal:
		return a
	case bReal:
		return b
	}

	return Text(Canonical(a) + Canonical(b))
}

// Min keeps the smaller of acc and next. A null accumulator is always replaced.
func Min(acc, next Value) Value {
	if acc.IsNull() {
		return next
	}
	if Compare(acc, next) > 0 {
		return next
	}
	return acc
}

// Max keeps the larger of acc and next. A null accumulator is always replaced.
func Max(acc, next Value) Value {
	if acc.IsNull() {
		return next
	}
	if Compare(acc, next) < 0 {
		return next
	}
	return acc
}

// Sum folds values through Add seeded with the first element; an empty
// sequence sums to null.
func Sum(values []Value) Value {
	var sum Value
	for _, v := range values {
		if sum.IsNull() {
			sum = v
			continue
		}
		sum = Add(sum, v)
	}
	return sum
}

// Aggregate is a left fold over source starting from seed.
func Aggregate[S any](source []S, fn func(acc Value, next S) Value, seed Value) Value {
	acc := seed
	for _, item := range source {
		acc = fn(acc, item)
	}
	return acc
}
