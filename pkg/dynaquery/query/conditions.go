package query

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

func init() {
	for _, c := range []Condition{
		NewCondition(AliasEquals, func(f, o value.Value) bool { return value.Compare(f, o) == 0 }),
		NewCondition(AliasNotEqual, func(f, o value.Value) bool { return value.Compare(f, o) != 0 }),
		NewCondition(AliasLess, ordered(func(c int) bool { return c < 0 })),
		NewCondition(AliasLessEqual, ordered(func(c int) bool { return c <= 0 })),
		NewCondition(AliasGreater, ordered(func(c int) bool { return c > 0 })),
		NewCondition(AliasGreaterEqual, ordered(func(c int) bool { return c >= 0 })),
		NewCondition(AliasStartsWith, textual(strings.HasPrefix)),
		NewCondition(AliasContains, textual(strings.Contains)),
		NewCondition(AliasEndsWith, textual(strings.HasSuffix)),
		NewCondition(AliasIn, matchIn),
		NewCondition(AliasBetween, matchBetween),
		NewCondition(AliasLike, textual(likeMatch)),
		NewCondition(AliasFalse, func(value.Value, value.Value) bool { return false }),
	} {
		mustRegister(c)
	}
}

// ordered never matches a null field against a non-null operand.
func ordered(accept func(int) bool) MatchFunc {
	return func(f, o value.Value) bool {
		if f.IsNull() != o.IsNull() {
			return false
		}
		return accept(value.Compare(f, o))
	}
}

// textual compares canonical forms after Unicode case folding.
func textual(fn func(s, sub string) bool) MatchFunc {
	return func(f, o value.Value) bool {
		if f.IsNull() || o.IsNull() {
			return false
		}
		fold := cases.Fold()
		return fn(fold.String(value.Canonical(f)), fold.String(value.Canonical(o)))
	}
}

func matchIn(f, o value.Value) bool {
	if o.Kind() != value.KindList {
		return value.Compare(f, o) == 0
	}
	for _, candidate := range o.Items() {
		if value.Compare(f, candidate) == 0 {
			return true
		}
	}
	return false
}

// matchBetween is inclusive on both bounds; the operand is a two-element list.
func matchBetween(f, o value.Value) bool {
	bounds := o.Items()
	if len(bounds) != 2 || f.IsNull() {
		return false
	}
	return value.Compare(f, bounds[0]) >= 0 && value.Compare(f, bounds[1]) <= 0
}

// likeMatch implements SQL LIKE: '%' matches any run, '_' one rune.
func likeMatch(s, pattern string) bool {
	str, pat := []rune(s), []rune(pattern)
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(str) {
		switch {
		case pi < len(pat) && (pat[pi] == '_' || pat[pi] == str[si]):
			si++
			pi++
		case pi < len(pat) && pat[pi] == '%':
			star, mark = pi, si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '%' {
		pi++
	}
	return pi == len(pat)
}
