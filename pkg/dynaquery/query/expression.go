package query

import (
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// ConditionExpression binds one condition to one field and one operand.
type ConditionExpression[T any] struct {
	Field     *schema.Field[T]
	Condition Condition
	Operand   value.Value
	Term      Term
}

// Matches reports whether rec's field value satisfies the condition.
func (e ConditionExpression[T]) Matches(rec *T) bool {
	return e.Condition.Match(e.Field.Get(rec), e.Operand)
}

// Apply narrows working for AND terms. For OR terms it keeps working and
// appends every record of original that matches and is not already present.
// Membership is pointer identity.
func (e ConditionExpression[T]) Apply(working, original []*T) []*T {
	if e.Term != TermOr {
		out := make([]*T, 0, len(working))
		for _, rec := range working {
			if e.Matches(rec) {
				out = append(out, rec)
			}
		}
		return out
	}

	present := make(map[*T]struct{}, len(working))
	out := make([]*T, 0, len(working))
	for _, rec := range working {
		present[rec] = struct{}{}
		out = append(out, rec)
	}
	for _, rec := range original {
		if _, ok := present[rec]; ok {
			continue
		}
		if e.Matches(rec) {
			present[rec] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}

func (e ConditionExpression[T]) String() string {
	return e.Term.String() + " " + e.Field.Name + " " + e.Condition.Alias() + " " + value.Canonical(e.Operand)
}
