package pipeline

import (
	"context"
	"strings"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// Aggregate function names.
const (
	AggCount = "COUNT"
	AggMin   = "MIN"
	AggMax   = "MAX"
	AggAvg   = "AVG"
	AggSum   = "SUM"
	AggFirst = "FIRST"
	AggLast  = "LAST"
)

const distinctPrefix = "DISTINCT "

// IsAggregate reports whether name is a supported aggregate function.
func IsAggregate(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case AggCount, AggMin, AggMax, AggAvg, AggSum, AggFirst, AggLast:
		return true
	}
	return false
}

// SelectAggregate computes the named aggregate over the records matching q.
// An unsupported name yields (Null, nil). The first argument names the field
// and may carry a "DISTINCT " prefix; COUNT with no argument or "*" counts
// records.
func (d *DataSource[T]) SelectAggregate(ctx context.Context, q *query.Query[T], name string, args ...string) (value.Value, error) {
	if !IsAggregate(name) {
		d.logger.Debug("unsupported aggregate", "query", q.ID(), "name", name)
		return value.Null(), nil
	}
	recs, err := d.load(ctx, q)
	if err != nil {
		return value.Null(), err
	}
	return d.aggregate(q, recs, name, args)
}

func (d *DataSource[T]) aggregate(q *query.Query[T], recs []*T, name string, args []string) (value.Value, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !IsAggregate(name) {
		return value.Null(), nil
	}

	var arg string
	if len(args) > 0 {
		arg = strings.TrimSpace(args[0])
	}
	distinct := false
	if len(arg) >= len(distinctPrefix) && strings.EqualFold(arg[:len(distinctPrefix)], distinctPrefix) {
		distinct = true
		arg = strings.TrimSpace(arg[len(distinctPrefix):])
	}

	rows := ApplyConditions(q.Conditions(), recs)
	if name == AggCount && (arg == "" || arg == "*") {
		return value.Int(int64(len(rows))), nil
	}

	field, err := q.Type().MustField(arg)
	if err != nil {
		return value.Null(), err
	}
	if name == AggFirst || name == AggLast {
		q.OrderBy().Sort(rows)
	}

	values := make([]value.Value, len(rows))
	for i, rec := range rows {
		values[i] = field.Get(rec)
	}
	d.logger.Debug("aggregate", "query", q.ID(), "name", name, "field", field.Name, "distinct", distinct, "rows", len(values))

	switch name {
	case AggCount:
		if distinct {
			seen := make(map[string]struct{}, len(values))
			for _, v := range values {
				seen[v.Key()] = struct{}{}
			}
			return value.Int(int64(len(seen))), nil
		}
		return value.Aggregate(values, value.Add, value.Int(0)), nil
	case AggMin:
		return value.Aggregate(values, value.Min, value.Null()), nil
	case AggMax:
		return value.Aggregate(values, value.Max, value.Null()), nil
	case AggSum:
		return value.Sum(values), nil
	case AggAvg:
		if len(values) == 0 {
			return value.Null(), &mserrors.Error{Code: mserrors.ErrDivisionByZero, Msg: "AVG over an empty set", Field: field.Name}
		}
		sum, ok := value.CoerceReal(value.Sum(values))
		if !ok {
			return value.Null(), mserrors.TypeMismatch(field.Name, "AVG over non-numeric values")
		}
		return value.Real(sum / float64(len(values))), nil
	case AggFirst:
		if len(values) == 0 {
			return value.Null(), nil
		}
		return values[0], nil
	case AggLast:
		if len(values) == 0 {
			return value.Null(), nil
		}
		return values[len(values)-1], nil
	}
	return value.Null(), nil
}
