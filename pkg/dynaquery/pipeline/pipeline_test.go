package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/dynaquery/internal/testutil"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

type order struct {
	Id   int64
	Amt  float64
	Name string
}

var orderType = schema.NewType[order]("order", nil).With(
	schema.Integer("Id", func(o *order) *int64 { return &o.Id }),
	schema.Float("Amt", func(o *order) *float64 { return &o.Amt }),
	schema.String("Name", func(o *order) *string { return &o.Name }),
).MustBuild()

type summary struct {
	ID    int64
	Label string
	Amt   float64
}

var summaryType = schema.NewType[summary]("summary", nil).With(
	schema.Integer("ID", func(s *summary) *int64 { return &s.ID }),
	schema.String("Label", func(s *summary) *string { return &s.Label }),
	schema.Float("amt", func(s *summary) *float64 { return &s.Amt }),
).MustBuild()

func orders() []*order {
	return []*order{
		{Id: 1, Amt: 10, Name: "a"},
		{Id: 2, Amt: 20, Name: "b"},
		{Id: 3, Amt: 30, Name: "b"},
	}
}

func newSource(t *testing.T, recs []*order) *DataSource[order] {
	return New(orderType, Static(recs), WithLogger(testutil.NewTestLogger(t)))
}

func ids(rs []*order) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.Id
	}
	return out
}

func cond(t *testing.T, alias string) query.Condition {
	t.Helper()
	c, err := query.Resolve(alias)
	require.NoError(t, err)
	return c
}

func TestAggregates(t *testing.T) {
	ctx := context.Background()
	ds := newSource(t, orders())
	q := ds.NewQuery().OrderByFields("Id").Build()

	cases := []struct {
		name string
		arg  []string
		want value.Value
	}{
		{"COUNT", []string{"*"}, value.Int(3)},
		{"count", nil, value.Int(3)},
		{"SUM", []string{"Amt"}, value.Real(60)},
		{"AVG", []string{"Amt"}, value.Real(20)},
		{"MIN", []string{"Amt"}, value.Real(10)},
		{"MAX", []string{"amt"}, value.Real(30)},
		{"FIRST", []string{"Amt"}, value.Real(10)},
		{"LAST", []string{"Amt"}, value.Real(30)},
		{"COUNT", []string{"DISTINCT Name"}, value.Int(2)},
		{"COUNT", []string{"distinct  Id"}, value.Int(3)},
		// COUNT over a field folds its values through add from zero.
		{"COUNT", []string{"Id"}, value.Int(6)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ds.SelectAggregate(ctx, q, tc.name, tc.arg...)
			require.NoError(t, err)
			assert.True(t, value.Equal(tc.want, got), "want %v got %v", tc.want, got)
		})
	}
}

func TestCountDistinctSignedZero(t *testing.T) {
	recs := []*order{{Id: 1, Amt: 0}, {Id: 2, Amt: math.Copysign(0, -1)}, {Id: 3, Amt: 1}}
	ds := newSource(t, recs)
	got, err := ds.SelectAggregate(context.Background(), ds.NewQuery().Build(), "COUNT", "DISTINCT Amt")
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), got)
}

func TestFirstLastFollowOrdering(t *testing.T) {
	ctx := context.Background()
	ds := newSource(t, orders())
	q := ds.NewQuery().OrderByFieldsDescending("Id").Take(1).Build()

	first, err := ds.SelectAggregate(ctx, q, "FIRST", "Amt")
	require.NoError(t, err)
	assert.Equal(t, value.Real(30), first)

	// Paging does not apply to aggregates.
	last, err := ds.SelectAggregate(ctx, q, "LAST", "Amt")
	require.NoError(t, err)
	assert.Equal(t, value.Real(10), last)
}

func TestAggregateEdgeCases(t *testing.T) {
	ctx := context.Background()
	ds := newSource(t, orders())
	all := ds.NewQuery().Build()

	got, err := ds.SelectAggregate(ctx, all, "MEDIAN", "Amt")
	require.NoError(t, err)
	assert.True(t, got.IsNull())

	got, err = ds.SelectAggregate(ctx, all, "SUM", "Missing")
	assert.True(t, mserrors.IsCode(err, mserrors.ErrFieldNotFound))
	assert.True(t, got.IsNull())

	b := ds.NewQuery()
	require.NoError(t, b.And("Id", cond(t, ">"), 100))
	none := b.Build()

	_, err = ds.SelectAggregate(ctx, none, "AVG", "Amt")
	assert.True(t, mserrors.IsCode(err, mserrors.ErrDivisionByZero))

	for _, name := range []string{"SUM", "MIN", "MAX", "FIRST", "LAST"} {
		got, err := ds.SelectAggregate(ctx, none, name, "Amt")
		require.NoError(t, err, name)
		assert.True(t, got.IsNull(), name)
	}
	got, err = ds.SelectAggregate(ctx, none, "COUNT", "*")
	require.NoError(t, err)
	assert.Equal(t, value.Int(0), got)
}

func TestAndThenOr(t *testing.T) {
	ctx := context.Background()
	ds := newSource(t, orders())
	b := ds.NewQuery()
	require.NoError(t, b.And("Amt", cond(t, ">"), 15))
	require.NoError(t, b.And("Id", cond(t, "<"), 3))
	require.NoError(t, b.Or("Id", cond(t, "="), 3))

	got, err := ds.Select(ctx, b.Build())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(got))
}

func TestFirstConditionAlwaysNarrows(t *testing.T) {
	ctx := context.Background()
	ds := newSource(t, orders())
	b := ds.NewQuery()
	require.NoError(t, b.Or("Id", cond(t, "="), 2))
	require.NoError(t, b.Or("Id", cond(t, "="), 3))

	got, err := ds.Select(ctx, b.Build())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(got))

	n, err := ds.Count(ctx, b.Build())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPaging(t *testing.T) {
	ctx := context.Background()
	ds := newSource(t, orders())

	got, err := ds.Select(ctx, ds.NewQuery().OrderByFields("Id").Skip(1).Take(1).Build())
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got))

	got, err = ds.Select(ctx, ds.NewQuery().Skip(5).Build())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ds.Select(ctx, ds.NewQuery().Take(10).Build())
	require.NoError(t, err)
	assert.Len(t, got, 3)

	n, err := ds.Count(ctx, ds.NewQuery().Skip(1).Take(1).Build())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSortDoesNotReorderSource(t *testing.T) {
	src := orders()
	ds := newSource(t, src)
	_, err := ds.Select(context.Background(), ds.NewQuery().OrderByFieldsDescending("Id").Build())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(src))
}

func TestProjectionSameType(t *testing.T) {
	ctx := context.Background()
	src := orders()
	ds := newSource(t, src)

	got, err := ds.Select(ctx, ds.NewQuery().Select("id").Build())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].Id)
	assert.Zero(t, got[0].Amt)
	assert.Empty(t, got[0].Name)
	assert.NotSame(t, src[0], got[0])
	assert.Equal(t, 10.0, src[0].Amt)

	// Without a selection the loaded records pass through.
	got, err = ds.Select(ctx, ds.NewQuery().Build())
	require.NoError(t, err)
	assert.Same(t, src[0], got[0])
}

func TestProjectionOtherType(t *testing.T) {
	ctx := context.Background()
	ds := newSource(t, orders())

	got, err := LoadSelect(ctx, ds, ds.NewQuery().OrderByFields("-Id").Build(), summaryType)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, summary{ID: 3, Amt: 30}, *got[0])

	got, err = LoadSelect(ctx, ds, ds.NewQuery().Select("AMT").Build(), summaryType)
	require.NoError(t, err)
	assert.Equal(t, summary{Amt: 10}, *got[0])
}

func TestProjectionItemsAreCloned(t *testing.T) {
	typ, err := item.NewType(schema.Description{
		Name: "orders",
		Fields: []schema.FieldSpec{
			{Name: "Id", Type: "int"},
			{Name: "Amt", Type: "real"},
		},
	})
	require.NoError(t, err)
	src := []*item.Item{
		item.FromMap(map[string]any{"Id": 1, "Amt": 10.0}),
		item.FromMap(map[string]any{"Id": 2, "Amt": 20.0}),
	}
	ds := New(typ, Static(src))

	got, err := ds.Select(context.Background(), ds.NewQuery().Select("Id").Build())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Get("Amt").IsNull())
	assert.Equal(t, value.Real(10), src[0].Get("Amt"))
}

func TestSourceErrorAborts(t *testing.T) {
	boom := mserrors.Wrap(mserrors.ErrBackend, "scan", errors.New("boom"))
	ds := New(orderType, SourceFunc[order](func(context.Context, *query.Query[order]) ([]*order, error) {
		return nil, boom
	}))
	q := ds.NewQuery().Build()

	_, err := ds.Select(context.Background(), q)
	assert.ErrorIs(t, err, boom)
	_, err = ds.Count(context.Background(), q)
	assert.True(t, mserrors.IsCode(err, mserrors.ErrBackend))
	_, err = ds.SelectAggregate(context.Background(), q, "SUM", "Amt")
	assert.Error(t, err)
}

func TestExecute(t *testing.T) {
	ds := newSource(t, orders())
	skip, take := 1, 1
	resp, err := ds.Execute(context.Background(), query.Request{
		Skip:    &skip,
		Take:    &take,
		Where:   "Amt >= 20 OR Id = 1",
		OrderBy: "-Id",
		Fields:  "Id",
		Include: "COUNT(*), SUM(Amt), Total, count(distinct Name)",
		Meta:    map[string]string{"caller": "test"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.QueryID)
	assert.Equal(t, 1, resp.Offset)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, order{Id: 2}, *resp.Results[0])
	assert.Equal(t, value.Int(3), resp.Aggregates["COUNT(*)"])
	assert.Equal(t, value.Real(60), resp.Aggregates["SUM(Amt)"])
	assert.Equal(t, value.Int(2), resp.Aggregates["count(distinct Name)"])
	assert.Equal(t, "test", resp.Meta["caller"])

	_, err = ds.Execute(context.Background(), query.Request{Include: "SUM(Nope)"})
	assert.True(t, mserrors.IsCode(err, mserrors.ErrFieldNotFound))
}
