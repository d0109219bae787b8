package celcond

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/pipeline"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

func TestMatch(t *testing.T) {
	c, err := New("DivisibleBy", "int(field) % int(operand) == 0")
	require.NoError(t, err)
	assert.Equal(t, "DivisibleBy", c.Alias())
	assert.True(t, c.Match(value.Int(9), value.Int(3)))
	assert.False(t, c.Match(value.Int(10), value.Int(3)))

	// Division by zero is an evaluation error and never matches.
	assert.False(t, c.Match(value.Int(10), value.Int(0)))
	_, err = c.Eval(value.Int(10), value.Int(0))
	assert.True(t, mserrors.IsCode(err, mserrors.ErrTypeMismatch))
}

func TestStringFunctions(t *testing.T) {
	c, err := New("Matches", "string(field).matches(string(operand))")
	require.NoError(t, err)
	assert.True(t, c.Match(value.Text("order-42"), value.Text(`^order-\d+$`)))
	assert.False(t, c.Match(value.Text("invoice"), value.Text(`^order-\d+$`)))
}

func TestNewRejectsBadExpressions(t *testing.T) {
	for _, tc := range []struct{ alias, expr string }{
		{"", "true"},
		{"x", ""},
		{"x", "field +"},
		{"x", "1 + 2"},
	} {
		_, err := New(tc.alias, tc.expr)
		assert.True(t, mserrors.IsCode(err, mserrors.ErrQueryParse), "%q %q", tc.alias, tc.expr)
	}
}

type reading struct {
	Id    int64
	Level int64
}

func TestRegisteredConditionInPipeline(t *testing.T) {
	_, err := Register("Odd", "int(field) % 2 == 1")
	require.NoError(t, err)

	typ := schema.NewType[reading]("reading", nil).With(
		schema.Integer("Id", func(r *reading) *int64 { return &r.Id }),
		schema.Integer("Level", func(r *reading) *int64 { return &r.Level }),
	).MustBuild()
	ds := pipeline.New(typ, pipeline.Static([]*reading{{Id: 1, Level: 5}, {Id: 2, Level: 6}, {Id: 3, Level: 7}}))

	b := ds.NewQuery()
	require.NoError(t, b.ApplyWhere("Level Odd 0"))
	n, err := ds.Count(context.Background(), b.Build())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := query.Lookup("odd")
	assert.True(t, ok)
}
