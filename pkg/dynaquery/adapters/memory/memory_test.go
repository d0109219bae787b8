package memory

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/dynaquery/internal/testutil"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/pipeline"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/sequence"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

type ticket struct {
	Serial int64
	Title  string
}

var ticketType = schema.NewType[ticket]("ticket", nil).With(
	schema.Integer("Serial", func(t *ticket) *int64 { return &t.Serial }, schema.AutoIncrement()),
	schema.String("Title", func(t *ticket) *string { return &t.Title }),
).MustBuild()

func TestInsertAssignsAutoIncrement(t *testing.T) {
	ctx := context.Background()
	seq := sequence.NewMemory()
	require.NoError(t, seq.Reset(ctx, "ticket", 100))

	s := New(ticketType, WithSequence(seq), WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, s.Insert(ctx, &ticket{Title: "a"}, &ticket{Serial: 7, Title: "b"}, &ticket{Title: "c"}))

	recs, err := s.Records(ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(101), recs[0].Serial)
	assert.Equal(t, int64(7), recs[1].Serial)
	assert.Equal(t, int64(102), recs[2].Serial)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "Serial", ticketType.PrimaryKey().Name)
}

func TestStoreAsPipelineSource(t *testing.T) {
	ctx := context.Background()
	s := New(ticketType)
	require.NoError(t, s.Insert(ctx, &ticket{Title: "b"}, &ticket{Title: "a"}))

	ds := pipeline.New(ticketType, s)
	got, err := ds.Select(ctx, ds.NewQuery().OrderByFields("Title").Build())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)

	// Sorting a query result leaves the store order alone.
	recs, _ := s.Records(ctx, nil)
	assert.Equal(t, "b", recs[0].Title)
}

func ordersDescription() schema.Description {
	return schema.Description{
		Name: "orders",
		Fields: []schema.FieldSpec{
			{Name: "Id", Type: "int", AutoIncrement: true},
			{Name: "Amt", Type: "real", Attribute: "amount"},
			{Name: "Name", Type: "text"},
		},
	}
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		`{"Id": 1, "amount": 10, "Name": "a"}`,
		``,
		`{"Id": 2, "amount": "20.5", "Name": "b"}`,
		`{"amount": 30, "Name": "c"}`,
	}, "\n")), 0o600))

	seq := sequence.NewMemory()
	require.NoError(t, seq.Reset(ctx, "orders", 2))
	s, err := LoadFile(ctx, path, ordersDescription(), WithSequence(seq))
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	ds := pipeline.New(s.typ, s)
	sum, err := ds.SelectAggregate(ctx, ds.NewQuery().Build(), "SUM", "Amt")
	require.NoError(t, err)
	assert.Equal(t, value.Real(60.5), sum)

	b := ds.NewQuery()
	require.NoError(t, b.ApplyWhere("Name = c"))
	got, err := ds.Select(ctx, b.Build())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, value.Int(3), got[0].Get("Id"))
}

func TestReadJSONLErrors(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"Id\": 1}\nnot json\n"), ordersDescription())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	d := ordersDescription()
	items, err := ReadJSONL(strings.NewReader(`{"Id": 4, "amount": 1.5, "Name": "x"}`), d)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, d, items))
	assert.JSONEq(t, `{"Id":4,"amount":1.5,"Name":"x"}`, buf.String())
}
