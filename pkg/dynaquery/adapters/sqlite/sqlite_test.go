package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nonibytes/dynaquery/internal/testutil"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/pipeline"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

func ordersDescription() schema.Description {
	return schema.Description{
		Name: "orders",
		Fields: []schema.FieldSpec{
			{Name: "Id", Type: "int", AutoIncrement: true},
			{Name: "Amt", Type: "real"},
			{Name: "Name", Type: "text"},
			{Name: "Paid", Type: "bool"},
		},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "orders.db")

	src, err := Open(ctx, Options{Path: dbPath, Logger: testutil.NewTestLogger(t)}, ordersDescription())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if err := src.InitSchema(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	// Idempotent.
	if err := src.InitSchema(ctx); err != nil {
		t.Fatalf("init schema again: %v", err)
	}

	err = src.Insert(ctx,
		item.FromMap(map[string]any{"Amt": 10.0, "Name": "a", "Paid": true}),
		item.FromMap(map[string]any{"Amt": 20.0, "Name": "b"}),
		item.FromMap(map[string]any{"Amt": 30.0, "Name": "c", "Paid": false}),
	)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	typ, err := item.NewType(ordersDescription())
	if err != nil {
		t.Fatalf("type: %v", err)
	}
	ds := pipeline.New(typ, src)

	b := ds.NewQuery().OrderByFieldsDescending("Id")
	if err := b.ApplyWhere("Amt > 15"); err != nil {
		t.Fatalf("where: %v", err)
	}
	rows, err := ds.Select(ctx, b.Build())
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if got := rows[0].Get("Id"); !value.Equal(got, value.Int(3)) {
		t.Errorf("expected auto-increment id 3 first, got %v", got)
	}
	if got := rows[1].Get("Name"); !value.Equal(got, value.Text("b")) {
		t.Errorf("expected b second, got %v", got)
	}
	if got := rows[0].Get("Paid"); !value.Equal(got, value.Bool(false)) {
		t.Errorf("expected Paid=false, got %v", got)
	}

	sum, err := ds.SelectAggregate(ctx, ds.NewQuery().Build(), "SUM", "Amt")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !value.Equal(sum, value.Real(60)) {
		t.Errorf("expected SUM 60, got %v", sum)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Options{}, ordersDescription())
	if !mserrors.IsCode(err, mserrors.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
