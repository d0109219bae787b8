package sqlsource

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
			{Name: "Amt", Type: "real", Attribute: "amount"},
			{Name: "Name", Type: "text"},
			{Name: "Tags", Type: "list"},
		},
	}
}

func newMock(t *testing.T, dialect Dialect) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	src, err := New(db, dialect, "orders", ordersDescription(), testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return src, mock
}

func TestRecordsScansRows(t *testing.T) {
	src, mock := newMock(t, SQLite)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "Id", "amount", "Name", "Tags" FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "amount", "Name", "Tags"}).
			AddRow(int64(1), 10.0, []byte("a"), `["x","y"]`).
			AddRow(int64(2), int64(20), "b", nil).
			AddRow(int64(3), "30", nil, nil))

	items, err := src.Records(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, value.Text("a"), items[0].Get("Name"))
	assert.Equal(t, value.List(value.Text("x"), value.Text("y")), items[0].Get("Tags"))
	assert.Equal(t, value.Real(20), items[1].Get("Amt"))
	assert.Equal(t, value.Real(30), items[2].Get("Amt"))
	assert.True(t, items[2].Get("Name").IsNull())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordsFeedPipeline(t *testing.T) {
	src, mock := newMock(t, Postgres)
	mock.ExpectQuery(`SELECT .* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "amount", "Name", "Tags"}).
			AddRow(int64(1), 10.0, "a", nil).
			AddRow(int64(2), 20.0, "b", nil).
			AddRow(int64(3), 30.0, "c", nil))

	typ, err := item.NewType(src.Description())
	require.NoError(t, err)
	ds := pipeline.New(typ, src)
	avg, err := ds.SelectAggregate(context.Background(), ds.NewQuery().Build(), "AVG", "Amt")
	require.NoError(t, err)
	assert.Equal(t, value.Real(20), avg)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordsWrapsErrors(t *testing.T) {
	src, mock := newMock(t, SQLite)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("no such table"))

	_, err := src.Records(context.Background(), nil)
	assert.True(t, mserrors.IsCode(err, mserrors.ErrBackend))
}

func TestInsertUsesDialectPlaceholders(t *testing.T) {
	src, mock := newMock(t, Postgres)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "orders" ("amount", "Name", "Tags") VALUES ($1, $2, $3)`)).
		WithArgs(1.5, "a", `["x"]`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "orders" ("Id", "amount", "Name", "Tags") VALUES ($1, $2, $3, $4)`)).
		WithArgs(int64(9), nil, "b", nil).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	err := src.Insert(context.Background(),
		item.FromMap(map[string]any{"Amt": 1.5, "Name": "a", "Tags": []any{"x"}}),
		item.FromMap(map[string]any{"Id": 9, "Name": "b"}),
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRollsBackOnError(t *testing.T) {
	src, mock := newMock(t, SQLite)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "orders"`).WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := src.Insert(context.Background(), item.FromMap(map[string]any{"Id": 1}))
	assert.True(t, mserrors.IsCode(err, mserrors.ErrBackend))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchemaDDL(t *testing.T) {
	src, mock := newMock(t, SQLite)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "orders" ("Id" INTEGER PRIMARY KEY AUTOINCREMENT, "amount" REAL, "Name" TEXT, "Tags" TEXT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, src.InitSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRejectsBadTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, SQLite, "orders; drop", ordersDescription(), nil)
	assert.True(t, mserrors.IsCode(err, mserrors.ErrConfig))

	_, err = New(db, Postgres, "sales.orders", ordersDescription(), nil)
	assert.NoError(t, err)
}

func TestBuilderPlaceholders(t *testing.T) {
	b := NewBuilder(PlaceholderDollar)
	assert.Equal(t, "$1", b.Arg("a"))
	assert.Equal(t, "$2", b.Arg(2))
	assert.Equal(t, []any{"a", 2}, b.Args())

	q := NewBuilder(PlaceholderQuestion)
	assert.Equal(t, "?", q.Arg(1))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}
