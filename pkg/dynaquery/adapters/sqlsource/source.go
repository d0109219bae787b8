// Package sqlsource reads and writes dynamic records in a single SQL table
// through database/sql.
package sqlsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle
	// Types maps a value kind to a column type.
	Types map[value.Kind]string
	// AutoIncrementPK is the full column definition of an auto-increment
	// primary key.
	AutoIncrementPK string
}

var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: PlaceholderQuestion,
	Types: map[value.Kind]string{
		value.KindInt:   "INTEGER",
		value.KindReal:  "REAL",
		value.KindText:  "TEXT",
		value.KindBytes: "BLOB",
		value.KindBool:  "INTEGER",
		value.KindList:  "TEXT",
	},
	AutoIncrementPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
}

var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: PlaceholderDollar,
	Types: map[value.Kind]string{
		value.KindInt:   "BIGINT",
		value.KindReal:  "DOUBLE PRECISION",
		value.KindText:  "TEXT",
		value.KindBytes: "BYTEA",
		value.KindBool:  "BOOLEAN",
		value.KindList:  "JSONB",
	},
	AutoIncrementPK: "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
}

// Source is one table of records described by a schema description.
type Source struct {
	db      *sql.DB
	dialect Dialect
	table   string
	desc    schema.Description
	pk      schema.FieldSpec
	logger  *slog.Logger
}

// New wraps db. The table name may be schema-qualified.
func New(db *sql.DB, dialect Dialect, table string, desc schema.Description, logger *slog.Logger) (*Source, error) {
	if !tableNameRe.MatchString(table) {
		return nil, mserrors.NewError(mserrors.ErrConfig, fmt.Sprintf("invalid table name %q", table))
	}
	typ, err := item.NewType(desc)
	if err != nil {
		return nil, err
	}
	pk := desc.Fields[0]
	for _, f := range desc.Fields {
		if f.Name == typ.PrimaryKey().Name {
			pk = f
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{db: db, dialect: dialect, table: table, desc: desc, pk: pk, logger: logger}, nil
}

func (s *Source) Name() string                    { return s.dialect.Name }
func (s *Source) Description() schema.Description { return s.desc }
func (s *Source) DB() *sql.DB                     { return s.db }

func (s *Source) quotedTable() string {
	parts := strings.Split(s.table, ".")
	for i := range parts {
		parts[i] = QuoteIdent(parts[i])
	}
	return strings.Join(parts, ".")
}

func (s *Source) columns() []string {
	cols := make([]string, len(s.desc.Fields))
	for i, f := range s.desc.Fields {
		cols[i] = QuoteIdent(f.StoreName())
	}
	return cols
}

// SelectSQL is the statement Records runs.
func (s *Source) SelectSQL() string {
	return "SELECT " + strings.Join(s.columns(), ", ") + " FROM " + s.quotedTable()
}

// Records reads the whole table. Filtering happens in the pipeline.
func (s *Source) Records(ctx context.Context, q *query.Query[item.Item]) ([]*item.Item, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, s.SelectSQL())
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrBackend, "select from "+s.table, err)
	}
	defer rows.Close()

	var items []*item.Item
	dest := make([]any, len(s.desc.Fields))
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mserrors.Wrap(mserrors.ErrBackend, "scan row", err)
		}
		attrs := make(map[string]value.Value, len(dest))
		for i, f := range s.desc.Fields {
			attrs[f.StoreName()] = fromDriver(dest[i], f.Kind())
		}
		items = append(items, item.Decode(s.desc, attrs))
	}
	if err := rows.Err(); err != nil {
		return nil, mserrors.Wrap(mserrors.ErrBackend, "iterate rows", err)
	}

	attrs := []any{"backend", s.dialect.Name, "table", s.table, "rows", len(items), "duration", time.Since(start)}
	if q != nil {
		attrs = append(attrs, "query", q.ID())
	}
	s.logger.Debug("sql scan", attrs...)
	return items, nil
}

// fromDriver converts a scanned column. Drivers hand back text as []byte in
// some configurations; only bytes columns keep it as raw bytes.
func fromDriver(raw any, kind value.Kind) value.Value {
	switch t := raw.(type) {
	case []byte:
		switch kind {
		case value.KindBytes:
			return value.Bytes(t)
		case value.KindList:
			var list []any
			if err := json.Unmarshal(t, &list); err == nil {
				return value.Of(list)
			}
		}
		return value.Text(string(t))
	case string:
		if kind == value.KindList {
			var list []any
			if err := json.Unmarshal([]byte(t), &list); err == nil {
				return value.Of(list)
			}
		}
		return value.Text(t)
	default:
		return value.Of(raw)
	}
}

// toDriver converts a value for use as a statement argument.
func toDriver(v value.Value) (any, error) {
	switch v.Kind() {
	case value.KindList:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v.Native(), nil
	}
}

// InitSchema creates the table when it does not exist.
func (s *Source) InitSchema(ctx context.Context) error {
	defs := make([]string, len(s.desc.Fields))
	for i, f := range s.desc.Fields {
		col := QuoteIdent(f.StoreName())
		switch {
		case f.Name == s.pk.Name && f.AutoIncrement:
			defs[i] = col + " " + s.dialect.AutoIncrementPK
		case f.Name == s.pk.Name:
			defs[i] = col + " " + s.dialect.Types[f.Kind()] + " PRIMARY KEY"
		default:
			defs[i] = col + " " + s.dialect.Types[f.Kind()]
		}
	}
	ddl := "CREATE TABLE IF NOT EXISTS " + s.quotedTable() + " (" + strings.Join(defs, ", ") + ")"
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return mserrors.Wrap(mserrors.ErrBackend, "create table "+s.table, err)
	}
	return nil
}

// Insert writes items in one transaction. A null auto-increment key is left
// to the database.
func (s *Source) Insert(ctx context.Context, items ...*item.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrBackend, "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, it := range items {
		b := NewBuilder(s.dialect.Placeholder)
		var cols, marks []string
		for _, f := range s.desc.Fields {
			v := it.Get(f.Name)
			if v.IsNull() && f.AutoIncrement {
				continue
			}
			arg, err := toDriver(v)
			if err != nil {
				return mserrors.Wrap(mserrors.ErrBackend, "encode "+f.Name, err)
			}
			cols = append(cols, QuoteIdent(f.StoreName()))
			marks = append(marks, b.Arg(arg))
		}
		stmt := "INSERT INTO " + s.quotedTable() + " DEFAULT VALUES"
		if len(cols) > 0 {
			stmt = "INSERT INTO " + s.quotedTable() + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
		}
		if _, err := tx.ExecContext(ctx, stmt, b.Args()...); err != nil {
			return mserrors.Wrap(mserrors.ErrBackend, "insert into "+s.table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return mserrors.Wrap(mserrors.ErrBackend, "commit", err)
	}
	s.logger.Debug("sql insert", "backend", s.dialect.Name, "table", s.table, "rows", len(items))
	return nil
}

func (s *Source) Close() error { return s.db.Close() }
