// Package sqlite opens a table in a SQLite database file as a record source.
package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/sqlsource"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
)

// DefaultDriver is the pure-Go driver; builds with cgo also register
// "sqlite3".
const DefaultDriver = "sqlite"

type Options struct {
	Path string
	// DriverName defaults to DefaultDriver.
	DriverName string
	Table      string
	Logger     *slog.Logger
}

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DefaultDriver}
}

func NewWithDriver(path, driver string) *Adapter {
	if driver == "" {
		driver = DefaultDriver
	}
	return &Adapter{Path: path, DriverName: driver}
}

// Connect opens the database with a busy timeout and checks it responds.
func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	params := busyTimeoutParam(a.DriverName)
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + params
	} else {
		dsn = dsn + "&" + params
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrBackend, "open sqlite", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mserrors.Wrap(mserrors.ErrBackend, "ping sqlite", err)
	}
	return db, nil
}

func busyTimeoutParam(driver string) string {
	if driver == "sqlite3" {
		return "_busy_timeout=5000"
	}
	return "_pragma=busy_timeout(5000)"
}

// Open connects and wraps opts.Table as a record source.
func Open(ctx context.Context, opts Options, desc schema.Description) (*sqlsource.Source, error) {
	if opts.Path == "" {
		return nil, mserrors.NewError(mserrors.ErrConfig, "sqlite path is required")
	}
	table := opts.Table
	if table == "" {
		table = desc.Name
	}
	db, err := NewWithDriver(opts.Path, opts.DriverName).Connect(ctx)
	if err != nil {
		return nil, err
	}
	src, err := sqlsource.New(db, sqlsource.SQLite, table, desc, opts.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}
