// Package postgres opens a table in a PostgreSQL schema as a record source.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/sqlsource"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
)

// DefaultSchema is used when Options.Schema is empty.
const DefaultSchema = "public"

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Options struct {
	DSN string
	// Schema is created when missing and pinned first in search_path.
	Schema string
	Table  string
	Logger *slog.Logger
}

type Adapter struct {
	DSN    string
	Schema string
}

func New(dsn, schemaName string) *Adapter {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	return &Adapter{DSN: dsn, Schema: schemaName}
}

func (a *Adapter) validate() error {
	if !schemaNameRe.MatchString(a.Schema) {
		return mserrors.NewError(mserrors.ErrConfig,
			fmt.Sprintf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String()))
	}
	return nil
}

// ConnConfig parses the DSN and pins search_path to the adapter schema.
func (a *Adapter) ConnConfig() (*pgx.ConnConfig, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrConfig, "parse postgres dsn", err)
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	if a.Schema == DefaultSchema {
		cfg.RuntimeParams["search_path"] = DefaultSchema
	} else {
		cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", sqlsource.QuoteIdent(a.Schema))
	}
	return cfg, nil
}

func (a *Adapter) ensureSchema(ctx context.Context) error {
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return mserrors.Wrap(mserrors.ErrConfig, "parse postgres dsn", err)
	}
	db := stdlib.OpenDB(*cfg)
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return mserrors.Wrap(mserrors.ErrBackend, "ping postgres", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+sqlsource.QuoteIdent(a.Schema)); err != nil {
		return mserrors.Wrap(mserrors.ErrBackend, "create schema "+a.Schema, err)
	}
	return nil
}

// Connect makes sure the schema exists, then opens a pool whose sessions
// resolve unqualified names in it.
func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	cfg, err := a.ConnConfig()
	if err != nil {
		return nil, err
	}
	if a.Schema != DefaultSchema {
		if err := a.ensureSchema(ctx); err != nil {
			return nil, err
		}
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mserrors.Wrap(mserrors.ErrBackend, "ping postgres", err)
	}
	return db, nil
}

// Open connects and wraps opts.Table as a record source.
func Open(ctx context.Context, opts Options, desc schema.Description) (*sqlsource.Source, error) {
	if opts.DSN == "" {
		return nil, mserrors.NewError(mserrors.ErrConfig, "postgres dsn is required")
	}
	table := opts.Table
	if table == "" {
		table = desc.Name
	}
	db, err := New(opts.DSN, opts.Schema).Connect(ctx)
	if err != nil {
		return nil, err
	}
	src, err := sqlsource.New(db, sqlsource.Postgres, table, desc, opts.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return src, nil
}
