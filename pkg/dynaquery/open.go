// Package dynaquery selects a record store by backend name and exposes it as
// a query pipeline over dynamic records.
package dynaquery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nonibytes/dynaquery/internal/cliopt"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/dynamodb"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/memory"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/postgres"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/redis"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/sqlite"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/backend"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/pipeline"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

type OpenOptions struct {
	Backend string

	FilePath string

	SQLitePath   string
	SQLiteDriver string
	SQLiteTable  string

	PostgresDSN    string
	PostgresSchema string
	PostgresTable  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	DynamoDBTable    string
	DynamoDBRegion   string
	DynamoDBEndpoint string

	Logger *slog.Logger
}

// OpenOptionsFromCLI converts loaded CLI configuration into open options.
func OpenOptionsFromCLI(o cliopt.Options, logger *slog.Logger) OpenOptions {
	return OpenOptions{
		Backend:          o.Backend,
		FilePath:         o.File.Path,
		SQLitePath:       o.SQLite.Path,
		SQLiteDriver:     o.SQLite.Driver,
		SQLiteTable:      o.SQLite.Table,
		PostgresDSN:      o.Postgres.DSN,
		PostgresSchema:   o.Postgres.Schema,
		PostgresTable:    o.Postgres.Table,
		RedisAddr:        o.Redis.Addr,
		RedisPassword:    o.Redis.Password,
		RedisDB:          o.Redis.DB,
		RedisPrefix:      o.Redis.Prefix,
		DynamoDBTable:    o.DynamoDB.Table,
		DynamoDBRegion:   o.DynamoDB.Region,
		DynamoDBEndpoint: o.DynamoDB.Endpoint,
		Logger:           logger,
	}
}

// Open selects a backend implementation for records described by desc.
func Open(ctx context.Context, opts OpenOptions, desc schema.Description) (backend.Store, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	var store backend.Store
	switch strings.ToLower(opts.Backend) {
	case BackendFile, "":
		if opts.FilePath == "" {
			return nil, mserrors.NewError(mserrors.ErrConfig, "file path is required")
		}
		s, err := memory.LoadFile(ctx, opts.FilePath, desc, memory.WithLogger(opts.Logger))
		if err != nil {
			return nil, err
		}
		store = s
	case BackendSQLite:
		s, err := sqlite.Open(ctx, sqlite.Options{
			Path:       opts.SQLitePath,
			DriverName: opts.SQLiteDriver,
			Table:      opts.SQLiteTable,
			Logger:     opts.Logger,
		}, desc)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendPostgres, "pg":
		s, err := postgres.Open(ctx, postgres.Options{
			DSN:    opts.PostgresDSN,
			Schema: opts.PostgresSchema,
			Table:  opts.PostgresTable,
			Logger: opts.Logger,
		}, desc)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendRedis:
		s, err := redis.Open(ctx, redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
			Logger:   opts.Logger,
		}, desc)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendDynamoDB:
		s, err := dynamodb.Open(ctx, dynamodb.Options{
			Table:    opts.DynamoDBTable,
			Region:   opts.DynamoDBRegion,
			Endpoint: opts.DynamoDBEndpoint,
			Logger:   opts.Logger,
		}, desc)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, mserrors.NewError(mserrors.ErrConfig, "unknown backend "+opts.Backend)
	}
	if opts.Logger != nil {
		opts.Logger.Debug("opened store", "backend", store.Name(), "type", desc.Name)
	}
	return store, nil
}

// OpenDataSource opens the configured store and wraps it in a query pipeline
// over dynamic records. The caller closes the returned store.
func OpenDataSource(ctx context.Context, opts OpenOptions, desc schema.Description) (*pipeline.DataSource[item.Item], backend.Store, error) {
	typ, err := item.NewType(desc)
	if err != nil {
		return nil, nil, err
	}
	store, err := Open(ctx, opts, desc)
	if err != nil {
		return nil, nil, err
	}
	var popts []pipeline.Option
	if opts.Logger != nil {
		popts = append(popts, pipeline.WithLogger(opts.Logger))
	}
	return pipeline.New[item.Item](typ, store, popts...), store, nil
}
