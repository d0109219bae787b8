// Package backend names the capabilities an external record store offers to
// the query pipeline.
package backend

import (
	"context"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
)

// Store is an external store of dynamic records.
type Store interface {
	Name() string
	Records(ctx context.Context, q *query.Query[item.Item]) ([]*item.Item, error)
	Close() error
}

// Writer is implemented by stores that accept new records.
type Writer interface {
	Insert(ctx context.Context, items ...*item.Item) error
}

// SchemaInitializer is implemented by stores that can create their own
// tables or structures. InitSchema is idempotent.
type SchemaInitializer interface {
	InitSchema(ctx context.Context) error
}
