// Package pipeline executes a query against a record source: conditions,
// ordering, paging, projection and aggregation.
package pipeline

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
)

// RecordSource returns the raw, materialized records a query runs over.
type RecordSource[T any] interface {
	Records(ctx context.Context, q *query.Query[T]) ([]*T, error)
}

// SourceFunc adapts a function to a RecordSource.
type SourceFunc[T any] func(ctx context.Context, q *query.Query[T]) ([]*T, error)

func (f SourceFunc[T]) Records(ctx context.Context, q *query.Query[T]) ([]*T, error) {
	return f(ctx, q)
}

// Static serves the same slice to every query.
func Static[T any](records []*T) RecordSource[T] {
	return SourceFunc[T](func(context.Context, *query.Query[T]) ([]*T, error) {
		return records, nil
	})
}

// Cloner is implemented by record types whose plain struct copy would share
// state with the original.
type Cloner[T any] interface {
	Clone() *T
}

type settings struct {
	logger *slog.Logger
}

// Option configures a DataSource.
type Option func(*settings)

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// DataSource runs queries for record type T against one RecordSource. It
// holds no mutable state and may be shared across goroutines.
type DataSource[T any] struct {
	typ    *schema.Type[T]
	source RecordSource[T]
	logger *slog.Logger
}

func New[T any](typ *schema.Type[T], source RecordSource[T], opts ...Option) *DataSource[T] {
	var s settings
	for _, o := range opts {
		o(&s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return &DataSource[T]{typ: typ, source: source, logger: s.logger}
}

func (d *DataSource[T]) Type() *schema.Type[T] { return d.typ }

// NewQuery starts a builder for this source's record type.
func (d *DataSource[T]) NewQuery() *query.Builder[T] { return query.NewBuilder(d.typ) }

func (d *DataSource[T]) load(ctx context.Context, q *query.Query[T]) ([]*T, error) {
	start := time.Now()
	recs, err := d.source.Records(ctx, q)
	if err != nil {
		d.logger.Debug("load failed", "query", q.ID(), "error", err)
		return nil, err
	}
	d.logger.Debug("loaded records", "query", q.ID(), "type", q.Type().Name(), "count", len(recs), "duration", time.Since(start))
	return recs, nil
}

// Select runs q and returns records of the source type.
func (d *DataSource[T]) Select(ctx context.Context, q *query.Query[T]) ([]*T, error) {
	return LoadSelect(ctx, d, q, q.Type())
}

// LoadSelect runs q and converts every surviving record to Into. When Into
// is the query's own type and nothing is selected, records are returned as
// loaded. A field selection always works on copies.
func LoadSelect[Into, From any](ctx context.Context, d *DataSource[From], q *query.Query[From], into *schema.Type[Into]) ([]*Into, error) {
	recs, err := d.load(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := d.selectRows(q, recs)
	out := Project(q, rows, into)
	d.logger.Debug("projected", "query", q.ID(), "into", into.Name(), "count", len(out), "selection", q.Selection())
	return out, nil
}

func (d *DataSource[T]) selectRows(q *query.Query[T], recs []*T) []*T {
	rows := ApplyConditions(q.Conditions(), recs)
	d.logger.Debug("conditions applied", "query", q.ID(), "in", len(recs), "out", len(rows))
	if o := q.OrderBy(); o.Len() > 0 {
		o.Sort(rows)
		d.logger.Debug("sorted", "query", q.ID(), "order", o.String())
	}
	return ApplyLimits(q, rows)
}

// Count returns the number of records matching q's conditions. Ordering and
// paging are ignored.
func (d *DataSource[T]) Count(ctx context.Context, q *query.Query[T]) (int, error) {
	recs, err := d.load(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(ApplyConditions(q.Conditions(), recs)), nil
}

// ApplyConditions evaluates conds left to right over source. The first
// expression always narrows, whatever its term. The result never aliases
// source.
func ApplyConditions[T any](conds []query.ConditionExpression[T], source []*T) []*T {
	working := slices.Clone(source)
	for i, c := range conds {
		if i == 0 {
			c.Term = query.TermAnd
		}
		working = c.Apply(working, source)
	}
	return working
}

// ApplyLimits skips the offset, then caps at the row count.
func ApplyLimits[T any](q *query.Query[T], rows []*T) []*T {
	if skip, ok := q.Offset(); ok {
		skip = max(skip, 0)
		if skip >= len(rows) {
			return rows[:0]
		}
		rows = rows[skip:]
	}
	if take, ok := q.Rows(); ok {
		take = max(take, 0)
		if take < len(rows) {
			rows = rows[:take]
		}
	}
	return rows
}

// Project converts rows to Into and resets every field outside the query's
// selection. Source records are never modified.
func Project[Into, From any](q *query.Query[From], rows []*From, into *schema.Type[Into]) []*Into {
	from := q.Type()
	sameType := any(into) == any(from)
	out := make([]*Into, 0, len(rows))
	for _, rec := range rows {
		var dst *Into
		switch {
		case sameType && !q.HasSelection():
			dst = any(rec).(*Into)
		case sameType:
			dst = copyRecord(any(rec).(*Into))
		default:
			dst = into.New()
			schema.Populate(into, dst, from, rec)
		}
		if q.HasSelection() {
			for _, f := range into.Fields() {
				if f.Reset != nil && !q.Selected(f.Name) {
					f.Reset(dst)
				}
			}
		}
		out = append(out, dst)
	}
	return out
}

func copyRecord[T any](rec *T) *T {
	if c, ok := any(rec).(Cloner[T]); ok {
		return c.Clone()
	}
	cp := new(T)
	*cp = *rec
	return cp
}
