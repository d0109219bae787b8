// Package memory is a record store kept in process memory.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/sequence"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

type options struct {
	seq    sequence.Source
	logger *slog.Logger
}

type Option func(*options)

// WithSequence sets the source of auto-increment values. The default is a
// private in-memory sequence.
func WithSequence(seq sequence.Source) Option {
	return func(o *options) { o.seq = seq }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Store holds records of type T in insertion order.
type Store[T any] struct {
	typ    *schema.Type[T]
	seq    sequence.Source
	logger *slog.Logger

	mu      sync.RWMutex
	records []*T
}

func New[T any](typ *schema.Type[T], opts ...Option) *Store[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.seq == nil {
		o.seq = sequence.NewMemory()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return &Store[T]{typ: typ, seq: o.seq, logger: o.logger}
}

func (s *Store[T]) Name() string { return "memory" }

// Insert appends recs. When the type has an auto-increment field, records
// whose value is unset (null or zero) get the next value of the sequence
// named after the type.
func (s *Store[T]) Insert(ctx context.Context, recs ...*T) error {
	if f, ok := s.typ.AutoIncrement(); ok && f.Writable() {
		for _, rec := range recs {
			if !unset(f.Get(rec)) {
				continue
			}
			n, err := s.seq.Increment(ctx, s.typ.Name(), 1)
			if err != nil {
				return err
			}
			f.Set(rec, value.Int(n))
		}
	}

	s.mu.Lock()
	s.records = append(s.records, recs...)
	total := len(s.records)
	s.mu.Unlock()
	s.logger.Debug("inserted records", "type", s.typ.Name(), "count", len(recs), "total", total)
	return nil
}

func unset(v value.Value) bool {
	if v.IsNull() {
		return true
	}
	i, ok := value.CoerceInt(v)
	return ok && i == 0
}

// Records returns a snapshot of every stored record. Conditions are left to
// the pipeline.
func (s *Store[T]) Records(_ context.Context, _ *query.Query[T]) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store[T]) Close() error { return nil }
