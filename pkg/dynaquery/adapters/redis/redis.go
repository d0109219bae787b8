// Package redis keeps dynamic records as Redis hashes, one hash per record
// under a shared key prefix.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/sequence"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

const (
	scanCount       = 500
	defaultParallel = 16
)

type Options struct {
	Addr      string
	Password  string
	DB        int
	TLSConfig *tls.Config
	// Prefix defaults to the description name followed by ":".
	Prefix string
	// Parallel bounds concurrent HGETALL calls.
	Parallel int
	Logger   *slog.Logger
}

// Client is the part of *redis.Client the store uses.
type Client interface {
	sequence.RedisClient
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Close() error
}

func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:      opts.Addr,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	})
}

type Store struct {
	client   Client
	desc     schema.Description
	pk       string
	autoInc  bool
	prefix   string
	seq      *sequence.Redis
	parallel int
	logger   *slog.Logger
}

// New wraps client. Records live under opts.Prefix + primary key.
func New(client Client, desc schema.Description, opts Options) (*Store, error) {
	typ, err := item.NewType(desc)
	if err != nil {
		return nil, err
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = desc.Name + ":"
	}
	if opts.Parallel <= 0 {
		opts.Parallel = defaultParallel
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	_, autoInc := typ.AutoIncrement()
	return &Store{
		client:   client,
		desc:     desc,
		pk:       typ.PrimaryKey().Name,
		autoInc:  autoInc,
		prefix:   prefix,
		seq:      sequence.NewRedis(client, prefix+"_seq:"),
		parallel: opts.Parallel,
		logger:   opts.Logger,
	}, nil
}

// Open dials Redis and checks it answers.
func Open(ctx context.Context, opts Options, desc schema.Description) (*Store, error) {
	if opts.Addr == "" {
		return nil, mserrors.NewError(mserrors.ErrConfig, "redis address is required")
	}
	client := NewClient(opts)
	s, err := New(client, desc, opts)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Name() string { return "redis" }

// InitSchema checks connectivity; hashes need no setup.
func (s *Store) InitSchema(ctx context.Context) error { return s.seq.InitSchema(ctx) }

func (s *Store) keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	seqPrefix := s.prefix + "_seq:"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanCount).Result()
		if err != nil {
			return nil, mserrors.Wrap(mserrors.ErrBackend, "redis scan", err)
		}
		for _, k := range batch {
			if strings.HasPrefix(k, seqPrefix) {
				continue
			}
			keys = append(keys, k)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys, nil
}

// Records loads every hash under the prefix in key order.
func (s *Store) Records(ctx context.Context, q *query.Query[item.Item]) ([]*item.Item, error) {
	start := time.Now()
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*item.Item, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, key := range keys {
		g.Go(func() error {
			h, err := s.client.HGetAll(gctx, key).Result()
			if err != nil {
				return mserrors.Wrap(mserrors.ErrBackend, "redis hgetall "+key, err)
			}
			if len(h) > 0 {
				items[i] = s.fromHash(h)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := items[:0]
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	attrs := []any{"backend", "redis", "prefix", s.prefix, "rows", len(out), "duration", time.Since(start)}
	if q != nil {
		attrs = append(attrs, "query", q.ID())
	}
	s.logger.Debug("redis scan", attrs...)
	return out, nil
}

func (s *Store) fromHash(h map[string]string) *item.Item {
	attrs := make(map[string]value.Value, len(h))
	for _, f := range s.desc.Fields {
		raw, ok := h[f.StoreName()]
		if !ok {
			continue
		}
		attrs[f.StoreName()] = decodeField(raw, f.Kind())
	}
	return item.Decode(s.desc, attrs)
}

// decodeField returns text for item.Decode to convert, except lists which
// are stored as JSON arrays.
func decodeField(raw string, kind value.Kind) value.Value {
	if kind == value.KindList {
		var list []any
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return value.Of(list)
		}
	}
	return value.Text(raw)
}

// encodeField stores scalars in canonical text form; bytes come out base64.
func encodeField(v value.Value) (string, error) {
	if v.Kind() == value.KindList {
		b, err := json.Marshal(v)
		return string(b), err
	}
	return value.Canonical(v), nil
}

// Insert writes each item as a hash. Items without a key get one from a
// counter when the key is auto-increment. Null attributes are not stored.
func (s *Store) Insert(ctx context.Context, items ...*item.Item) error {
	for _, it := range items {
		pk := it.Get(s.pk)
		if pk.IsNull() {
			if !s.autoInc {
				return mserrors.NewError(mserrors.ErrBackend, "redis insert: missing primary key "+s.pk)
			}
			n, err := s.seq.Increment(ctx, s.desc.Name, 1)
			if err != nil {
				return err
			}
			pk = value.Int(n)
			it.Set(s.pk, pk)
		}

		var fields []any
		for name, v := range item.Encode(s.desc, it) {
			if v.IsNull() {
				continue
			}
			enc, err := encodeField(v)
			if err != nil {
				return mserrors.Wrap(mserrors.ErrBackend, "encode "+name, err)
			}
			fields = append(fields, name, enc)
		}
		key := s.prefix + value.Canonical(pk)
		if err := s.client.HSet(ctx, key, fields...).Err(); err != nil {
			return mserrors.Wrap(mserrors.ErrBackend, "redis hset "+key, err)
		}
	}
	s.logger.Debug("redis insert", "prefix", s.prefix, "rows", len(items))
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
