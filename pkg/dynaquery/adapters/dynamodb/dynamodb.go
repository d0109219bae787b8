// Package dynamodb reads dynamic records from a DynamoDB table with a
// paginated Scan.
package dynamodb

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
)

type Options struct {
	Region   string
	Endpoint string
	// AccessKeyID and SecretAccessKey override the default credential chain
	// when both are set.
	AccessKeyID     string
	SecretAccessKey string
	Table           string
	// Segments > 1 runs a parallel scan.
	Segments       int32
	ConsistentRead bool
	Logger         *slog.Logger
}

// Client is the part of *dynamodb.Client the store uses.
type Client interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Page is one Scan response. LastEvaluatedKey is empty on the last page.
type Page struct {
	Data             []*item.Item
	LastEvaluatedKey map[string]types.AttributeValue
}

type Store struct {
	client         Client
	table          string
	desc           schema.Description
	segments       int32
	consistentRead bool
	logger         *slog.Logger
}

func New(client Client, desc schema.Description, opts Options) (*Store, error) {
	if _, err := item.NewType(desc); err != nil {
		return nil, err
	}
	table := opts.Table
	if table == "" {
		table = desc.Name
	}
	if opts.Segments < 1 {
		opts.Segments = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		client:         client,
		table:          table,
		desc:           desc,
		segments:       opts.Segments,
		consistentRead: opts.ConsistentRead,
		logger:         opts.Logger,
	}, nil
}

// NewClient builds a client from the default AWS configuration chain, with
// optional region, endpoint and static credential overrides.
func NewClient(ctx context.Context, opts Options) (*dynamodb.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrConfig, "load aws config", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

func Open(ctx context.Context, opts Options, desc schema.Description) (*Store, error) {
	client, err := NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return New(client, desc, opts)
}

func (s *Store) Name() string { return "dynamodb" }

// ScanPage reads one page of a segment starting after startKey.
func (s *Store) ScanPage(ctx context.Context, segment int32, startKey map[string]types.AttributeValue) (Page, error) {
	input := &dynamodb.ScanInput{
		TableName:         aws.String(s.table),
		ExclusiveStartKey: startKey,
		ConsistentRead:    aws.Bool(s.consistentRead),
	}
	if s.segments > 1 {
		input.Segment = aws.Int32(segment)
		input.TotalSegments = aws.Int32(s.segments)
	}
	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return Page{}, mserrors.Wrap(mserrors.ErrBackend, "dynamodb scan "+s.table, err)
	}
	page := Page{Data: make([]*item.Item, len(out.Items)), LastEvaluatedKey: out.LastEvaluatedKey}
	for i, raw := range out.Items {
		page.Data[i] = item.Decode(s.desc, fromItem(raw))
	}
	return page, nil
}

func (s *Store) scanSegment(ctx context.Context, segment int32) ([]*item.Item, error) {
	var (
		items    []*item.Item
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := s.ScanPage(ctx, segment, startKey)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Data...)
		if len(page.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// Records scans the whole table, following LastEvaluatedKey until the last
// page. Segment results are concatenated in segment order.
func (s *Store) Records(ctx context.Context, q *query.Query[item.Item]) ([]*item.Item, error) {
	start := time.Now()
	parts := make([][]*item.Item, s.segments)
	g, gctx := errgroup.WithContext(ctx)
	for seg := range s.segments {
		g.Go(func() error {
			items, err := s.scanSegment(gctx, seg)
			parts[seg] = items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*item.Item
	for _, p := range parts {
		out = append(out, p...)
	}
	attrs := []any{"backend", "dynamodb", "table", s.table, "segments", s.segments, "rows", len(out), "duration", time.Since(start)}
	if q != nil {
		attrs = append(attrs, "query", q.ID())
	}
	s.logger.Debug("dynamodb scan", attrs...)
	return out, nil
}

// Insert puts each item. Null attributes are omitted.
func (s *Store) Insert(ctx context.Context, items ...*item.Item) error {
	for _, it := range items {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      toItem(item.Encode(s.desc, it)),
		})
		if err != nil {
			return mserrors.Wrap(mserrors.ErrBackend, "dynamodb put "+s.table, err)
		}
	}
	s.logger.Debug("dynamodb insert", "table", s.table, "rows", len(items))
	return nil
}

func (s *Store) Close() error { return nil }
