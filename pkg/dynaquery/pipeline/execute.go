package pipeline

import (
	"context"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// Response is the result of executing a Request.
type Response[T any] struct {
	QueryID string `json:"queryId"`
	Offset  int    `json:"offset"`
	// Total is the number of records matching the conditions, before paging.
	Total      int                    `json:"total"`
	Results    []*T                   `json:"results"`
	Aggregates map[string]value.Value `json:"aggregates,omitempty"`
	Meta       map[string]string      `json:"meta,omitempty"`
}

// Execute builds a query from req, loads the records once and returns the
// selected page, the total match count and every aggregate named in
// req.Include.
func (d *DataSource[T]) Execute(ctx context.Context, req query.Request) (*Response[T], error) {
	q, err := query.FromRequest(d.typ, req)
	if err != nil {
		return nil, err
	}
	calls, err := req.Aggregates()
	if err != nil {
		return nil, err
	}

	recs, err := d.load(ctx, q)
	if err != nil {
		return nil, err
	}

	resp := &Response[T]{
		QueryID: q.ID(),
		Total:   len(ApplyConditions(q.Conditions(), recs)),
		Results: Project(q, d.selectRows(q, recs), d.typ),
		Meta:    q.Params(),
	}
	if skip, ok := q.Offset(); ok {
		resp.Offset = skip
	}
	if len(calls) > 0 {
		resp.Aggregates = make(map[string]value.Value, len(calls))
		for _, call := range calls {
			v, err := d.aggregate(q, recs, call.Name, call.Args)
			if err != nil {
				return nil, err
			}
			resp.Aggregates[call.Label] = v
		}
	}
	d.logger.Debug("executed request", "query", q.ID(), "total", resp.Total, "returned", len(resp.Results), "aggregates", len(calls))
	return resp, nil
}
