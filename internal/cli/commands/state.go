// Package commands holds the dynaquery subcommands.
package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/internal/cliopt"
	"github.com/nonibytes/dynaquery/internal/cliutil"
	"github.com/nonibytes/dynaquery/pkg/dynaquery"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/backend"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/celcond"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/pipeline"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/schema"
)

// State is filled by the root command before any subcommand runs.
type State struct {
	Options cliopt.Options
	Logger  *slog.Logger
}

func (s *State) format() cliutil.OutputFormat {
	return cliutil.ParseOutputFormat(s.Options.Output)
}

func (s *State) description() (schema.Description, error) {
	if s.Options.Schema == "" {
		return schema.Description{}, mserrors.NewError(mserrors.ErrConfig, "missing --schema")
	}
	return schema.LoadFile(s.Options.Schema)
}

func (s *State) openStore(ctx context.Context) (backend.Store, schema.Description, error) {
	desc, err := s.description()
	if err != nil {
		return nil, desc, err
	}
	store, err := dynaquery.Open(ctx, dynaquery.OpenOptionsFromCLI(s.Options, s.Logger), desc)
	return store, desc, err
}

func (s *State) openDataSource(ctx context.Context) (*pipeline.DataSource[item.Item], backend.Store, error) {
	desc, err := s.description()
	if err != nil {
		return nil, nil, err
	}
	return dynaquery.OpenDataSource(ctx, dynaquery.OpenOptionsFromCLI(s.Options, s.Logger), desc)
}

// queryFlags are shared by the commands that evaluate a query.
type queryFlags struct {
	where       string
	orderBy     string
	orderByDesc string
	fields      string
	include     string
	skip        int
	take        int
	defines     []string
}

func (f *queryFlags) bind(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringVarP(&f.where, "where", "w", "", `where clause, e.g. "Amt > 15 AND Name StartsWith ab"`)
	cmd.Flags().StringVar(&f.orderBy, "order-by", "", `comma-separated fields, "-" prefix for descending`)
	cmd.Flags().StringVar(&f.orderByDesc, "order-by-desc", "", `comma-separated fields, "-" prefix for ascending`)
	cmd.Flags().StringArrayVar(&f.defines, "define", nil, "register a condition ALIAS=CEL expression over field and operand (repeatable)")
	if paging {
		cmd.Flags().StringVarP(&f.fields, "fields", "f", "", "comma-separated fields to return")
		cmd.Flags().StringVar(&f.include, "include", "", `aggregates to compute, e.g. "COUNT(*), SUM(Amt)"`)
		cmd.Flags().IntVar(&f.skip, "skip", 0, "records to skip")
		cmd.Flags().IntVar(&f.take, "take", 0, "records to return")
	}
}

// registerDefines compiles and registers each --define before the where
// clause is parsed.
func (f *queryFlags) registerDefines() error {
	for _, d := range f.defines {
		alias, expr, ok := strings.Cut(d, "=")
		if !ok || strings.TrimSpace(alias) == "" {
			return mserrors.NewError(mserrors.ErrConfig, "--define expects ALIAS=EXPRESSION, got "+d)
		}
		if _, err := celcond.Register(strings.TrimSpace(alias), expr); err != nil {
			return err
		}
	}
	return nil
}

func (f *queryFlags) request(cmd *cobra.Command) query.Request {
	r := query.Request{
		Where:       f.where,
		OrderBy:     f.orderBy,
		OrderByDesc: f.orderByDesc,
		Fields:      f.fields,
		Include:     f.include,
	}
	if cmd.Flags().Changed("skip") {
		skip := f.skip
		r.Skip = &skip
	}
	if cmd.Flags().Changed("take") {
		take := f.take
		r.Take = &take
	}
	return r
}

// columns resolves the requested field names to declared names, in request
// order, or returns every declared field.
func columns(typ *schema.Type[item.Item], fields string) []string {
	var cols []string
	for _, name := range strings.Split(fields, ",") {
		if f, ok := typ.Field(strings.TrimSpace(name)); ok {
			cols = append(cols, f.Name)
		}
	}
	if len(cols) > 0 {
		return cols
	}
	for _, f := range typ.Fields() {
		cols = append(cols, f.Name)
	}
	return cols
}
