package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/internal/cliutil"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/pipeline"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

func NewAggregateCommand(st *State) *cobra.Command {
	var (
		qf       queryFlags
		distinct bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate NAME [FIELD]",
		Short: "Compute COUNT, SUM, AVG, MIN, MAX, FIRST or LAST over matching records",
		Example: `  dynaquery aggregate SUM Amt -w "Name <> c"
  dynaquery aggregate COUNT Name --distinct
  dynaquery aggregate LAST Name --order-by Amt`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToUpper(args[0])
			if !pipeline.IsAggregate(name) {
				return mserrors.NewError(mserrors.ErrUnsupportedAggregate, "unsupported aggregate "+args[0])
			}
			var aggArgs []string
			if len(args) == 2 {
				arg := args[1]
				if distinct {
					arg = "DISTINCT " + arg
				}
				aggArgs = append(aggArgs, arg)
			}
			if err := qf.registerDefines(); err != nil {
				return err
			}
			ds, store, err := st.openDataSource(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			q, err := query.FromRequest(ds.Type(), qf.request(cmd))
			if err != nil {
				return err
			}
			v, err := ds.SelectAggregate(cmd.Context(), q, name, aggArgs...)
			if err != nil {
				return err
			}
			if st.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), map[string]value.Value{name: v})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value.Canonical(v))
			return err
		},
	}
	qf.bind(cmd, false)
	cmd.Flags().BoolVar(&distinct, "distinct", false, "count distinct values (COUNT only)")
	return cmd
}
