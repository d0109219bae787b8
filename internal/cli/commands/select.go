package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/internal/cliutil"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

func NewSelectCommand(st *State) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Filter, order and page records",
		Example: `  dynaquery select --schema orders.yaml --file-path orders.jsonl -w "Amt > 15" --order-by -Amt --take 10
  dynaquery select --schema orders.yaml -w "Name Like 'a%'" --include "COUNT(*), AVG(Amt), Total"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := qf.registerDefines(); err != nil {
				return err
			}
			ds, store, err := st.openDataSource(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			req := qf.request(cmd)
			resp, err := ds.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if st.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(out, resp)
			}
			if err := cliutil.PrintItems(out, cliutil.FormatTable, columns(ds.Type(), req.Fields), resp.Results); err != nil {
				return err
			}
			summary := map[string]value.Value{}
			for label, v := range resp.Aggregates {
				summary[label] = v
			}
			if req.Includes("Total") {
				summary["Total"] = value.Int(int64(resp.Total))
			}
			if len(summary) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			return cliutil.PrintValues(out, cliutil.FormatTable, summary)
		},
	}
	qf.bind(cmd, true)
	return cmd
}
