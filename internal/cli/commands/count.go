package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/internal/cliutil"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
)

func NewCountCommand(st *State) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count records matching a where clause",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			n, err := ds.Count(cmd.Context(), q)
			if err != nil {
				return err
			}
			if st.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), map[string]int{"count": n})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	qf.bind(cmd, false)
	return cmd
}
