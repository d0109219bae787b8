package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/internal/cliutil"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/query"
)

func NewConditionsCommand(st *State) *cobra.Command {
	return &cobra.Command{
		Use:   "conditions",
		Short: "List the condition aliases usable in where clauses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			aliases := query.Aliases()
			if st.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), aliases)
			}
			for _, a := range aliases {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}
}
