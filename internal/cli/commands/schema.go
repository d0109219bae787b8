package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/internal/cliutil"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
)

type fieldRow struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	Attribute     string `json:"attribute"`
	PrimaryKey    bool   `json:"primaryKey"`
	AutoIncrement bool   `json:"autoIncrement"`
}

// NewSchemaCommand prints the resolved fields of the record description. It
// does not touch the store.
func NewSchemaCommand(st *State) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the resolved fields and primary key of the record description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc, err := st.description()
			if err != nil {
				return err
			}
			typ, err := item.NewType(desc)
			if err != nil {
				return err
			}
			pk := typ.PrimaryKey().Name
			auto, _ := typ.AutoIncrement()

			rows := make([]fieldRow, len(desc.Fields))
			for i, f := range desc.Fields {
				rows[i] = fieldRow{
					Name:          f.Name,
					Kind:          f.Kind().String(),
					Attribute:     f.StoreName(),
					PrimaryKey:    f.Name == pk,
					AutoIncrement: auto != nil && f.Name == auto.Name,
				}
			}
			if st.format() == cliutil.FormatJSON {
				return cliutil.PrintJSON(cmd.OutOrStdout(), map[string]any{
					"name":       desc.Name,
					"primaryKey": pk,
					"fields":     rows,
				})
			}
			table := make([][]string, len(rows))
			for i, r := range rows {
				table[i] = []string{r.Name, r.Kind, r.Attribute, strconv.FormatBool(r.PrimaryKey), strconv.FormatBool(r.AutoIncrement)}
			}
			cliutil.PrintTable(cmd.OutOrStdout(), []string{"field", "kind", "attribute", "primary key", "auto increment"}, table)
			return nil
		},
	}
}
