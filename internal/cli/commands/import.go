package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/adapters/memory"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/backend"
	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
)

func NewImportCommand(st *State) *cobra.Command {
	var initSchema bool
	cmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Insert JSON-lines records (from FILE or stdin) into the configured store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return mserrors.Wrap(mserrors.ErrConfig, "open "+args[0], err)
				}
				defer f.Close()
				in = f
			}

			store, desc, err := st.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			w, ok := store.(backend.Writer)
			if !ok {
				return mserrors.Wrap(mserrors.ErrNotImpl, store.Name()+" insert", mserrors.ErrNotImplemented)
			}
			if initSchema {
				if si, ok := store.(backend.SchemaInitializer); ok {
					if err := si.InitSchema(cmd.Context()); err != nil {
						return err
					}
				}
			}

			items, err := memory.ReadJSONL(in, desc)
			if err != nil {
				return err
			}
			if err := w.Insert(cmd.Context(), items...); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d records into %s\n", len(items), store.Name())
			return err
		},
	}
	cmd.Flags().BoolVar(&initSchema, "init", false, "create the table or structures first")
	return cmd
}
