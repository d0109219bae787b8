// Package cli provides the dynaquery command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/dynaquery/internal/cli/commands"
	"github.com/nonibytes/dynaquery/internal/cliopt"
)

var Version = "0.1.0"

// NewRootCmd builds the command tree. Output goes to stdout and logs to
// stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &commands.State{}

	rootCmd := &cobra.Command{
		Use:   "dynaquery",
		Short: "Filter, sort, page and aggregate records from pluggable stores",
		Long: `dynaquery loads records described by a schema file from a store
(JSON-lines file, SQLite, PostgreSQL, Redis or DynamoDB) and evaluates
where clauses, ordering, paging and aggregates over them in memory.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
			opts, err := cliopt.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			st.Options = opts
			st.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	cliopt.BindFlags(rootCmd.PersistentFlags())
	_ = rootCmd.RegisterFlagCompletionFunc("backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"file", "sqlite", "postgres", "redis", "dynamodb"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewSelectCommand(st))
	rootCmd.AddCommand(commands.NewCountCommand(st))
	rootCmd.AddCommand(commands.NewAggregateCommand(st))
	rootCmd.AddCommand(commands.NewSchemaCommand(st))
	rootCmd.AddCommand(commands.NewImportCommand(st))
	rootCmd.AddCommand(commands.NewConditionsCommand(st))
	return rootCmd
}

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	rootCmd := NewRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(argv)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
