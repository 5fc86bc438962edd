package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPatternsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List pattern categories, weights and expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := ro.open(cmd)
			defer func() { _, _ = a.Close(cmd.Context()) }()
			return printJSON(cmd.OutOrStdout(), a.Facade().Patterns())
		},
	}
}

func newMigrateCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the primary table and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := ro.open(cmd)
			defer func() { _, _ = a.Close(cmd.Context()) }()

			dialect, err := a.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", dialect)
			return err
		},
	}
}
