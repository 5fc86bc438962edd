package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const checkLongDesc string = `Report whether text holds a learning moment without capturing it.

Prints true or false. Nothing is written.

Examples:
  echo "in hindsight we should have paged" | retrosignal check`

func newCheckCmd(ro *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check text for learning moments",
		Long:  checkLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readText(cmd, file)
			if err != nil {
				return err
			}
			a := ro.open(cmd)
			defer func() { _, _ = a.Close(cmd.Context()) }()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.Facade().HasLearningMoments(text))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from file instead of stdin")
	return cmd
}
