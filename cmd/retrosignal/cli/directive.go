package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rdom "retrosignal/internal/services/retro/domain"
	rmod "retrosignal/internal/services/retro/module"
)

const aggregateLongDesc string = `Aggregate the signals captured for a directive into retrospective content.

Examples:
  retrosignal aggregate d1
  retrosignal aggregate d1 --min-weight 0.8 --no-dedup`

func newAggregateCmd(ro *rootOptions) *cobra.Command {
	var (
		minWeight float64
		noDedup   bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate <directive>",
		Short: "Aggregate signals for a directive",
		Long:  aggregateLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := ro.open(cmd)
			defer func() { _, _ = a.Close(cmd.Context()) }()

			opts := a.Retro.Ports().(rmod.Ports).Defaults
			if cmd.Flags().Changed("min-weight") {
				if minWeight < 0 || minWeight > 1 {
					return fmt.Errorf("--min-weight must be between 0 and 1")
				}
				opts.MinWeight = minWeight
			}
			if noDedup {
				opts.Deduplicate = false
			}
			return printJSON(cmd.OutOrStdout(), a.Facade().GetAggregatedSignals(cmd.Context(), args[0], &opts))
		},
	}

	cmd.Flags().Float64Var(&minWeight, "min-weight", 0.5, "Drop signals below this weight")
	cmd.Flags().BoolVar(&noDedup, "no-dedup", false, "Keep signals with repeated context")
	return cmd
}

func newStatsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <directive>",
		Short: "Show totals, category counts and time range for a directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := ro.open(cmd)
			defer func() { _, _ = a.Close(cmd.Context()) }()
			return printJSON(cmd.OutOrStdout(), a.Facade().GetStats(cmd.Context(), args[0]))
		},
	}
}

const enhanceLongDesc string = `Merge the signals captured for a directive into a retrospective JSON file.

The record is read from --retro and written to --out, or stdout when --out
is empty. Existing entries are kept.

Examples:
  retrosignal enhance d1 --retro retro.json --out retro.enhanced.json`

func newEnhanceCmd(ro *rootOptions) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "enhance <directive>",
		Short: "Merge captured signals into a retrospective",
		Long:  enhanceLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("reading retrospective: %w", err)
			}
			var retro rdom.Retrospective
			if err := json.Unmarshal(raw, &retro); err != nil {
				return fmt.Errorf("parsing retrospective: %w", err)
			}
			if retro == nil {
				retro = rdom.Retrospective{}
			}

			a := ro.open(cmd)
			defer func() { _, _ = a.Close(cmd.Context()) }()
			merged := a.Facade().EnhanceRetrospective(cmd.Context(), retro, args[0])

			if out == "" {
				return printJSON(cmd.OutOrStdout(), merged)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			if err := printJSON(f, merged); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVar(&in, "retro", "", "Retrospective JSON file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the merged record here instead of stdout")
	_ = cmd.MarkFlagRequired("retro")
	return cmd
}
