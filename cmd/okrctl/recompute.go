package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/okrbridge-backend/internal/app"
)

func newRecomputeCommand(c *cli) *cobra.Command {
	var (
		corporate   []string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Re-run the rollup for delegated corporate key results",
		Long: "Recomputes every delegated key result of the given corporate objectives from the " +
			"objectives currently linked to it. Without --corporate every corporate objective is visited.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := parseIDs(corporate)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := app.RecomputeDelegated(ctx, a.Log, a.Aggregates.Corporate, a.Repos.Corporate, ids, concurrency)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, r := range report.Results {
					if r.Err != nil {
						fmt.Fprintf(out, "%s[%d] failed: %v\n", r.CorporateObjectiveID, r.KeyResultIndex, r.Err)
						continue
					}
					fmt.Fprintf(out, "%s[%d] progress=%d\n", r.CorporateObjectiveID, r.KeyResultIndex, r.Progress)
				}
				fmt.Fprintf(out, "done; key_results=%d failed=%d\n", len(report.Results), report.Failed)
				if report.Failed > 0 {
					return fmt.Errorf("%d key results failed to recompute", report.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&corporate, "corporate", nil, "corporate objective id (repeatable)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "key results recomputed in parallel")
	return cmd
}
