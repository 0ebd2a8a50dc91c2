package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/yungbote/okrbridge-backend/internal/app"
)

func newStatsCommand(c *cli) *cobra.Command {
	var objective, corporate string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the derived stats of one objective or corporate objective as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (objective == "") == (corporate == "") {
				return errors.New("exactly one of --objective or --corporate is required")
			}
			raw := objective
			if raw == "" {
				raw = corporate
			}
			ids, err := parseIDs([]string{raw})
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if objective != "" {
					stats, err := a.Aggregates.Stats.ObjectiveStats(ctx, ids[0])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				stats, err := a.Aggregates.Stats.CorporateObjectiveStats(ctx, ids[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().StringVar(&objective, "objective", "", "team objective id")
	cmd.Flags().StringVar(&corporate, "corporate", "", "corporate objective id")
	return cmd
}
