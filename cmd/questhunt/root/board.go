// Package root implements the interactive board command.
package root

import (
	"context"

	"github.com/spf13/cobra"

	"questhunt/internal/tui"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive quest board",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.cfg.Scheduler.Enabled {
				sc, err := a.rewards.StartScheduler(ctx)
				if err != nil {
					return err
				}
				defer sc.Stop()
			}

			return tui.RunBoard(ctx, tui.Services{
				Quests:  a.quests,
				Rewards: a.rewards,
				Stats:   a.stats,
				Profile: a.profile,
			}, cmd.OutOrStdout())
		},
	}
	return cmd
}
