// Package root implements the long-running watch command.
package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"questhunt/internal/ui"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay running: end cooldowns on time and roll days over",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("interval must be positive")
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if !a.cfg.Scheduler.Enabled {
				return errors.New("scheduler is disabled (scheduler.enabled=false)")
			}
			sc, err := a.rewards.StartScheduler(ctx)
			if err != nil {
				return err
			}
			defer sc.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "%s watching, %d cooldown(s) pending. Ctrl+C to stop.\n", ui.IconTimer, sc.Pending())

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case sig := <-sigChan:
					log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
					return nil
				case <-ticker.C:
					if err := a.catchUp(ctx); err != nil {
						log.Error().Err(err).Msg("Failed to catch up")
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "How often to roll days over")
	return cmd
}
