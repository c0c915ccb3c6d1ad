// Package root implements the stats subcommands.
package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"questhunt/internal/pkg/calendar"
	"questhunt/internal/service"
	"questhunt/internal/ui"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show progress, streaks and averages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			s, err := a.stats.Summary(ctx)
			if err != nil {
				return err
			}
			printSummary(cmd, s)
			return nil
		},
	}
	cmd.AddCommand(newStatsWeekCmd(), newStatsCloseCmd())
	return cmd
}

func printSummary(cmd *cobra.Command, s *service.Summary) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, ui.Heading(ui.IconChart, "Statistics"))
	fmt.Fprintln(w, ui.LabelValue("Today", fmt.Sprintf("%s %d/%d (%d%%)",
		ui.ProgressBar(int64(s.Today.Completed), int64(s.Today.Total), 20),
		s.Today.Completed, s.Today.Total, s.Today.Percentage)))
	fmt.Fprintln(w, ui.LabelValue("Streak", fmt.Sprintf("%s %d days (best %d)", ui.IconFire, s.Streak, s.BestStreak)))
	fmt.Fprintln(w, ui.LabelValue("Completion rate", fmt.Sprintf("%.0f%%", s.CompletionRate)))
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, ui.H2.Render(ui.IconCoin+" Economy"))
	fmt.Fprintln(w, ui.LabelValue("Balance", ui.Coins(s.Coins)))
	fmt.Fprintln(w, ui.LabelValue("Earned", s.TotalCoinsEarned))
	fmt.Fprintln(w, ui.LabelValue("Spent", s.TotalCoinsSpent))
	fmt.Fprintln(w, ui.LabelValue("Level", s.Level))
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, ui.H2.Render(ui.IconBolt+" Averages per day"))
	fmt.Fprintln(w, ui.LabelValue("Quests", fmt.Sprintf("%.1f", s.Rates.TasksPerDay)))
	fmt.Fprintln(w, ui.LabelValue("Coins earned", fmt.Sprintf("%.1f", s.Rates.CoinsPerDay)))
	fmt.Fprintln(w, ui.LabelValue("Coins spent", fmt.Sprintf("%.1f", s.Rates.SpentPerDay)))
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, ui.H2.Render(ui.IconTrophy+" Favourites"))
	fmt.Fprintln(w, ui.LabelValue("Quests", fmt.Sprintf("%d completed of %d", s.TotalCompleted, s.TotalQuests)))
	most := s.MostCompleted
	if most == "" {
		most = ui.Muted.Render("none yet")
	}
	fmt.Fprintln(w, ui.LabelValue("Most completed", most))
	if s.MostLiked != nil {
		fmt.Fprintln(w, ui.LabelValue("Most liked reward", s.MostLiked.Emoji+" "+s.MostLiked.Title))
	} else {
		fmt.Fprintln(w, ui.LabelValue("Most liked reward", ui.Muted.Render("none yet")))
	}
}

func newStatsWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show the last seven days",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rows, err := a.stats.Week(ctx)
			if err != nil {
				return err
			}
			var peak int64 = 1
			for _, r := range rows {
				if r.CoinsEarned > peak {
					peak = r.CoinsEarned
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconChart, "Last 7 days"))
			for _, r := range rows {
				fmt.Fprintf(w, "%s %s %s %s %s %s\n",
					ui.Key.Render(r.Weekday.String()[:3]),
					ui.Muted.Render(r.Date),
					ui.ProgressBar(r.CoinsEarned, peak, 16),
					fmt.Sprintf("%2d quests", r.TasksCompleted),
					ui.Gold.Render(fmt.Sprintf("+%d", r.CoinsEarned)),
					ui.Muted.Render(fmt.Sprintf("-%d %s", r.CoinsSpent, strings.Repeat(ui.IconGift, r.RewardsBought))),
				)
			}
			return nil
		},
	}
}

func newStatsCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close [date]",
		Short: "Close a day for the streak (default: today)",
		Args:  cobraDateArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			date := a.dateArg(args)
			streak, err := a.stats.CloseDay(ctx, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s closed, streak %d\n", ui.IconFire, date, streak)
			return nil
		},
	}
}

// cobraDateArg accepts zero args or one YYYY-MM-DD date.
func cobraDateArg(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("expected at most one date, got %d", len(args))
	}
	if len(args) == 1 && !calendar.Valid(args[0]) {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[0])
	}
	return nil
}
