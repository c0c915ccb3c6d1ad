// Package root implements the profile subcommands.
package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"questhunt/internal/service"
	"questhunt/internal/ui"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the hero profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := a.profile.Get(ctx)
			if err != nil {
				return err
			}
			inLevel, span := service.LevelProgress(u.XP)

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconSparkle, u.Nickname))
			fmt.Fprintln(w, ui.LabelValue("Level", fmt.Sprintf("%d %s %d/%d xp", u.Level(), ui.ProgressBar(inLevel, span, 20), inLevel, span)))
			fmt.Fprintln(w, ui.LabelValue("Coins", ui.Coins(u.Coins)))
			fmt.Fprintln(w, ui.LabelValue("Streak", fmt.Sprintf("%s %d", ui.IconFire, u.Streak)))
			fmt.Fprintln(w, ui.LabelValue("Quests completed", u.TotalTasksCompleted))
			since := u.CreatedAt.In(a.loc).Format("2006-01-02")
			fmt.Fprintln(w, ui.LabelValue("Hunting since", since))
			return nil
		},
	}
	cmd.AddCommand(newProfileRenameCmd(), newProfileAchievementsCmd(), newProfileResetCmd())
	return cmd
}

func newProfileRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <nickname>",
		Short: "Change the nickname (1-20 characters)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := a.profile.Rename(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Good.Render("Renamed to"), u.Nickname)
			return nil
		},
	}
}

func newProfileAchievementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "achievements",
		Aliases: []string{"ach"},
		Short:   "List achievements and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			unlocked, err := a.profile.RefreshAchievements(ctx)
			if err != nil {
				return err
			}
			u, err := a.profile.Get(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, ach := range unlocked {
				fmt.Fprintf(w, "%s %s %s\n", ui.Gold.Render(ui.IconTrophy+" Achievement unlocked:"), ach.Emoji, ach.Title)
			}
			fmt.Fprintln(w, ui.Heading(ui.IconTrophy, "Achievements"))
			for _, ach := range u.Achievements {
				mark := ui.Muted.Render("  ")
				title := ui.Dim.Render(ach.Title)
				if ach.Unlocked() {
					mark = ach.Emoji
					title = ui.Gold.Render(ach.Title)
				}
				fmt.Fprintf(w, "%s %s %s %d/%d %s\n", mark, title,
					ui.ProgressBar(ach.Progress, ach.Target, 12), ach.Progress, ach.Target,
					ui.Muted.Render(ach.Description))
			}
			return nil
		},
	}
}

func newProfileResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase every quest, reward and statistic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset erases all data; pass --yes to confirm")
			}
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.profile.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconWarn+" All data erased"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
