// Package root implements the reward subcommands.
package root

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"questhunt/internal/model"
	"questhunt/internal/service"
	"questhunt/internal/ui"
)

func newRewardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reward",
		Aliases: []string{"r", "shop"},
		Short:   "Manage and buy rewards",
	}
	cmd.AddCommand(
		newRewardAddCmd(),
		newRewardListCmd(),
		newRewardBuyCmd(),
		newRewardEditCmd(),
		newRewardDeleteCmd(),
	)
	return cmd
}

type rewardFlags struct {
	desc  string
	cost  int64
	emoji string
	avail string
	timer int
	days  []string
}

func (f *rewardFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.desc, "desc", "", "Description")
	cmd.Flags().Int64Var(&f.cost, "cost", model.DefaultRewardCost, "Price in coins")
	cmd.Flags().StringVar(&f.emoji, "emoji", model.DefaultRewardEmoji, "Emoji")
	cmd.Flags().StringVarP(&f.avail, "availability", "a", string(model.AvailabilityOneTime),
		"When it can be bought (onetime|unlimited|everyday|weekdays|weekends|custom|every_other_day|every_other_week)")
	cmd.Flags().IntVar(&f.timer, "cooldown", 0, "Cooldown in minutes after each purchase")
	cmd.Flags().StringSliceVar(&f.days, "days", nil, "Weekdays for custom availability, e.g. sat,sun")
}

func (f *rewardFlags) apply(cmd *cobra.Command, in *service.RewardInput, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }

	if set("desc") {
		in.Description = f.desc
	}
	if set("cost") {
		in.Cost = f.cost
	}
	if set("emoji") {
		in.Emoji = f.emoji
	}
	if set("availability") {
		av, err := model.ParseAvailability(f.avail)
		if err != nil {
			return err
		}
		in.Availability = av
	}
	if set("cooldown") {
		in.TimerMinutes = f.timer
	}
	if set("days") {
		days, err := model.ParseWeekdays(f.days)
		if err != nil {
			return err
		}
		in.CustomDays = days
	}
	return nil
}

func rewardArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("reward id or title is required")
	}
	return nil
}

func newRewardAddCmd() *cobra.Command {
	var f rewardFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a reward",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("title is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			in := service.RewardInput{Title: args[0]}
			if err := f.apply(cmd, &in, true); err != nil {
				return err
			}
			r, err := a.rewards.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n", ui.Good.Render(ui.IconPlus+" Reward added"), r.Emoji, r.Title, ui.Coins(r.Cost))
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newRewardListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rewards and whether they can be bought now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rewards, err := a.rewards.List(ctx)
			if err != nil {
				return err
			}
			user, err := a.profile.Get(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			now := time.Now()
			fmt.Fprintf(w, "%s %s\n", ui.Heading(ui.IconGift, "Rewards"), ui.Coins(user.Coins))
			if len(rewards) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(none)"))
				return nil
			}
			for i := range rewards {
				r := &rewards[i]
				printRewardLine(w, r, now)
				if e := a.rewards.CanPurchase(r, user.Coins, now); !e.OK {
					fmt.Fprintf(w, "    %s\n", ui.Dim.Render(e.Reason.Message()))
				}
			}
			return nil
		},
	}
}

func newRewardBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "buy <reward>",
		Aliases: []string{"purchase"},
		Short:   "Spend coins on a reward",
		Args:    rewardArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := a.rewards.Find(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := a.rewards.Purchase(ctx, r.ID)
			if err != nil {
				return err
			}
			if !out.OK {
				return printOutcome(cmd.OutOrStdout(), out, "")
			}
			msg := fmt.Sprintf("%s Bought %s %s for %d coins (balance %d)", ui.IconSparkle, out.Reward.Emoji, out.Reward.Title, out.Reward.Cost, out.User.Coins)
			if err := printOutcome(cmd.OutOrStdout(), out, msg); err != nil {
				return err
			}
			if out.Reward.CooldownUntil != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s available again at %s\n", ui.IconTimer,
					out.Reward.CooldownUntil.In(a.loc).Format("15:04"))
			}
			return nil
		},
	}
}

func newRewardEditCmd() *cobra.Command {
	var f rewardFlags
	var title string
	cmd := &cobra.Command{
		Use:   "edit <reward>",
		Short: "Change reward fields (only the flags given)",
		Args:  rewardArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := a.rewards.Find(ctx, args[0])
			if err != nil {
				return err
			}
			in := service.InputFromReward(r)
			if cmd.Flags().Changed("title") {
				in.Title = title
			}
			if err := f.apply(cmd, &in, false); err != nil {
				return err
			}
			updated, err := a.rewards.Update(ctx, r.ID, in)
			if err != nil {
				return err
			}
			printRewardLine(cmd.OutOrStdout(), updated, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	f.bind(cmd)
	return cmd
}

func newRewardDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <reward>",
		Aliases: []string{"rm"},
		Short:   "Delete a reward",
		Args:    rewardArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := a.rewards.Find(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.rewards.Delete(ctx, r.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Muted.Render("Deleted"), r.Title)
			return nil
		},
	}
}
