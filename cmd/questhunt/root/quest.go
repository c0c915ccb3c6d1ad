// Package root implements the quest subcommands.
package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"questhunt/internal/model"
	"questhunt/internal/service"
	"questhunt/internal/ui"
)

func newQuestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quest",
		Aliases: []string{"q"},
		Short:   "Manage quests",
	}
	cmd.AddCommand(
		newQuestAddCmd(),
		newQuestListCmd(),
		newQuestShowCmd(),
		newQuestDoneCmd(),
		newQuestIncCmd(),
		newQuestSkipCmd(),
		newQuestEditCmd(),
		newQuestDeleteCmd(),
		newQuestStepCmd(),
	)
	return cmd
}

// questFlags binds the editable quest fields to flags.
type questFlags struct {
	desc     string
	kind     string
	priority string
	coins    int64
	target   int
	start    string
	due      string
	days     []string
	steps    []string
}

func (f *questFlags) bind(cmd *cobra.Command, withSteps bool) {
	cmd.Flags().StringVar(&f.desc, "desc", "", "Description")
	cmd.Flags().StringVarP(&f.kind, "type", "t", string(model.QuestOnce),
		"Recurrence (once|daily|weekly|weekends|weekdays|biweekly|monthly|custom|count)")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", string(model.PriorityMedium), "Priority (low|medium|high|urgent)")
	cmd.Flags().Int64Var(&f.coins, "coins", model.DefaultCoinReward, "Coin reward (1-1000)")
	cmd.Flags().IntVar(&f.target, "target", model.DefaultTargetCount, "Target count for count quests (1-100)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.due, "due", model.DefaultDueTime, "Due time HH:MM")
	cmd.Flags().StringSliceVar(&f.days, "days", nil, "Weekdays for weekly/custom quests, e.g. mon,wed,fri")
	if withSteps {
		cmd.Flags().StringArrayVarP(&f.steps, "step", "s", nil, "Add a step (repeatable)")
	}
}

// apply writes the flags the user set onto in. On create every flag counts.
func (f *questFlags) apply(cmd *cobra.Command, in *service.QuestInput, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }

	if set("desc") {
		in.Description = f.desc
	}
	if set("type") {
		t, err := model.ParseQuestType(f.kind)
		if err != nil {
			return err
		}
		in.Type = t
	}
	if set("priority") {
		p, err := model.ParsePriority(f.priority)
		if err != nil {
			return err
		}
		in.Priority = p
	}
	if set("coins") {
		in.CoinReward = f.coins
	}
	if set("target") {
		in.TargetCount = f.target
	}
	if set("start") {
		in.StartDate = f.start
	}
	if set("due") {
		in.DueTime = f.due
	}
	if set("days") {
		days, err := model.ParseWeekdays(f.days)
		if err != nil {
			return err
		}
		in.CustomDays = days
	}
	in.Subquests = f.steps
	return nil
}

func newQuestAddCmd() *cobra.Command {
	var f questFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a quest",
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

			in := service.QuestInput{Title: args[0]}
			if err := f.apply(cmd, &in, true); err != nil {
				return err
			}
			q, err := a.quests.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Good.Render(ui.IconPlus+" Quest added"), q.Title, ui.Muted.Render(ui.ShortID(q.ID)))
			if q.Type == model.QuestCustom && len(q.CustomDays) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconWarn+" custom quest has no days and will never be available; set --days"))
			}
			return nil
		},
	}
	f.bind(cmd, true)
	return cmd
}

func newQuestListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [today|all|completed|overdue|upcoming]",
		Short: "List quests (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			filter, err := service.ParseQuestFilter(name)
			if err != nil {
				return err
			}

			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			quests, err := a.quests.List(ctx, filter)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconQuest, "Quests ("+string(filter)+")"))
			if len(quests) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(none)"))
				return nil
			}
			for i := range quests {
				printQuestLine(w, &quests[i])
			}
			return nil
		},
	}
	return cmd
}

// questArgs requires a single quest reference.
func questArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("quest id or title is required")
	}
	return nil
}

func newQuestShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <quest>",
		Short: "Show one quest",
		Args:  questArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			printQuest(cmd.OutOrStdout(), q, a.loc)
			return nil
		},
	}
}

func newQuestDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "done <quest>",
		Aliases: []string{"do", "complete"},
		Short:   "Complete a quest and collect its coins",
		Args:    questArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := a.quests.CompleteQuest(ctx, q.ID)
			if err != nil {
				return err
			}
			if !out.OK && q.IsCount() && q.CurrentCount < q.Target() {
				return fmt.Errorf("%d/%d done, use quest inc to count progress", q.CurrentCount, q.Target())
			}
			if !out.OK && !q.IsCount() && !q.SubquestsDone() {
				return errors.New("finish every step first")
			}
			return printCompletion(cmd, out)
		},
	}
}

func newQuestIncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inc <quest>",
		Short: "Count one repetition of a count quest",
		Args:  questArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := a.quests.IncrementCount(ctx, q.ID)
			if err != nil {
				return err
			}
			if out.OK && !out.Completed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d/%d\n", ui.Good.Render(ui.IconBolt+" "+out.Quest.Title),
					ui.ProgressBar(int64(out.Quest.CurrentCount), int64(out.Quest.Target()), 10),
					out.Quest.CurrentCount, out.Quest.Target())
				return nil
			}
			return printCompletion(cmd, out)
		},
	}
}

func printCompletion(cmd *cobra.Command, out service.Outcome) error {
	if !out.OK {
		return printOutcome(cmd.OutOrStdout(), out, "")
	}
	msg := fmt.Sprintf("%s Completed %s: +%d coins (balance %d)", ui.IconDone, out.Quest.Title, out.Quest.CoinReward, out.User.Coins)
	if err := printOutcome(cmd.OutOrStdout(), out, msg); err != nil {
		return err
	}
	if service.Level(out.User.XP-out.Quest.CoinReward) < out.User.Level() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s level %d\n", ui.BadgeLevelUp, out.User.Level())
	}
	return nil
}

func newQuestSkipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip <quest>",
		Short: "Skip a quest without reward",
		Args:  questArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := a.quests.SkipQuest(ctx, q.ID)
			if err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), out, ui.IconSkip+" Skipped "+q.Title)
		},
	}
}

func newQuestEditCmd() *cobra.Command {
	var f questFlags
	var title string
	cmd := &cobra.Command{
		Use:   "edit <quest>",
		Short: "Change quest fields (only the flags given)",
		Args:  questArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			in := service.InputFromQuest(q)
			if cmd.Flags().Changed("title") {
				in.Title = title
			}
			if err := f.apply(cmd, &in, false); err != nil {
				return err
			}
			updated, err := a.quests.Update(ctx, q.ID, in)
			if err != nil {
				return err
			}
			printQuest(cmd.OutOrStdout(), updated, a.loc)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	f.bind(cmd, false)
	return cmd
}

func newQuestDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <quest>",
		Aliases: []string{"rm"},
		Short:   "Delete a quest",
		Args:    questArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.quests.Delete(ctx, q.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Muted.Render("Deleted"), q.Title)
			return nil
		},
	}
}

func newQuestStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Manage quest steps",
	}

	add := &cobra.Command{
		Use:   "add <quest> <title>",
		Short: "Add a step to a quest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			updated, err := a.quests.AddSubquest(ctx, q.ID, args[1])
			if err != nil {
				return err
			}
			printQuest(cmd.OutOrStdout(), updated, a.loc)
			return nil
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <quest> <step>",
		Short: "Tick or untick a step (by number or id)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			q, err := a.quests.Find(ctx, args[0])
			if err != nil {
				return err
			}
			stepID, err := resolveStep(q, args[1])
			if err != nil {
				return err
			}
			out, err := a.quests.ToggleSubquest(ctx, q.ID, stepID)
			if err != nil {
				return err
			}
			if err := printOutcome(cmd.OutOrStdout(), out, "Step updated"); err != nil {
				return err
			}
			printQuest(cmd.OutOrStdout(), out.Quest, a.loc)
			return nil
		},
	}

	cmd.AddCommand(add, toggle)
	return cmd
}

// resolveStep maps a 1-based position or an id prefix to a subquest id.
func resolveStep(q *model.Quest, ref string) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(q.Subquests) {
			return "", fmt.Errorf("step %d out of range (1-%d)", n, len(q.Subquests))
		}
		return q.Subquests[n-1].ID, nil
	}
	found := ""
	for _, sq := range q.Subquests {
		if strings.HasPrefix(sq.ID, ref) {
			if found != "" {
				return "", fmt.Errorf("%w: step %q", service.ErrAmbiguousQuery, ref)
			}
			found = sq.ID
		}
	}
	if found == "" {
		return "", fmt.Errorf("no step %q", ref)
	}
	return found, nil
}
