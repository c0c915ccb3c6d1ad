// Package root implements the calendar command.
package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"questhunt/internal/pkg/calendar"
	"questhunt/internal/ui"
)

func newCalendarCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "calendar [date]",
		Aliases: []string{"cal"},
		Short:   "Show quests scheduled or completed on a date (default: today)",
		Args:    cobraDateArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			date := a.dateArg(args)
			quests, err := a.quests.ForDate(ctx, date)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconScroll, date))
			if len(quests) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(nothing scheduled)"))
				return nil
			}
			for i := range quests {
				printQuestLine(w, &quests[i])
			}
			return nil
		},
	}
}

// dateArg returns the first arg, or today in the configured zone.
func (a *app) dateArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return calendar.Key(time.Now(), a.loc)
}
