// Package root renders service results for the terminal.
package root

import (
	"fmt"
	"io"
	"strings"
	"time"

	"questhunt/internal/model"
	"questhunt/internal/service"
	"questhunt/internal/ui"
)

func printQuestLine(w io.Writer, q *model.Quest) {
	progress := ""
	switch {
	case q.IsCount():
		progress = " " + ui.ProgressBar(int64(q.CurrentCount), int64(q.Target()), 10) +
			fmt.Sprintf(" %d/%d", q.CurrentCount, q.Target())
	case len(q.Subquests) > 0:
		done := 0
		for _, sq := range q.Subquests {
			if sq.Completed {
				done++
			}
		}
		progress = ui.Muted.Render(fmt.Sprintf(" (%d/%d steps)", done, len(q.Subquests)))
	}
	fmt.Fprintf(w, "- %s %s %s%s %s %s %s\n",
		ui.Muted.Render(ui.ShortID(q.ID)),
		ui.TypeIcon(q.Type),
		q.Title,
		progress,
		ui.Coins(q.CoinReward),
		ui.StatusText(q.Status),
		ui.PriorityText(q.Priority),
	)
}

func printQuest(w io.Writer, q *model.Quest, loc *time.Location) {
	fmt.Fprintln(w, ui.Heading(ui.TypeIcon(q.Type), q.Title))
	if q.Description != "" {
		fmt.Fprintln(w, ui.Muted.Render(q.Description))
	}
	fmt.Fprintln(w, ui.LabelValue("ID", q.ID))
	fmt.Fprintln(w, ui.LabelValue("Type", q.Type))
	fmt.Fprintln(w, ui.LabelValue("Status", ui.StatusText(q.Status)))
	fmt.Fprintln(w, ui.LabelValue("Priority", ui.PriorityText(q.Priority)))
	fmt.Fprintln(w, ui.LabelValue("Reward", ui.Coins(q.CoinReward)))
	fmt.Fprintln(w, ui.LabelValue("Starts", q.StartDate+" "+q.DueTime))
	if len(q.CustomDays) > 0 {
		fmt.Fprintln(w, ui.LabelValue("Days", weekdayNames(q.CustomDays)))
	}
	if q.IsCount() {
		fmt.Fprintln(w, ui.LabelValue("Count", fmt.Sprintf("%s %d/%d",
			ui.ProgressBar(int64(q.CurrentCount), int64(q.Target()), 20), q.CurrentCount, q.Target())))
	}
	if q.CompletedAt != nil {
		fmt.Fprintln(w, ui.LabelValue("Completed", q.CompletedAt.In(loc).Format("2006-01-02 15:04")))
	}
	if len(q.Subquests) == 0 {
		return
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, ui.H2.Render(ui.IconScroll+" Steps"))
	for _, sq := range q.Subquests {
		box := "[ ]"
		if sq.Completed {
			box = ui.Good.Render("[x]")
		}
		fmt.Fprintf(w, "  %s %s %s\n", box, ui.Muted.Render(ui.ShortID(sq.ID)), sq.Title)
	}
}

func printRewardLine(w io.Writer, r *model.Reward, now time.Time) {
	state := ui.Muted.Render(r.Availability.Label())
	switch {
	case r.IsOneTime() && r.Purchased:
		state = ui.Good.Render("owned")
	case r.IsOnCooldown && r.CooldownUntil != nil:
		state = ui.Warn.Render(fmt.Sprintf("%s %s left", ui.IconTimer, cooldownLeft(*r.CooldownUntil, now)))
	}
	fmt.Fprintf(w, "- %s %s %s %s %s %s\n",
		ui.Muted.Render(ui.ShortID(r.ID)),
		r.Emoji,
		r.Title,
		ui.Coins(r.Cost),
		state,
		ui.Muted.Render(fmt.Sprintf("x%d", r.PurchaseCount)),
	)
}

func cooldownLeft(until, now time.Time) string {
	left := until.Sub(now).Round(time.Minute)
	if left < time.Minute {
		return "<1m"
	}
	return strings.TrimSuffix(left.String(), "0s")
}

// printOutcome reports a guarded transition. It returns an error for a
// rejection so the command exits non-zero.
func printOutcome(w io.Writer, out service.Outcome, success string) error {
	if !out.OK {
		return fmt.Errorf("%s (%s)", out.Reason.Message(), out.Reason)
	}
	fmt.Fprintln(w, ui.Good.Render(success))
	for _, a := range out.Unlocked {
		fmt.Fprintf(w, "%s %s %s %s\n", ui.Gold.Render(ui.IconTrophy+" Achievement unlocked:"), a.Emoji, a.Title, ui.Muted.Render(a.Description))
	}
	return nil
}

func weekdayNames(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d <= 6 {
			names = append(names, time.Weekday(d).String()[:3])
		}
	}
	return strings.Join(names, ", ")
}
