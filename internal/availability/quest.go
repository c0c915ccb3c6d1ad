// Package availability decides whether a quest or reward is actionable on a given date.
package availability

import (
	"time"

	"questhunt/internal/model"
	"questhunt/internal/pkg/calendar"
)

// QuestOnDate reports whether the quest is scheduled and open on the calendar date
// containing date. It is used for calendar views and historical lookups.
func QuestOnDate(q *model.Quest, date time.Time, loc *time.Location) bool {
	ref := calendar.Key(date, loc)
	if q.StartDate != "" && q.StartDate > ref {
		return false
	}
	if !EffectiveStatus(q, ref, loc).IsOpen() {
		return false
	}
	return matchesSchedule(q, ref, calendar.Weekday(date, loc))
}

// QuestToday reports whether the quest belongs on the live list at now.
// Besides the schedule, a daily quest whose completion timestamp falls on
// today is suppressed.
func QuestToday(q *model.Quest, now time.Time, loc *time.Location) bool {
	if !QuestOnDate(q, now, loc) {
		return false
	}
	if q.Type == model.QuestDaily && q.CompletedAt != nil {
		if calendar.Key(*q.CompletedAt, loc) == calendar.Key(now, loc) {
			return false
		}
	}
	return true
}

// Overdue reports whether an open quest has passed its start date and due time.
func Overdue(q *model.Quest, now time.Time, loc *time.Location) bool {
	if !EffectiveStatus(q, calendar.Key(now, loc), loc).IsOpen() {
		return false
	}
	due, err := calendar.At(q.StartDate, q.DueTime, loc)
	if err != nil {
		return false
	}
	return now.After(due)
}

func matchesSchedule(q *model.Quest, ref string, weekday int) bool {
	switch q.Type {
	case model.QuestOnce, model.QuestCount, model.QuestDaily:
		return true
	case model.QuestWeekly:
		if len(q.CustomDays) > 0 {
			return InDays(q.CustomDays, weekday)
		}
		return true
	case model.QuestWeekends:
		return IsWeekend(weekday)
	case model.QuestWeekdays:
		return IsWeekday(weekday)
	case model.QuestBiweekly:
		days, err := calendar.DaysBetween(q.StartDate, ref)
		if err != nil {
			return false
		}
		return calendar.FloorDiv(days, 7)%2 == 0
	case model.QuestMonthly:
		start, err := calendar.Parse(q.StartDate, time.UTC)
		if err != nil {
			return false
		}
		day, err := calendar.Parse(ref, time.UTC)
		if err != nil {
			return false
		}
		return start.Day() == day.Day()
	case model.QuestCustom:
		return InDays(q.CustomDays, weekday)
	}
	return false
}
