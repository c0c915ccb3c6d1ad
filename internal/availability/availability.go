// Package availability decides whether a quest or reward is actionable on a given date.
//
// Every function is pure: the same definition, instant and location always give
// the same answer. Dates are evaluated as calendar dates in the supplied location.
package availability

import (
	"time"

	"questhunt/internal/model"
	"questhunt/internal/pkg/calendar"
)

// IsWeekend reports whether the weekday index is Saturday or Sunday.
func IsWeekend(weekday int) bool {
	return weekday == 0 || weekday == 6
}

// IsWeekday reports whether the weekday index is Monday through Friday.
func IsWeekday(weekday int) bool {
	return weekday >= 1 && weekday <= 5
}

// InDays reports whether weekday is listed in days.
// An empty list matches nothing.
func InDays(days []int, weekday int) bool {
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}

// CompletionDate returns the calendar date the quest was last completed on, or "".
func CompletionDate(q *model.Quest, loc *time.Location) string {
	if q.LastCompletedDate != "" {
		return q.LastCompletedDate
	}
	if q.CompletedAt != nil {
		return calendar.Key(*q.CompletedAt, loc)
	}
	return ""
}

// EffectiveStatus returns the status a quest has on the given date.
// A daily quest completed on an earlier date counts as active again.
func EffectiveStatus(q *model.Quest, date string, loc *time.Location) model.QuestStatus {
	if q.Type == model.QuestDaily && q.Status == model.StatusCompleted {
		if done := CompletionDate(q, loc); done != "" && done < date {
			return model.StatusActive
		}
	}
	return q.Status
}
