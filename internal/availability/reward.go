// Package availability decides whether a quest or reward is actionable on a given date.
package availability

import (
	"time"

	"questhunt/internal/model"
	"questhunt/internal/pkg/calendar"
)

// Reward reports whether the reward's calendar rule allows a purchase at now.
// An unknown rule never allows one. Affordability and cooldown are checked by the economy layer.
func Reward(r *model.Reward, now time.Time, loc *time.Location) bool {
	weekday := calendar.Weekday(now, loc)
	switch r.Availability {
	case model.AvailabilityOneTime:
		return !r.Purchased
	case model.AvailabilityUnlimited, model.AvailabilityEveryday:
		return true
	case model.AvailabilityWeekdays:
		return IsWeekday(weekday)
	case model.AvailabilityWeekends:
		return IsWeekend(weekday)
	case model.AvailabilityCustom:
		return InDays(r.CustomDays, weekday)
	case model.AvailabilityEveryOtherDay:
		days, ok := daysSinceCreated(r, now, loc)
		return ok && days%2 == 0
	case model.AvailabilityEveryOtherWeek:
		days, ok := daysSinceCreated(r, now, loc)
		return ok && (days/7)%2 == 0
	}
	return false
}

// OnCooldown reports whether the reward's cooldown is still running at now.
// An elapsed cooldownUntil counts as expired even if the stored flag is still set.
func OnCooldown(r *model.Reward, now time.Time) bool {
	if r.CooldownUntil == nil {
		return false
	}
	return now.Before(*r.CooldownUntil)
}

func daysSinceCreated(r *model.Reward, now time.Time, loc *time.Location) (int, bool) {
	if r.CreatedAt.IsZero() {
		return 0, true
	}
	days, err := calendar.DaysBetween(calendar.Key(r.CreatedAt, loc), calendar.Key(now, loc))
	if err != nil || days < 0 {
		return 0, false
	}
	return days, true
}
