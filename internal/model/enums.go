// Package model defines the data models for the quest and reward engine.
package model

import (
	"fmt"
	"strings"
)

// QuestType is the recurrence kind of a quest.
type QuestType string

// Quest recurrence kinds.
const (
	QuestOnce     QuestType = "once"
	QuestDaily    QuestType = "daily"
	QuestWeekly   QuestType = "weekly"
	QuestWeekends QuestType = "weekends"
	QuestWeekdays QuestType = "weekdays"
	QuestBiweekly QuestType = "biweekly"
	QuestMonthly  QuestType = "monthly"
	QuestCustom   QuestType = "custom"
	QuestCount    QuestType = "count"
)

// QuestTypes returns every quest type in display order.
func QuestTypes() []QuestType {
	return []QuestType{
		QuestOnce, QuestDaily, QuestWeekly, QuestWeekends, QuestWeekdays,
		QuestBiweekly, QuestMonthly, QuestCustom, QuestCount,
	}
}

// IsValid reports whether t is a known quest type.
func (t QuestType) IsValid() bool {
	for _, v := range QuestTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// UsesCustomDays reports whether customDays is meaningful for the type.
func (t QuestType) UsesCustomDays() bool {
	return t == QuestCustom || t == QuestWeekly
}

// ParseQuestType parses a quest type name.
func ParseQuestType(s string) (QuestType, error) {
	t := QuestType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid quest type %q", s)
	}
	return t, nil
}

// Priority is the urgency label of a quest.
type Priority string

// Quest priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParsePriority parses a priority name.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority %q", s)
	}
	return p, nil
}

// QuestStatus is the lifecycle state of a quest.
type QuestStatus string

// Quest statuses.
const (
	StatusActive    QuestStatus = "active"
	StatusCompleted QuestStatus = "completed"
	StatusOverdue   QuestStatus = "overdue"
	StatusSkipped   QuestStatus = "skipped"
)

// IsValid reports whether s is a known status.
func (s QuestStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOverdue, StatusSkipped:
		return true
	}
	return false
}

// IsOpen reports whether the quest can still be acted on.
func (s QuestStatus) IsOpen() bool {
	return s == StatusActive || s == StatusOverdue
}

// Availability is the purchase rule of a reward.
type Availability string

// Reward availability kinds.
const (
	AvailabilityOneTime        Availability = "onetime"
	AvailabilityUnlimited      Availability = "unlimited"
	AvailabilityEveryday       Availability = "everyday"
	AvailabilityWeekdays       Availability = "weekdays"
	AvailabilityWeekends       Availability = "weekends"
	AvailabilityCustom         Availability = "custom"
	AvailabilityEveryOtherDay  Availability = "every_other_day"
	AvailabilityEveryOtherWeek Availability = "every_other_week"
)

// Availabilities returns every availability kind in display order.
func Availabilities() []Availability {
	return []Availability{
		AvailabilityOneTime, AvailabilityUnlimited, AvailabilityEveryday,
		AvailabilityWeekdays, AvailabilityWeekends, AvailabilityCustom,
		AvailabilityEveryOtherDay, AvailabilityEveryOtherWeek,
	}
}

// IsValid reports whether a is a known availability kind.
func (a Availability) IsValid() bool {
	for _, v := range Availabilities() {
		if v == a {
			return true
		}
	}
	return false
}

// ParseAvailability parses an availability name.
func ParseAvailability(s string) (Availability, error) {
	a := Availability(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("invalid availability %q", s)
	}
	return a, nil
}

// Label returns a short human readable description.
func (a Availability) Label() string {
	switch a {
	case AvailabilityOneTime:
		return "One-time only"
	case AvailabilityUnlimited:
		return "Unlimited"
	case AvailabilityEveryday:
		return "Available daily"
	case AvailabilityWeekdays:
		return "Weekdays only"
	case AvailabilityWeekends:
		return "Weekends only"
	case AvailabilityCustom:
		return "Custom days"
	case AvailabilityEveryOtherDay:
		return "Every other day"
	case AvailabilityEveryOtherWeek:
		return "Every other week"
	}
	return string(a)
}

// LimitPeriod is the window of a reward's purchase quota.
type LimitPeriod string

// Limit periods.
const (
	LimitDay     LimitPeriod = "day"
	LimitWeekend LimitPeriod = "weekend"
	LimitNone    LimitPeriod = "nolimit"
)

// IsValid reports whether p is a known limit period.
func (p LimitPeriod) IsValid() bool {
	switch p {
	case LimitDay, LimitWeekend, LimitNone:
		return true
	}
	return false
}

// AchievementCategory groups achievements by what they measure.
type AchievementCategory string

// Achievement categories.
const (
	CategoryQuests     AchievementCategory = "quests"
	CategoryCoins      AchievementCategory = "coins"
	CategoryStreak     AchievementCategory = "streak"
	CategoryRewards    AchievementCategory = "rewards"
	CategoryCompletion AchievementCategory = "completion"
)

// IsValid reports whether c is a known category.
func (c AchievementCategory) IsValid() bool {
	switch c {
	case CategoryQuests, CategoryCoins, CategoryStreak, CategoryRewards, CategoryCompletion:
		return true
	}
	return false
}

// ParseWeekdays parses weekday indices from names or numbers ("mon", "1", "sunday").
func ParseWeekdays(items []string) ([]int, error) {
	names := map[string]int{
		"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
	}
	seen := make(map[int]bool)
	days := make([]int, 0, len(items))
	for _, raw := range items {
		s := strings.ToLower(strings.TrimSpace(raw))
		if s == "" {
			continue
		}
		d, ok := -1, false
		if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
			d, ok = int(s[0]-'0'), true
		} else if len(s) >= 3 {
			d, ok = names[s[:3]]
		}
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q", raw)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days, nil
}
