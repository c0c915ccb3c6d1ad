// Package model defines the data models for the quest and reward engine.
package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Normalize applies defaults and clamps out-of-range values.
// now supplies the creation time and start date for records that lack them.
func (q *Quest) Normalize(now time.Time) {
	if !q.Type.IsValid() {
		q.Type = QuestOnce
	}
	if !q.Priority.IsValid() {
		q.Priority = PriorityMedium
	}
	if !q.Status.IsValid() {
		q.Status = StatusActive
	}
	q.CoinReward = clamp64(q.CoinReward, MinCoinReward, MaxCoinReward)

	if q.IsCount() {
		q.TargetCount = clampInt(q.TargetCount, DefaultTargetCount, MaxTargetCount)
		q.CurrentCount = clampInt(q.CurrentCount, 0, q.TargetCount)
	} else {
		q.TargetCount = 0
		if q.CurrentCount < 0 {
			q.CurrentCount = 0
		}
	}

	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if _, err := time.Parse(dateLayout, q.StartDate); err != nil {
		q.StartDate = q.CreatedAt.In(now.Location()).Format(dateLayout)
	}
	if _, err := time.Parse(clockLayout, q.DueTime); err != nil {
		q.DueTime = DefaultDueTime
	}
	q.CustomDays = SanitizeDays(q.CustomDays)

	if q.Subquests == nil {
		q.Subquests = []Subquest{}
	}
	for i := range q.Subquests {
		sq := &q.Subquests[i]
		if sq.ID == "" {
			sq.ID = fmt.Sprintf("%s-%d", q.ID, i+1)
		}
		if !sq.Completed {
			sq.CompletedAt = nil
		}
	}

	if _, err := time.Parse(dateLayout, q.LastCompletedDate); err != nil {
		q.LastCompletedDate = ""
	}
	if q.LastCompletedDate == "" && q.Status == StatusCompleted && q.CompletedAt != nil {
		q.LastCompletedDate = q.CompletedAt.In(now.Location()).Format(dateLayout)
	}
}

// Normalize applies defaults and clamps out-of-range values.
func (r *Reward) Normalize(now time.Time) {
	if r.Cost < 1 {
		r.Cost = 1
	}
	if strings.TrimSpace(r.Emoji) == "" {
		r.Emoji = DefaultRewardEmoji
	}
	if !r.Availability.IsValid() {
		r.Availability = AvailabilityOneTime
	}
	if r.LimitPerDay < 1 {
		r.LimitPerDay = DefaultLimitPerDay
	}
	if !r.LimitPeriod.IsValid() {
		r.LimitPeriod = LimitDay
	}
	if r.TimerMinutes < 0 {
		r.TimerMinutes = 0
	}
	r.CustomDays = SanitizeDays(r.CustomDays)
	if r.PurchaseCount < 0 {
		r.PurchaseCount = 0
	}
	if r.CooldownUntil == nil {
		r.IsOnCooldown = false
	}
	if !r.IsOnCooldown {
		r.CooldownUntil = nil
	}
	if r.LastPurchasedAt == nil && r.PurchasedAt != nil {
		t := *r.PurchasedAt
		r.LastPurchasedAt = &t
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

// Normalize applies defaults and clamps negative counters.
func (u *User) Normalize(now time.Time) {
	u.Nickname = strings.TrimSpace(u.Nickname)
	if u.Nickname == "" {
		u.Nickname = DefaultNickname
	}
	if u.Coins < 0 {
		u.Coins = 0
	}
	if u.Streak < 0 {
		u.Streak = 0
	}
	if u.TotalTasksCompleted < 0 {
		u.TotalTasksCompleted = 0
	}
	if u.TotalCoinsEarned < 0 {
		u.TotalCoinsEarned = 0
	}
	if u.TotalCoinsSpent < 0 {
		u.TotalCoinsSpent = 0
	}
	if u.XP < 0 {
		u.XP = 0
	}
	if u.Achievements == nil {
		u.Achievements = []Achievement{}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
}

// Normalize clamps negative counters.
func (d *DailyStats) Normalize() {
	if d.TasksCompleted < 0 {
		d.TasksCompleted = 0
	}
	if d.CoinsEarned < 0 {
		d.CoinsEarned = 0
	}
	if d.CoinsSpent < 0 {
		d.CoinsSpent = 0
	}
}

// NormalizeLedger drops entries with malformed dates and merges duplicate dates
// into the first occurrence.
func NormalizeLedger(entries []DailyStats) []DailyStats {
	out := make([]DailyStats, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if _, err := time.Parse(dateLayout, e.Date); err != nil {
			continue
		}
		e.Normalize()
		if i, ok := index[e.Date]; ok {
			out[i].TasksCompleted += e.TasksCompleted
			out[i].CoinsEarned += e.CoinsEarned
			out[i].CoinsSpent += e.CoinsSpent
			out[i].AllTasksCompleted = out[i].AllTasksCompleted || e.AllTasksCompleted
			continue
		}
		index[e.Date] = len(out)
		out = append(out, e)
	}
	return out
}

// SanitizeDays keeps weekday indices 0..6 in first-seen order without duplicates.
func SanitizeDays(days []int) []int {
	if len(days) == 0 {
		return nil
	}
	seen := [7]bool{}
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clamp64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
