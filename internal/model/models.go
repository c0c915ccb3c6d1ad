// Package model defines the data models for the quest and reward engine.
package model

import "time"

// Quest is a task definition and its live progress.
type Quest struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description,omitempty"`
	Type              QuestType   `json:"type"`
	Priority          Priority    `json:"priority"`
	CoinReward        int64       `json:"coinReward"`
	TargetCount       int         `json:"targetCount,omitempty"`
	CurrentCount      int         `json:"currentCount"`
	StartDate         string      `json:"startDate"`
	DueTime           string      `json:"dueTime"`
	CustomDays        []int       `json:"customDays,omitempty"`
	Subquests         []Subquest  `json:"subquests"`
	Status            QuestStatus `json:"status"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	LastCompletedDate string      `json:"lastCompletedDate,omitempty"`
	PointsDeducted    bool        `json:"pointsDeducted"`
}

// Subquest is a checklist item inside a quest.
type Subquest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Reward is an item the user can buy with coins.
type Reward struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Cost            int64        `json:"cost"`
	Emoji           string       `json:"emoji"`
	Availability    Availability `json:"availability"`
	LimitPerDay     int          `json:"limitPerDay"`
	LimitPeriod     LimitPeriod  `json:"limitPeriod"`
	TimerMinutes    int          `json:"timerMinutes,omitempty"`
	CustomDays      []int        `json:"customDays,omitempty"`
	Purchased       bool         `json:"purchased"`
	PurchasedAt     *time.Time   `json:"purchasedAt,omitempty"`
	LastPurchasedAt *time.Time   `json:"lastPurchased,omitempty"`
	PurchaseCount   int          `json:"purchaseCount"`
	IsOnCooldown    bool         `json:"isOnCooldown"`
	CooldownUntil   *time.Time   `json:"cooldownUntil,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// User is the singleton profile holding the coin economy.
type User struct {
	Nickname            string        `json:"nickname"`
	Coins               int64         `json:"coins"`
	Streak              int           `json:"streak"`
	LastActiveDate      string        `json:"lastActiveDate,omitempty"`
	TotalTasksCompleted int           `json:"totalTasksCompleted"`
	TotalCoinsEarned    int64         `json:"totalCoinsEarned"`
	TotalCoinsSpent     int64         `json:"totalCoinsSpent"`
	XP                  int64         `json:"xp"`
	Achievements        []Achievement `json:"achievements"`
	CreatedAt           time.Time     `json:"createdAt"`
}

// Achievement is a milestone tracked on the user profile.
type Achievement struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Emoji       string              `json:"emoji"`
	UnlockedAt  *time.Time          `json:"unlockedAt,omitempty"`
	Progress    int64               `json:"progress"`
	Target      int64               `json:"target"`
	Category    AchievementCategory `json:"category"`
}

// Unlocked reports whether the achievement has been earned.
func (a Achievement) Unlocked() bool {
	return a.UnlockedAt != nil
}

// DailyStats is the ledger entry for one calendar date.
type DailyStats struct {
	Date              string `json:"date"`
	TasksCompleted    int    `json:"tasksCompleted"`
	CoinsEarned       int64  `json:"coinsEarned"`
	CoinsSpent        int64  `json:"coinsSpent"`
	AllTasksCompleted bool   `json:"allTasksCompleted"`
}

// Quest defaults applied on creation and on load.
const (
	DefaultCoinReward  = 50
	DefaultDueTime     = "23:59"
	DefaultTargetCount = 1
	MinCoinReward      = 1
	MaxCoinReward      = 1000
	MaxTargetCount     = 100
)

// Reward and profile defaults.
const (
	DefaultRewardCost  = 100
	DefaultRewardEmoji = "🎁"
	DefaultLimitPerDay = 1
	DefaultNickname    = "Hero"
	MaxNicknameLength  = 20
	XPPerLevel         = 1000
)

// IsCount reports whether the quest completes by reaching a target count.
func (q *Quest) IsCount() bool {
	return q.Type == QuestCount
}

// Target returns the effective target count, at least 1.
func (q *Quest) Target() int {
	if q.TargetCount < 1 {
		return DefaultTargetCount
	}
	return q.TargetCount
}

// SubquestsDone reports whether every subquest is completed.
func (q *Quest) SubquestsDone() bool {
	for _, sq := range q.Subquests {
		if !sq.Completed {
			return false
		}
	}
	return true
}

// IsOneTime reports whether the reward can only be bought once.
func (r *Reward) IsOneTime() bool {
	return r.Availability == AvailabilityOneTime
}

// Cooldown returns the cooldown duration after a purchase.
func (r *Reward) Cooldown() time.Duration {
	if r.TimerMinutes <= 0 {
		return 0
	}
	return time.Duration(r.TimerMinutes) * time.Minute
}

// Level returns the profile level derived from xp.
func (u *User) Level() int64 {
	if u.XP < 0 {
		return 1
	}
	return u.XP/XPPerLevel + 1
}
