// Package achievement provides the static milestone catalogue and its evaluation.
package achievement

import (
	"time"

	"questhunt/internal/model"
)

// ID identifies a catalogue entry.
type ID string

// Catalogue entries, in display order below.
const (
	FirstQuest    ID = "first_quest"
	TenQuests     ID = "ten_quests"
	FiftyQuests   ID = "fifty_quests"
	HundredCoins  ID = "hundred_coins"
	ThousandCoins ID = "thousand_coins"
	StreakThree   ID = "streak_3"
	StreakSeven   ID = "streak_7"
	FirstReward   ID = "first_reward"
	FiveRewards   ID = "five_rewards"
	PerfectRecord ID = "perfect_record"
)

// Definition describes one milestone.
type Definition struct {
	ID          ID
	Title       string
	Emoji       string
	Description string
	Category    model.AchievementCategory
	Target      int64
}

// Definitions contains every milestone the profile can unlock.
var Definitions = map[ID]Definition{
	FirstQuest: {
		ID:          FirstQuest,
		Title:       "First Steps",
		Emoji:       "🌱",
		Description: "Complete your first quest",
		Category:    model.CategoryQuests,
		Target:      1,
	},
	TenQuests: {
		ID:          TenQuests,
		Title:       "Adventurer",
		Emoji:       "⚔️",
		Description: "Complete 10 quests",
		Category:    model.CategoryQuests,
		Target:      10,
	},
	FiftyQuests: {
		ID:          FiftyQuests,
		Title:       "Veteran",
		Emoji:       "🏰",
		Description: "Complete 50 quests",
		Category:    model.CategoryQuests,
		Target:      50,
	},
	HundredCoins: {
		ID:          HundredCoins,
		Title:       "Coin Collector",
		Emoji:       "🪙",
		Description: "Earn 100 coins",
		Category:    model.CategoryCoins,
		Target:      100,
	},
	ThousandCoins: {
		ID:          ThousandCoins,
		Title:       "Treasure Hoarder",
		Emoji:       "💰",
		Description: "Earn 1000 coins",
		Category:    model.CategoryCoins,
		Target:      1000,
	},
	StreakThree: {
		ID:          StreakThree,
		Title:       "On a Roll",
		Emoji:       "🔥",
		Description: "Finish every quest 3 days in a row",
		Category:    model.CategoryStreak,
		Target:      3,
	},
	StreakSeven: {
		ID:          StreakSeven,
		Title:       "Unstoppable",
		Emoji:       "☄️",
		Description: "Finish every quest 7 days in a row",
		Category:    model.CategoryStreak,
		Target:      7,
	},
	FirstReward: {
		ID:          FirstReward,
		Title:       "Treat Yourself",
		Emoji:       "🎁",
		Description: "Buy your first reward",
		Category:    model.CategoryRewards,
		Target:      1,
	},
	FiveRewards: {
		ID:          FiveRewards,
		Title:       "Big Spender",
		Emoji:       "🛍️",
		Description: "Buy 5 rewards",
		Category:    model.CategoryRewards,
		Target:      5,
	},
	PerfectRecord: {
		ID:          PerfectRecord,
		Title:       "Perfectionist",
		Emoji:       "👑",
		Description: "Reach a 100% quest completion rate",
		Category:    model.CategoryCompletion,
		Target:      100,
	},
}

var order = []ID{
	FirstQuest, TenQuests, FiftyQuests,
	HundredCoins, ThousandCoins,
	StreakThree, StreakSeven,
	FirstReward, FiveRewards,
	PerfectRecord,
}

// All returns every definition in display order.
func All() []Definition {
	defs := make([]Definition, 0, len(order))
	for _, id := range order {
		if d, ok := Definitions[id]; ok {
			defs = append(defs, d)
		}
	}
	return defs
}

// Get returns the definition for id.
func Get(id ID) (Definition, bool) {
	d, ok := Definitions[id]
	return d, ok
}

// Facts are the measurements achievements are scored against.
type Facts struct {
	QuestsCompleted int64
	CoinsEarned     int64
	BestStreak      int64
	RewardsBought   int64
	CompletionRate  int64
}

// Measure returns the fact a category is scored on.
func (f Facts) Measure(c model.AchievementCategory) int64 {
	switch c {
	case model.CategoryQuests:
		return f.QuestsCompleted
	case model.CategoryCoins:
		return f.CoinsEarned
	case model.CategoryStreak:
		return f.BestStreak
	case model.CategoryRewards:
		return f.RewardsBought
	case model.CategoryCompletion:
		return f.CompletionRate
	}
	return 0
}

// Evaluate merges the catalogue into current, updating progress from facts.
// unlockedAt is stamped once and never cleared, so progress may later fall
// below target on an unlocked entry. Entries not in the catalogue are kept as is.
// It returns the merged list and the entries unlocked by this call.
func Evaluate(current []model.Achievement, facts Facts, now time.Time) ([]model.Achievement, []model.Achievement) {
	byID := make(map[string]model.Achievement, len(current))
	for _, a := range current {
		byID[a.ID] = a
	}

	merged := make([]model.Achievement, 0, len(order)+len(current))
	var unlocked []model.Achievement
	known := make(map[string]bool, len(order))

	for _, def := range All() {
		id := string(def.ID)
		known[id] = true

		a := byID[id]
		a.ID = id
		a.Title = def.Title
		a.Description = def.Description
		a.Emoji = def.Emoji
		a.Category = def.Category
		a.Target = def.Target

		progress := facts.Measure(def.Category)
		if progress > def.Target {
			progress = def.Target
		}
		if progress < 0 {
			progress = 0
		}
		a.Progress = progress

		if a.UnlockedAt == nil && progress >= def.Target {
			at := now
			a.UnlockedAt = &at
			unlocked = append(unlocked, a)
		}
		merged = append(merged, a)
	}

	for _, a := range current {
		if !known[a.ID] {
			merged = append(merged, a)
		}
	}
	return merged, unlocked
}
