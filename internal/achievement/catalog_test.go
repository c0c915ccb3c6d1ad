package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"questhunt/internal/model"
)

func TestAll_DisplayOrder(t *testing.T) {
	defs := All()
	require.Len(t, defs, len(Definitions))
	assert.Equal(t, FirstQuest, defs[0].ID)
	assert.Equal(t, PerfectRecord, defs[len(defs)-1].ID)

	for _, d := range defs {
		assert.True(t, d.Category.IsValid(), d.ID)
		assert.Positive(t, d.Target, d.ID)
	}
}

func TestGet(t *testing.T) {
	d, ok := Get(StreakSeven)
	require.True(t, ok)
	assert.Equal(t, int64(7), d.Target)

	_, ok = Get("nope")
	assert.False(t, ok)
}

func TestEvaluate_UnlocksOnce(t *testing.T) {
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	merged, unlocked := Evaluate(nil, Facts{QuestsCompleted: 1, CoinsEarned: 50}, first)
	require.Len(t, merged, len(Definitions))
	require.Len(t, unlocked, 1)
	assert.Equal(t, string(FirstQuest), unlocked[0].ID)
	assert.Equal(t, first, *unlocked[0].UnlockedAt)

	coins := find(t, merged, HundredCoins)
	assert.Equal(t, int64(50), coins.Progress)
	assert.False(t, coins.Unlocked())

	merged, unlocked = Evaluate(merged, Facts{QuestsCompleted: 2, CoinsEarned: 150}, later)
	require.Len(t, unlocked, 1)
	assert.Equal(t, string(HundredCoins), unlocked[0].ID)
	assert.Equal(t, first, *find(t, merged, FirstQuest).UnlockedAt)
}

func TestEvaluate_ProgressIsCapped(t *testing.T) {
	merged, _ := Evaluate(nil, Facts{CoinsEarned: 5000, BestStreak: -2}, time.Now())
	assert.Equal(t, int64(1000), find(t, merged, ThousandCoins).Progress)
	assert.Equal(t, int64(0), find(t, merged, StreakThree).Progress)
}

func TestEvaluate_KeepsUnknownEntries(t *testing.T) {
	custom := model.Achievement{ID: "legacy", Title: "Old badge", Category: model.CategoryQuests}
	merged, _ := Evaluate([]model.Achievement{custom}, Facts{}, time.Now())
	assert.Equal(t, custom, merged[len(merged)-1])
}

// TestEvaluateMonotonicProperty checks that an unlocked achievement stays unlocked
// with its original timestamp however the facts change afterwards.
func TestEvaluateMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		var current []model.Achievement
		stamps := make(map[string]time.Time)

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			facts := Facts{
				QuestsCompleted: rapid.Int64Range(0, 80).Draw(rt, "quests"),
				CoinsEarned:     rapid.Int64Range(0, 2000).Draw(rt, "coins"),
				BestStreak:      rapid.Int64Range(0, 10).Draw(rt, "streak"),
				RewardsBought:   rapid.Int64Range(0, 8).Draw(rt, "rewards"),
				CompletionRate:  rapid.Int64Range(0, 100).Draw(rt, "rate"),
			}
			now := start.Add(time.Duration(i) * time.Hour)
			current, _ = Evaluate(current, facts, now)

			for _, a := range current {
				if prev, ok := stamps[a.ID]; ok {
					if a.UnlockedAt == nil || !a.UnlockedAt.Equal(prev) {
						rt.Fatalf("achievement %s lost its unlock stamp", a.ID)
					}
				} else if a.UnlockedAt != nil {
					stamps[a.ID] = *a.UnlockedAt
				}
				if a.Progress > a.Target {
					rt.Fatalf("achievement %s progress %d exceeds target %d", a.ID, a.Progress, a.Target)
				}
			}
		}
	})
}

func find(t *testing.T, list []model.Achievement, id ID) model.Achievement {
	t.Helper()
	for _, a := range list {
		if a.ID == string(id) {
			return a
		}
	}
	t.Fatalf("achievement %s not found", id)
	return model.Achievement{}
}
