package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questhunt/internal/model"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
	"questhunt/internal/service"
)

func newTestBoard(t *testing.T, coins int64) (boardModel, Services) {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC) }
	repos := repository.New(repository.NewMemoryStore(), repository.UserDefaults{Nickname: "Hero", StartingCoins: coins}, now, zerolog.Nop())
	kl := lock.NewKeyLock()
	svc := Services{
		Quests:  service.NewQuestService(repos, kl, now, time.UTC, zerolog.Nop()),
		Rewards: service.NewRewardService(repos, kl, now, time.UTC, zerolog.Nop()),
		Stats:   service.NewStatsService(repos, kl, now, time.UTC, zerolog.Nop()),
		Profile: service.NewProfileService(repos, kl, now, time.UTC, zerolog.Nop()),
	}
	return newBoardModel(context.Background(), svc), svc
}

// run executes cmd and feeds its message back, following reloads.
func run(t *testing.T, m boardModel, cmd tea.Cmd) boardModel {
	t.Helper()
	for cmd != nil {
		next, c := m.Update(cmd())
		m = next.(boardModel)
		cmd = c
	}
	return m
}

func press(t *testing.T, m boardModel, key string) boardModel {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return run(t, next.(boardModel), cmd)
}

func TestBoard_LoadAndComplete(t *testing.T) {
	m, svc := newTestBoard(t, 0)
	ctx := context.Background()
	_, err := svc.Quests.Create(ctx, service.QuestInput{Title: "Stretch", CoinReward: 30})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	require.NoError(t, m.err)
	require.Len(t, m.quests, 1)
	assert.Contains(t, m.View(), "Stretch")

	m = press(t, m, "enter")
	assert.Contains(t, m.lastLog, "Completed Stretch")
	assert.Equal(t, int64(30), m.user.Coins)
	assert.Equal(t, model.StatusCompleted, m.quests[0].Status)
	assert.Equal(t, 1, m.progress.Completed)
}

func TestBoard_BuyReward(t *testing.T) {
	m, svc := newTestBoard(t, 50)
	ctx := context.Background()
	_, err := svc.Rewards.Create(ctx, service.RewardInput{Title: "Tea", Cost: 80, Availability: model.AvailabilityUnlimited})
	require.NoError(t, err)
	_, err = svc.Rewards.Create(ctx, service.RewardInput{Title: "Nap", Cost: 20, Availability: model.AvailabilityUnlimited})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	m = press(t, m, "tab")
	require.Equal(t, tabRewards, m.tab)

	m = press(t, m, "enter")
	assert.Contains(t, m.lastLog, "Cannot buy Tea")
	assert.Equal(t, int64(50), m.user.Coins)

	m = press(t, m, "down")
	m = press(t, m, "c")
	assert.Contains(t, m.lastLog, "Bought")
	assert.Equal(t, int64(30), m.user.Coins)
}

func TestBoard_SkipAndNavigationBounds(t *testing.T) {
	m, svc := newTestBoard(t, 0)
	_, err := svc.Quests.Create(context.Background(), service.QuestInput{Title: "Run"})
	require.NoError(t, err)

	m = run(t, m, m.Init())
	m = press(t, m, "down")
	assert.Equal(t, 0, m.selected)

	m = press(t, m, "s")
	assert.Equal(t, "Skipped Run", m.lastLog)

	// A skipped quest leaves today's list.
	assert.Empty(t, m.quests)
	m = press(t, m, "enter")
	assert.Equal(t, "Skipped Run", m.lastLog)
}
