package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"questhunt/internal/model"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
)

// testClock is a settable clock shared by every service in an env.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store   repository.Store
	repos   *repository.Repositories
	clock   *testClock
	quests  *QuestService
	rewards *RewardService
	stats   *StatsService
	profile *ProfileService
}

// wednesday is 2024-05-15 09:00 UTC.
var wednesday = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, startingCoins int64) *testEnv {
	t.Helper()
	return newEnvAt(wednesday, startingCoins)
}

func newEnvAt(start time.Time, startingCoins int64) *testEnv {
	return newEnvOver(repository.NewMemoryStore(), &testClock{t: start}, startingCoins)
}

// newEnvOver wires a service graph over store, as one process would.
func newEnvOver(store repository.Store, clock *testClock, startingCoins int64) *testEnv {
	repos := repository.New(store, repository.UserDefaults{Nickname: "Hero", StartingCoins: startingCoins}, clock.Now, zerolog.Nop())
	keyLock := lock.NewKeyLock()
	logger := zerolog.Nop()
	return &testEnv{
		store:   store,
		repos:   repos,
		clock:   clock,
		quests:  NewQuestService(repos, keyLock, clock.Now, time.UTC, logger),
		rewards: NewRewardService(repos, keyLock, clock.Now, time.UTC, logger),
		stats:   NewStatsService(repos, keyLock, clock.Now, time.UTC, logger),
		profile: NewProfileService(repos, keyLock, clock.Now, time.UTC, logger),
	}
}

func (e *testEnv) user(t *testing.T) *model.User {
	t.Helper()
	u, err := e.repos.Users.Get(context.Background())
	require.NoError(t, err)
	return u
}

func (e *testEnv) ledger(t *testing.T) []model.DailyStats {
	t.Helper()
	l, err := e.repos.Ledger.List(context.Background())
	require.NoError(t, err)
	return l
}

func (e *testEnv) createQuest(t *testing.T, in QuestInput) *model.Quest {
	t.Helper()
	q, err := e.quests.Create(context.Background(), in)
	require.NoError(t, err)
	return q
}

func (e *testEnv) createReward(t *testing.T, in RewardInput) *model.Reward {
	t.Helper()
	r, err := e.rewards.Create(context.Background(), in)
	require.NoError(t, err)
	return r
}

// dump returns the raw stored value of every collection.
func (e *testEnv) dump(t *testing.T) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, key := range repository.Keys() {
		v, _, err := e.store.Get(context.Background(), key)
		require.NoError(t, err)
		out[key] = string(v)
	}
	return out
}
