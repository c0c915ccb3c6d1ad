package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"questhunt/internal/model"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
)

func TestRewardService_CreateDefaults(t *testing.T) {
	env := newTestEnv(t, 0)

	r := env.createReward(t, RewardInput{Title: "Movie night", CustomDays: []int{5}})
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(model.DefaultRewardCost), r.Cost)
	assert.Equal(t, model.DefaultRewardEmoji, r.Emoji)
	assert.Equal(t, model.AvailabilityOneTime, r.Availability)
	assert.Nil(t, r.CustomDays, "custom days are only kept for custom rewards")
	assert.Equal(t, model.DefaultLimitPerDay, r.LimitPerDay)
	assert.Equal(t, model.LimitDay, r.LimitPeriod)

	c := env.createReward(t, RewardInput{Title: "Cake", Availability: model.AvailabilityCustom, CustomDays: []int{6, 0, 6}})
	assert.Equal(t, []int{6, 0}, c.CustomDays)

	for _, in := range []RewardInput{
		{Title: ""},
		{Title: "x", Cost: -1},
		{Title: "x", Availability: "sometimes"},
		{Title: "x", TimerMinutes: -1},
	} {
		_, err := env.rewards.Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
}

func TestRewardService_CanPurchaseReasonOrder(t *testing.T) {
	env := newTestEnv(t, 0)
	now := wednesday
	until := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	tests := []struct {
		name   string
		reward model.Reward
		coins  int64
		want   Eligibility
	}{
		{
			name:   "affordable and available",
			reward: model.Reward{Cost: 10, Availability: model.AvailabilityUnlimited},
			coins:  10,
			want:   Eligibility{OK: true},
		},
		{
			name:   "funds checked first",
			reward: model.Reward{Cost: 10, Availability: model.AvailabilityWeekends, IsOnCooldown: true, CooldownUntil: &until},
			coins:  5,
			want:   Eligibility{Reason: ReasonInsufficientFunds},
		},
		{
			name:   "cooldown before calendar",
			reward: model.Reward{Cost: 10, Availability: model.AvailabilityWeekends, IsOnCooldown: true, CooldownUntil: &until},
			coins:  50,
			want:   Eligibility{Reason: ReasonOnCooldown},
		},
		{
			name:   "elapsed cooldown ignored",
			reward: model.Reward{Cost: 10, Availability: model.AvailabilityEveryday, IsOnCooldown: true, CooldownUntil: &past},
			coins:  50,
			want:   Eligibility{OK: true},
		},
		{
			name:   "wrong weekday",
			reward: model.Reward{Cost: 10, Availability: model.AvailabilityWeekends},
			coins:  50,
			want:   Eligibility{Reason: ReasonUnavailableToday},
		},
		{
			name:   "one-time already bought",
			reward: model.Reward{Cost: 10, Availability: model.AvailabilityOneTime, Purchased: true},
			coins:  50,
			want:   Eligibility{Reason: ReasonUnavailableToday},
		},
		{
			name:   "custom without days",
			reward: model.Reward{Cost: 10, Availability: model.AvailabilityCustom},
			coins:  50,
			want:   Eligibility{Reason: ReasonUnavailableToday},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.rewards.CanPurchase(&tt.reward, tt.coins, now))
		})
	}
}

func TestRewardService_PurchaseInsufficientFundsChangesNothing(t *testing.T) {
	env := newTestEnv(t, 40)
	r := env.createReward(t, RewardInput{Title: "Game", Cost: 50, Availability: model.AvailabilityUnlimited, TimerMinutes: 10})

	before := env.dump(t)
	out, err := env.rewards.Purchase(context.Background(), r.ID)
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Equal(t, ReasonInsufficientFunds, out.Reason)
	assert.Equal(t, before, env.dump(t))
}

func TestRewardService_PurchaseOneTimeLatches(t *testing.T) {
	env := newTestEnv(t, 500)
	ctx := context.Background()
	r := env.createReward(t, RewardInput{Title: "Concert", Cost: 200})

	out, err := env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, out.OK)
	assert.True(t, out.Reward.Purchased)
	assert.Equal(t, 1, out.Reward.PurchaseCount)
	require.NotNil(t, out.Reward.PurchasedAt)
	assert.Equal(t, wednesday, *out.Reward.LastPurchasedAt)
	assert.Nil(t, out.Reward.CooldownUntil)
	assert.Equal(t, int64(300), out.User.Coins)
	assert.Equal(t, int64(200), out.User.TotalCoinsSpent)

	ledger := env.ledger(t)
	require.Len(t, ledger, 1)
	assert.Equal(t, int64(200), ledger[0].CoinsSpent)

	out, err = env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Equal(t, ReasonUnavailableToday, out.Reason)
	assert.Equal(t, int64(300), env.user(t).Coins)
}

func TestRewardService_CooldownRoundTrip(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()
	r := env.createReward(t, RewardInput{Title: "Coffee", Cost: 10, Availability: model.AvailabilityUnlimited, TimerMinutes: 30})

	out, err := env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, out.OK)
	assert.True(t, out.Reward.IsOnCooldown)
	assert.Equal(t, wednesday.Add(30*time.Minute), *out.Reward.CooldownUntil)

	out, err = env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonOnCooldown, out.Reason)

	env.clock.Advance(29 * time.Minute)
	n, err := env.rewards.ExpireCooldowns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	env.clock.Advance(time.Minute)
	list, err := env.rewards.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsOnCooldown)
	assert.Nil(t, list[0].CooldownUntil)

	n, err = env.rewards.ExpireCooldowns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "expiry is idempotent")

	out, err = env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 2, out.Reward.PurchaseCount)
	assert.Equal(t, int64(80), out.User.Coins)
}

func TestRewardService_PurchaseExpiresStaleCooldown(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()
	past := wednesday.Add(-time.Hour)
	require.NoError(t, env.repos.Rewards.Save(ctx, []model.Reward{{
		ID: "r1", Title: "Walk", Cost: 10, Availability: model.AvailabilityEveryday,
		IsOnCooldown: true, CooldownUntil: &past,
	}}))

	out, err := env.rewards.Purchase(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.False(t, out.Reward.IsOnCooldown)
}

func TestRewardService_FindUpdateDelete(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	r := env.createReward(t, RewardInput{Title: "Ice cream", Cost: 30})

	got, err := env.rewards.Find(ctx, "Ice")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	in := InputFromReward(got)
	in.Cost = 45
	in.Availability = model.AvailabilityWeekends
	updated, err := env.rewards.Update(ctx, r.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(45), updated.Cost)
	assert.Equal(t, r.CreatedAt, updated.CreatedAt)

	require.NoError(t, env.rewards.Delete(ctx, r.ID))
	_, err = env.rewards.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRewardNotFound)
	assert.ErrorIs(t, env.rewards.Delete(ctx, r.ID), ErrRewardNotFound)
	_, err = env.rewards.Purchase(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRewardNotFound)
}

func TestRewardService_StaleTimerGuard(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()
	r := env.createReward(t, RewardInput{Title: "Nap", Cost: 10, Availability: model.AvailabilityUnlimited, TimerMinutes: 5})

	out, err := env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	first := *out.Reward.CooldownUntil

	// The cooldown is replaced by a later purchase.
	env.clock.Advance(6 * time.Minute)
	out, err = env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, out.OK)
	second := *out.Reward.CooldownUntil

	expired, err := env.rewards.expireOne(ctx, r.ID, first)
	require.NoError(t, err)
	assert.False(t, expired, "a timer for a replaced cooldown does nothing")

	expired, err = env.rewards.expireOne(ctx, r.ID, second)
	require.NoError(t, err)
	assert.False(t, expired, "a timer never expires a cooldown early")

	env.clock.Advance(5 * time.Minute)
	expired, err = env.rewards.expireOne(ctx, r.ID, second)
	require.NoError(t, err)
	assert.True(t, expired)

	require.NoError(t, env.rewards.Delete(ctx, r.ID))
	expired, err = env.rewards.expireOne(ctx, r.ID, second)
	require.NoError(t, err)
	assert.False(t, expired, "a timer for a deleted reward does nothing")
}

func TestScheduler_ExpiresCooldown(t *testing.T) {
	store := repository.NewMemoryStore()
	repos := repository.New(store, repository.UserDefaults{}, nil, zerolog.Nop())
	svc := NewRewardService(repos, lock.NewKeyLock(), nil, time.UTC, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	until := time.Now().Add(300 * time.Millisecond)
	later := time.Now().Add(time.Hour)
	require.NoError(t, repos.Rewards.Save(ctx, []model.Reward{
		{ID: "soon", Title: "Soon", Cost: 1, IsOnCooldown: true, CooldownUntil: &until},
		{ID: "later", Title: "Later", Cost: 1, IsOnCooldown: true, CooldownUntil: &later},
	}))

	sc, err := svc.StartScheduler(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sc.Pending())

	require.Eventually(t, func() bool {
		rewards, err := repos.Rewards.List(ctx)
		if err != nil {
			return false
		}
		return rewards[0].CooldownUntil == nil && rewards[1].CooldownUntil != nil
	}, 3*time.Second, 10*time.Millisecond)

	sc.Cancel("later")
	assert.Equal(t, 0, sc.Pending())

	sc.Stop()
	sc.Schedule("later", later)
	assert.Equal(t, 0, sc.Pending(), "a stopped scheduler arms nothing")
}

func TestScheduler_DeleteCancelsTimer(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc, err := env.rewards.StartScheduler(ctx)
	require.NoError(t, err)
	defer sc.Stop()

	r := env.createReward(t, RewardInput{Title: "Game", Cost: 10, Availability: model.AvailabilityUnlimited, TimerMinutes: 60})
	out, err := env.rewards.Purchase(ctx, r.ID)
	require.NoError(t, err)
	require.True(t, out.OK)
	assert.Equal(t, 1, sc.Pending())

	require.NoError(t, env.rewards.Delete(ctx, r.ID))
	assert.Equal(t, 0, sc.Pending())
}

// TestRejectedPurchaseProperty checks that a purchase either applies every
// effect or none, and that coins never go negative.
func TestRejectedPurchaseProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		coins := rapid.Int64Range(0, 300).Draw(rt, "coins")
		cost := rapid.Int64Range(1, 300).Draw(rt, "cost")
		kind := rapid.SampledFrom(model.Availabilities()).Draw(rt, "availability")
		timer := rapid.IntRange(0, 120).Draw(rt, "timer")

		env := newEnvAt(wednesday, coins)
		ctx := context.Background()
		r, err := env.rewards.Create(ctx, RewardInput{Title: "R", Cost: cost, Availability: kind, TimerMinutes: timer, CustomDays: []int{3}})
		if err != nil {
			rt.Fatalf("create: %v", err)
		}

		attempts := rapid.IntRange(1, 5).Draw(rt, "attempts")
		spent := int64(0)
		for i := 0; i < attempts; i++ {
			out, err := env.rewards.Purchase(ctx, r.ID)
			if err != nil {
				rt.Fatalf("purchase: %v", err)
			}
			if out.OK {
				spent += cost
			} else if out.Reason == "" {
				rt.Fatalf("rejected purchase without a reason")
			}
			env.clock.Advance(time.Duration(rapid.IntRange(0, 180).Draw(rt, "wait")) * time.Minute)
		}

		user, err := env.repos.Users.Get(ctx)
		if err != nil {
			rt.Fatalf("user: %v", err)
		}
		if user.Coins < 0 {
			rt.Fatalf("coins went negative: %d", user.Coins)
		}
		if user.Coins != coins-spent || user.TotalCoinsSpent != spent {
			rt.Fatalf("coins %d spent %d, want %d and %d", user.Coins, user.TotalCoinsSpent, coins-spent, spent)
		}

		ledger, err := env.repos.Ledger.List(ctx)
		if err != nil {
			rt.Fatalf("ledger: %v", err)
		}
		var ledgerSpent int64
		seen := make(map[string]bool)
		for _, d := range ledger {
			if seen[d.Date] {
				rt.Fatalf("duplicate ledger date %s", d.Date)
			}
			seen[d.Date] = true
			ledgerSpent += d.CoinsSpent
		}
		if ledgerSpent != spent {
			rt.Fatalf("ledger spent %d, want %d", ledgerSpent, spent)
		}
	})
}

// TestRewardService_CooldownSweepKeepsOtherProcessPurchases runs a CLI and a
// long-lived watcher as two service graphs over one cached file directory.
func TestRewardService_CooldownSweepKeepsOtherProcessPurchases(t *testing.T) {
	dir := t.TempDir()
	clock := &testClock{t: wednesday}
	open := func() *testEnv {
		fs, err := repository.NewFileStore(dir)
		require.NoError(t, err)
		cached, err := repository.NewCachedStore(fs, 16)
		require.NoError(t, err)
		return newEnvOver(cached, clock, 100)
	}
	cli, watcher := open(), open()
	ctx := context.Background()

	timed := cli.createReward(t, RewardInput{Title: "Game", Cost: 10, Availability: model.AvailabilityUnlimited, TimerMinutes: 1})
	once := cli.createReward(t, RewardInput{Title: "Book", Cost: 10, Availability: model.AvailabilityOneTime})

	out, err := cli.rewards.Purchase(ctx, timed.ID)
	require.NoError(t, err)
	require.True(t, out.OK)

	_, err = watcher.rewards.List(ctx)
	require.NoError(t, err)

	out, err = cli.rewards.Purchase(ctx, once.ID)
	require.NoError(t, err)
	require.True(t, out.OK)

	clock.Advance(2 * time.Minute)
	n, err := watcher.rewards.ExpireCooldowns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fresh := open()
	got, err := fresh.rewards.Get(ctx, once.ID)
	require.NoError(t, err)
	assert.True(t, got.Purchased)
	assert.Equal(t, 1, got.PurchaseCount)
	assert.Equal(t, int64(80), fresh.user(t).Coins)

	out, err = cli.rewards.Purchase(ctx, once.ID)
	require.NoError(t, err)
	assert.False(t, out.OK)
}
