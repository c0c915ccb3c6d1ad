// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"questhunt/internal/availability"
	"questhunt/internal/model"
	"questhunt/internal/pkg/calendar"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
)

// RewardInput holds the user editable fields of a reward.
// Zero values take the documented defaults on Create.
type RewardInput struct {
	Title        string
	Description  string
	Cost         int64
	Emoji        string
	Availability model.Availability
	TimerMinutes int
	CustomDays   []int
}

// InputFromReward returns the editable fields of r.
func InputFromReward(r *model.Reward) RewardInput {
	return RewardInput{
		Title:        r.Title,
		Description:  r.Description,
		Cost:         r.Cost,
		Emoji:        r.Emoji,
		Availability: r.Availability,
		TimerMinutes: r.TimerMinutes,
		CustomDays:   append([]int(nil), r.CustomDays...),
	}
}

var purchaseKeys = []string{repository.KeyRewards, repository.KeyDailyStats, repository.KeyUser}

// RewardService handles the reward economy.
type RewardService struct {
	core

	mu        sync.Mutex
	scheduler *Scheduler
}

// NewRewardService creates a new RewardService instance.
// A nil clock means time.Now and a nil location means UTC.
func NewRewardService(
	repos *repository.Repositories,
	keyLock *lock.KeyLock,
	clock Clock,
	loc *time.Location,
	logger zerolog.Logger,
) *RewardService {
	return &RewardService{core: newCore(repos, keyLock, clock, loc, logger)}
}

// CanPurchase reports whether a reward can be bought with coins at now.
// Reasons are checked in order: funds, cooldown, calendar rule.
func (s *RewardService) CanPurchase(r *model.Reward, coins int64, now time.Time) Eligibility {
	if coins < r.Cost {
		return Eligibility{Reason: ReasonInsufficientFunds}
	}
	if availability.OnCooldown(r, now) {
		return Eligibility{Reason: ReasonOnCooldown}
	}
	if !availability.Reward(r, now, s.loc) {
		return Eligibility{Reason: ReasonUnavailableToday}
	}
	return Eligibility{OK: true}
}

// Purchase buys a reward. A rejected purchase writes nothing.
func (s *RewardService) Purchase(ctx context.Context, id string) (Outcome, error) {
	var out Outcome
	err := s.write(ctx, purchaseKeys, func() error {
		rewards, err := s.repos.Rewards.List(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		expireCooldowns(rewards, now)

		i := indexReward(rewards, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrRewardNotFound, id)
		}
		r := &rewards[i]

		user, err := s.repos.Users.Get(ctx)
		if err != nil {
			return err
		}
		if e := s.CanPurchase(r, user.Coins, now); !e.OK {
			s.log.Debug().Str("reward_id", id).Str("reason", string(e.Reason)).Msg("Purchase rejected")
			out = rejected(e.Reason)
			return nil
		}

		ledger, err := s.repos.Ledger.List(ctx)
		if err != nil {
			return err
		}
		quests, err := s.repos.Quests.List(ctx)
		if err != nil {
			return err
		}

		user.Coins -= r.Cost
		user.TotalCoinsSpent += r.Cost

		at := now
		if r.IsOneTime() {
			r.Purchased = true
		}
		r.PurchaseCount++
		r.PurchasedAt = &at
		r.LastPurchasedAt = &at
		if cd := r.Cooldown(); cd > 0 {
			until := now.Add(cd)
			r.IsOnCooldown = true
			r.CooldownUntil = &until
		}

		ledger = upsertLedger(ledger, calendar.Key(now, s.loc), func(d *model.DailyStats) {
			d.CoinsSpent += r.Cost
		})

		unlocked := refreshAchievements(user, quests, rewards, ledger, now)

		batch := repository.NewBatch().Rewards(rewards).Ledger(ledger).User(user)
		if err := s.repos.Commit(ctx, batch); err != nil {
			return err
		}

		s.log.Info().
			Str("reward_id", r.ID).
			Int64("coins", r.Cost).
			Int64("balance", user.Coins).
			Msg("Reward purchased")

		out = Outcome{OK: true, Reward: cloneReward(r), User: user, Unlocked: unlocked}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if out.OK && out.Reward.CooldownUntil != nil {
		if sc := s.activeScheduler(); sc != nil {
			sc.Schedule(out.Reward.ID, *out.Reward.CooldownUntil)
		}
	}
	return out, nil
}

// ExpireCooldowns clears every cooldown whose end has passed.
// It is safe to call any number of times and returns how many were cleared.
func (s *RewardService) ExpireCooldowns(ctx context.Context) (int, error) {
	var n int
	err := s.write(ctx, []string{repository.KeyRewards}, func() error {
		rewards, err := s.repos.Rewards.List(ctx)
		if err != nil {
			return err
		}
		n = expireCooldowns(rewards, s.now())
		if n == 0 {
			return nil
		}
		return s.repos.Rewards.Save(ctx, rewards)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to expire cooldowns: %w", err)
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("Reward cooldowns expired")
	}
	return n, nil
}

// expireOne clears the cooldown of one reward if it still ends at until.
// A deleted reward or one whose cooldown was replaced is left alone.
func (s *RewardService) expireOne(ctx context.Context, id string, until time.Time) (bool, error) {
	var expired bool
	err := s.write(ctx, []string{repository.KeyRewards}, func() error {
		rewards, err := s.repos.Rewards.List(ctx)
		if err != nil {
			return err
		}
		i := indexReward(rewards, id)
		if i < 0 {
			return nil
		}
		r := &rewards[i]
		if r.CooldownUntil == nil || !r.CooldownUntil.Equal(until) || s.now().Before(until) {
			return nil
		}
		r.IsOnCooldown = false
		r.CooldownUntil = nil
		expired = true
		return s.repos.Rewards.Save(ctx, rewards)
	})
	return expired, err
}

func expireCooldowns(rewards []model.Reward, now time.Time) int {
	n := 0
	for i := range rewards {
		r := &rewards[i]
		if r.CooldownUntil == nil && !r.IsOnCooldown {
			continue
		}
		if availability.OnCooldown(r, now) {
			continue
		}
		r.IsOnCooldown = false
		r.CooldownUntil = nil
		n++
	}
	return n
}

// Create adds a new reward.
func (s *RewardService) Create(ctx context.Context, in RewardInput) (*model.Reward, error) {
	r := &model.Reward{
		ID:          uuid.NewString(),
		LimitPerDay: model.DefaultLimitPerDay,
		LimitPeriod: model.LimitDay,
		CreatedAt:   s.now(),
	}
	if err := applyRewardInput(r, in); err != nil {
		return nil, err
	}

	err := s.write(ctx, []string{repository.KeyRewards}, func() error {
		rewards, err := s.repos.Rewards.List(ctx)
		if err != nil {
			return err
		}
		return s.repos.Rewards.Save(ctx, append(rewards, *r))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	s.log.Info().Str("reward_id", r.ID).Int64("cost", r.Cost).Msg("Reward created")
	return r, nil
}

// Update replaces the editable fields of a reward. Purchase state is kept.
func (s *RewardService) Update(ctx context.Context, id string, in RewardInput) (*model.Reward, error) {
	var updated *model.Reward
	err := s.write(ctx, []string{repository.KeyRewards}, func() error {
		rewards, err := s.repos.Rewards.List(ctx)
		if err != nil {
			return err
		}
		i := indexReward(rewards, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrRewardNotFound, id)
		}
		if err := applyRewardInput(&rewards[i], in); err != nil {
			return err
		}
		if err := s.repos.Rewards.Save(ctx, rewards); err != nil {
			return err
		}
		updated = cloneReward(&rewards[i])
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("reward_id", id).Msg("Reward updated")
	return updated, nil
}

// Delete removes a reward and cancels its pending cooldown timer.
func (s *RewardService) Delete(ctx context.Context, id string) error {
	err := s.write(ctx, []string{repository.KeyRewards}, func() error {
		rewards, err := s.repos.Rewards.List(ctx)
		if err != nil {
			return err
		}
		i := indexReward(rewards, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrRewardNotFound, id)
		}
		return s.repos.Rewards.Save(ctx, append(rewards[:i], rewards[i+1:]...))
	})
	if err != nil {
		return err
	}
	if sc := s.activeScheduler(); sc != nil {
		sc.Cancel(id)
	}
	s.log.Info().Str("reward_id", id).Msg("Reward deleted")
	return nil
}

// List returns every reward after expiring elapsed cooldowns.
func (s *RewardService) List(ctx context.Context) ([]model.Reward, error) {
	if _, err := s.ExpireCooldowns(ctx); err != nil {
		return nil, err
	}
	return s.repos.Rewards.List(ctx)
}

// Get returns the reward with the given id.
func (s *RewardService) Get(ctx context.Context, id string) (*model.Reward, error) {
	rewards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := indexReward(rewards, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRewardNotFound, id)
	}
	return cloneReward(&rewards[i]), nil
}

// Find resolves a user query to a reward by id, id prefix or title.
func (s *RewardService) Find(ctx context.Context, query string) (*model.Reward, error) {
	rewards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i, err := resolve(query, len(rewards),
		func(i int) string { return rewards[i].ID },
		func(i int) string { return rewards[i].Title },
	)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrRewardNotFound, query)
	}
	return cloneReward(&rewards[i]), nil
}

// StartScheduler arms a wake-up for every running cooldown and for each later
// purchase. Timers stop when ctx is done or Stop is called.
func (s *RewardService) StartScheduler(ctx context.Context) (*Scheduler, error) {
	rewards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	sc := newScheduler(ctx, s)
	for _, r := range rewards {
		if r.CooldownUntil != nil {
			sc.Schedule(r.ID, *r.CooldownUntil)
		}
	}

	s.mu.Lock()
	s.scheduler = sc
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		sc.Stop()
	}()

	s.log.Info().Int("pending", sc.Pending()).Msg("Cooldown scheduler started")
	return sc, nil
}

func (s *RewardService) activeScheduler() *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler
}

func indexReward(rewards []model.Reward, id string) int {
	for i := range rewards {
		if rewards[i].ID == id {
			return i
		}
	}
	return -1
}

func applyRewardInput(r *model.Reward, in RewardInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	cost := in.Cost
	if cost == 0 {
		cost = model.DefaultRewardCost
	}
	if cost < 1 {
		return fmt.Errorf("%w: cost must be at least 1", ErrInvalidInput)
	}

	kind := in.Availability
	if kind == "" {
		kind = model.AvailabilityOneTime
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w: availability %q", ErrInvalidInput, in.Availability)
	}

	if in.TimerMinutes < 0 {
		return fmt.Errorf("%w: timer minutes must not be negative", ErrInvalidInput)
	}

	emoji := strings.TrimSpace(in.Emoji)
	if emoji == "" {
		emoji = model.DefaultRewardEmoji
	}

	var days []int
	if kind == model.AvailabilityCustom {
		for _, d := range in.CustomDays {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: weekday %d", ErrInvalidInput, d)
			}
		}
		days = model.SanitizeDays(in.CustomDays)
	}

	r.Title = title
	r.Description = strings.TrimSpace(in.Description)
	r.Cost = cost
	r.Emoji = emoji
	r.Availability = kind
	r.TimerMinutes = in.TimerMinutes
	r.CustomDays = days
	return nil
}

func cloneReward(r *model.Reward) *model.Reward {
	c := *r
	c.CustomDays = append([]int(nil), r.CustomDays...)
	return &c
}
