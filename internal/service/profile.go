// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"questhunt/internal/achievement"
	"questhunt/internal/model"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
)

// ProfileService handles the user profile and achievements.
type ProfileService struct {
	core
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(
	repos *repository.Repositories,
	keyLock *lock.KeyLock,
	clock Clock,
	loc *time.Location,
	logger zerolog.Logger,
) *ProfileService {
	return &ProfileService{core: newCore(repos, keyLock, clock, loc, logger)}
}

// Get returns the profile, creating the default one if none is stored.
func (s *ProfileService) Get(ctx context.Context) (*model.User, error) {
	user, found, err := s.repos.Users.GetOrDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if found {
		return user, nil
	}
	err = s.write(ctx, []string{repository.KeyUser}, func() error {
		return s.repos.Users.Save(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	s.log.Info().Str("nickname", user.Nickname).Int64("coins", user.Coins).Msg("Profile created")
	return user, nil
}

// Rename changes the nickname. It is trimmed and must be 1-20 characters.
func (s *ProfileService) Rename(ctx context.Context, nickname string) (*model.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > model.MaxNicknameLength {
		return nil, ErrInvalidNickname
	}

	var user *model.User
	err := s.write(ctx, []string{repository.KeyUser}, func() error {
		var err error
		user, err = s.repos.Users.Get(ctx)
		if err != nil {
			return err
		}
		user.Nickname = nickname
		return s.repos.Users.Save(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rename profile: %w", err)
	}
	return user, nil
}

// Level returns the level reached with xp.
func Level(xp int64) int64 {
	u := model.User{XP: xp}
	return u.Level()
}

// LevelProgress returns the xp gained within the current level and the xp a level spans.
func LevelProgress(xp int64) (int64, int64) {
	if xp < 0 {
		xp = 0
	}
	return xp % model.XPPerLevel, model.XPPerLevel
}

// Reset clears every collection. The next read starts from defaults.
func (s *ProfileService) Reset(ctx context.Context) error {
	err := s.write(ctx, repository.Keys(), func() error {
		return s.repos.Reset(ctx)
	})
	if err != nil {
		return err
	}
	s.log.Warn().Msg("All data reset")
	return nil
}

// RefreshAchievements recomputes achievement progress and returns the newly
// unlocked entries.
func (s *ProfileService) RefreshAchievements(ctx context.Context) ([]model.Achievement, error) {
	var unlocked []model.Achievement
	err := s.write(ctx, []string{repository.KeyUser}, func() error {
		user, err := s.repos.Users.Get(ctx)
		if err != nil {
			return err
		}
		quests, err := s.repos.Quests.List(ctx)
		if err != nil {
			return err
		}
		rewards, err := s.repos.Rewards.List(ctx)
		if err != nil {
			return err
		}
		ledger, err := s.repos.Ledger.List(ctx)
		if err != nil {
			return err
		}
		unlocked = refreshAchievements(user, quests, rewards, ledger, s.now())
		return s.repos.Users.Save(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh achievements: %w", err)
	}
	for _, a := range unlocked {
		s.log.Info().Str("achievement", a.ID).Msg("Achievement unlocked")
	}
	return unlocked, nil
}

func achievementFacts(user *model.User, quests []model.Quest, rewards []model.Reward, ledger []model.DailyStats) achievement.Facts {
	var bought int64
	for i := range rewards {
		bought += int64(rewards[i].PurchaseCount)
	}
	return achievement.Facts{
		QuestsCompleted: int64(user.TotalTasksCompleted),
		CoinsEarned:     user.TotalCoinsEarned,
		BestStreak:      int64(BestStreak(ledger, user.Streak)),
		RewardsBought:   bought,
		CompletionRate:  int64(math.Round(CompletionRate(quests))),
	}
}

// refreshAchievements updates user.Achievements in place.
func refreshAchievements(user *model.User, quests []model.Quest, rewards []model.Reward, ledger []model.DailyStats, now time.Time) []model.Achievement {
	merged, unlocked := achievement.Evaluate(user.Achievements, achievementFacts(user, quests, rewards, ledger), now)
	user.Achievements = merged
	return unlocked
}
