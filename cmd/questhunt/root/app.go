// Package root wires the questhunt command tree.
package root

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"questhunt/internal/config"
	"questhunt/internal/pkg/calendar"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
	"questhunt/internal/service"
)

// app is the wired service graph shared by every command.
type app struct {
	cfg *config.Config
	loc *time.Location

	quests  *service.QuestService
	rewards *service.RewardService
	stats   *service.StatsService
	profile *service.ProfileService
}

// openApp loads configuration, opens the store and brings stored state up to
// date: daily quests are reopened, elapsed cooldowns cleared and yesterday is
// closed for the streak.
func openApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	setLogLevel(cfg.App.LogLevel)

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, nil, err
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}

	now := func() time.Time { return time.Now().In(loc) }
	repos := repository.New(store, repository.UserDefaults{
		Nickname:      cfg.Economy.DefaultNickname,
		StartingCoins: cfg.Economy.StartingCoins,
	}, now, log.Logger)
	keyLock := lock.NewKeyLockWithTimeout(cfg.Storage.LockTimeout)

	a := &app{
		cfg:     cfg,
		loc:     loc,
		quests:  service.NewQuestService(repos, keyLock, now, loc, log.Logger),
		rewards: service.NewRewardService(repos, keyLock, now, loc, log.Logger),
		stats:   service.NewStatsService(repos, keyLock, now, loc, log.Logger),
		profile: service.NewProfileService(repos, keyLock, now, loc, log.Logger),
	}

	if err := a.catchUp(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

func (a *app) catchUp(ctx context.Context) error {
	if _, err := a.quests.RolloverDaily(ctx); err != nil {
		return err
	}
	if _, err := a.rewards.ExpireCooldowns(ctx); err != nil {
		return err
	}
	yesterday, err := calendar.AddDays(calendar.Key(time.Now(), a.loc), -1)
	if err != nil {
		return err
	}
	if _, err := a.stats.CloseDay(ctx, yesterday); err != nil {
		return fmt.Errorf("failed to close %s: %w", yesterday, err)
	}
	return nil
}

func setLogLevel(level string) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
