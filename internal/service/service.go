// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"questhunt/internal/model"
	"questhunt/internal/pkg/calendar"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
)

// Common errors
var (
	ErrQuestNotFound   = errors.New("quest not found")
	ErrRewardNotFound  = errors.New("reward not found")
	ErrInvalidNickname = errors.New("nickname must be 1-20 characters")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAmbiguousQuery  = errors.New("query matches more than one item")
)

// Clock returns the current instant.
type Clock func() time.Time

// Reason explains why a guarded operation was rejected.
type Reason string

// Rejection reasons.
const (
	ReasonInsufficientFunds   Reason = "insufficient_funds"
	ReasonOnCooldown          Reason = "on_cooldown"
	ReasonUnavailableToday    Reason = "unavailable_today"
	ReasonPreconditionsNotMet Reason = "preconditions_not_met"
)

// Message returns a short user facing explanation.
func (r Reason) Message() string {
	switch r {
	case ReasonInsufficientFunds:
		return "not enough coins"
	case ReasonOnCooldown:
		return "reward is on cooldown"
	case ReasonUnavailableToday:
		return "not available today"
	case ReasonPreconditionsNotMet:
		return "action not allowed in the current state"
	}
	return string(r)
}

// Outcome is the result of a guarded state transition.
// A rejected outcome means nothing was written.
type Outcome struct {
	OK     bool
	Reason Reason

	Quest  *model.Quest
	Reward *model.Reward
	User   *model.User

	// Completed is set when the operation completed the quest.
	Completed bool
	// Unlocked lists achievements unlocked by the operation.
	Unlocked []model.Achievement
}

func rejected(reason Reason) Outcome {
	return Outcome{Reason: reason}
}

// Eligibility is the result of a purchase check.
type Eligibility struct {
	OK     bool
	Reason Reason
}

// core holds what every service needs to read and write collections.
type core struct {
	repos *repository.Repositories
	locks *lock.KeyLock
	clock Clock
	loc   *time.Location
	log   zerolog.Logger
}

func newCore(repos *repository.Repositories, keyLock *lock.KeyLock, clock Clock, loc *time.Location, logger zerolog.Logger) core {
	if keyLock == nil {
		keyLock = lock.NewKeyLock()
	}
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return core{repos: repos, locks: keyLock, clock: clock, loc: loc, log: logger}
}

// now returns the current instant in the user's location.
func (c *core) now() time.Time {
	return c.clock().In(c.loc)
}

func (c *core) today() string {
	return calendar.Key(c.clock(), c.loc)
}

// write runs fn holding the locks for keys.
func (c *core) write(ctx context.Context, keys []string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.locks.WithLocksContext(ctx, keys, fn)
}

// upsertLedger applies fn to the entry for date, appending a new entry when absent.
func upsertLedger(entries []model.DailyStats, date string, fn func(*model.DailyStats)) []model.DailyStats {
	for i := range entries {
		if entries[i].Date == date {
			fn(&entries[i])
			return entries
		}
	}
	entry := model.DailyStats{Date: date}
	fn(&entry)
	return append(entries, entry)
}
