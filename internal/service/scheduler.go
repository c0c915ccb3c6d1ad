// Package service provides business logic implementations.
package service

import (
	"context"
	"sync"
	"time"
)

type pendingExpiry struct {
	timer *time.Timer
	until time.Time
}

// Scheduler wakes up when a reward cooldown ends and clears it.
// It only speeds up expiry: ExpireCooldowns on every read covers restarts.
type Scheduler struct {
	ctx     context.Context
	rewards *RewardService

	mu      sync.Mutex
	pending map[string]pendingExpiry
	stopped bool
	wg      sync.WaitGroup
}

func newScheduler(ctx context.Context, rewards *RewardService) *Scheduler {
	return &Scheduler{
		ctx:     ctx,
		rewards: rewards,
		pending: make(map[string]pendingExpiry),
	}
}

// Schedule arms the expiry of reward id at until, replacing any earlier timer.
func (sc *Scheduler) Schedule(id string, until time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.stopped {
		return
	}
	if p, ok := sc.pending[id]; ok {
		p.timer.Stop()
	}

	d := until.Sub(sc.rewards.clock())
	if d < 0 {
		d = 0
	}
	sc.pending[id] = pendingExpiry{
		timer: time.AfterFunc(d, func() { sc.fire(id, until) }),
		until: until,
	}
}

// Cancel drops the pending timer for id, if any.
func (sc *Scheduler) Cancel(id string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if p, ok := sc.pending[id]; ok {
		p.timer.Stop()
		delete(sc.pending, id)
	}
}

// Pending returns the number of armed timers.
func (sc *Scheduler) Pending() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.pending)
}

// Stop cancels every timer and waits for running expiries to finish.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	sc.stopped = true
	for id, p := range sc.pending {
		p.timer.Stop()
		delete(sc.pending, id)
	}
	sc.mu.Unlock()
	sc.wg.Wait()
}

func (sc *Scheduler) fire(id string, until time.Time) {
	sc.mu.Lock()
	if sc.stopped {
		sc.mu.Unlock()
		return
	}
	if p, ok := sc.pending[id]; ok && p.until.Equal(until) {
		delete(sc.pending, id)
	}
	sc.wg.Add(1)
	sc.mu.Unlock()
	defer sc.wg.Done()

	expired, err := sc.rewards.expireOne(sc.ctx, id, until)
	if err != nil {
		sc.rewards.log.Error().Err(err).Str("reward_id", id).Msg("Failed to expire cooldown")
		return
	}
	if expired {
		sc.rewards.log.Info().Str("reward_id", id).Msg("Reward cooldown ended")
	}
}
