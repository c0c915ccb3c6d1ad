// Package repository provides data access to the stored collections.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"questhunt/internal/model"
)

// UserDefaults seeds the profile when none is stored yet.
type UserDefaults struct {
	Nickname      string
	StartingCoins int64
}

// Repositories bundles the typed collection repositories over one Store.
type Repositories struct {
	store Store

	Quests  *QuestRepository
	Rewards *RewardRepository
	Ledger  *LedgerRepository
	Users   *UserRepository
}

// New creates the collection repositories. now must return instants in the
// user's location; it dates records that lack a creation time.
func New(store Store, defaults UserDefaults, now func() time.Time, logger zerolog.Logger) *Repositories {
	if now == nil {
		now = time.Now
	}
	b := base{store: store, now: now, log: logger}
	return &Repositories{
		store:   store,
		Quests:  &QuestRepository{base: b},
		Rewards: &RewardRepository{base: b},
		Ledger:  &LedgerRepository{base: b},
		Users:   &UserRepository{base: b, defaults: defaults},
	}
}

// Store returns the underlying store.
func (r *Repositories) Store() Store {
	return r.store
}

// Commit writes every staged collection together.
func (r *Repositories) Commit(ctx context.Context, b *Batch) error {
	if b.err != nil {
		return b.err
	}
	if len(b.entries) == 0 {
		return nil
	}
	if err := r.store.PutAll(ctx, b.entries); err != nil {
		return fmt.Errorf("failed to commit collections: %w", err)
	}
	return nil
}

// Reset removes every stored collection.
func (r *Repositories) Reset(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}
	return nil
}

// Batch collects whole-collection writes for a single Commit.
type Batch struct {
	entries []Entry
	err     error
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) put(key string, v any) *Batch {
	if b.err != nil {
		return b
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("failed to encode %s: %w", key, err)
		return b
	}
	for i := range b.entries {
		if b.entries[i].Key == key {
			b.entries[i].Value = data
			return b
		}
	}
	b.entries = append(b.entries, Entry{Key: key, Value: data})
	return b
}

// Quests stages the quest collection.
func (b *Batch) Quests(quests []model.Quest) *Batch {
	if quests == nil {
		quests = []model.Quest{}
	}
	return b.put(KeyQuests, quests)
}

// Rewards stages the reward collection.
func (b *Batch) Rewards(rewards []model.Reward) *Batch {
	if rewards == nil {
		rewards = []model.Reward{}
	}
	return b.put(KeyRewards, rewards)
}

// Ledger stages the daily stats collection.
func (b *Batch) Ledger(entries []model.DailyStats) *Batch {
	if entries == nil {
		entries = []model.DailyStats{}
	}
	return b.put(KeyDailyStats, entries)
}

// User stages the user profile.
func (b *Batch) User(u *model.User) *Batch {
	return b.put(KeyUser, u)
}

// Keys returns the staged keys in staging order.
func (b *Batch) Keys() []string {
	keys := make([]string, len(b.entries))
	for i, e := range b.entries {
		keys[i] = e.Key
	}
	return keys
}

type base struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// load decodes key into dst. Missing or malformed documents report false and
// dst must then be discarded; malformed ones are logged.
func (b *base) load(ctx context.Context, key string, dst any) (bool, error) {
	data, ok, err := b.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		b.log.Warn().Err(err).Str("key", key).Msg("Discarding malformed collection")
		return false, nil
	}
	return true, nil
}

func (b *base) save(ctx context.Context, batch *Batch) error {
	if batch.err != nil {
		return batch.err
	}
	if err := b.store.PutAll(ctx, batch.entries); err != nil {
		return fmt.Errorf("failed to save %v: %w", batch.Keys(), err)
	}
	return nil
}

// QuestRepository handles the quest collection.
type QuestRepository struct {
	base
}

// List returns every quest in stored order with defaults applied.
func (r *QuestRepository) List(ctx context.Context) ([]model.Quest, error) {
	var quests []model.Quest
	found, err := r.load(ctx, KeyQuests, &quests)
	if err != nil {
		return nil, err
	}
	if !found {
		quests = nil
	}
	now := r.now()
	out := make([]model.Quest, 0, len(quests))
	for _, q := range quests {
		if q.ID == "" {
			r.log.Warn().Str("title", q.Title).Msg("Dropping quest without id")
			continue
		}
		q.Normalize(now)
		out = append(out, q)
	}
	return out, nil
}

// Save replaces the quest collection.
func (r *QuestRepository) Save(ctx context.Context, quests []model.Quest) error {
	return r.save(ctx, NewBatch().Quests(quests))
}

// RewardRepository handles the reward collection.
type RewardRepository struct {
	base
}

// List returns every reward in stored order with defaults applied.
func (r *RewardRepository) List(ctx context.Context) ([]model.Reward, error) {
	var rewards []model.Reward
	found, err := r.load(ctx, KeyRewards, &rewards)
	if err != nil {
		return nil, err
	}
	if !found {
		rewards = nil
	}
	now := r.now()
	out := make([]model.Reward, 0, len(rewards))
	for _, rw := range rewards {
		if rw.ID == "" {
			r.log.Warn().Str("title", rw.Title).Msg("Dropping reward without id")
			continue
		}
		rw.Normalize(now)
		out = append(out, rw)
	}
	return out, nil
}

// Save replaces the reward collection.
func (r *RewardRepository) Save(ctx context.Context, rewards []model.Reward) error {
	return r.save(ctx, NewBatch().Rewards(rewards))
}

// LedgerRepository handles the per-day stats ledger.
type LedgerRepository struct {
	base
}

// List returns the ledger with one entry per date.
func (r *LedgerRepository) List(ctx context.Context) ([]model.DailyStats, error) {
	var entries []model.DailyStats
	found, err := r.load(ctx, KeyDailyStats, &entries)
	if err != nil {
		return nil, err
	}
	if !found {
		entries = nil
	}
	return model.NormalizeLedger(entries), nil
}

// Save replaces the ledger.
func (r *LedgerRepository) Save(ctx context.Context, entries []model.DailyStats) error {
	return r.save(ctx, NewBatch().Ledger(entries))
}

// UserRepository handles the user profile singleton.
type UserRepository struct {
	base
	defaults UserDefaults
}

// Get returns the stored profile, or a fresh default profile when none exists.
func (r *UserRepository) Get(ctx context.Context) (*model.User, error) {
	user, _, err := r.GetOrDefault(ctx)
	return user, err
}

// GetOrDefault is Get that also reports whether the profile was stored.
func (r *UserRepository) GetOrDefault(ctx context.Context) (*model.User, bool, error) {
	var user model.User
	found, err := r.load(ctx, KeyUser, &user)
	if err != nil {
		return nil, false, err
	}
	if !found {
		user = model.User{
			Nickname: r.defaults.Nickname,
			Coins:    r.defaults.StartingCoins,
		}
	}
	user.Normalize(r.now())
	return &user, found, nil
}

// Save replaces the profile.
func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	return r.save(ctx, NewBatch().User(user))
}
