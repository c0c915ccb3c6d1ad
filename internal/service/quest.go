// Package service provides business logic implementations.
// This file covers the quest lifecycle: CRUD, completion, counting and rollover.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"questhunt/internal/availability"
	"questhunt/internal/model"
	"questhunt/internal/pkg/calendar"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
)

// QuestFilter selects which quests List returns.
type QuestFilter string

// Quest list filters.
const (
	FilterAll       QuestFilter = "all"
	FilterToday     QuestFilter = "today"
	FilterCompleted QuestFilter = "completed"
	FilterOverdue   QuestFilter = "overdue"
	FilterUpcoming  QuestFilter = "upcoming"
)

// ParseQuestFilter parses a filter name. An empty name means today.
func ParseQuestFilter(s string) (QuestFilter, error) {
	f := QuestFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterToday, nil
	case FilterAll, FilterToday, FilterCompleted, FilterOverdue, FilterUpcoming:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, s)
}

// QuestInput holds the user editable fields of a quest.
// Zero values take the documented defaults on Create.
type QuestInput struct {
	Title       string
	Description string
	Type        model.QuestType
	Priority    model.Priority
	CoinReward  int64
	TargetCount int
	StartDate   string
	DueTime     string
	CustomDays  []int
	Subquests   []string
}

// InputFromQuest returns the editable fields of q, for read-modify-write edits.
func InputFromQuest(q *model.Quest) QuestInput {
	days := make([]int, len(q.CustomDays))
	copy(days, q.CustomDays)
	return QuestInput{
		Title:       q.Title,
		Description: q.Description,
		Type:        q.Type,
		Priority:    q.Priority,
		CoinReward:  q.CoinReward,
		TargetCount: q.TargetCount,
		StartDate:   q.StartDate,
		DueTime:     q.DueTime,
		CustomDays:  days,
	}
}

var completionKeys = []string{repository.KeyQuests, repository.KeyDailyStats, repository.KeyUser}

// QuestService handles the quest lifecycle.
type QuestService struct {
	core
}

// NewQuestService creates a new QuestService instance.
// A nil clock means time.Now and a nil location means UTC.
func NewQuestService(
	repos *repository.Repositories,
	keyLock *lock.KeyLock,
	clock Clock,
	loc *time.Location,
	logger zerolog.Logger,
) *QuestService {
	return &QuestService{core: newCore(repos, keyLock, clock, loc, logger)}
}

// CanComplete reports whether q can be completed at now.
// Count quests need their target reached, other quests every subquest done.
func (s *QuestService) CanComplete(q *model.Quest, now time.Time) bool {
	if !availability.QuestToday(q, now, s.loc) {
		return false
	}
	if q.IsCount() {
		return q.CurrentCount >= q.Target()
	}
	return q.SubquestsDone()
}

// IncrementCount adds one to a count quest.
// Reaching the target completes the quest in the same write.
func (s *QuestService) IncrementCount(ctx context.Context, id string) (Outcome, error) {
	var out Outcome
	err := s.write(ctx, completionKeys, func() error {
		quests, i, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		q := &quests[i]
		s.reopen(q, now)

		if !q.IsCount() || !availability.QuestToday(q, now, s.loc) {
			out = rejected(ReasonPreconditionsNotMet)
			return nil
		}

		q.CurrentCount++
		if q.CurrentCount < q.Target() {
			if err := s.repos.Commit(ctx, repository.NewBatch().Quests(quests)); err != nil {
				return err
			}
			s.log.Debug().Str("quest_id", q.ID).Int("count", q.CurrentCount).Msg("Quest count incremented")
			out = Outcome{OK: true, Quest: cloneQuest(q)}
			return nil
		}

		q.CurrentCount = q.Target()
		out, err = s.complete(ctx, quests, i, now)
		return err
	})
	return out, err
}

// CompleteQuest completes a quest and credits its reward.
func (s *QuestService) CompleteQuest(ctx context.Context, id string) (Outcome, error) {
	var out Outcome
	err := s.write(ctx, completionKeys, func() error {
		quests, i, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		q := &quests[i]
		s.reopen(q, now)

		if !s.CanComplete(q, now) {
			out = rejected(ReasonPreconditionsNotMet)
			return nil
		}
		out, err = s.complete(ctx, quests, i, now)
		return err
	})
	return out, err
}

// complete applies the completion transition to quests[i] and commits quests,
// ledger and user together. The caller holds the completion locks.
func (s *QuestService) complete(ctx context.Context, quests []model.Quest, i int, now time.Time) (Outcome, error) {
	user, err := s.repos.Users.Get(ctx)
	if err != nil {
		return Outcome{}, err
	}
	ledger, err := s.repos.Ledger.List(ctx)
	if err != nil {
		return Outcome{}, err
	}
	rewards, err := s.repos.Rewards.List(ctx)
	if err != nil {
		return Outcome{}, err
	}

	today := calendar.Key(now, s.loc)
	q := &quests[i]
	at := now
	q.Status = model.StatusCompleted
	q.CompletedAt = &at
	q.LastCompletedDate = today

	user.Coins += q.CoinReward
	user.TotalTasksCompleted++
	user.TotalCoinsEarned += q.CoinReward
	user.XP += q.CoinReward
	user.LastActiveDate = today

	ledger = upsertLedger(ledger, today, func(d *model.DailyStats) {
		d.TasksCompleted++
		d.CoinsEarned += q.CoinReward
	})

	unlocked := refreshAchievements(user, quests, rewards, ledger, now)

	batch := repository.NewBatch().Quests(quests).Ledger(ledger).User(user)
	if err := s.repos.Commit(ctx, batch); err != nil {
		return Outcome{}, err
	}

	s.log.Info().
		Str("quest_id", q.ID).
		Int64("coins", q.CoinReward).
		Int64("balance", user.Coins).
		Msg("Quest completed")

	return Outcome{OK: true, Quest: cloneQuest(q), User: user, Completed: true, Unlocked: unlocked}, nil
}

// SkipQuest marks an open quest as skipped. Availability is not checked.
func (s *QuestService) SkipQuest(ctx context.Context, id string) (Outcome, error) {
	return s.mutate(ctx, id, func(q *model.Quest, now time.Time) bool {
		if !q.Status.IsOpen() {
			return false
		}
		q.Status = model.StatusSkipped
		return true
	})
}

// ToggleSubquest flips one subquest of an open quest.
// It never completes the parent quest.
func (s *QuestService) ToggleSubquest(ctx context.Context, questID, subquestID string) (Outcome, error) {
	return s.mutate(ctx, questID, func(q *model.Quest, now time.Time) bool {
		if !q.Status.IsOpen() {
			return false
		}
		for i := range q.Subquests {
			sq := &q.Subquests[i]
			if sq.ID != subquestID {
				continue
			}
			sq.Completed = !sq.Completed
			if sq.Completed {
				at := now
				sq.CompletedAt = &at
			} else {
				sq.CompletedAt = nil
			}
			return true
		}
		return false
	})
}

// mutate applies fn to one quest under the quest lock and saves when fn
// reports a change. A false return from fn is a rejected outcome.
func (s *QuestService) mutate(ctx context.Context, id string, fn func(q *model.Quest, now time.Time) bool) (Outcome, error) {
	var out Outcome
	err := s.write(ctx, []string{repository.KeyQuests}, func() error {
		quests, i, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		q := &quests[i]
		s.reopen(q, now)

		if !fn(q, now) {
			out = rejected(ReasonPreconditionsNotMet)
			return nil
		}
		if err := s.repos.Quests.Save(ctx, quests); err != nil {
			return err
		}
		out = Outcome{OK: true, Quest: cloneQuest(q)}
		return nil
	})
	return out, err
}

// RolloverDaily reactivates daily quests completed on an earlier date.
// It returns the number of quests reset.
func (s *QuestService) RolloverDaily(ctx context.Context) (int, error) {
	var n int
	err := s.write(ctx, []string{repository.KeyQuests}, func() error {
		quests, err := s.repos.Quests.List(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		for i := range quests {
			if s.reopen(&quests[i], now) {
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return s.repos.Quests.Save(ctx, quests)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to roll over daily quests: %w", err)
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("Daily quests reactivated")
	}
	return n, nil
}

// reopen resets a daily quest completed before today to a fresh active state.
func (s *QuestService) reopen(q *model.Quest, now time.Time) bool {
	today := calendar.Key(now, s.loc)
	if q.Status != model.StatusCompleted || availability.EffectiveStatus(q, today, s.loc) != model.StatusActive {
		return false
	}
	q.Status = model.StatusActive
	q.CurrentCount = 0
	for i := range q.Subquests {
		q.Subquests[i].Completed = false
		q.Subquests[i].CompletedAt = nil
	}
	return true
}

// Create adds a new quest.
func (s *QuestService) Create(ctx context.Context, in QuestInput) (*model.Quest, error) {
	now := s.now()
	q := &model.Quest{
		ID:        uuid.NewString(),
		Status:    model.StatusActive,
		CreatedAt: now,
		Subquests: []model.Subquest{},
	}
	if err := applyQuestInput(q, in, calendar.Key(now, s.loc)); err != nil {
		return nil, err
	}
	for _, title := range in.Subquests {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		q.Subquests = append(q.Subquests, model.Subquest{ID: uuid.NewString(), Title: title})
	}
	if q.Type == model.QuestCustom && len(q.CustomDays) == 0 {
		s.log.Warn().Str("title", q.Title).Msg("Custom quest has no days and will never be available")
	}

	err := s.write(ctx, []string{repository.KeyQuests}, func() error {
		quests, err := s.repos.Quests.List(ctx)
		if err != nil {
			return err
		}
		return s.repos.Quests.Save(ctx, append(quests, *q))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	s.log.Info().Str("quest_id", q.ID).Str("type", string(q.Type)).Msg("Quest created")
	return q, nil
}

// Update replaces the editable fields of a quest. Progress, status and
// subquests are kept.
func (s *QuestService) Update(ctx context.Context, id string, in QuestInput) (*model.Quest, error) {
	var updated *model.Quest
	err := s.write(ctx, []string{repository.KeyQuests}, func() error {
		quests, i, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		q := &quests[i]
		if err := applyQuestInput(q, in, calendar.Key(now, s.loc)); err != nil {
			return err
		}
		q.Normalize(now)
		if err := s.repos.Quests.Save(ctx, quests); err != nil {
			return err
		}
		updated = cloneQuest(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("quest_id", id).Msg("Quest updated")
	return updated, nil
}

// Delete removes a quest.
func (s *QuestService) Delete(ctx context.Context, id string) error {
	err := s.write(ctx, []string{repository.KeyQuests}, func() error {
		quests, i, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		quests = append(quests[:i], quests[i+1:]...)
		return s.repos.Quests.Save(ctx, quests)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("quest_id", id).Msg("Quest deleted")
	return nil
}

// AddSubquest appends a checklist item to a quest.
func (s *QuestService) AddSubquest(ctx context.Context, id, title string) (*model.Quest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: subquest title is required", ErrInvalidInput)
	}
	out, err := s.mutate(ctx, id, func(q *model.Quest, _ time.Time) bool {
		q.Subquests = append(q.Subquests, model.Subquest{ID: uuid.NewString(), Title: title})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out.Quest, nil
}

// Get returns the quest with the given id.
func (s *QuestService) Get(ctx context.Context, id string) (*model.Quest, error) {
	quests, i, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return cloneQuest(&quests[i]), nil
}

// Find resolves a user query to a quest by id, id prefix or title.
func (s *QuestService) Find(ctx context.Context, query string) (*model.Quest, error) {
	quests, err := s.repos.Quests.List(ctx)
	if err != nil {
		return nil, err
	}
	i, err := resolve(query, len(quests),
		func(i int) string { return quests[i].ID },
		func(i int) string { return quests[i].Title },
	)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrQuestNotFound, query)
	}
	return cloneQuest(&quests[i]), nil
}

// List returns the quests selected by filter.
// all, today and overdue put open quests before closed ones.
func (s *QuestService) List(ctx context.Context, filter QuestFilter) ([]model.Quest, error) {
	quests, err := s.repos.Quests.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := calendar.Key(now, s.loc)

	out := make([]model.Quest, 0, len(quests))
	for i := range quests {
		q := &quests[i]
		status := availability.EffectiveStatus(q, today, s.loc)
		var keep bool
		switch filter {
		case FilterAll:
			keep = true
		case FilterToday:
			keep = (status.IsOpen() && availability.QuestToday(q, now, s.loc)) ||
				(status == model.StatusCompleted && q.CompletedAt != nil && calendar.Key(*q.CompletedAt, s.loc) == today)
		case FilterCompleted:
			keep = status == model.StatusCompleted
		case FilterOverdue:
			keep = q.Status == model.StatusOverdue ||
				((q.Type == model.QuestOnce || q.IsCount()) && availability.Overdue(q, now, s.loc))
		case FilterUpcoming:
			keep = status.IsOpen() && !availability.QuestToday(q, now, s.loc)
		default:
			return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, filter)
		}
		if keep {
			out = append(out, *q)
		}
	}

	if filter == FilterAll || filter == FilterToday || filter == FilterOverdue {
		sort.SliceStable(out, func(a, b int) bool {
			return availability.EffectiveStatus(&out[a], today, s.loc).IsOpen() &&
				!availability.EffectiveStatus(&out[b], today, s.loc).IsOpen()
		})
	}
	return out, nil
}

// ForDate returns the calendar view of a date: open quests scheduled on it and
// quests completed on it.
func (s *QuestService) ForDate(ctx context.Context, date string) ([]model.Quest, error) {
	day, err := calendar.Parse(date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	quests, err := s.repos.Quests.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Quest, 0, len(quests))
	for i := range quests {
		q := &quests[i]
		if availability.CompletionDate(q, s.loc) == date || availability.QuestOnDate(q, day, s.loc) {
			out = append(out, *q)
		}
	}
	return out, nil
}

// load returns every quest and the index of id.
func (s *QuestService) load(ctx context.Context, id string) ([]model.Quest, int, error) {
	quests, err := s.repos.Quests.List(ctx)
	if err != nil {
		return nil, -1, err
	}
	for i := range quests {
		if quests[i].ID == id {
			return quests, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s", ErrQuestNotFound, id)
}

// applyQuestInput validates in and writes it onto q. today fills a missing start date.
func applyQuestInput(q *model.Quest, in QuestInput, today string) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	typ := in.Type
	if typ == "" {
		typ = model.QuestOnce
	}
	if !typ.IsValid() {
		return fmt.Errorf("%w: quest type %q", ErrInvalidInput, in.Type)
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.IsValid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidInput, in.Priority)
	}

	reward := in.CoinReward
	if reward == 0 {
		reward = model.DefaultCoinReward
	}
	if reward < model.MinCoinReward || reward > model.MaxCoinReward {
		return fmt.Errorf("%w: coin reward must be %d-%d", ErrInvalidInput, model.MinCoinReward, model.MaxCoinReward)
	}

	target := 0
	if typ == model.QuestCount {
		target = in.TargetCount
		if target == 0 {
			target = model.DefaultTargetCount
		}
		if target < 1 || target > model.MaxTargetCount {
			return fmt.Errorf("%w: target count must be 1-%d", ErrInvalidInput, model.MaxTargetCount)
		}
	}

	start := strings.TrimSpace(in.StartDate)
	if start == "" {
		start = today
	}
	if !calendar.Valid(start) {
		return fmt.Errorf("%w: start date %q", ErrInvalidInput, in.StartDate)
	}

	due := strings.TrimSpace(in.DueTime)
	if due == "" {
		due = model.DefaultDueTime
	}
	if _, err := time.Parse(calendar.ClockLayout, due); err != nil {
		return fmt.Errorf("%w: due time %q", ErrInvalidInput, in.DueTime)
	}

	var days []int
	if typ.UsesCustomDays() {
		for _, d := range in.CustomDays {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: weekday %d", ErrInvalidInput, d)
			}
		}
		days = model.SanitizeDays(in.CustomDays)
	}

	q.Title = title
	q.Description = strings.TrimSpace(in.Description)
	q.Type = typ
	q.Priority = priority
	q.CoinReward = reward
	q.TargetCount = target
	if q.CurrentCount > target {
		q.CurrentCount = target
	}
	q.StartDate = start
	q.DueTime = due
	q.CustomDays = days
	return nil
}

func cloneQuest(q *model.Quest) *model.Quest {
	c := *q
	c.Subquests = append([]model.Subquest(nil), q.Subquests...)
	c.CustomDays = append([]int(nil), q.CustomDays...)
	return &c
}
