// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"questhunt/internal/availability"
	"questhunt/internal/model"
	"questhunt/internal/pkg/calendar"
	"questhunt/internal/pkg/lock"
	"questhunt/internal/repository"
)

// Progress is today's completion tally.
type Progress struct {
	Total      int
	Completed  int
	Percentage int
}

// Rates are per-day averages over the ledger.
type Rates struct {
	TasksPerDay float64
	CoinsPerDay float64
	SpentPerDay float64
}

// DailyProgress counts quests available today against quests completed today.
// Percentage is not capped: quests completed today that are no longer on
// today's list still count as completed.
func DailyProgress(quests []model.Quest, now time.Time, loc *time.Location) Progress {
	today := calendar.Key(now, loc)
	var p Progress
	for i := range quests {
		q := &quests[i]
		if availability.QuestToday(q, now, loc) {
			p.Total++
		}
		if q.Status == model.StatusCompleted && q.CompletedAt != nil && calendar.Key(*q.CompletedAt, loc) == today {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percentage = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p
}

// Averages divides ledger totals by the number of ledger days, at least 1.
func Averages(ledger []model.DailyStats) Rates {
	days := len(ledger)
	if days == 0 {
		days = 1
	}
	var tasks, coins, spent int64
	for _, d := range ledger {
		tasks += int64(d.TasksCompleted)
		coins += d.CoinsEarned
		spent += d.CoinsSpent
	}
	n := float64(days)
	return Rates{
		TasksPerDay: float64(tasks) / n,
		CoinsPerDay: float64(coins) / n,
		SpentPerDay: float64(spent) / n,
	}
}

// CompletionRate returns completed quests as a percentage of all quests.
func CompletionRate(quests []model.Quest) float64 {
	total := len(quests)
	if total == 0 {
		total = 1
	}
	completed := 0
	for i := range quests {
		if quests[i].Status == model.StatusCompleted {
			completed++
		}
	}
	return float64(completed) / float64(total) * 100
}

// BestStreak returns the longest run of consecutive all-done ledger entries in
// date order, or stored if that is larger.
func BestStreak(ledger []model.DailyStats, stored int) int {
	sorted := make([]model.DailyStats, len(ledger))
	copy(sorted, ledger)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	best, run := 0, 0
	for _, d := range sorted {
		run = StreakUpdate(d.AllTasksCompleted, run)
		if run > best {
			best = run
		}
	}
	if stored > best {
		return stored
	}
	return best
}

// StreakUpdate advances a streak by one finished day or resets it.
func StreakUpdate(all bool, current int) int {
	if all {
		return current + 1
	}
	return 0
}

// MostCompletedQuest returns the title with the most completed quests, or "".
// Ties go to the title seen first.
func MostCompletedQuest(quests []model.Quest) string {
	counts := make(map[string]int)
	var order []string
	for i := range quests {
		q := &quests[i]
		if q.Status != model.StatusCompleted {
			continue
		}
		if _, ok := counts[q.Title]; !ok {
			order = append(order, q.Title)
		}
		counts[q.Title]++
	}
	best, bestN := "", 0
	for _, title := range order {
		if counts[title] > bestN {
			best, bestN = title, counts[title]
		}
	}
	return best
}

// MostLikedReward returns the most expensive reward bought at least once, or nil.
func MostLikedReward(rewards []model.Reward) *model.Reward {
	var best *model.Reward
	for i := range rewards {
		r := &rewards[i]
		if !r.Purchased && r.PurchaseCount == 0 {
			continue
		}
		if best == nil || r.Cost > best.Cost {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	return cloneReward(best)
}

// DayRow is one day of the weekly chart.
type DayRow struct {
	Date           string
	Weekday        time.Weekday
	TasksCompleted int
	CoinsEarned    int64
	CoinsSpent     int64
	RewardsBought  int
}

// Summary is the full statistics view.
type Summary struct {
	Today          Progress
	Rates          Rates
	CompletionRate float64
	BestStreak     int
	Streak         int

	TotalQuests      int
	TotalCompleted   int
	Coins            int64
	TotalCoinsEarned int64
	TotalCoinsSpent  int64
	Level            int64

	MostCompleted string
	MostLiked     *model.Reward
}

// StatsService computes statistics views and closes finished days.
type StatsService struct {
	core
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(
	repos *repository.Repositories,
	keyLock *lock.KeyLock,
	clock Clock,
	loc *time.Location,
	logger zerolog.Logger,
) *StatsService {
	return &StatsService{core: newCore(repos, keyLock, clock, loc, logger)}
}

type snapshot struct {
	quests  []model.Quest
	rewards []model.Reward
	ledger  []model.DailyStats
	user    *model.User
}

// load reads every collection concurrently.
func (s *StatsService) load(ctx context.Context) (*snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.quests, err = s.repos.Quests.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.rewards, err = s.repos.Rewards.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.ledger, err = s.repos.Ledger.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.user, err = s.repos.Users.Get(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &snap, nil
}

// Summary returns every statistic over the current collections.
func (s *StatsService) Summary(ctx context.Context) (*Summary, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	completed := 0
	for i := range snap.quests {
		if snap.quests[i].Status == model.StatusCompleted {
			completed++
		}
	}
	return &Summary{
		Today:            DailyProgress(snap.quests, s.now(), s.loc),
		Rates:            Averages(snap.ledger),
		CompletionRate:   CompletionRate(snap.quests),
		BestStreak:       BestStreak(snap.ledger, snap.user.Streak),
		Streak:           snap.user.Streak,
		TotalQuests:      len(snap.quests),
		TotalCompleted:   completed,
		Coins:            snap.user.Coins,
		TotalCoinsEarned: snap.user.TotalCoinsEarned,
		TotalCoinsSpent:  snap.user.TotalCoinsSpent,
		Level:            snap.user.Level(),
		MostCompleted:    MostCompletedQuest(snap.quests),
		MostLiked:        MostLikedReward(snap.rewards),
	}, nil
}

// Week returns the last seven days, oldest first.
func (s *StatsService) Week(ctx context.Context) ([]DayRow, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]model.DailyStats, len(snap.ledger))
	for _, d := range snap.ledger {
		byDate[d.Date] = d
	}
	bought := make(map[string]int)
	for _, r := range snap.rewards {
		if r.PurchasedAt != nil {
			bought[calendar.Key(*r.PurchasedAt, s.loc)]++
		}
	}

	days := calendar.LastDays(s.now(), s.loc, 7)
	rows := make([]DayRow, 0, len(days))
	for _, date := range days {
		d := byDate[date]
		t, err := calendar.Parse(date, s.loc)
		if err != nil {
			return nil, err
		}
		rows = append(rows, DayRow{
			Date:           date,
			Weekday:        t.Weekday(),
			TasksCompleted: d.TasksCompleted,
			CoinsEarned:    d.CoinsEarned,
			CoinsSpent:     d.CoinsSpent,
			RewardsBought:  bought[date],
		})
	}
	return rows, nil
}

// CloseDay records whether every quest scheduled on date was completed and
// updates the user streak. Closing an already finished day is a no-op.
func (s *StatsService) CloseDay(ctx context.Context, date string) (int, error) {
	day, err := calendar.Parse(date, s.loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var streak int
	err = s.write(ctx, []string{repository.KeyDailyStats, repository.KeyUser}, func() error {
		snap, err := s.load(ctx)
		if err != nil {
			return err
		}
		streak = snap.user.Streak

		entry := -1
		for i := range snap.ledger {
			if snap.ledger[i].Date == date {
				entry = i
				break
			}
		}
		if entry >= 0 && snap.ledger[entry].AllTasksCompleted {
			return nil
		}

		all := allDone(snap.quests, date, day, s.loc)
		if !all && streak == 0 {
			return nil
		}
		if all {
			snap.ledger = upsertLedger(snap.ledger, date, func(d *model.DailyStats) {
				d.AllTasksCompleted = true
			})
		}
		snap.user.Streak = StreakUpdate(all, streak)
		streak = snap.user.Streak
		refreshAchievements(snap.user, snap.quests, snap.rewards, snap.ledger, s.now())

		batch := repository.NewBatch().Ledger(snap.ledger).User(snap.user)
		return s.repos.Commit(ctx, batch)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().Str("date", date).Int("streak", streak).Msg("Day closed")
	return streak, nil
}

// allDone reports whether at least one quest was completed on date and no
// open quest scheduled on date was left undone.
func allDone(quests []model.Quest, date string, day time.Time, loc *time.Location) bool {
	done := 0
	for i := range quests {
		q := &quests[i]
		if availability.CompletionDate(q, loc) == date {
			done++
			continue
		}
		if availability.QuestOnDate(q, day, loc) {
			return false
		}
	}
	return done > 0
}
