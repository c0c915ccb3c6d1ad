// Package tui implements the interactive bubbletea board.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"questhunt/internal/model"
	"questhunt/internal/service"
	"questhunt/internal/ui"
)

type tab int

const (
	tabQuests tab = iota
	tabRewards
)

type boardModel struct {
	ctx context.Context
	svc Services

	width  int
	height int

	user     *model.User
	quests   []model.Quest
	rewards  []model.Reward
	progress service.Progress

	tab      tab
	selected int

	lastLog string
	loading bool
	err     error
}

type loadedMsg struct {
	user     *model.User
	quests   []model.Quest
	rewards  []model.Reward
	progress service.Progress
	err      error
}

// actionMsg carries the result of a write made from the board.
type actionMsg struct {
	log string
	err error
}

func newBoardModel(ctx context.Context, svc Services) boardModel {
	return boardModel{
		ctx:     ctx,
		svc:     svc,
		loading: true,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		user, err := m.svc.Profile.Get(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		quests, err := m.svc.Quests.List(m.ctx, service.FilterToday)
		if err != nil {
			return loadedMsg{err: err}
		}
		rewards, err := m.svc.Rewards.List(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		summary, err := m.svc.Stats.Summary(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{user: user, quests: quests, rewards: rewards, progress: summary.Today}
	}
}

func (m boardModel) completeCmd(q model.Quest) tea.Cmd {
	return func() tea.Msg {
		var (
			out service.Outcome
			err error
		)
		if q.IsCount() {
			out, err = m.svc.Quests.IncrementCount(m.ctx, q.ID)
		} else {
			out, err = m.svc.Quests.CompleteQuest(m.ctx, q.ID)
		}
		if err != nil {
			return actionMsg{err: err}
		}
		switch {
		case !out.OK:
			return actionMsg{log: fmt.Sprintf("Cannot complete %s: %s", q.Title, out.Reason.Message())}
		case !out.Completed:
			return actionMsg{log: fmt.Sprintf("%s %d/%d", q.Title, out.Quest.CurrentCount, out.Quest.Target())}
		}
		return actionMsg{log: withUnlocks(fmt.Sprintf("Completed %s: +%d coins", q.Title, q.CoinReward), out.Unlocked)}
	}
}

func (m boardModel) skipCmd(q model.Quest) tea.Cmd {
	return func() tea.Msg {
		out, err := m.svc.Quests.SkipQuest(m.ctx, q.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		if !out.OK {
			return actionMsg{log: "Cannot skip " + q.Title + ": " + out.Reason.Message()}
		}
		return actionMsg{log: "Skipped " + q.Title}
	}
}

func (m boardModel) buyCmd(r model.Reward) tea.Cmd {
	return func() tea.Msg {
		out, err := m.svc.Rewards.Purchase(m.ctx, r.ID)
		if err != nil {
			return actionMsg{err: err}
		}
		if !out.OK {
			return actionMsg{log: fmt.Sprintf("Cannot buy %s: %s", r.Title, out.Reason.Message())}
		}
		return actionMsg{log: withUnlocks(fmt.Sprintf("Bought %s %s for %d coins", r.Emoji, r.Title, r.Cost), out.Unlocked)}
	}
}

func withUnlocks(msg string, unlocked []model.Achievement) string {
	for _, a := range unlocked {
		msg += fmt.Sprintf(" | %s %s unlocked", a.Emoji, a.Title)
	}
	return msg
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			m.lastLog = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.user = msg.user
		m.quests = msg.quests
		m.rewards = msg.rewards
		m.progress = msg.progress
		m.clampSelection()
		return m, nil
	case actionMsg:
		if msg.err != nil {
			m.lastLog = "Failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = msg.log
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
			return m, m.loadCmd()
		case "tab", "left", "right", "h", "l":
			if m.tab == tabQuests {
				m.tab = tabRewards
			} else {
				m.tab = tabQuests
			}
			m.selected = 0
			return m, nil
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < m.rows()-1 {
				m.selected++
			}
			return m, nil
		case "enter", " ", "c":
			if m.selected < 0 || m.selected >= m.rows() {
				return m, nil
			}
			if m.tab == tabRewards {
				return m, m.buyCmd(m.rewards[m.selected])
			}
			return m, m.completeCmd(m.quests[m.selected])
		case "s":
			if m.tab != tabQuests || m.selected < 0 || m.selected >= len(m.quests) {
				return m, nil
			}
			return m, m.skipCmd(m.quests[m.selected])
		}
	}
	return m, nil
}

func (m boardModel) rows() int {
	if m.tab == tabRewards {
		return len(m.rewards)
	}
	return len(m.quests)
}

func (m *boardModel) clampSelection() {
	if m.selected >= m.rows() {
		m.selected = m.rows() - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	leftW := 28
	if m.width > 0 {
		if maxLeft := m.width / 3; maxLeft < leftW {
			leftW = maxLeft
		}
		if leftW < 20 {
			leftW = 20
		}
	}
	sidebar := ui.Panel.Width(leftW).Render(m.renderSidebar())
	main := ui.Panel.Render(m.renderMain())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)

	return m.renderHeader() + "\n" + body + "\n" + ui.Muted.Render(m.lastLog) + "\n"
}

func (m boardModel) renderHeader() string {
	if m.user == nil {
		return ui.Title.Render("Questhunt · loading…")
	}
	inLevel, span := service.LevelProgress(m.user.XP)
	return fmt.Sprintf("%s | %s | Level %d %s | %s | %s %d",
		ui.Title.Render("Questhunt"),
		m.user.Nickname,
		m.user.Level(),
		ui.ProgressBar(inLevel, span, 20),
		ui.Coins(m.user.Coins),
		ui.IconFire, m.user.Streak,
	)
}

func (m boardModel) renderSidebar() string {
	lines := []string{ui.PanelTitle.Render("Today")}
	lines = append(lines, fmt.Sprintf("%s %d/%d",
		ui.ProgressBar(int64(m.progress.Completed), int64(m.progress.Total), 12),
		m.progress.Completed, m.progress.Total))
	lines = append(lines, "")
	lines = append(lines, ui.PanelTitle.Render("Keys"))
	lines = append(lines, "↑/↓ j/k  move")
	lines = append(lines, "tab      quests/rewards")
	lines = append(lines, "enter/c  complete or buy")
	lines = append(lines, "s        skip quest")
	lines = append(lines, "r        refresh")
	lines = append(lines, "q        quit")
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading && m.user == nil {
		return "Loading…"
	}
	questTab, rewardTab := ui.H2.Render(ui.IconQuest+" Quests"), ui.Dim.Render(ui.IconGift+" Rewards")
	if m.tab == tabRewards {
		questTab, rewardTab = ui.Dim.Render(ui.IconQuest+" Quests"), ui.H2.Render(ui.IconGift+" Rewards")
	}
	out := []string{questTab + "   " + rewardTab, ""}

	var lines []string
	if m.tab == tabRewards {
		now := time.Now()
		for i := range m.rewards {
			lines = append(lines, rewardRow(&m.rewards[i], now))
		}
	} else {
		for i := range m.quests {
			lines = append(lines, questRow(&m.quests[i]))
		}
	}
	if len(lines) == 0 {
		out = append(out, ui.Muted.Render("(empty)"))
		return strings.Join(out, "\n")
	}
	for i, line := range lines {
		if i == m.selected {
			out = append(out, ui.SelectedRow.Render("> "+line))
			continue
		}
		out = append(out, "  "+line)
	}
	return strings.Join(out, "\n")
}

func questRow(q *model.Quest) string {
	mark := "[ ]"
	if q.Status == model.StatusCompleted {
		mark = "[x]"
	}
	extra := ""
	if q.IsCount() {
		extra = fmt.Sprintf(" %d/%d", q.CurrentCount, q.Target())
	}
	return fmt.Sprintf("%s %s %s%s (+%d)", mark, ui.TypeIcon(q.Type), q.Title, extra, q.CoinReward)
}

func rewardRow(r *model.Reward, now time.Time) string {
	state := ""
	switch {
	case r.IsOneTime() && r.Purchased:
		state = " owned"
	case r.IsOnCooldown && r.CooldownUntil != nil:
		state = " " + ui.IconTimer + " " + r.CooldownUntil.Sub(now).Round(time.Minute).String()
	}
	return fmt.Sprintf("%s %s (%d)%s", r.Emoji, r.Title, r.Cost, state)
}
