// Package ui holds the terminal styles, icons and formatting helpers.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"questhunt/internal/model"
)

// Questhunt theme (CLI + board).
// Reusable styles and a few emojis.

const (
	IconQuest   = "🗺️"
	IconSparkle = "✨"
	IconPlus    = "➕"
	IconDone    = "✅"
	IconTrophy  = "🏆"
	IconBolt    = "⚡"
	IconInfo    = "ℹ️"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconCoin    = "🪙"
	IconFire    = "🔥"
	IconLoop    = "🔁"
	IconScroll  = "📜"
	IconTimer   = "⏳"
	IconSkip    = "⏭️"
	IconGift    = "🎁"
	IconChart   = "📊"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	Dim   = lipgloss.NewStyle().Foreground(cMuted)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle  = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// Coins renders a coin amount, e.g. "🪙 120".
func Coins(n int64) string {
	return Gold.Render(fmt.Sprintf("%s %d", IconCoin, n))
}

func StatusText(status model.QuestStatus) string {
	switch status {
	case model.StatusCompleted:
		return Good.Render("completed")
	case model.StatusActive:
		return H2.Render("active")
	case model.StatusOverdue:
		return Bad.Render("overdue")
	case model.StatusSkipped:
		return Muted.Render("skipped")
	default:
		return Muted.Render(string(status))
	}
}

func PriorityText(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return Bad.Render("urgent")
	case model.PriorityHigh:
		return Warn.Render("high")
	case model.PriorityLow:
		return Muted.Render("low")
	default:
		return Dim.Render(string(p))
	}
}

// TypeIcon picks an icon for the quest's recurrence kind.
func TypeIcon(t model.QuestType) string {
	switch t {
	case model.QuestOnce:
		return IconQuest
	case model.QuestCount:
		return IconBolt
	default:
		return IconLoop
	}
}

// ProgressBar renders value/total as a fixed-width bar, e.g. "[####------]".
func ProgressBar(value, total int64, width int) string {
	if total <= 0 {
		total = 1
	}
	if width <= 3 {
		width = 3
	}
	if value < 0 {
		value = 0
	}
	if value > total {
		value = total
	}
	filled := int(float64(value) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// ShortID returns the first 8 characters of an id for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
