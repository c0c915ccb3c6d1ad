// Package tui implements the interactive bubbletea board.
package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"questhunt/internal/service"
)

// Services is what the board reads from and acts on.
type Services struct {
	Quests  *service.QuestService
	Rewards *service.RewardService
	Stats   *service.StatsService
	Profile *service.ProfileService
}

func RunBoard(ctx context.Context, svc Services, out io.Writer) error {
	m := newBoardModel(ctx, svc)
	p := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
