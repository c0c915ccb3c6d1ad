package root

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questhunt/internal/model"
	"questhunt/internal/service"
)

func TestResolveStep(t *testing.T) {
	q := &model.Quest{Subquests: []model.Subquest{
		{ID: "aa11", Title: "one"},
		{ID: "ab22", Title: "two"},
	}}

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"by position", "2", "ab22", false},
		{"by unique prefix", "aa", "aa11", false},
		{"ambiguous prefix", "a", "", true},
		{"position out of range", "3", "", true},
		{"unknown", "zz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveStep(q, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCobraDateArg(t *testing.T) {
	assert.NoError(t, cobraDateArg(nil, nil))
	assert.NoError(t, cobraDateArg(nil, []string{"2024-05-15"}))
	assert.Error(t, cobraDateArg(nil, []string{"15.05.2024"}))
	assert.Error(t, cobraDateArg(nil, []string{"2024-05-15", "2024-05-16"}))
}

func TestQuestFlagsApply(t *testing.T) {
	var f questFlags
	cmd := &cobra.Command{Use: "edit"}
	f.bind(cmd, false)
	require.NoError(t, cmd.Flags().Parse([]string{"--coins", "75", "--days", "mon,fri"}))

	in := service.QuestInput{Title: "Gym", Type: model.QuestWeekly, CoinReward: 10, DueTime: "07:00"}
	require.NoError(t, f.apply(cmd, &in, false))

	assert.Equal(t, int64(75), in.CoinReward)
	assert.Equal(t, []int{1, 5}, in.CustomDays)
	assert.Equal(t, model.QuestWeekly, in.Type, "unset flags keep the current value")
	assert.Equal(t, "07:00", in.DueTime)
}

func TestQuestFlagsApplyRejectsBadType(t *testing.T) {
	var f questFlags
	cmd := &cobra.Command{Use: "add"}
	f.bind(cmd, true)
	require.NoError(t, cmd.Flags().Parse([]string{"--type", "hourly"}))

	var in service.QuestInput
	assert.Error(t, f.apply(cmd, &in, true))
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	err := printOutcome(&buf, service.Outcome{Reason: service.ReasonOnCooldown}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_cooldown")
	assert.Empty(t, buf.String())

	err = printOutcome(&buf, service.Outcome{OK: true, Unlocked: []model.Achievement{{Title: "First Steps", Emoji: "🎯"}}}, "done")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "done")
	assert.Contains(t, buf.String(), "First Steps")
}

func TestCooldownLeft(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "<1m", cooldownLeft(now.Add(20*time.Second), now))
	assert.Equal(t, "5m", cooldownLeft(now.Add(5*time.Minute), now))
	assert.Equal(t, "1h30m", cooldownLeft(now.Add(90*time.Minute), now))
}

func TestWeekdayNames(t *testing.T) {
	assert.Equal(t, "Sun, Wed", weekdayNames([]int{0, 3, 9}))
}
