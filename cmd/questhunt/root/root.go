// Package root wires the questhunt command tree.
package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"questhunt/internal/ui"
)

const Version = "0.3.0"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "questhunt",
	Short:         "Questhunt: turn your to-do list into quests and rewards",
	Long:          "Questhunt is a local-first gamified task tracker. Complete quests to earn coins and spend them on rewards you define.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config", "Directory containing config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		newQuestCmd(),
		newRewardCmd(),
		newStatsCmd(),
		newProfileCmd(),
		newCalendarCmd(),
		newBoardCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
