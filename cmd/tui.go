package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/pipeline"
	"github.com/theirongolddev/compte/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// dashboardData scans and derives everything the dashboard shows.
func dashboardData(force bool, progress pipeline.ProgressFunc) (*tui.Data, error) {
	a := scan(force || flagRefresh, progress)
	costs, _ := pipeline.AggregateCostBreakdown(a.files, appCfg.PricingTable())
	return &tui.Data{
		Snapshot: a.snap,
		Stats:    a.result.Stats,
		Costs:    costs,
		Hourly:   pipeline.AggregateHourly(a.files),
	}, nil
}

func runTUI(_ *cobra.Command, _ []string) error {
	// Background fills need ANSI output even when color detection is unsure.
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Load:      dashboardData,
		ClaudeDir: flagDataDir,
		Window:    windowLabel(),
		NeedSetup: !config.Exists(),
		Config:    appCfg,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
