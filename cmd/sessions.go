package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/model"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Session list with details",
	RunE:  runSessions,
}

var (
	sessionsLimit int
	sessionsSort  string
)

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "l", 20, "Number of sessions to show (0 = all)")
	sessionsCmd.Flags().StringVarP(&sessionsSort, "sort", "s", "tokens", "Sort by: tokens, cost, recent")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	sessions := append([]model.Session(nil), a.snap.Sessions...)
	switch sessionsSort {
	case "tokens":
	case "cost":
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].Cost > sessions[j].Cost })
	case "recent":
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].Timestamp.After(sessions[j].Timestamp) })
	default:
		return fmt.Errorf("unknown sort %q (want tokens, cost, or recent)", sessionsSort)
	}
	if sessionsLimit > 0 && len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  %s (showing %d of %d)",
		windowLabel(), len(sessions), len(a.snap.Sessions))))
	fmt.Println()

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			cli.FormatTimestamp(s.Timestamp),
			cli.Truncate(s.ProjectName, 16),
			cli.ShortModel(s.Model),
			cli.FormatNumber(int64(s.QueryCount)),
			cli.FormatTokens(s.TotalTokens),
			cli.FormatCost(s.Cost),
			cli.Truncate(s.FirstPrompt, 40),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Started", "Project", "Model", "Queries", "Tokens", "Cost", "First prompt"},
		Rows:    rows,
	}))
	return nil
}
