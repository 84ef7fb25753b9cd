package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/cli"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Usage totals with token and cost breakdown",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	t := a.snap.Totals
	days := len(a.snap.DailyUsage)

	fmt.Println()
	fmt.Println(cli.RenderTitle("CLAUDE USAGE  " + windowLabel()))
	fmt.Println()

	pairs := [][2]string{
		{"Sessions", cli.FormatNumber(int64(t.TotalSessions))},
		{"Queries", cli.FormatNumber(int64(t.TotalQueries))},
		{"Thinking turns", cli.FormatNumber(int64(t.TotalThinkingTurns))},
		{"Active days", cli.FormatNumber(int64(days))},
		{"", ""},
		{"Input tokens", cli.FormatTokens(t.TotalInput)},
		{"Output tokens", cli.FormatTokens(t.TotalOutput)},
		{"Cache write", cli.FormatTokens(t.TotalCacheCreation)},
		{"Cache read", cli.FormatTokens(t.TotalCacheRead)},
		{"Total tokens", cli.FormatTokens(t.TotalTokens)},
		{"", ""},
		{"Cost (est)", cli.FormatCost(t.TotalCost)},
		{"Cache hit rate", cli.FormatPercent(t.CacheHitRate)},
		{"Tokens/session", cli.FormatTokens(t.AvgTokensPerSession)},
		{"Tokens/query", cli.FormatTokens(t.AvgTokensPerQuery)},
	}
	if days > 0 {
		pairs = append(pairs, [2]string{"Cost/day", cli.FormatCost(t.TotalCost / float64(days))})
	}
	fmt.Print(cli.RenderKeyValues(pairs))

	if len(a.snap.ModelBreakdown) > 0 {
		top := a.snap.ModelBreakdown[0]
		fmt.Printf("\n  Top model: %s (%s tokens)\n", cli.ShortModel(top.Model), cli.FormatTokens(top.TotalTokens))
	}
	if n := len(a.snap.Optimizations); n > 0 {
		fmt.Printf("  %d optimization tips available, run `compte tips`\n", n)
	}
	fmt.Println()
	return nil
}
