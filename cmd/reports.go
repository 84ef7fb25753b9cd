package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/pipeline"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Per-day token and cost totals",
	RunE:  runDaily,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Usage by model",
	RunE:  runModels,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Usage by project",
	RunE:  runProjects,
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Most expensive prompts",
	RunE:  runPrompts,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Tool call counts",
	RunE:  runTools,
}

var (
	promptsLimit int
	hourlyFlag   bool
)

func init() {
	promptsCmd.Flags().IntVarP(&promptsLimit, "limit", "l", 20, "Number of prompts to show (max 50)")
	dailyCmd.Flags().BoolVar(&hourlyFlag, "hourly", false, "Show activity by hour of day instead")
	rootCmd.AddCommand(dailyCmd, modelsCmd, projectsCmd, promptsCmd, toolsCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}
	if hourlyFlag {
		return printHourly(a)
	}

	days := a.snap.DailyUsage
	spark := make([]float64, 0, len(days))
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		spark = append(spark, float64(d.TotalTokens))
		rows = append(rows, []string{
			d.Date,
			cli.FormatNumber(int64(d.Sessions)),
			cli.FormatNumber(int64(d.Queries)),
			cli.FormatTokens(d.TotalTokens),
			cli.FormatCost(d.Cost),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("DAILY USAGE  " + windowLabel()))
	fmt.Println()
	fmt.Printf("  %s\n\n", cli.RenderSparkline(spark))
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Sessions", "Queries", "Tokens", "Cost"},
		Rows:    rows,
	}))
	return nil
}

func printHourly(a *analysis) error {
	hours := pipeline.AggregateHourly(a.files)
	var peak int64
	for _, h := range hours {
		peak = max(peak, h.Tokens)
	}

	rows := make([][]string, 0, len(hours))
	for _, h := range hours {
		rows = append(rows, []string{
			fmt.Sprintf("%02d:00", h.Hour),
			cli.FormatNumber(int64(h.Queries)),
			cli.FormatTokens(h.Tokens),
			cli.RenderBar(float64(h.Tokens), float64(peak), 24),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("ACTIVITY BY HOUR  " + windowLabel()))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Hour", "Queries", "Tokens", ""},
		Rows:    rows,
	}))
	return nil
}

func runModels(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	total := a.snap.Totals.TotalTokens
	rows := make([][]string, 0, len(a.snap.ModelBreakdown))
	for _, m := range a.snap.ModelBreakdown {
		share := 0.0
		if total > 0 {
			share = float64(m.TotalTokens) / float64(total)
		}
		rows = append(rows, []string{
			cli.ShortModel(m.Model),
			cli.FormatNumber(int64(m.QueryCount)),
			cli.FormatTokens(m.InputTokens),
			cli.FormatTokens(m.OutputTokens),
			cli.FormatTokens(m.TotalTokens),
			cli.FormatCost(m.Cost),
			cli.FormatPercent(share),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("MODELS  " + windowLabel()))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Queries", "Input", "Output", "Total", "Cost", "Share"},
		Rows:    rows,
	}))
	return nil
}

func runProjects(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	rows := make([][]string, 0, len(a.snap.Projects))
	for _, p := range a.snap.Projects {
		rows = append(rows, []string{
			cli.Truncate(p.ProjectName, 28),
			cli.FormatNumber(int64(p.SessionCount)),
			cli.FormatNumber(int64(p.QueryCount)),
			cli.FormatTokens(p.TotalTokens),
			cli.FormatCost(p.Cost),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PROJECTS  " + windowLabel()))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Sessions", "Queries", "Tokens", "Cost"},
		Rows:    rows,
	}))
	return nil
}

func runPrompts(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	prompts := a.snap.TopPrompts
	if promptsLimit > 0 && len(prompts) > promptsLimit {
		prompts = prompts[:promptsLimit]
	}

	rows := make([][]string, 0, len(prompts))
	for i, p := range prompts {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			cli.Truncate(p.Prompt, 50),
			p.Date,
			cli.ShortModel(p.Model),
			cli.FormatTokens(p.TotalTokens),
			cli.FormatCost(p.Cost),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TOP PROMPTS  " + windowLabel()))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"#", "Prompt", "Date", "Model", "Tokens", "Cost"},
		Rows:    rows,
	}))
	return nil
}

func runTools(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	tools := a.snap.ToolStats
	if len(tools) == 0 {
		fmt.Println("\n  No tool calls recorded.")
		return nil
	}

	peak := tools[0].Count
	total := 0
	rows := make([][]string, 0, len(tools))
	for _, tu := range tools {
		total += tu.Count
		rows = append(rows, []string{
			tu.Name,
			cli.FormatNumber(int64(tu.Count)),
			cli.RenderBar(float64(tu.Count), float64(peak), 30),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TOOLS  " + windowLabel()))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Tool", "Calls", ""},
		Rows:    rows,
		Footer:  []string{"TOTAL", cli.FormatNumber(int64(total)), ""},
	}))
	return nil
}
