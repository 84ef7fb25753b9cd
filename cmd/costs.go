package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/pipeline"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Cost breakdown by token type and model",
	RunE:  runCosts,
}

func init() {
	rootCmd.AddCommand(costsCmd)
}

func runCosts(_ *cobra.Command, _ []string) error {
	a := loadData()
	if printEmpty(a) {
		return nil
	}

	tokenCosts, modelCosts := pipeline.AggregateCostBreakdown(a.files, appCfg.PricingTable())
	total := tokenCosts.TotalCost

	fmt.Println()
	fmt.Println(cli.RenderTitle("COST BREAKDOWN  " + windowLabel()))
	fmt.Println()

	share := func(c float64) string {
		if total <= 0 {
			return ""
		}
		return fmt.Sprintf("%.1f%%", c/total*100)
	}

	typeRows := [][]string{
		{"Output", cli.FormatCost(tokenCosts.OutputCost), share(tokenCosts.OutputCost)},
		{"Cache write", cli.FormatCost(tokenCosts.CacheWriteCost), share(tokenCosts.CacheWriteCost)},
		{"Input", cli.FormatCost(tokenCosts.InputCost), share(tokenCosts.InputCost)},
		{"Cache read", cli.FormatCost(tokenCosts.CacheReadCost), share(tokenCosts.CacheReadCost)},
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Token Type",
		Headers: []string{"Type", "Cost", "Share"},
		Rows:    typeRows,
		Footer:  []string{"TOTAL", cli.FormatCost(total), ""},
	}))

	modelRows := make([][]string, 0, len(modelCosts))
	for _, mc := range modelCosts {
		modelRows = append(modelRows, []string{
			cli.ShortModel(mc.Model),
			mc.Tier,
			cli.FormatCost(mc.InputCost),
			cli.FormatCost(mc.OutputCost),
			cli.FormatCost(mc.CacheWriteCost + mc.CacheReadCost),
			cli.FormatCost(mc.TotalCost),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Model",
		Headers: []string{"Model", "Tier", "Input", "Output", "Cache", "Total"},
		Rows:    modelRows,
	}))

	if tokenCosts.CacheSavings > 0 {
		fmt.Printf("\n  Cache savings: %s (reads billed at the cache rate instead of full input)\n",
			cli.FormatCost(tokenCosts.CacheSavings))
	}
	if diff := total - a.snap.Totals.TotalCost; diff > 0.005 || diff < -0.005 {
		fmt.Printf("  Cached totals were priced at %s; current pricing gives %s. Use --refresh to reprice.\n",
			cli.FormatCost(a.snap.Totals.TotalCost), cli.FormatCost(total))
	}
	fmt.Println()
	return nil
}
