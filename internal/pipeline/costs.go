package pipeline

import (
	"sort"

	"github.com/theirongolddev/compte/internal/config"
)

// TokenTypeCosts holds aggregate costs split by token type.
type TokenTypeCosts struct {
	InputCost      float64
	OutputCost     float64
	CacheWriteCost float64
	CacheReadCost  float64
	CacheSavings   float64
	TotalCost      float64
}

// ModelCostBreakdown holds cost components for one model.
type ModelCostBreakdown struct {
	Model          string
	Tier           string
	InputCost      float64
	OutputCost     float64
	CacheWriteCost float64
	CacheReadCost  float64
	TotalCost      float64
}

// AggregateCostBreakdown splits query costs by token type and by model,
// pricing each query with the given table.
func AggregateCostBreakdown(files []FileQueries, pricing *config.PricingTable) (TokenTypeCosts, []ModelCostBreakdown) {
	var totals TokenTypeCosts
	byModel := make(map[string]*ModelCostBreakdown)

	for _, fq := range files {
		for _, q := range fq.Queries {
			p := pricing.Resolve(q.Model)

			inputCost := float64(q.InputTokens) * p.InputPerMTok / 1_000_000
			outputCost := float64(q.OutputTokens) * p.OutputPerMTok / 1_000_000
			writeCost := float64(q.CacheCreationTokens) * p.CacheWritePerMTok / 1_000_000
			readCost := float64(q.CacheReadTokens) * p.CacheReadPerMTok / 1_000_000

			totals.InputCost += inputCost
			totals.OutputCost += outputCost
			totals.CacheWriteCost += writeCost
			totals.CacheReadCost += readCost
			totals.CacheSavings += pricing.CacheSavings(q.Model, q.CacheReadTokens)

			row, exists := byModel[q.Model]
			if !exists {
				row = &ModelCostBreakdown{Model: q.Model, Tier: config.PricingTier(q.Model)}
				byModel[q.Model] = row
			}
			row.InputCost += inputCost
			row.OutputCost += outputCost
			row.CacheWriteCost += writeCost
			row.CacheReadCost += readCost
		}
	}

	totals.TotalCost = totals.InputCost + totals.OutputCost + totals.CacheWriteCost + totals.CacheReadCost

	modelRows := make([]ModelCostBreakdown, 0, len(byModel))
	for _, row := range byModel {
		row.TotalCost = row.InputCost + row.OutputCost + row.CacheWriteCost + row.CacheReadCost
		modelRows = append(modelRows, *row)
	}

	sort.Slice(modelRows, func(i, j int) bool {
		if modelRows[i].TotalCost != modelRows[j].TotalCost {
			return modelRows[i].TotalCost > modelRows[j].TotalCost
		}
		return modelRows[i].Model < modelRows[j].Model
	})

	return totals, modelRows
}
