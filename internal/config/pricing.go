package config

import (
	"sort"
	"strings"
)

// ModelPricing holds per-million-token prices for a pricing tier.
type ModelPricing struct {
	InputPerMTok      float64 `toml:"input_per_mtok"`
	OutputPerMTok     float64 `toml:"output_per_mtok"`
	CacheWritePerMTok float64 `toml:"cache_write_per_mtok"`
	CacheReadPerMTok  float64 `toml:"cache_read_per_mtok"`
}

// perToken converts a per-million-token price to a per-token rate.
func perToken(perMTok float64) float64 {
	return perMTok / 1_000_000
}

// Cost computes the USD cost of one response with the given token counts.
// Each term is count times the per-token rate, summed in input, cache write,
// cache read, output order. The float64 conversions keep products from being fused.
func (p ModelPricing) Cost(input, cacheWrite, cacheRead, output int64) float64 {
	cost := float64(float64(input) * perToken(p.InputPerMTok))
	cost += float64(float64(cacheWrite) * perToken(p.CacheWritePerMTok))
	cost += float64(float64(cacheRead) * perToken(p.CacheReadPerMTok))
	cost += float64(float64(output) * perToken(p.OutputPerMTok))
	return cost
}

// Pricing tier names.
const (
	TierOpus46  = "opus-4.6"
	TierOpus45  = "opus-4.5"
	TierOpus41  = "opus-4.1"
	TierOpus40  = "opus-4.0"
	TierSonnet  = "sonnet"
	TierHaiku45 = "haiku-4.5"
	TierHaiku35 = "haiku-3.5"
	DefaultTier = TierSonnet
)

// DefaultPricing maps pricing tiers to their list prices.
var DefaultPricing = map[string]ModelPricing{
	TierOpus46: {
		InputPerMTok: 5.00, OutputPerMTok: 25.00,
		CacheWritePerMTok: 6.25, CacheReadPerMTok: 0.50,
	},
	TierOpus45: {
		InputPerMTok: 5.00, OutputPerMTok: 25.00,
		CacheWritePerMTok: 6.25, CacheReadPerMTok: 0.50,
	},
	TierOpus41: {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50,
	},
	TierOpus40: {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50,
	},
	TierSonnet: {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30,
	},
	TierHaiku45: {
		InputPerMTok: 1.00, OutputPerMTok: 5.00,
		CacheWritePerMTok: 1.25, CacheReadPerMTok: 0.10,
	},
	TierHaiku35: {
		InputPerMTok: 0.80, OutputPerMTok: 4.00,
		CacheWritePerMTok: 1.00, CacheReadPerMTok: 0.08,
	},
}

// PricingTier maps a raw model identifier to its pricing tier.
// It never fails: empty and unrecognised identifiers resolve to the sonnet tier.
func PricingTier(model string) string {
	if model == "" {
		return DefaultTier
	}
	m := strings.ToLower(model)

	switch {
	case strings.Contains(m, "opus"):
		switch {
		case hasVersion(m, "4", "6"):
			return TierOpus46
		case hasVersion(m, "4", "5"):
			return TierOpus45
		case hasVersion(m, "4", "1"):
			return TierOpus41
		}
		return TierOpus40
	case strings.Contains(m, "sonnet"):
		return TierSonnet
	case strings.Contains(m, "haiku"):
		if hasVersion(m, "4", "5") {
			return TierHaiku45
		}
		return TierHaiku35
	}
	return DefaultTier
}

// hasVersion matches both "4.5" and "4-5" spellings.
func hasVersion(m, major, minor string) bool {
	return strings.Contains(m, major+"."+minor) || strings.Contains(m, major+"-"+minor)
}

// PricingTable resolves model identifiers to prices, with optional per-tier overrides.
type PricingTable struct {
	tiers map[string]ModelPricing
}

// DefaultPricingTable returns a table holding the built-in list prices.
func DefaultPricingTable() *PricingTable {
	tiers := make(map[string]ModelPricing, len(DefaultPricing))
	for name, p := range DefaultPricing {
		tiers[name] = p
	}
	return &PricingTable{tiers: tiers}
}

// WithOverrides returns a copy of the table with the given tiers replaced.
// Unknown tier names are ignored.
func (t *PricingTable) WithOverrides(overrides map[string]ModelPricing) *PricingTable {
	out := &PricingTable{tiers: make(map[string]ModelPricing, len(t.tiers))}
	for name, p := range t.tiers {
		out.tiers[name] = p
	}
	for name, p := range overrides {
		if _, ok := out.tiers[name]; ok {
			out.tiers[name] = p
		}
	}
	return out
}

// Resolve returns the pricing for a model identifier.
// A nil table resolves against the built-in prices.
func (t *PricingTable) Resolve(model string) ModelPricing {
	if t == nil {
		return DefaultPricing[PricingTier(model)]
	}
	if p, ok := t.tiers[PricingTier(model)]; ok {
		return p
	}
	return DefaultPricing[DefaultTier]
}

// Cost computes the USD cost of one response for the given model.
func (t *PricingTable) Cost(model string, input, cacheWrite, cacheRead, output int64) float64 {
	return t.Resolve(model).Cost(input, cacheWrite, cacheRead, output)
}

// CacheSavings computes how much cache reads saved vs full input pricing.
func (t *PricingTable) CacheSavings(model string, cacheRead int64) float64 {
	p := t.Resolve(model)
	fullCost := float64(cacheRead) * perToken(p.InputPerMTok)
	actualCost := float64(cacheRead) * perToken(p.CacheReadPerMTok)
	return fullCost - actualCost
}

// Tiers returns the tier names in sorted order.
func (t *PricingTable) Tiers() []string {
	names := make([]string, 0, len(t.tiers))
	for name := range t.tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tier returns the pricing for a tier name.
func (t *PricingTable) Tier(name string) (ModelPricing, bool) {
	p, ok := t.tiers[name]
	return p, ok
}
