package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and pricing",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// cacheEntries describes how many session files the configured cache holds.
func cacheEntries() string {
	path := appCfg.Cache.CachePath()
	if _, err := os.Stat(path); err != nil {
		return "empty"
	}
	if appCfg.Cache.Backend == config.CacheSQLite {
		db, err := store.Open(path)
		if err != nil {
			return "unreadable"
		}
		defer func() { _ = db.Close() }()
		n, err := db.EntryCount()
		if err != nil {
			return "unreadable"
		}
		return fmt.Sprintf("%d files", n)
	}
	return fmt.Sprintf("%d files", len(store.NewFileCache(path, nil).Load()))
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  Claude dir:  %s\n", flagDataDir)
	if appCfg.Cache.Backend != config.CacheNone {
		fmt.Printf("  Cache:       %s (%s, %s)\n", appCfg.Cache.CachePath(), appCfg.Cache.Backend, cacheEntries())
	}
	fmt.Println()

	enc := toml.NewEncoder(os.Stdout)
	enc.Indent = "  "
	if err := enc.Encode(appCfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	fmt.Println()

	pricing := appCfg.PricingTable()
	rows := make([][]string, 0, len(pricing.Tiers()))
	for _, tier := range pricing.Tiers() {
		p, _ := pricing.Tier(tier)
		rows = append(rows, []string{
			tier,
			fmt.Sprintf("$%.2f", p.InputPerMTok),
			fmt.Sprintf("$%.2f", p.OutputPerMTok),
			fmt.Sprintf("$%.2f", p.CacheWritePerMTok),
			fmt.Sprintf("$%.2f", p.CacheReadPerMTok),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Pricing per million tokens",
		Headers: []string{"Tier", "Input", "Output", "Cache write", "Cache read"},
		Rows:    rows,
	}))

	fmt.Println()
	fmt.Println("  Run `compte setup` to reconfigure.")
	return nil
}
