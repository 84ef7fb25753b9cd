// Package cmd implements the compte CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/optimizer"
	"github.com/theirongolddev/compte/internal/pipeline"
	"github.com/theirongolddev/compte/internal/store"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

var (
	flagDays    int
	flagUntil   string
	flagProject string
	flagModel   string
	flagNoCache bool
	flagRefresh bool
	flagDataDir string
	flagQuiet   bool
	flagVerbose bool
)

// appCfg is the loaded config file, with defaults for anything unset.
var appCfg = config.DefaultConfig()

// untilDay is the parsed --until date, zero when unset.
var untilDay time.Time

var rootCmd = &cobra.Command{
	Use:   "compte",
	Short: "Claude Code usage analytics",
	Long:  "Analyze your Claude Code session logs: tokens, costs, sessions, prompts, and tools.",

	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDataDir, "data-dir", "d", "", "Claude data directory (default ~/.claude)")
	pf.IntVarP(&flagDays, "days", "n", 0, "Only include the last N days (0 = all time)")
	pf.StringVar(&flagUntil, "until", "", "Only include activity on or before this date (YYYY-MM-DD)")
	pf.StringVarP(&flagProject, "project", "p", "", "Filter to project (substring match)")
	pf.StringVarP(&flagModel, "model", "m", "", "Filter to model (substring match)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Skip the query cache, reparse everything")
	pf.BoolVar(&flagRefresh, "refresh", false, "Reparse everything and rebuild the cache")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug details to stderr")
}

// setup loads the config file and merges it under the command-line flags.
func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appCfg = cfg
	theme.SetActive(cfg.Appearance.Theme)

	if !cmd.Flags().Changed("data-dir") {
		flagDataDir = cfg.General.ResolveClaudeDir()
	}
	if !cmd.Flags().Changed("days") {
		flagDays = cfg.General.DefaultDays
	}
	if flagDays < 0 {
		return fmt.Errorf("--days must not be negative")
	}
	untilDay, err = parseUntil(flagUntil)
	return err
}

// parseUntil reads a local calendar date. Empty means no upper bound.
func parseUntil(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--until %q: want YYYY-MM-DD", s)
	}
	return day, nil
}

// openCache returns the configured query cache and a function releasing it.
func openCache() (store.QueryCache, func()) {
	noop := func() {}
	if flagNoCache || appCfg.Cache.Backend == config.CacheNone {
		return store.NopCache{}, noop
	}

	path := appCfg.Cache.CachePath()
	if appCfg.Cache.Backend == config.CacheSQLite {
		db, err := store.Open(path)
		if err != nil {
			slog.Warn("cache unavailable, doing full parse", "path", path, "err", err)
			return store.NopCache{}, noop
		}
		db.Logger = slog.Default()
		return db, func() { _ = db.Close() }
	}
	return store.NewFileCache(path, slog.Default()), noop
}

func showProgress() bool {
	return !flagQuiet && term.IsTerminal(int(os.Stderr.Fd()))
}

// currentFilter translates the filter flags, anchoring --days at now.
// --until keeps the whole named day.
func currentFilter(now time.Time) pipeline.Filter {
	f := pipeline.Filter{Project: flagProject, Model: flagModel}
	if flagDays > 0 {
		f.Since = now.AddDate(0, 0, -flagDays)
	}
	if !untilDay.IsZero() {
		f.Until = untilDay.AddDate(0, 0, 1)
	}
	return f
}

// analysis is one scan narrowed to the active filters.
type analysis struct {
	result *pipeline.Result
	files  []pipeline.FileQueries
	snap   *model.Snapshot
}

// scan runs the pipeline with the configured cache and applies the filter flags.
func scan(force bool, progress pipeline.ProgressFunc) *analysis {
	cache, release := openCache()
	defer release()

	res := pipeline.Scan(pipeline.Options{
		ClaudeDir:    flagDataDir,
		Cache:        cache,
		ForceRefresh: force,
		Pricing:      appCfg.PricingTable(),
		Progress:     progress,
		Logger:       slog.Default(),
	})

	a := &analysis{result: res, files: res.Files, snap: res.Snapshot}
	if f := currentFilter(time.Now()); !f.IsZero() {
		a.files = pipeline.FilterFiles(res.Files, f)
		a.snap = pipeline.Aggregate(a.files, res.History)
	}
	a.snap.Optimizations = optimizer.Generate(a.snap)
	return a
}

// loadData is the shared loading path of the report commands, with progress on stderr.
func loadData() *analysis {
	verbose := showProgress()
	if verbose {
		fmt.Fprintf(os.Stderr, "  Scanning sessions...\n")
	}

	var progress pipeline.ProgressFunc
	if verbose {
		progress = func(current, total int) {
			if current%100 == 0 || current == total {
				fmt.Fprint(os.Stderr, cli.RenderProgress(current, total))
			}
		}
	}

	a := scan(flagRefresh, progress)

	st := a.result.Stats
	if verbose && st.Files > 0 {
		if st.Reparsed == 0 {
			fmt.Fprintf(os.Stderr, "\r  Loaded %s sessions from cache (%d projects, %s)    \n",
				cli.FormatNumber(int64(st.Files)), st.ProjectCount, cli.FormatElapsed(st.Duration))
		} else {
			fmt.Fprintf(os.Stderr, "\r  %s cached + %s reparsed (%d projects, %s)    \n",
				cli.FormatNumber(int64(st.CacheHits)), cli.FormatNumber(int64(st.Reparsed)),
				st.ProjectCount, cli.FormatElapsed(st.Duration))
		}
	}
	if st.Skipped > 0 {
		slog.Warn("some session files could not be read", "count", st.Skipped)
	}
	return a
}

// windowLabel describes the active time window for titles.
func windowLabel() string {
	label := "All time"
	if flagDays > 0 {
		label = fmt.Sprintf("Last %dd", flagDays)
	}
	if !untilDay.IsZero() {
		label += " to " + untilDay.Format("2006-01-02")
	}
	return label
}

// printEmpty reports an empty result and returns true when there is nothing to show.
func printEmpty(a *analysis) bool {
	if a.result.Stats.Files == 0 {
		fmt.Printf("\n  No Claude Code sessions found in %s.\n", flagDataDir)
		fmt.Println("  Use Claude Code first, then come back!")
		return true
	}
	if a.snap.Totals.TotalSessions == 0 {
		fmt.Println("\n  No sessions match the selected filters.")
		return true
	}
	return false
}
