package pipeline

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/source"
	"github.com/theirongolddev/compte/internal/store"
)

// ProgressFunc is called during scanning to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Options configures one scan.
type Options struct {
	ClaudeDir string
	// Cache persists extracted queries across scans. Nil disables caching.
	Cache store.QueryCache
	// ForceRefresh ignores previously cached entries. The rebuilt cache is still stored.
	ForceRefresh bool
	// Pricing defaults to the built-in table.
	Pricing *config.PricingTable
	// History overrides the session title index read from history.jsonl.
	History map[string]string
	// Workers bounds parse parallelism; <= 0 uses GOMAXPROCS.
	Workers  int
	Progress ProgressFunc
	Logger   *slog.Logger
}

// ScanStats describes the work a scan performed.
type ScanStats struct {
	Files        int           `json:"files"`
	ProjectCount int           `json:"projectCount"`
	CacheHits    int           `json:"cacheHits"`
	Reparsed     int           `json:"reparsed"`
	Skipped      int           `json:"skipped"`     // files that could not be read
	ParseErrors  int           `json:"parseErrors"` // malformed lines across reparsed files
	// ListError is set when the projects directory exists but could not be listed.
	ListError string        `json:"listError,omitempty"`
	Duration  time.Duration `json:"durationNs,format:nano"`
}

// Result holds the output of one scan.
type Result struct {
	Snapshot *model.Snapshot
	// Files keeps the per-file queries so callers can re-aggregate with filters.
	Files   []FileQueries
	History map[string]string
	Stats   ScanStats
}

// Scan discovers session files under opts.ClaudeDir, reuses cached queries for
// unchanged files, parses the rest, and aggregates everything into a snapshot.
//
// Nothing fails the scan. Per-file and per-line problems are counted; a
// projects directory that cannot be listed yields an empty snapshot with
// Stats.ListError set and leaves the stored cache untouched.
func Scan(opts Options) *Result {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = store.NopCache{}
	}
	pricing := opts.Pricing
	if pricing == nil {
		pricing = config.DefaultPricingTable()
	}

	history := opts.History
	if history == nil {
		h, err := source.LoadHistory(opts.ClaudeDir)
		if err != nil {
			logger.Warn("history index incomplete", "err", err)
		}
		history = h
	}

	files, err := source.ScanDir(opts.ClaudeDir, logger)
	if err != nil {
		logger.Warn("projects directory unreadable, reporting no sessions", "dir", opts.ClaudeDir, "err", err)
		return &Result{
			Snapshot: Aggregate(nil, history),
			History:  history,
			Stats: ScanStats{
				ListError: err.Error(),
				Duration:  time.Since(start),
			},
		}
	}

	var previous map[string][]model.Query
	if opts.ForceRefresh {
		previous = map[string][]model.Query{}
	} else {
		previous = cache.Load()
	}

	plan := planScan(files, previous)
	stats := ScanStats{
		Files:        len(files),
		ProjectCount: source.CountProjects(files),
		CacheHits:    len(files) - len(plan.misses),
		Reparsed:     len(plan.misses),
	}

	if opts.Progress != nil && stats.CacheHits > 0 {
		opts.Progress(stats.CacheHits, len(files))
	}

	parsed := parseAll(plan.misses, files, pricing, opts.Workers, func(n int) {
		if opts.Progress != nil {
			opts.Progress(stats.CacheHits+n, len(files))
		}
	})

	for _, p := range parsed {
		if p.err != nil {
			stats.Skipped++
			logger.Debug("skipping unreadable session", "path", files[p.idx].Path, "err", p.err)
			continue
		}
		stats.ParseErrors += p.parseErrors
		plan.results[p.idx].Queries = p.queries
		if plan.fingerprints[p.idx] != "" {
			plan.fresh[plan.fingerprints[p.idx]] = p.queries
		}
	}

	cache.Store(plan.fresh)

	snap := Aggregate(plan.results, history)
	stats.Duration = time.Since(start)

	logger.Debug("scan complete",
		"files", stats.Files,
		"cache_hits", stats.CacheHits,
		"reparsed", stats.Reparsed,
		"skipped", stats.Skipped,
		"sessions", len(snap.Sessions),
		"duration", stats.Duration,
	)

	return &Result{
		Snapshot: snap,
		Files:    plan.results,
		History:  history,
		Stats:    stats,
	}
}

// parsedFile is the outcome of parsing one cache miss.
type parsedFile struct {
	idx         int
	queries     []model.Query
	parseErrors int
	err         error
}

// parseAll parses the files at the given indices with a bounded worker pool.
// Each worker writes only its own result slot; results come back in index order.
func parseAll(
	indices []int,
	files []source.DiscoveredFile,
	pricing *config.PricingTable,
	workers int,
	onDone func(n int),
) []parsedFile {
	if len(indices) == 0 {
		return nil
	}

	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(indices) {
		numWorkers = len(indices)
	}

	work := make(chan int, len(indices))
	results := make([]parsedFile, len(indices))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range indices {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for slot := range work {
				results[slot] = parseOne(indices[slot], files[indices[slot]], pricing)
				onDone(int(processed.Add(1)))
			}
		}()
	}

	wg.Wait()
	return results
}

func parseOne(idx int, df source.DiscoveredFile, pricing *config.PricingTable) parsedFile {
	pr, err := source.ParseFile(df.Path)
	if err != nil {
		return parsedFile{idx: idx, err: err}
	}
	return parsedFile{
		idx:         idx,
		queries:     source.Extract(pr.Assistant, pr.User, pricing),
		parseErrors: pr.ParseErrors,
	}
}
