// Package server serves usage snapshots over HTTP and keeps them fresh.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/optimizer"
	"github.com/theirongolddev/compte/internal/pipeline"
	"github.com/theirongolddev/compte/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:3456"

// Config controls the service runtime behavior.
type Config struct {
	ClaudeDir string
	Cache     store.QueryCache
	Pricing   *config.PricingTable

	// Days limits the snapshot to recent activity; 0 keeps everything.
	Days          int
	ProjectFilter string
	ModelFilter   string

	// Interval enables background rescans; 0 rescans only on request.
	Interval     time.Duration
	Addr         string
	StaticDir    string
	EventsBuffer int
	Logger       *slog.Logger
}

// Summary is a compact usage state for status and event payloads.
type Summary struct {
	At           time.Time `json:"at"`
	Sessions     int       `json:"sessions"`
	Queries      int       `json:"queries"`
	Tokens       int64     `json:"tokens"`
	CostUSD      float64   `json:"costUsd"`
	CacheHitRate float64   `json:"cacheHitRate"`
}

// Delta captures summary changes between scans.
type Delta struct {
	Sessions int     `json:"sessions"`
	Queries  int     `json:"queries"`
	Tokens   int64   `json:"tokens"`
	CostUSD  float64 `json:"costUsd"`
}

func (d Delta) isZero() bool {
	return d.Sessions == 0 &&
		d.Queries == 0 &&
		d.Tokens == 0 &&
		d.CostUSD == 0
}

// Event is emitted whenever the snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Summary   Summary   `json:"summary"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /api/status.
type Status struct {
	StartedAt       time.Time          `json:"startedAt"`
	LastScanAt      time.Time          `json:"lastScanAt,omitzero"`
	PollIntervalSec int                `json:"pollIntervalSec"`
	ScanCount       int64              `json:"scanCount"`
	ClaudeDir       string             `json:"claudeDir"`
	Days            int                `json:"days"`
	ProjectFilter   string             `json:"projectFilter,omitempty"`
	ModelFilter     string             `json:"modelFilter,omitempty"`
	Summary         Summary            `json:"summary"`
	LastScan        pipeline.ScanStats `json:"lastScan"`
	LastError       string             `json:"lastError,omitempty"`
	EventCount      int                `json:"eventCount"`
	SubscriberCount int                `json:"subscriberCount"`
}

// Service owns the current snapshot and the HTTP API around it.
type Service struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics

	current atomic.Pointer[model.Snapshot]
	// scanMu keeps two scans from overlapping.
	scanMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastScanAt  time.Time
	scanCount   int64
	lastError   string
	lastStats   pipeline.ScanStats
	hasSummary  bool
	summary     Summary
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval > 0 && cfg.Interval < 2*time.Second {
		cfg.Interval = 2 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Cache == nil {
		cfg.Cache = store.NopCache{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		metrics:   newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Listen binds the configured address. Callers can report a busy port before serving.
func (s *Service) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return ln, nil
}

// Run serves HTTP on the configured address until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP on ln and runs background rescans until ctx is canceled.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info("serving", "addr", ln.Addr().String())

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-tick:
			if _, err := s.Refresh(ctx, false); err != nil {
				s.log.Warn("background scan failed", "err", err)
			}
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}
	}
}

// Current returns the latest snapshot, running the first scan if none exists yet.
func (s *Service) Current(ctx context.Context) (*model.Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}

	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return s.refreshLocked(ctx, false)
}

// Refresh rescans the logs and replaces the snapshot. force bypasses the query cache.
func (s *Service) Refresh(ctx context.Context, force bool) (*model.Snapshot, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.refreshLocked(ctx, force)
}

func (s *Service) refreshLocked(ctx context.Context, force bool) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := pipeline.Scan(pipeline.Options{
		ClaudeDir:    s.cfg.ClaudeDir,
		Cache:        s.cfg.Cache,
		ForceRefresh: force,
		Pricing:      s.cfg.Pricing,
		Logger:       s.log,
	})
	now := time.Now()
	result := "ok"
	if res.Stats.ListError != "" {
		result = "degraded"
	}
	s.metrics.scans.WithLabelValues(result).Inc()

	snap := res.Snapshot
	if f := s.filter(now); !f.IsZero() {
		snap = pipeline.Aggregate(pipeline.FilterFiles(res.Files, f), res.History)
	}
	snap.Optimizations = optimizer.Generate(snap)
	s.current.Store(snap)

	s.metrics.observeSnapshot(snap)
	s.metrics.observeScan(res.Stats)
	s.record(summarize(snap, now), res.Stats)

	return snap, nil
}

func (s *Service) filter(now time.Time) pipeline.Filter {
	f := pipeline.Filter{Project: s.cfg.ProjectFilter, Model: s.cfg.ModelFilter}
	if s.cfg.Days > 0 {
		f.Since = now.AddDate(0, 0, -s.cfg.Days)
	}
	return f
}

// record stores scan bookkeeping and emits an event when the summary moved.
func (s *Service) record(sum Summary, stats pipeline.ScanStats) {
	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.summary
	prevExists := s.hasSummary

	s.hasSummary = true
	s.summary = sum
	s.lastStats = stats
	s.lastScanAt = sum.At
	s.scanCount++
	s.lastError = stats.ListError

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: sum.At, Summary: sum}
		publish = true
	} else if delta := diffSummaries(prev, sum); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "usage_delta", Timestamp: sum.At, Summary: sum, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func summarize(snap *model.Snapshot, at time.Time) Summary {
	return Summary{
		At:           at,
		Sessions:     snap.Totals.TotalSessions,
		Queries:      snap.Totals.TotalQueries,
		Tokens:       snap.Totals.TotalTokens,
		CostUSD:      snap.Totals.TotalCost,
		CacheHitRate: snap.Totals.CacheHitRate,
	}
}

func diffSummaries(prev, curr Summary) Delta {
	return Delta{
		Sessions: curr.Sessions - prev.Sessions,
		Queries:  curr.Queries - prev.Queries,
		Tokens:   curr.Tokens - prev.Tokens,
		CostUSD:  curr.CostUSD - prev.CostUSD,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// Status returns the service bookkeeping.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastScanAt:      s.lastScanAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		ScanCount:       s.scanCount,
		ClaudeDir:       s.cfg.ClaudeDir,
		Days:            s.cfg.Days,
		ProjectFilter:   s.cfg.ProjectFilter,
		ModelFilter:     s.cfg.ModelFilter,
		Summary:         s.summary,
		LastScan:        s.lastStats,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) recentEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	return events
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
