package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/pipeline"
)

// metrics exports the latest snapshot and scan health on a registry private to one Service.
type metrics struct {
	registry *prometheus.Registry

	modelTokens *prometheus.GaugeVec
	modelCost   *prometheus.GaugeVec
	dailyTokens *prometheus.GaugeVec

	sessions     prometheus.Gauge
	queries      prometheus.Gauge
	costUSD      prometheus.Gauge
	cacheHitRate prometheus.Gauge

	scanFiles    *prometheus.GaugeVec
	scanDuration prometheus.Histogram
	scans        *prometheus.CounterVec
	requests     *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),

		modelTokens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "compte_model_tokens",
			Help: "Tokens by model and token type",
		}, []string{"model", "type"}),
		modelCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "compte_model_cost_usd",
			Help: "Estimated cost in USD by model",
		}, []string{"model"}),
		dailyTokens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "compte_daily_tokens",
			Help: "Tokens by session date",
		}, []string{"date"}),

		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compte_sessions",
			Help: "Sessions with at least one response",
		}),
		queries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compte_queries",
			Help: "Assistant responses across all sessions",
		}),
		costUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compte_cost_usd",
			Help: "Estimated total cost in USD",
		}),
		cacheHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compte_cache_hit_rate",
			Help: "Cache reads over all input-side tokens",
		}),

		scanFiles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "compte_scan_files",
			Help: "Session files seen by the last scan, by outcome",
		}, []string{"state"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "compte_scan_duration_seconds",
			Help:    "Wall time of a full scan",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compte_scans_total",
			Help: "Scans run, by result",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compte_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.modelTokens, m.modelCost, m.dailyTokens,
		m.sessions, m.queries, m.costUSD, m.cacheHitRate,
		m.scanFiles, m.scanDuration, m.scans, m.requests,
	)
	return m
}

func (m *metrics) observeSnapshot(s *model.Snapshot) {
	m.modelTokens.Reset()
	m.modelCost.Reset()
	m.dailyTokens.Reset()

	for _, mu := range s.ModelBreakdown {
		m.modelTokens.WithLabelValues(mu.Model, "input").Set(float64(mu.InputTokens))
		m.modelTokens.WithLabelValues(mu.Model, "output").Set(float64(mu.OutputTokens))
		m.modelTokens.WithLabelValues(mu.Model, "cache_creation").Set(float64(mu.CacheCreationTokens))
		m.modelTokens.WithLabelValues(mu.Model, "cache_read").Set(float64(mu.CacheReadTokens))
		m.modelCost.WithLabelValues(mu.Model).Set(mu.Cost)
	}
	for _, d := range s.DailyUsage {
		m.dailyTokens.WithLabelValues(d.Date).Set(float64(d.TotalTokens))
	}

	m.sessions.Set(float64(s.Totals.TotalSessions))
	m.queries.Set(float64(s.Totals.TotalQueries))
	m.costUSD.Set(s.Totals.TotalCost)
	m.cacheHitRate.Set(s.Totals.CacheHitRate)
}

func (m *metrics) observeScan(st pipeline.ScanStats) {
	m.scanFiles.WithLabelValues("cache_hit").Set(float64(st.CacheHits))
	m.scanFiles.WithLabelValues("reparsed").Set(float64(st.Reparsed))
	m.scanFiles.WithLabelValues("skipped").Set(float64(st.Skipped))
	m.scanDuration.Observe(st.Duration.Seconds())
}
