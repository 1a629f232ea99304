// Package metrics exposes reconciliation run metrics in Prometheus format.
// A CLI run has no scrape endpoint, so the registry is written to a
// node_exporter textfile after every run.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.RunObserver = (*Metrics)(nil)

// Metrics holds the run metrics on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal        *prometheus.CounterVec
	NewItemsTotal     prometheus.Counter
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	LastRunTimestamp  prometheus.Gauge
	ReviewFiles       prometheus.Gauge
	BadgeLookupsTotal *prometheus.CounterVec
}

// New creates and registers all metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.FilesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awesometrack_files_total",
			Help: "Tracked files processed, by final state",
		},
		[]string{"state"},
	)

	m.NewItemsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "awesometrack_new_items_total",
			Help: "Items observed for the first time",
		},
	)

	m.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awesometrack_runs_total",
			Help: "Reconciliation runs, by status",
		},
		[]string{"status"},
	)

	m.RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "awesometrack_run_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	m.LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "awesometrack_last_run_timestamp_seconds",
			Help: "Unix time the last run ended",
		},
	)

	m.ReviewFiles = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "awesometrack_review_files",
			Help: "Files flagged for manual review in the last run",
		},
	)

	m.BadgeLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awesometrack_badge_lookups_total",
			Help: "Star count lookups, by status",
		},
		[]string{"status"},
	)

	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FileDone counts a processed file.
func (m *Metrics) FileDone(outcome domain.FileOutcome) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(outcome.State.String()).Inc()
	m.NewItemsTotal.Add(float64(outcome.NewCount))
}

// RunDone records a finished run.
func (m *Metrics) RunDone(report *domain.RunReport, err error) {
	if m == nil || report == nil {
		return
	}
	status := "success"
	switch {
	case err != nil:
		status = "aborted"
	case len(report.Failed()) > 0:
		status = "partial"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(report.EndedAt.Sub(report.StartedAt).Seconds())
	m.LastRunTimestamp.Set(float64(report.EndedAt.Unix()))
	m.ReviewFiles.Set(float64(len(report.Review)))
}

// WriteTextfile writes the registry to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// CountStars wraps a star counter so every lookup is counted.
func (m *Metrics) CountStars(next driven.StarCounter) driven.StarCounter {
	if m == nil || next == nil {
		return next
	}
	return &countingStars{next: next, lookups: m.BadgeLookupsTotal}
}

type countingStars struct {
	next    driven.StarCounter
	lookups *prometheus.CounterVec
}

func (c *countingStars) Stars(ctx context.Context, owner, repo string) (int, error) {
	count, err := c.next.Stars(ctx, owner, repo)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.lookups.WithLabelValues(status).Inc()
	return count, err
}
