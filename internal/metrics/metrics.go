// Package metrics keeps ingestion counters shared by the ingest service, the
// snapshot store and the CLI.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics captures ingestion stats across reloads.
type Metrics struct {
	sourcesFetched  int64
	sourcesSkipped  int64
	sourcesFailed   int64
	rowsParsed      int64
	reloads         int64
	reloadFailures  int64
	filterHits      int64
	filterMisses    int64
	lastReloadNanos int64
	lastRows        int64
}

// Snapshot is a read-only view of the counters.
type Snapshot struct {
	SourcesFetched int64         `json:"sources_fetched" yaml:"sources_fetched"`
	SourcesSkipped int64         `json:"sources_skipped" yaml:"sources_skipped"`
	SourcesFailed  int64         `json:"sources_failed" yaml:"sources_failed"`
	RowsParsed     int64         `json:"rows_parsed" yaml:"rows_parsed"`
	Reloads        int64         `json:"reloads" yaml:"reloads"`
	ReloadFailures int64         `json:"reload_failures" yaml:"reload_failures"`
	FilterHits     int64         `json:"filter_hits" yaml:"filter_hits"`
	FilterMisses   int64         `json:"filter_misses" yaml:"filter_misses"`
	LastReload     time.Duration `json:"last_reload" yaml:"last_reload"`
	LastRows       int64         `json:"last_rows" yaml:"last_rows"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordFetch counts a fetched source, or a failed one when err is non-nil.
func (m *Metrics) RecordFetch(err error) {
	if err != nil {
		atomic.AddInt64(&m.sourcesFailed, 1)
		return
	}
	atomic.AddInt64(&m.sourcesFetched, 1)
}

// RecordSkip counts a source that contributed nothing.
func (m *Metrics) RecordSkip() {
	atomic.AddInt64(&m.sourcesSkipped, 1)
}

// RecordRows counts rows a parser produced.
func (m *Metrics) RecordRows(n int) {
	atomic.AddInt64(&m.rowsParsed, int64(n))
}

// RecordReload counts a finished ingestion run.
func (m *Metrics) RecordReload(elapsed time.Duration, rows int, err error) {
	if err != nil {
		atomic.AddInt64(&m.reloadFailures, 1)
		return
	}
	atomic.AddInt64(&m.reloads, 1)
	atomic.StoreInt64(&m.lastReloadNanos, int64(elapsed))
	atomic.StoreInt64(&m.lastRows, int64(rows))
}

// RecordFilter counts a filter request served from cache (hit) or computed.
func (m *Metrics) RecordFilter(hit bool) {
	if hit {
		atomic.AddInt64(&m.filterHits, 1)
		return
	}
	atomic.AddInt64(&m.filterMisses, 1)
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		SourcesFetched: atomic.LoadInt64(&m.sourcesFetched),
		SourcesSkipped: atomic.LoadInt64(&m.sourcesSkipped),
		SourcesFailed:  atomic.LoadInt64(&m.sourcesFailed),
		RowsParsed:     atomic.LoadInt64(&m.rowsParsed),
		Reloads:        atomic.LoadInt64(&m.reloads),
		ReloadFailures: atomic.LoadInt64(&m.reloadFailures),
		FilterHits:     atomic.LoadInt64(&m.filterHits),
		FilterMisses:   atomic.LoadInt64(&m.filterMisses),
		LastReload:     time.Duration(atomic.LoadInt64(&m.lastReloadNanos)),
		LastRows:       atomic.LoadInt64(&m.lastRows),
	}
}

// Since returns the counter increase from prev to s. LastReload and LastRows
// are kept from s.
func (s Snapshot) Since(prev Snapshot) Snapshot {
	return Snapshot{
		SourcesFetched: s.SourcesFetched - prev.SourcesFetched,
		SourcesSkipped: s.SourcesSkipped - prev.SourcesSkipped,
		SourcesFailed:  s.SourcesFailed - prev.SourcesFailed,
		RowsParsed:     s.RowsParsed - prev.RowsParsed,
		Reloads:        s.Reloads - prev.Reloads,
		ReloadFailures: s.ReloadFailures - prev.ReloadFailures,
		FilterHits:     s.FilterHits - prev.FilterHits,
		FilterMisses:   s.FilterMisses - prev.FilterMisses,
		LastReload:     s.LastReload,
		LastRows:       s.LastRows,
	}
}
