// Package store keeps the current Dataset for a long-running process and
// caches filter results against it.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/metrics"
)

// ErrNotLoaded is returned by Filter before the first successful Reload.
var ErrNotLoaded = errors.New("dataset not loaded")

// DefaultCacheSize bounds the filter cache when no size is configured.
const DefaultCacheSize = 64

// Loader builds a fresh Dataset; ingest.Service is one.
type Loader interface {
	Initialize(ctx context.Context, sources []string) (*dataset.Dataset, error)
}

// SourceFunc returns the sources to load on each reload.
type SourceFunc func() ([]string, error)

// FilterKey identifies one filter request.
type FilterKey struct {
	Provider string
	Start    string
	End      string
}

func keyFor(alias string, start, end time.Time) FilterKey {
	k := FilterKey{Provider: alias, Start: start.Format(time.DateOnly)}
	if !end.IsZero() {
		k.End = end.Format(time.DateOnly)
	}
	return k
}

// snapshot pairs a Dataset with the cache of results computed from it, so a
// reload replaces both at once.
type snapshot struct {
	data  *dataset.Dataset
	cache *lru.Cache[FilterKey, *dataset.Filtered]
}

// Store serves filter requests from the most recently loaded Dataset.
type Store struct {
	loader    Loader
	sources   SourceFunc
	cacheSize int
	log       zerolog.Logger
	metrics   *metrics.Metrics

	reloadMu sync.Mutex
	current  atomic.Pointer[snapshot]
}

// Options tune a Store.
type Options struct {
	CacheSize int
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// New creates an empty Store. Call Reload to load data.
func New(loader Loader, sources SourceFunc, opts Options) *Store {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Store{
		loader:    loader,
		sources:   sources,
		cacheSize: size,
		log:       opts.Logger,
		metrics:   m,
	}
}

// Reload ingests all sources and swaps in the new Dataset. On failure the
// previous Dataset stays in place. Concurrent calls run one at a time.
func (s *Store) Reload(ctx context.Context) (*dataset.Dataset, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	sources, err := s.sources()
	if err != nil {
		return nil, err
	}
	ds, err := s.loader.Initialize(ctx, sources)
	if err != nil {
		s.log.Error().Err(err).Msg("reload failed; keeping previous dataset")
		return nil, err
	}

	cache, err := lru.New[FilterKey, *dataset.Filtered](s.cacheSize)
	if err != nil {
		return nil, err
	}
	s.current.Store(&snapshot{data: ds, cache: cache})
	s.log.Info().Str("dataset", ds.ID.String()).Int("rows", ds.Len()).Msg("dataset swapped")
	return ds, nil
}

// Dataset returns the current Dataset, or nil before the first load.
func (s *Store) Dataset() *dataset.Dataset {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	return snap.data
}

// Filter returns the cached or freshly computed filter result for the
// current Dataset. A nil result means nothing was selected, as with
// dataset.Dataset.Filter.
func (s *Store) Filter(alias string, start, end time.Time) (*dataset.Filtered, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}

	key := keyFor(alias, start, end)
	if f, ok := snap.cache.Get(key); ok {
		s.metrics.RecordFilter(true)
		return f, nil
	}
	s.metrics.RecordFilter(false)

	f := snap.data.Filter(alias, start, end)
	if f != nil {
		snap.cache.Add(key, f)
	}
	return f, nil
}

// Metrics returns the counters this Store records into.
func (s *Store) Metrics() *metrics.Metrics {
	return s.metrics
}
