// Package ingest runs the fetch, detect, parse and enrich pipeline over a
// list of billing exports and builds a Dataset.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rvudash/rvudash/internal/config"
	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/enrich"
	"github.com/rvudash/rvudash/internal/fetch"
	"github.com/rvudash/rvudash/internal/importer"
	"github.com/rvudash/rvudash/internal/metrics"
	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/providers"
)

// ErrNoData is returned when ingestion produced no valid rows, including when
// no sources were given.
var ErrNoData = errors.New("no charge data available")

// Fetcher retrieves raw export bytes.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (fetch.Source, error)
}

// ChargeParser turns export bytes into charges; importer.Registry is one.
type ChargeParser interface {
	Parse(filename string, data []byte) ([]model.Charge, error)
}

// Options tune a Service.
type Options struct {
	// SkipFailedSources logs and skips a source that cannot be fetched
	// instead of failing the whole run.
	SkipFailedSources bool

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Service ingests billing exports.
type Service struct {
	fetcher    Fetcher
	parser     ChargeParser
	enricher   *enrich.Enricher
	skipFailed bool
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// NewService creates an ingest Service.
func NewService(fetcher Fetcher, parser ChargeParser, enricher *enrich.Enricher, opts Options) *Service {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		fetcher:    fetcher,
		parser:     parser,
		enricher:   enricher,
		skipFailed: opts.SkipFailedSources,
		log:        opts.Logger,
		metrics:    m,
	}
}

// FromConfig wires a Service from configuration.
func FromConfig(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*Service, error) {
	registry, err := importer.DefaultRegistry(importer.Layout{
		SpreadsheetColumns: cfg.Formats.Spreadsheet.Columns,
		FixedWidthOffsets:  cfg.Formats.FixedWidth.Offsets,
	})
	if err != nil {
		return nil, err
	}
	fetcher := fetch.New(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithRetries(cfg.Fetch.Retries),
		fetch.WithLogger(log),
	)
	enricher := &enrich.Enricher{
		InpatientLocations: cfg.Classification.InpatientLocations,
		MedicaidPrefix:     cfg.Classification.MedicaidPrefix,
		Providers:          providers.New(cfg.Providers),
	}
	return NewService(fetcher, registry, enricher, Options{
		SkipFailedSources: cfg.Ingest.SkipFailedSources,
		Logger:            log,
		Metrics:           m,
	}), nil
}

// Metrics returns the counters this Service records into.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Initialize fetches and parses every source in order, enriches the rows and
// builds a Dataset. Files no parser recognizes contribute nothing. A fetch
// failure aborts the run unless SkipFailedSources is set. ErrNoData is
// returned when no valid rows remain.
func (s *Service) Initialize(ctx context.Context, sources []string) (ds *dataset.Dataset, err error) {
	started := time.Now()
	defer func() {
		rows := 0
		if ds != nil {
			rows = ds.Len()
		}
		s.metrics.RecordReload(time.Since(started), rows, err)
	}()

	if len(sources) == 0 {
		return nil, ErrNoData
	}

	var rows []model.Charge
	for _, location := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := s.fetcher.Fetch(ctx, location)
		s.metrics.RecordFetch(err)
		if err != nil {
			if !s.skipFailed {
				return nil, fmt.Errorf("ingesting %s: %w", location, err)
			}
			s.log.Warn().Err(err).Str("source", location).Msg("skipping source")
			s.metrics.RecordSkip()
			continue
		}

		parsed, err := s.parser.Parse(src.Name, src.Data)
		if errors.Is(err, importer.ErrNoParser) {
			s.log.Debug().Str("source", location).Str("name", src.Name).Msg("no parser for source")
			s.metrics.RecordSkip()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ingesting %s: %w", location, err)
		}

		s.log.Info().Str("source", location).Int("rows", len(parsed)).Msg("parsed")
		s.metrics.RecordRows(len(parsed))
		rows = append(rows, parsed...)
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}

	ds = dataset.Build(s.enricher.Enrich(rows))
	s.log.Info().
		Str("dataset", ds.ID.String()).
		Int("rows", ds.Len()).
		Strs("providers", ds.Providers()).
		Msg("dataset built")
	return ds, nil
}

// Sources resolves the source list from configuration: the explicit list
// when set, otherwise every data file in the data directory.
func Sources(cfg *config.Config) ([]string, error) {
	if sources := cfg.Sources(); len(sources) > 0 {
		return sources, nil
	}
	if cfg.Data.Dir == "" {
		return nil, nil
	}
	files, err := importer.Scan(cfg.Data.Dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out, nil
}
