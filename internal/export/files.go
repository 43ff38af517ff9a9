package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/partition"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Parquet:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or parquet)", s)
	}
}

// RecordsFile names the file holding every filtered record.
const RecordsFile = "records"

// StatsFile names the statistics file; it is always CSV.
const StatsFile = "stats.csv"

// Dir writes a filtered dataset into dir: the records, one file per
// partition, the non-encounter wRVU table and the statistics. It returns the
// paths written.
func Dir(dir string, f *dataset.Filtered, format Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		if err := writeFile(path, fn); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	ext := "." + string(format)
	chargeWriter := WriteCharges
	summaryWriter := WriteSummary
	if format == Parquet {
		chargeWriter = WriteChargesParquet
		summaryWriter = WriteSummaryParquet
	}

	if err := write(RecordsFile+ext, func(w io.Writer) error { return chargeWriter(w, f.Records) }); err != nil {
		return written, err
	}
	for _, name := range partition.Names() {
		rows := f.Partitions[name]
		if err := write(name+ext, func(w io.Writer) error { return chargeWriter(w, rows) }); err != nil {
			return written, err
		}
	}
	if err := write(partition.OutptNonEncWRVUs+ext, func(w io.Writer) error {
		return summaryWriter(w, f.NonEncounterWRVUs)
	}); err != nil {
		return written, err
	}
	if err := write(StatsFile, func(w io.Writer) error { return WriteStats(w, f.Stats) }); err != nil {
		return written, err
	}
	return written, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(file); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
