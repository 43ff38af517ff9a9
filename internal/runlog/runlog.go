// Package runlog keeps a CSV history of ingestion runs.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one ingestion run.
type Entry struct {
	Timestamp      time.Time
	Command        string
	DatasetID      uuid.UUID // uuid.Nil when the run failed
	Rows           int
	SourcesFetched int64
	SourcesSkipped int64
	Took           time.Duration
	Error          string
}

// Header is the CSV header of the history file.
const Header = "timestamp,command,dataset_id,rows,sources_fetched,sources_skipped,took_ms,error"

const (
	numFields         = 8
	colTimestamp      = 0
	colCommand        = 1
	colDatasetID      = 2
	colRows           = 3
	colSourcesFetched = 4
	colSourcesSkipped = 5
	colTook           = 6
	colError          = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colCommand] = e.Command
	if e.DatasetID != uuid.Nil {
		row[colDatasetID] = e.DatasetID.String()
	}
	row[colRows] = strconv.Itoa(e.Rows)
	row[colSourcesFetched] = strconv.FormatInt(e.SourcesFetched, 10)
	row[colSourcesSkipped] = strconv.FormatInt(e.SourcesSkipped, 10)
	row[colTook] = strconv.FormatInt(e.Took.Milliseconds(), 10)
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	var id uuid.UUID
	if record[colDatasetID] != "" {
		if id, err = uuid.Parse(record[colDatasetID]); err != nil {
			return Entry{}, fmt.Errorf("parsing dataset id %q: %w", record[colDatasetID], err)
		}
	}
	rows, err := strconv.Atoi(record[colRows])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing rows %q: %w", record[colRows], err)
	}
	fetched, err := strconv.ParseInt(record[colSourcesFetched], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing sources_fetched %q: %w", record[colSourcesFetched], err)
	}
	skipped, err := strconv.ParseInt(record[colSourcesSkipped], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing sources_skipped %q: %w", record[colSourcesSkipped], err)
	}
	took, err := strconv.ParseInt(record[colTook], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing took_ms %q: %w", record[colTook], err)
	}

	return Entry{
		Timestamp:      ts,
		Command:        record[colCommand],
		DatasetID:      id,
		Rows:           rows,
		SourcesFetched: fetched,
		SourcesSkipped: skipped,
		Took:           time.Duration(took) * time.Millisecond,
		Error:          record[colError],
	}, nil
}

// Append writes entries to path, creating the file, its directory and the
// header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries in path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Tail returns the last n entries, or all of them when n <= 0.
func Tail(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}
