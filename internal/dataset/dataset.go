// Package dataset holds an ingested, enriched charge set and narrows it to one
// provider and date range on request.
package dataset

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/partition"
	"github.com/rvudash/rvudash/internal/stats"
)

// Dataset is the result of one ingestion run. It is never modified after
// Build; re-ingestion builds a new one.
type Dataset struct {
	ID         uuid.UUID
	BuiltAt    time.Time
	Records    []model.Charge
	Start      time.Time // earliest posted date
	End        time.Time // latest posted date
	ByProvider map[string][]model.Charge
}

// Build indexes enriched records by provider alias.
func Build(records []model.Charge) *Dataset {
	d := &Dataset{
		ID:         uuid.New(),
		BuiltAt:    time.Now().UTC(),
		Records:    records,
		ByProvider: make(map[string][]model.Charge),
	}
	for _, c := range records {
		if d.Start.IsZero() || c.PostedDate.Before(d.Start) {
			d.Start = c.PostedDate
		}
		if c.PostedDate.After(d.End) {
			d.End = c.PostedDate
		}
		alias := c.ProviderAlias
		if alias == "" {
			alias = c.Provider
		}
		d.ByProvider[alias] = append(d.ByProvider[alias], c)
	}
	return d
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Providers returns the provider aliases present in the data, sorted.
func (d *Dataset) Providers() []string {
	aliases := make([]string, 0, len(d.ByProvider))
	for alias := range d.ByProvider {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Filtered is one provider's charges for a date range with their partitions
// and statistics. Callers must not modify it.
type Filtered struct {
	Provider          string
	Start             time.Time
	End               time.Time // zero when open-ended
	Records           []model.Charge
	Partitions        partition.Partitions
	NonEncounterWRVUs []partition.CodeSummary
	Stats             stats.Stats
}

// Filter selects alias's charges whose visit date or posted date falls
// between start and end, both inclusive by calendar day. A zero end leaves
// the range open. It returns nil when alias has no data or start is zero.
func (d *Dataset) Filter(alias string, start, end time.Time) *Filtered {
	if d == nil || start.IsZero() {
		return nil
	}
	rows, ok := d.ByProvider[alias]
	if !ok {
		return nil
	}

	w := newWindow(start, end)
	var records []model.Charge
	for _, c := range rows {
		if w.contains(c.VisitDate) || w.contains(c.PostedDate) {
			records = append(records, c)
		}
	}

	parts := partition.Classify(records)
	return &Filtered{
		Provider:          alias,
		Start:             model.Day(start),
		End:               model.Day(end),
		Records:           records,
		Partitions:        parts,
		NonEncounterWRVUs: partition.NonEncounterWRVUs(parts[partition.OutptNotEncs]),
		Stats:             stats.Compute(records, parts),
	}
}

// window is the half-open day range [from, until).
type window struct {
	from  time.Time
	until time.Time // zero when open-ended
}

func newWindow(start, end time.Time) window {
	w := window{from: model.Day(start)}
	if !end.IsZero() {
		w.until = model.Day(end).AddDate(0, 0, 1)
	}
	return w
}

func (w window) contains(t time.Time) bool {
	if t.IsZero() || t.Before(w.from) {
		return false
	}
	return w.until.IsZero() || t.Before(w.until)
}
