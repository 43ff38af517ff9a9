// Package reconcile checks an externally kept visit log against billed
// charges.
package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rvudash/rvudash/internal/importer"
	"github.com/rvudash/rvudash/internal/model"
)

// logColumns is the positional layout of a visit log row: date, MRN,
// encounter id, CPT.
const logColumns = 4

// Result is the outcome of one reconciliation.
type Result struct {
	Log       []model.VisitLogEntry // deduplicated by encounter id
	Billing   []model.Charge        // charges the log was checked against
	Validated []model.VisitLogEntry // log rows with a matching charge
	Diff      []model.VisitLogEntry // log rows with no matching charge, one per (date, MRN, CPT)
}

// ParseLog reads a headerless visit log. Fields may be comma separated and
// quoted; lines may end in \n, \r\n or \r. Rows with fewer than four fields
// are skipped.
func ParseLog(r io.Reader) ([]model.VisitLogEntry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading visit log: %w", err)
	}
	text, err := importer.DecodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("reading visit log: %w", err)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var entries []model.VisitLogEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing visit log: %w", err)
		}
		if len(rec) < logColumns {
			continue
		}
		entries = append(entries, model.VisitLogEntry{
			Date:        importer.ParseDate(rec[0]),
			MRN:         strings.TrimSpace(rec[1]),
			EncounterID: strings.TrimSpace(rec[2]),
			CPT:         strings.TrimSpace(rec[3]),
		})
	}
	return entries, nil
}

// Dedupe keeps the last row for each encounter id, ordered by where that
// last row appears. Later log rows are corrections of earlier ones. Rows
// with a blank encounter id are all kept.
func Dedupe(entries []model.VisitLogEntry) []model.VisitLogEntry {
	last := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.EncounterID != "" {
			last[e.EncounterID] = i
		}
	}
	out := make([]model.VisitLogEntry, 0, len(entries))
	for i, e := range entries {
		if e.EncounterID == "" || last[e.EncounterID] == i {
			out = append(out, e)
		}
	}
	return out
}

// Reconcile matches log rows to charges on (visit date, MRN, CPT). Rows
// without a visit date never match.
func Reconcile(records []model.Charge, log []model.VisitLogEntry) Result {
	billed := make(map[model.MatchKey]struct{}, len(records))
	for _, c := range records {
		if c.HasVisitDate() {
			billed[model.ChargeMatchKey(c)] = struct{}{}
		}
	}

	res := Result{Log: Dedupe(log), Billing: records}
	missing := make(map[model.MatchKey]struct{})
	for _, e := range res.Log {
		key := e.MatchKey()
		if _, ok := billed[key]; ok && !e.Date.IsZero() {
			res.Validated = append(res.Validated, e)
			continue
		}
		if _, dup := missing[key]; dup {
			continue
		}
		missing[key] = struct{}{}
		res.Diff = append(res.Diff, e)
	}
	return res
}

// Run parses a visit log and reconciles it against records.
func Run(records []model.Charge, r io.Reader) (Result, error) {
	log, err := ParseLog(r)
	if err != nil {
		return Result{}, err
	}
	return Reconcile(records, log), nil
}
