// Package export writes filtered charges, partitions and summaries as CSV or
// Parquet files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/partition"
	"github.com/rvudash/rvudash/internal/stats"
)

// ChargeHeader is the CSV header for charge rows: the canonical columns
// followed by the derived ones.
var ChargeHeader = append(append([]string(nil), model.Columns...),
	"month", "quarter", "posted_month", "posted_quarter", "medicaid", "inpatient", "provider_alias")

// SummaryHeader is the CSV header for the non-encounter wRVU table.
var SummaryHeader = []string{"cpt", "description", "wrvu", "count"}

// WriteCharges writes charges to a CSV writer (including header).
func WriteCharges(w io.Writer, rows []model.Charge) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(ChargeHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, c := range rows {
		if err := cw.Write(MarshalCharge(c)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCharge converts a charge to a CSV row. Missing dates are blank.
func MarshalCharge(c model.Charge) []string {
	return []string{
		model.DateKey(c.PostedDate),
		model.DateKey(c.VisitDate),
		c.Provider,
		c.MRN,
		c.VisitID,
		c.CPT,
		c.Description,
		c.Units.String(),
		c.WRVU.String(),
		c.Amount.StringFixed(2),
		c.Net.StringFixed(2),
		c.Insurance,
		c.Location,
		c.Month,
		c.Quarter,
		c.PostedMonth,
		c.PostedQuarter,
		strconv.FormatBool(c.Medicaid),
		strconv.FormatBool(c.Inpatient),
		c.ProviderAlias,
	}
}

// WriteSummary writes the non-encounter wRVU table (including header).
func WriteSummary(w io.Writer, rows []partition.CodeSummary) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(SummaryHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range rows {
		rec := []string{r.CPT, r.Description, r.WRVU.String(), strconv.Itoa(r.Count)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStats writes statistics as name,value rows in display order.
func WriteStats(w io.Writer, s stats.Stats) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"name", "value"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, f := range s.Fields() {
		if err := cw.Write([]string{f.Name, FormatValue(f.Value)}); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a statistic for text output. Decimals are rounded to
// two places; nil is blank.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		return v.Round(2).String()
	default:
		return fmt.Sprint(v)
	}
}
