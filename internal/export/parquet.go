package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/rvudash/rvudash/internal/buildinfo"
	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/partition"
)

// ChargeParquet is the Parquet row for a charge. Dates are "2006-01-02"
// strings, empty when missing; amounts are doubles for query engines.
type ChargeParquet struct {
	PostedDate    string  `parquet:"posted_date"`
	VisitDate     string  `parquet:"date"`
	Provider      string  `parquet:"provider"`
	MRN           string  `parquet:"mrn"`
	VisitID       string  `parquet:"visitid"`
	CPT           string  `parquet:"cpt"`
	Description   string  `parquet:"desc"`
	Units         float64 `parquet:"units"`
	WRVU          float64 `parquet:"wrvu"`
	Charge        float64 `parquet:"charge"`
	Net           float64 `parquet:"net"`
	Insurance     string  `parquet:"insurance"`
	Location      string  `parquet:"location"`
	Month         string  `parquet:"month"`
	Quarter       string  `parquet:"quarter"`
	PostedMonth   string  `parquet:"posted_month"`
	PostedQuarter string  `parquet:"posted_quarter"`
	Medicaid      bool    `parquet:"medicaid"`
	Inpatient     bool    `parquet:"inpatient"`
	ProviderAlias string  `parquet:"provider_alias"`
}

// SummaryParquet is the Parquet row for the non-encounter wRVU table.
type SummaryParquet struct {
	CPT         string  `parquet:"cpt"`
	Description string  `parquet:"description"`
	WRVU        float64 `parquet:"wrvu"`
	Count       int64   `parquet:"count"`
}

// ToParquet converts a charge to its Parquet row.
func ToParquet(c model.Charge) ChargeParquet {
	return ChargeParquet{
		PostedDate:    model.DateKey(c.PostedDate),
		VisitDate:     model.DateKey(c.VisitDate),
		Provider:      c.Provider,
		MRN:           c.MRN,
		VisitID:       c.VisitID,
		CPT:           c.CPT,
		Description:   c.Description,
		Units:         c.Units.InexactFloat64(),
		WRVU:          c.WRVU.InexactFloat64(),
		Charge:        c.Amount.InexactFloat64(),
		Net:           c.Net.InexactFloat64(),
		Insurance:     c.Insurance,
		Location:      c.Location,
		Month:         c.Month,
		Quarter:       c.Quarter,
		PostedMonth:   c.PostedMonth,
		PostedQuarter: c.PostedQuarter,
		Medicaid:      c.Medicaid,
		Inpatient:     c.Inpatient,
		ProviderAlias: c.ProviderAlias,
	}
}

// WriteChargesParquet writes charges as one Snappy-compressed Parquet file.
func WriteChargesParquet(w io.Writer, rows []model.Charge) error {
	records := make([]ChargeParquet, len(rows))
	for i, c := range rows {
		records[i] = ToParquet(c)
	}
	return writeParquet(w, records)
}

// WriteSummaryParquet writes the non-encounter wRVU table as Parquet.
func WriteSummaryParquet(w io.Writer, rows []partition.CodeSummary) error {
	records := make([]SummaryParquet, len(rows))
	for i, r := range rows {
		records[i] = SummaryParquet{
			CPT:         r.CPT,
			Description: r.Description,
			WRVU:        r.WRVU.InexactFloat64(),
			Count:       int64(r.Count),
		}
	}
	return writeParquet(w, records)
}

func writeParquet[T any](w io.Writer, records []T) error {
	writer := parquet.NewGenericWriter[T](w,
		parquet.Compression(&parquet.Snappy),
		parquet.CreatedBy("rvudash", buildinfo.Version, buildinfo.Commit),
	)
	if _, err := writer.Write(records); err != nil {
		writer.Close()
		return fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}
