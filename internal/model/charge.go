package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical layout for dates in keys and exports.
const DateFormat = "2006-01-02"

// Charge is one line of billed activity from a billing export.
type Charge struct {
	PostedDate  time.Time       // date the billing system recognized the charge
	VisitDate   time.Time       // zero when the export had no parseable visit date
	Provider    string          // provider name as spelled by the source system
	MRN         string          //nolint:revive // plain field name is clearest
	VisitID     string          //nolint:revive
	CPT         string          // kept as text: leading zeros and suffixes matter
	Description string          //nolint:revive
	Units       decimal.Decimal //nolint:revive
	WRVU        decimal.Decimal // signed; rebills show up as negative lines
	Amount      decimal.Decimal // billed charge
	Net         decimal.Decimal
	Insurance   string
	Location    string

	Derived
}

// Derived holds the columns added by enrichment.
type Derived struct {
	Month         string // visit month, "2006-01"
	Quarter       string // visit quarter, "2006 Q1"
	PostedMonth   string
	PostedQuarter string
	Medicaid      bool
	Inpatient     bool
	ProviderAlias string
}

// Valid reports whether the row carries the fields every downstream step relies on.
func (c Charge) Valid() bool {
	return !c.PostedDate.IsZero() && c.Provider != ""
}

// HasVisitDate reports whether the visit date was parsed.
func (c Charge) HasVisitDate() bool {
	return !c.VisitDate.IsZero()
}

// Encounter returns the (visit date, MRN) pair that identifies one patient visit.
func (c Charge) Encounter() EncounterKey {
	return EncounterKey{Date: DateKey(c.VisitDate), MRN: c.MRN}
}

// VisitGroup returns the key charges of one visit share: the visit id, or the
// encounter key when the export leaves the visit id blank.
func (c Charge) VisitGroup() string {
	if c.VisitID != "" {
		return c.VisitID
	}
	return c.Encounter().String()
}

// EncounterKey identifies one patient seen on one day.
type EncounterKey struct {
	Date string
	MRN  string
}

func (k EncounterKey) String() string {
	return k.Date + "/" + k.MRN
}

// DateKey formats t as a day key, or "" for the zero time.
func DateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}

// MonthBucket returns "2006-01" for t, or "" for the zero time.
func MonthBucket(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01")
}

// QuarterBucket returns "2006 Q1" for t, or "" for the zero time.
func QuarterBucket(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Columns lists the canonical charge columns in export order. Spreadsheet
// column letters and fixed-width offsets are configured against this order.
var Columns = []string{
	"posted_date",
	"date",
	"provider",
	"mrn",
	"visitid",
	"cpt",
	"desc",
	"units",
	"wrvu",
	"charge",
	"net",
	"insurance",
	"location",
}
