package importer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvudash/rvudash/internal/model"
)

const (
	colPostedDate = iota
	colDate
	colProvider
	colMRN
	colVisitID
	colCPT
	colDesc
	colUnits
	colWRVU
	colCharge
	colNet
	colInsurance
	colLocation
	numFields
)

// dateLayouts are tried in order. Both exports write US dates; the ISO and
// RFC3339 layouts cover spreadsheet cells that readers render as timestamps.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-06",
	"1-2-06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
	time.RFC3339,
	"01/02/2006 15:04",
	"1/2/2006 15:04",
}

// excelEpoch is day zero of Excel's 1900 date system, adjusted for the
// phantom 1900-02-29 so serials after February 1900 land on the right day.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

// parseDate coerces a text cell to a calendar day. Unparseable values yield
// the zero time, which downstream code treats as missing.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t)
		}
	}
	return time.Time{}
}

// ParseDate is parseDate for other delimited inputs, such as visit logs.
func ParseDate(s string) time.Time {
	return parseDate(s)
}

// parseSheetDate is parseDate that also accepts raw Excel date serials.
func parseSheetDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 || serial > maxExcelSerial {
			return time.Time{}
		}
		return excelEpoch.AddDate(0, 0, int(math.Floor(serial)))
	}
	return parseDate(s)
}

// parseDecimal coerces a numeric cell. Currency symbols, thousands
// separators and accounting-style parentheses are accepted; anything else
// unparseable counts as zero.
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSuffix(s, "-")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if neg {
		d = d.Neg()
	}
	return d
}

// chargeFromFields builds a charge from numFields cells in model.Columns
// order. Missing trailing cells read as empty.
func chargeFromFields(fields []string, date func(string) time.Time) model.Charge {
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	return model.Charge{
		PostedDate:  date(get(colPostedDate)),
		VisitDate:   date(get(colDate)),
		Provider:    get(colProvider),
		MRN:         get(colMRN),
		VisitID:     get(colVisitID),
		CPT:         get(colCPT),
		Description: get(colDesc),
		Units:       parseDecimal(get(colUnits)),
		WRVU:        parseDecimal(get(colWRVU)),
		Amount:      parseDecimal(get(colCharge)),
		Net:         parseDecimal(get(colNet)),
		Insurance:   get(colInsurance),
		Location:    get(colLocation),
	}
}
