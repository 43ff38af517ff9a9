package partition

import (
	"regexp"
	"strconv"
)

// CodeFamily is a set of CPT codes written as a regular expression. A code
// belongs to the family when it begins with a match, so suffixed codes such
// as "99213-25" are still recognized.
type CodeFamily struct {
	Name string
	re   *regexp.Regexp
}

// NewCodeFamily compiles pattern anchored at the start of the code.
func NewCodeFamily(name, pattern string) CodeFamily {
	return CodeFamily{Name: name, re: regexp.MustCompile(`^(?:` + pattern + `)`)}
}

// Match reports whether cpt belongs to the family.
func (f CodeFamily) Match(cpt string) bool {
	return f.re.MatchString(cpt)
}

const procedureCodes = `54150|41010|120[01][1-8]`

// Outpatient visit codes.
var (
	// WellChild covers preventive visits, new and established, by age band.
	WellChild = NewCodeFamily("wcc", `993[89][1-5]`)

	// Procedures are the minor office procedures billed as the visit code.
	Procedures = NewCodeFamily("procedures", procedureCodes)

	// Sick covers office E/M levels 1-5, transitional care management and
	// the office procedures.
	Sick = NewCodeFamily("sick", `992[01][1-5]|9949[56]|`+procedureCodes)

	// TCM is transitional care management.
	TCM = NewCodeFamily("tcm", `9949[56]`)
)

// InpatientVisit covers newborn, admit, progress, discharge, intensive and
// critical care, and consult codes. 99292 (additional critical care time) is
// not a visit code.
var InpatientVisit = NewCodeFamily("inpt",
	`9946[023]|9923[89]`+ // newborn attendance, resuscitation, same-day admit/discharge
		`|992[23][1-3]`+ // initial and subsequent hospital care
		`|9947[7-9]|99480`+ // intensive care
		`|99291`+ // critical care, first hour
		`|9925[3-5]`+ // inpatient consult
		`|9921[89]|9922[1-6]|9923[1-9]`, // observation and hospital admit, progress, discharge
)

// OfficeLevel returns the family for E/M level n (1-5), new or established.
func OfficeLevel(n int) CodeFamily {
	return NewCodeFamily("lvl"+strconv.Itoa(n), `992[01]`+strconv.Itoa(n))
}

// WellChildBand returns the family for preventive age band n (1-5): infant,
// 1-4, 5-11, 12-17, adult.
func WellChildBand(n int) CodeFamily {
	return NewCodeFamily("wcc"+strconv.Itoa(n), `993[89]`+strconv.Itoa(n))
}
