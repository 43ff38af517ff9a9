// Package enrich adds calendar buckets, payer and setting flags, and
// provider aliases to parsed charges.
package enrich

import (
	"strings"

	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/providers"
)

// Enricher derives the model.Derived fields of a charge.
type Enricher struct {
	// InpatientLocations are matched against the whole location string,
	// ignoring case. "Pullman Regional Hospital OP" is not inpatient even
	// though it shares a prefix with the IP location.
	InpatientLocations []string

	// MedicaidPrefix flags a charge as Medicaid when the insurance name
	// starts with it, ignoring case.
	MedicaidPrefix string

	Providers *providers.Directory
}

// Enrich returns enriched copies of rows. The input slice is not modified,
// and enriching already-enriched rows yields the same values.
func (e *Enricher) Enrich(rows []model.Charge) []model.Charge {
	out := make([]model.Charge, len(rows))
	for i, c := range rows {
		out[i] = e.EnrichOne(c)
	}
	return out
}

// EnrichOne returns c with its derived fields recomputed.
func (e *Enricher) EnrichOne(c model.Charge) model.Charge {
	c.Derived = model.Derived{
		Month:         model.MonthBucket(c.VisitDate),
		Quarter:       model.QuarterBucket(c.VisitDate),
		PostedMonth:   model.MonthBucket(c.PostedDate),
		PostedQuarter: model.QuarterBucket(c.PostedDate),
		Medicaid:      e.isMedicaid(c.Insurance),
		Inpatient:     e.isInpatient(c.Location),
		ProviderAlias: e.alias(c.Provider),
	}
	return c
}

func (e *Enricher) isInpatient(location string) bool {
	for _, loc := range e.InpatientLocations {
		if strings.EqualFold(location, strings.TrimSpace(loc)) {
			return true
		}
	}
	return false
}

func (e *Enricher) isMedicaid(insurance string) bool {
	if e.MedicaidPrefix == "" {
		return false
	}
	insurance = strings.ToLower(insurance)
	return strings.HasPrefix(insurance, strings.ToLower(e.MedicaidPrefix))
}

func (e *Enricher) alias(provider string) string {
	if e.Providers == nil {
		return strings.TrimSpace(provider)
	}
	return e.Providers.Resolve(provider)
}
