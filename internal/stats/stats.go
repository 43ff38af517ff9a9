// Package stats computes production statistics from a classified charge set.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/partition"
)

// Stats holds the dashboard figures for one provider and date range.
// Code counts are summed units; encounter counts are distinct (visit date,
// MRN) pairs. Ratios are zero when their denominator is zero.
type Stats struct {
	StartDate *time.Time `json:"start_date" yaml:"start_date"`
	EndDate   *time.Time `json:"end_date" yaml:"end_date"`

	TotalWRVU        decimal.Decimal `json:"ttl_wrvu" yaml:"ttl_wrvu"`
	TotalEncounters  int             `json:"ttl_encs" yaml:"ttl_encs"`
	WRVUPerEncounter decimal.Decimal `json:"wrvu_per_encs" yaml:"wrvu_per_encs"`

	Level1     decimal.Decimal `json:"ttl_lvl1" yaml:"ttl_lvl1"`
	Level2     decimal.Decimal `json:"ttl_lvl2" yaml:"ttl_lvl2"`
	Level3     decimal.Decimal `json:"ttl_lvl3" yaml:"ttl_lvl3"`
	Level4     decimal.Decimal `json:"ttl_lvl4" yaml:"ttl_lvl4"`
	Level5     decimal.Decimal `json:"ttl_lvl5" yaml:"ttl_lvl5"`
	TCM        decimal.Decimal `json:"ttl_tcm" yaml:"ttl_tcm"`
	Procedures decimal.Decimal `json:"ttl_procedures" yaml:"ttl_procedures"`

	SickEncounters int             `json:"ttl_sick" yaml:"ttl_sick"`
	SickWRVU       decimal.Decimal `json:"ttl_sick_wrvu" yaml:"ttl_sick_wrvu"`

	WCCInfant     decimal.Decimal `json:"ttl_wccinfant" yaml:"ttl_wccinfant"`
	WCC1to4       decimal.Decimal `json:"ttl_wcc1to4" yaml:"ttl_wcc1to4"`
	WCC5to11      decimal.Decimal `json:"ttl_wcc5to11" yaml:"ttl_wcc5to11"`
	WCC12to17     decimal.Decimal `json:"ttl_wcc12to17" yaml:"ttl_wcc12to17"`
	WCCAdult      decimal.Decimal `json:"ttl_wccadult" yaml:"ttl_wccadult"`
	WCC           decimal.Decimal `json:"ttl_wcc" yaml:"ttl_wcc"`
	WCCEncounters int             `json:"ttl_wcc_encs" yaml:"ttl_wcc_encs"`
	WCCWRVU       decimal.Decimal `json:"ttl_wcc_wrvu" yaml:"ttl_wcc_wrvu"`

	OutptDays               int             `json:"outpt_num_days" yaml:"outpt_num_days"`
	OutptPatients           int             `json:"outpt_num_pts" yaml:"outpt_num_pts"`
	OutptCharges            int             `json:"outpt_num_charges" yaml:"outpt_num_charges"`
	OutptWRVU               decimal.Decimal `json:"outpt_ttl_wrvu" yaml:"outpt_ttl_wrvu"`
	OutptWRVUPerPatient     decimal.Decimal `json:"outpt_avg_wrvu_per_pt" yaml:"outpt_avg_wrvu_per_pt"`
	OutptPatientsPerDay     decimal.Decimal `json:"outpt_num_pts_per_day" yaml:"outpt_num_pts_per_day"`
	OutptWRVUPerDay         decimal.Decimal `json:"outpt_wrvu_per_day" yaml:"outpt_wrvu_per_day"`
	OutptMedicaidWRVU       decimal.Decimal `json:"outpt_medicaid_wrvu" yaml:"outpt_medicaid_wrvu"`
	OutptMedicaidPatients   int             `json:"outpt_medicaid_pts" yaml:"outpt_medicaid_pts"`
	OutptMedicaidWRVUPerPat decimal.Decimal `json:"outpt_medicaid_wrvu_per_pt" yaml:"outpt_medicaid_wrvu_per_pt"`

	InptPatients int             `json:"inpt_num_pts" yaml:"inpt_num_pts"`
	InptWRVU     decimal.Decimal `json:"inpt_ttl_wrvu" yaml:"inpt_ttl_wrvu"`
}

// Compute derives Stats from records and their partitions. A nil parts is
// classified from records.
func Compute(records []model.Charge, parts partition.Partitions) Stats {
	if parts == nil {
		parts = partition.Classify(records)
	}

	var s Stats
	s.StartDate, s.EndDate = visitRange(records)

	s.TotalWRVU = sumWRVU(records)
	s.TotalEncounters = Encounters(parts[partition.AllEncs])
	s.WRVUPerEncounter = ratio(s.TotalWRVU, s.TotalEncounters)

	s.Level1 = sumUnits(records, partition.OfficeLevel(1))
	s.Level2 = sumUnits(records, partition.OfficeLevel(2))
	s.Level3 = sumUnits(records, partition.OfficeLevel(3))
	s.Level4 = sumUnits(records, partition.OfficeLevel(4))
	s.Level5 = sumUnits(records, partition.OfficeLevel(5))
	s.TCM = sumUnits(records, partition.TCM)
	s.Procedures = sumUnits(records, partition.Procedures)

	s.SickEncounters = Encounters(parts[partition.SickEncs])
	s.SickWRVU = sumWRVU(parts[partition.SickEncs])

	s.WCCInfant = sumUnits(records, partition.WellChildBand(1))
	s.WCC1to4 = sumUnits(records, partition.WellChildBand(2))
	s.WCC5to11 = sumUnits(records, partition.WellChildBand(3))
	s.WCC12to17 = sumUnits(records, partition.WellChildBand(4))
	s.WCCAdult = sumUnits(records, partition.WellChildBand(5))
	s.WCC = decimal.Sum(s.WCCInfant, s.WCC1to4, s.WCC5to11, s.WCC12to17, s.WCCAdult)
	s.WCCEncounters = Encounters(parts[partition.WCCEncs])
	s.WCCWRVU = sumWRVU(parts[partition.WCCEncs])

	outpt := parts[partition.OutptEncs]
	s.OutptDays = days(outpt)
	s.OutptPatients = Encounters(outpt)
	s.OutptCharges = len(outpt)
	s.OutptWRVU = sumWRVU(outpt)
	s.OutptWRVUPerPatient = ratio(s.OutptWRVU, s.OutptPatients)
	s.OutptPatientsPerDay = ratio(decimal.NewFromInt(int64(s.OutptPatients)), s.OutptDays)
	s.OutptWRVUPerDay = ratio(s.OutptWRVU, s.OutptDays)

	medicaid := parts[partition.OutptMedicaidEncs]
	s.OutptMedicaidWRVU = sumWRVU(medicaid)
	s.OutptMedicaidPatients = Encounters(medicaid)
	s.OutptMedicaidWRVUPerPat = ratio(s.OutptMedicaidWRVU, s.OutptMedicaidPatients)

	s.InptPatients = Encounters(parts[partition.InptEncs])
	s.InptWRVU = sumWRVU(parts[partition.InptAll])
	return s
}

// Encounters counts distinct (visit date, MRN) pairs. Rows without a visit
// date cannot be placed on a day and are not counted.
func Encounters(rows []model.Charge) int {
	seen := make(map[model.EncounterKey]struct{})
	for _, c := range rows {
		if !c.HasVisitDate() {
			continue
		}
		seen[c.Encounter()] = struct{}{}
	}
	return len(seen)
}

func days(rows []model.Charge) int {
	seen := make(map[string]struct{})
	for _, c := range rows {
		if c.HasVisitDate() {
			seen[model.DateKey(c.VisitDate)] = struct{}{}
		}
	}
	return len(seen)
}

func sumWRVU(rows []model.Charge) decimal.Decimal {
	total := decimal.Zero
	for _, c := range rows {
		total = total.Add(c.WRVU)
	}
	return total
}

func sumUnits(rows []model.Charge, family partition.CodeFamily) decimal.Decimal {
	total := decimal.Zero
	for _, c := range rows {
		if family.Match(c.CPT) {
			total = total.Add(c.Units)
		}
	}
	return total
}

func ratio(num decimal.Decimal, den int) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return num.Div(decimal.NewFromInt(int64(den)))
}

func visitRange(rows []model.Charge) (*time.Time, *time.Time) {
	var first, last time.Time
	for _, c := range rows {
		if !c.HasVisitDate() {
			continue
		}
		if first.IsZero() || c.VisitDate.Before(first) {
			first = c.VisitDate
		}
		if last.IsZero() || c.VisitDate.After(last) {
			last = c.VisitDate
		}
	}
	if first.IsZero() {
		return nil, nil
	}
	return &first, &last
}
