package stats

import (
	"time"

	"github.com/rvudash/rvudash/internal/model"
)

// Field is one named statistic.
type Field struct {
	Name  string
	Value any
}

// Fields returns every statistic in display order. Dates are "2006-01-02"
// strings, or nil when the range is empty.
func (s Stats) Fields() []Field {
	return []Field{
		{"start_date", dateValue(s.StartDate)},
		{"end_date", dateValue(s.EndDate)},
		{"ttl_wrvu", s.TotalWRVU},
		{"ttl_encs", s.TotalEncounters},
		{"wrvu_per_encs", s.WRVUPerEncounter},
		{"ttl_lvl1", s.Level1},
		{"ttl_lvl2", s.Level2},
		{"ttl_lvl3", s.Level3},
		{"ttl_lvl4", s.Level4},
		{"ttl_lvl5", s.Level5},
		{"ttl_tcm", s.TCM},
		{"ttl_procedures", s.Procedures},
		{"ttl_sick", s.SickEncounters},
		{"ttl_sick_wrvu", s.SickWRVU},
		{"ttl_wccinfant", s.WCCInfant},
		{"ttl_wcc1to4", s.WCC1to4},
		{"ttl_wcc5to11", s.WCC5to11},
		{"ttl_wcc12to17", s.WCC12to17},
		{"ttl_wccadult", s.WCCAdult},
		{"ttl_wcc", s.WCC},
		{"ttl_wcc_encs", s.WCCEncounters},
		{"ttl_wcc_wrvu", s.WCCWRVU},
		{"outpt_num_days", s.OutptDays},
		{"outpt_num_pts", s.OutptPatients},
		{"outpt_num_charges", s.OutptCharges},
		{"outpt_ttl_wrvu", s.OutptWRVU},
		{"outpt_avg_wrvu_per_pt", s.OutptWRVUPerPatient},
		{"outpt_num_pts_per_day", s.OutptPatientsPerDay},
		{"outpt_wrvu_per_day", s.OutptWRVUPerDay},
		{"outpt_medicaid_wrvu", s.OutptMedicaidWRVU},
		{"outpt_medicaid_pts", s.OutptMedicaidPatients},
		{"outpt_medicaid_wrvu_per_pt", s.OutptMedicaidWRVUPerPat},
		{"inpt_num_pts", s.InptPatients},
		{"inpt_ttl_wrvu", s.InptWRVU},
	}
}

// Map flattens the statistics into a name -> value map.
func (s Stats) Map() map[string]any {
	fields := s.Fields()
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}

func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.DateKey(*t)
}
