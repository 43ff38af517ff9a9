package model

import "time"

// VisitLogEntry is one row of an externally kept visit log.
type VisitLogEntry struct {
	Date        time.Time // zero when unparseable; such rows never match billing
	MRN         string
	EncounterID string
	CPT         string
}

// MatchKey returns the (date, MRN, CPT) triple used to find the billed charge.
func (e VisitLogEntry) MatchKey() MatchKey {
	return MatchKey{Date: DateKey(e.Date), MRN: e.MRN, CPT: e.CPT}
}

// MatchKey joins visit-log rows against charges.
type MatchKey struct {
	Date string
	MRN  string
	CPT  string
}

// ChargeMatchKey returns the MatchKey of a billed charge, keyed on its visit date.
func ChargeMatchKey(c Charge) MatchKey {
	return MatchKey{Date: DateKey(c.VisitDate), MRN: c.MRN, CPT: c.CPT}
}
