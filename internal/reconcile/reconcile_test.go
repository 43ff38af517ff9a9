package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvudash/rvudash/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func billed(d int, mrn, cpt string) model.Charge {
	return model.Charge{PostedDate: day(d + 2), VisitDate: day(d), Provider: "Lee , Jonathan MD", MRN: mrn, CPT: cpt}
}

func ids(entries []model.VisitLogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.EncounterID
	}
	return out
}

func TestParseLog(t *testing.T) {
	in := "01/05/2024,100001,E1,99213\r\n" +
		"1/6/2024, 100002 ,E2,99392\r" +
		"2024-01-07,100003,\"E3\",0001A\n" +
		"\n" +
		"01/08/2024,100004\n" +
		"not a date,100005,E5,99214"

	entries, err := ParseLog(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, 4, "the short row is skipped")

	assert.Equal(t, model.VisitLogEntry{Date: day(5), MRN: "100001", EncounterID: "E1", CPT: "99213"}, entries[0])
	assert.Equal(t, "100002", entries[1].MRN)
	assert.Equal(t, day(6), entries[1].Date)
	assert.Equal(t, "E3", entries[2].EncounterID)
	assert.Equal(t, "0001A", entries[2].CPT)
	assert.True(t, entries[3].Date.IsZero())
}

func TestParseLog_BOMAndLegacyEncoding(t *testing.T) {
	entries, err := ParseLog(strings.NewReader("\xef\xbb\xbf01/05/2024,100001,E1,99213\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, day(5), entries[0].Date)

	entries, err = ParseLog(strings.NewReader("01/05/2024,100001,VISIT-\xe9,99213\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "VISIT-é", entries[0].EncounterID)
}

func TestParseLog_Empty(t *testing.T) {
	entries, err := ParseLog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDedupe_LastWins(t *testing.T) {
	entries := []model.VisitLogEntry{
		{EncounterID: "E1", CPT: "99213"},
		{EncounterID: "E2", CPT: "99392"},
		{EncounterID: "E1", CPT: "99214"},
		{EncounterID: "", CPT: "99212"},
		{EncounterID: "", CPT: "99212"},
	}
	got := Dedupe(entries)
	assert.Equal(t, []string{"E2", "E1", "", ""}, ids(got))
	assert.Equal(t, "99214", got[1].CPT)
}

func TestReconcile_ValidatedAndDiff(t *testing.T) {
	records := []model.Charge{
		billed(5, "100001", "99213"),
		billed(5, "100001", "90460"),
		billed(6, "100002", "99392"),
	}
	log := []model.VisitLogEntry{
		{Date: day(5), MRN: "100001", EncounterID: "E1", CPT: "99213"}, // billed
		{Date: day(6), MRN: "100002", EncounterID: "E2", CPT: "99393"}, // wrong code
		{Date: day(7), MRN: "100003", EncounterID: "E3", CPT: "99214"}, // never billed
		{Date: day(7), MRN: "100003", EncounterID: "E4", CPT: "99214"}, // same visit logged twice
	}

	res := Reconcile(records, log)

	assert.Equal(t, []string{"E1"}, ids(res.Validated))
	assert.Equal(t, []string{"E2", "E3"}, ids(res.Diff))
	assert.Len(t, res.Log, 4)
	assert.Equal(t, records, res.Billing)
}

func TestReconcile_VerbatimDuplicateInDiffOnce(t *testing.T) {
	entry := model.VisitLogEntry{Date: day(9), MRN: "100009", EncounterID: "E9", CPT: "99213"}
	res := Reconcile(nil, []model.VisitLogEntry{entry, entry, entry})

	assert.Empty(t, res.Validated)
	require.Len(t, res.Diff, 1)
	assert.Equal(t, entry, res.Diff[0])
}

func TestReconcile_CorrectionReplacesEarlierRow(t *testing.T) {
	records := []model.Charge{billed(5, "100001", "99214")}
	log := []model.VisitLogEntry{
		{Date: day(5), MRN: "100001", EncounterID: "E1", CPT: "99213"},
		{Date: day(5), MRN: "100001", EncounterID: "E1", CPT: "99214"},
	}

	res := Reconcile(records, log)
	require.Len(t, res.Validated, 1)
	assert.Equal(t, "99214", res.Validated[0].CPT)
	assert.Empty(t, res.Diff)
}

func TestReconcile_MissingDatesNeverMatch(t *testing.T) {
	undated := model.Charge{PostedDate: day(3), Provider: "Lee , Jonathan MD", MRN: "100001", CPT: "99213"}
	log := []model.VisitLogEntry{{MRN: "100001", EncounterID: "E1", CPT: "99213"}}

	res := Reconcile([]model.Charge{undated}, log)
	assert.Empty(t, res.Validated)
	assert.Len(t, res.Diff, 1)
}

func TestReconcile_MatchesVisitDateNotPostedDate(t *testing.T) {
	c := billed(5, "100001", "99213")
	log := []model.VisitLogEntry{{Date: c.PostedDate, MRN: "100001", EncounterID: "E1", CPT: "99213"}}

	res := Reconcile([]model.Charge{c}, log)
	assert.Empty(t, res.Validated)
	assert.Len(t, res.Diff, 1)
}

func TestRun(t *testing.T) {
	records := []model.Charge{billed(5, "100001", "99213")}
	res, err := Run(records, strings.NewReader("01/05/2024,100001,E1,99213\n01/05/2024,100001,E2,99214\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"E1"}, ids(res.Validated))
	assert.Equal(t, []string{"E2"}, ids(res.Diff))
}
