package dataset

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/partition"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func charge(alias string, posted, visit time.Time, cpt, wrvu string) model.Charge {
	return model.Charge{
		PostedDate: posted,
		VisitDate:  visit,
		Provider:   alias + " MD",
		MRN:        "100001",
		CPT:        cpt,
		Units:      decimal.NewFromInt(1),
		WRVU:       decimal.RequireFromString(wrvu),
		Location:   "Pullman Regional Hospital OP",
		Derived:    model.Derived{ProviderAlias: alias},
	}
}

func sample() *Dataset {
	return Build([]model.Charge{
		charge("Lee", day(2024, 1, 8), day(2024, 1, 5), "99213", "1.3"),
		charge("Lee", day(2024, 2, 2), day(2024, 1, 30), "99214", "1.92"),   // posted late
		charge("Lee", day(2024, 1, 31), day(2024, 2, 3), "99392", "1.5"),    // posted early
		charge("Lee", day(2023, 12, 20), day(2023, 12, 19), "99212", "0.7"), // before range
		charge("Lee", day(2024, 1, 15), time.Time{}, "99211", "0.18"),       // no visit date
		charge("Mike", day(2024, 1, 10), day(2024, 1, 9), "99213", "1.3"),
	})
}

func TestBuild(t *testing.T) {
	d := sample()

	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, 6, d.Len())
	assert.Equal(t, day(2023, 12, 20), d.Start)
	assert.Equal(t, day(2024, 2, 2), d.End)
	assert.Equal(t, []string{"Lee", "Mike"}, d.Providers())
	assert.Len(t, d.ByProvider["Lee"], 5)
	assert.NotEqual(t, sample().ID, d.ID, "each build gets its own id")
}

func TestBuild_UnmappedProviderKeyedByName(t *testing.T) {
	c := charge("", day(2024, 1, 2), day(2024, 1, 2), "99213", "1")
	c.Provider = "Smith, Jane DO"
	d := Build([]model.Charge{c})
	assert.Equal(t, []string{"Smith, Jane DO"}, d.Providers())
}

func TestFilter_ExampleOfficeVisit(t *testing.T) {
	d := Build([]model.Charge{charge("Lee", day(2024, 1, 8), day(2024, 1, 5), "99213", "1.3")})

	f := d.Filter("Lee", day(2024, 1, 1), day(2024, 1, 31))
	require.NotNil(t, f)

	assert.Len(t, f.Partitions[partition.OutptAll], 1)
	assert.Len(t, f.Partitions[partition.SickEncs], 1)
	assert.Len(t, f.Partitions[partition.OutptEncs], 1)
	assert.True(t, decimal.RequireFromString("1.3").Equal(f.Stats.TotalWRVU))
	assert.Equal(t, 1, f.Stats.TotalEncounters)
}

func TestFilter_VisitOrPostedDate(t *testing.T) {
	f := sample().Filter("Lee", day(2024, 1, 1), day(2024, 1, 31))
	require.NotNil(t, f)

	var got []string
	for _, c := range f.Records {
		got = append(got, c.CPT)
	}
	assert.Equal(t, []string{"99213", "99214", "99392", "99211"}, got)
	assert.Equal(t, "Lee", f.Provider)
	assert.Equal(t, day(2024, 1, 1), f.Start)
	assert.Equal(t, day(2024, 1, 31), f.End)
}

func TestFilter_EndDayInclusive(t *testing.T) {
	late := day(2024, 1, 31).Add(23*time.Hour + 59*time.Minute)
	d := Build([]model.Charge{
		charge("Lee", late, late, "99213", "1"),
		charge("Lee", day(2024, 2, 1), day(2024, 2, 1), "99214", "1"),
	})

	f := d.Filter("Lee", day(2024, 1, 31), day(2024, 1, 31))
	require.NotNil(t, f)
	require.Len(t, f.Records, 1)
	assert.Equal(t, "99213", f.Records[0].CPT)
}

func TestFilter_OpenEnded(t *testing.T) {
	f := sample().Filter("Lee", day(2024, 1, 1), time.Time{})
	require.NotNil(t, f)
	assert.Len(t, f.Records, 4)
	assert.True(t, f.End.IsZero())
}

func TestFilter_NothingSelected(t *testing.T) {
	d := sample()
	assert.Nil(t, d.Filter("Nobody", day(2024, 1, 1), day(2024, 1, 31)))
	assert.Nil(t, d.Filter("Lee", time.Time{}, day(2024, 1, 31)))

	var none *Dataset
	assert.Nil(t, none.Filter("Lee", day(2024, 1, 1), day(2024, 1, 31)))
}

func TestFilter_EmptyRange(t *testing.T) {
	f := sample().Filter("Lee", day(2025, 1, 1), day(2025, 1, 31))
	require.NotNil(t, f, "a known provider with no rows in range is not the same as nothing selected")
	assert.Empty(t, f.Records)
	assert.Zero(t, f.Stats.TotalEncounters)
	assert.True(t, f.Stats.TotalWRVU.IsZero())
}

func TestFilter_Idempotent(t *testing.T) {
	d := sample()
	first := d.Filter("Lee", day(2024, 1, 1), day(2024, 1, 31))
	second := d.Filter("Lee", day(2024, 1, 1), day(2024, 1, 31))
	assert.Equal(t, first, second)
	assert.Len(t, d.ByProvider["Lee"], 5)
}

func TestFilter_NonEncounterSummary(t *testing.T) {
	d := Build([]model.Charge{
		charge("Lee", day(2024, 1, 8), day(2024, 1, 5), "99213", "1.3"),
		charge("Lee", day(2024, 1, 8), day(2024, 1, 5), "90460", "0.17"),
		charge("Lee", day(2024, 1, 9), day(2024, 1, 6), "90460", "0.17"),
	})
	f := d.Filter("Lee", day(2024, 1, 1), day(2024, 1, 31))
	require.NotNil(t, f)
	require.Len(t, f.NonEncounterWRVUs, 1)
	assert.Equal(t, "90460", f.NonEncounterWRVUs[0].CPT)
	assert.Equal(t, 2, f.NonEncounterWRVUs[0].Count)
}
