// Package partition classifies a filtered charge set into the named subsets
// the dashboard and statistics work from.
package partition

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rvudash/rvudash/internal/model"
)

// Partition names.
const (
	OutptAll          = "outpt_all"
	OutptEncs         = "outpt_encs"
	WCCEncs           = "wcc_encs"
	SickEncs          = "sick_encs"
	OutptNotEncs      = "outpt_not_encs"
	OutptMedicaidEncs = "outpt_medicaid_encs"
	InptAll           = "inpt_all"
	InptEncs          = "inpt_encs"
	AllEncs           = "all_encs"
	NegWRVUEncs       = "neg_wrvu_encs"

	// OutptNonEncWRVUs names the per-code summary of OutptNotEncs. It is a
	// table, not a record subset; see NonEncounterWRVUs.
	OutptNonEncWRVUs = "outpt_non_enc_wrvus"
)

// Rule places a record in the named partition when Match returns true.
type Rule struct {
	Name  string
	Match func(model.Charge) bool
}

// GroupRule groups records by Key and keeps every record of a group Flag
// accepts.
type GroupRule struct {
	Name string
	Key  func(model.Charge) string
	Flag func(group []model.Charge) bool
}

func outptEnc(c model.Charge) bool {
	return !c.Inpatient && (WellChild.Match(c.CPT) || Sick.Match(c.CPT))
}

func inptEnc(c model.Charge) bool {
	return c.Inpatient && InpatientVisit.Match(c.CPT)
}

// Rules are evaluated independently; a record may land in several partitions.
var Rules = []Rule{
	{OutptAll, func(c model.Charge) bool { return !c.Inpatient }},
	{OutptEncs, outptEnc},
	{WCCEncs, func(c model.Charge) bool { return !c.Inpatient && WellChild.Match(c.CPT) }},
	{SickEncs, func(c model.Charge) bool { return !c.Inpatient && Sick.Match(c.CPT) }},
	{OutptNotEncs, func(c model.Charge) bool { return !c.Inpatient && !outptEnc(c) }},
	{OutptMedicaidEncs, func(c model.Charge) bool { return c.Medicaid && outptEnc(c) }},
	{InptAll, func(c model.Charge) bool { return c.Inpatient }},
	{InptEncs, inptEnc},
	{AllEncs, func(c model.Charge) bool { return outptEnc(c) || inptEnc(c) }},
}

// GroupRules need the whole visit to decide.
var GroupRules = []GroupRule{
	{
		// Rebilled visits whose reversal outweighs the new charges. Visits
		// that are all zero, such as vaccine-only visits, are not flagged.
		Name: NegWRVUEncs,
		Key:  model.Charge.VisitGroup,
		Flag: func(group []model.Charge) bool {
			total := decimal.Zero
			anyPositive := false
			for _, c := range group {
				total = total.Add(c.WRVU)
				if c.WRVU.IsPositive() {
					anyPositive = true
				}
			}
			return anyPositive && !total.IsPositive()
		},
	},
}

// Names lists every record partition in display order.
func Names() []string {
	names := make([]string, 0, len(Rules)+len(GroupRules))
	for _, r := range Rules {
		names = append(names, r.Name)
	}
	for _, g := range GroupRules {
		names = append(names, g.Name)
	}
	return names
}

// Partitions maps a partition name to its records, in input order.
type Partitions map[string][]model.Charge

// Get returns the named partition, or nil.
func (p Partitions) Get(name string) []model.Charge {
	return p[name]
}

// Counts returns the row count of every partition.
func (p Partitions) Counts() map[string]int {
	counts := make(map[string]int, len(p))
	for name, rows := range p {
		counts[name] = len(rows)
	}
	return counts
}

// Classify applies Rules and GroupRules to records. Every name from Names is
// present in the result, empty partitions included.
func Classify(records []model.Charge) Partitions {
	parts := make(Partitions, len(Rules)+len(GroupRules))
	for _, r := range Rules {
		parts[r.Name] = filter(records, r.Match)
	}
	for _, g := range GroupRules {
		parts[g.Name] = applyGroup(records, g)
	}
	return parts
}

func filter(records []model.Charge, match func(model.Charge) bool) []model.Charge {
	out := []model.Charge{}
	for _, c := range records {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

func applyGroup(records []model.Charge, g GroupRule) []model.Charge {
	groups := make(map[string][]model.Charge)
	for _, c := range records {
		k := g.Key(c)
		groups[k] = append(groups[k], c)
	}

	flagged := make(map[string]bool, len(groups))
	for k, group := range groups {
		if g.Flag(group) {
			flagged[k] = true
		}
	}

	out := []model.Charge{}
	for _, c := range records {
		if flagged[g.Key(c)] {
			out = append(out, c)
		}
	}
	return out
}

// CodeSummary is one row of the non-encounter wRVU table.
type CodeSummary struct {
	CPT         string          `json:"cpt"`
	Description string          `json:"description"`
	WRVU        decimal.Decimal `json:"wrvu"`
	Count       int             `json:"count"`
}

const (
	maxDescription = 45
	truncateTo     = 42
)

// NonEncounterWRVUs summarizes records by CPT: summed wRVU, row count and the
// first description seen. Codes with no positive total are left out. Rows are
// sorted by wRVU descending, then by CPT.
func NonEncounterWRVUs(records []model.Charge) []CodeSummary {
	index := make(map[string]int)
	var rows []CodeSummary
	for _, c := range records {
		i, ok := index[c.CPT]
		if !ok {
			i = len(rows)
			index[c.CPT] = i
			rows = append(rows, CodeSummary{CPT: c.CPT, Description: c.Description})
		}
		rows[i].WRVU = rows[i].WRVU.Add(c.WRVU)
		rows[i].Count++
	}

	out := make([]CodeSummary, 0, len(rows))
	for _, r := range rows {
		if !r.WRVU.IsPositive() {
			continue
		}
		r.Description = truncate(r.Description)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].WRVU.Cmp(out[j].WRVU); c != 0 {
			return c > 0
		}
		return out[i].CPT < out[j].CPT
	})
	return out
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxDescription {
		return s
	}
	return string(r[:truncateTo]) + "..."
}
