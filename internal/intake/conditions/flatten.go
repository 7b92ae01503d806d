// Package conditions flattens a parsed condition tree into ordered rows.
//
// Only one level of nesting is walked: a top-level condition and its direct
// children. Grandchildren, if a parser ever emits them, are ignored so the
// output order stays stable for existing consumers.
package conditions

import (
	"fmt"
	"strings"

	"github.com/planease/engine/internal/models"
)

// Record is one flattened condition. ParentIndex is the position of the
// enclosing top-level record in the flattened slice, or -1.
type Record struct {
	Number       string
	ParentNumber *string
	ParentIndex  int

	SectionTitle string
	Title        string
	Description  string
	Timing       string
	TimingSource string
	TimingColumn string
	TimingInline string

	MaterialRequired    bool
	MaterialDescription string
	MaterialTiming      string
}

// Flatten emits, section by section, each top-level condition followed
// immediately by its children. It never fails; missing arrays are empty.
func Flatten(tree models.ConditionTree) []Record {
	var out []Record
	for _, section := range tree.Sections {
		title := strings.TrimSpace(string(section.Title))
		for _, top := range section.Conditions {
			parentIdx := len(out)
			parent := record(top, title, nil, -1)
			out = append(out, parent)

			for _, child := range top.Children {
				num := parent.Number
				out = append(out, record(child, title, &num, parentIdx))
			}
		}
	}
	return out
}

func record(c models.ParsedCondition, section string, parent *string, parentIdx int) Record {
	r := Record{
		Number:       strings.TrimSpace(string(c.Number)),
		ParentNumber: parent,
		ParentIndex:  parentIdx,
		SectionTitle: section,
		Title:        string(c.Title),
		Description:  string(c.Description),
		Timing:       string(c.Timing),
		TimingSource: string(c.TimingSource),
		TimingColumn: string(c.TimingColumn),
		TimingInline: string(c.TimingInline),
	}
	if c.Material != nil {
		r.MaterialRequired = bool(c.Material.Required)
		r.MaterialDescription = string(c.Material.Description)
		r.MaterialTiming = string(c.Material.Timing)
	}
	return r
}

// Normalize makes every number non-empty and unique so it can serve as a sort
// key. Empty numbers become "unnumbered-N" (N is the 1-based position) and
// repeats get a "#k" suffix for the k-th occurrence. Child parent numbers are
// rewritten to follow their parent. Each change is reported as a warning.
func Normalize(records []Record) ([]Record, []string) {
	out := make([]Record, len(records))
	copy(out, records)

	var warnings []string
	seen := map[string]int{}
	for i := range out {
		num := out[i].Number
		if num == "" {
			num = fmt.Sprintf("unnumbered-%d", i+1)
			warnings = append(warnings, fmt.Sprintf("condition at position %d has no number; stored as %q", i+1, num))
		}
		seen[num]++
		if n := seen[num]; n > 1 {
			dup := fmt.Sprintf("%s#%d", num, n)
			warnings = append(warnings, fmt.Sprintf("condition number %q repeats; stored as %q", num, dup))
			num = dup
		}
		out[i].Number = num
	}

	for i := range out {
		if p := out[i].ParentIndex; p >= 0 && p < len(out) {
			num := out[p].Number
			out[i].ParentNumber = &num
		}
	}
	return out, warnings
}
