// Package assign gives every template group a contiguous id and builds the
// reverse index from term id to the set of templates that term appears in.
// Most terms show up in exactly one template, so that common case is kept
// unboxed; only a term that genuinely spans several templates pays for a
// backing slice.
package assign

import (
	"sort"

	"moshiki/internal/bitset"
	"moshiki/internal/config"
	"moshiki/internal/grouping"
)

// TemplateIDs assigns template_id = index to every group in order and
// returns that same slice for convenience.
func TemplateIDs(groups []*grouping.DocGroup) []*grouping.DocGroup {
	for i, g := range groups {
		g.Template.TemplateID = uint32(i)
	}
	return groups
}

// TemplateIDSet holds the distinct template ids a term id appears in. The
// zero value is empty. A term used by only one template never allocates a
// backing slice; a second distinct template id promotes it to Many.
type TemplateIDSet struct {
	single    uint32
	hasSingle bool
	many      []uint32
}

// Insert adds templateID to the set if not already present.
func (s *TemplateIDSet) Insert(templateID uint32) {
	if s.many != nil {
		i := sort.Search(len(s.many), func(i int) bool { return s.many[i] >= templateID })
		if i < len(s.many) && s.many[i] == templateID {
			return
		}
		s.many = append(s.many, 0)
		copy(s.many[i+1:], s.many[i:])
		s.many[i] = templateID
		return
	}

	if !s.hasSingle {
		s.single = templateID
		s.hasSingle = true
		return
	}
	if s.single == templateID {
		return
	}

	a, b := s.single, templateID
	if a > b {
		a, b = b, a
	}
	s.many = []uint32{a, b}
	s.hasSingle = false
}

// Slice returns the set's members in ascending order. The returned slice
// must not be mutated by the caller.
func (s *TemplateIDSet) Slice() []uint32 {
	if s.many != nil {
		return s.many
	}
	if s.hasSingle {
		return []uint32{s.single}
	}
	return nil
}

// Len returns the number of distinct template ids in the set.
func (s *TemplateIDSet) Len() int {
	if s.many != nil {
		return len(s.many)
	}
	if s.hasSingle {
		return 1
	}
	return 0
}

// TermsToTemplates scans every group's columns and returns, indexed by term
// id, the set of templates that term appears in. numTerms must be at least
// one past the highest term id used by groups.
//
// A column of at most cfg.LargeColumnRows rows inserts once per run of
// equal consecutive ids. A longer column is assigned through a bitset of
// term ids already seen in that column instead; for a column dominated by a handful of
// repeated ids, the bitset check turns a huge number of redundant inserts
// into membership tests, only touching the TemplateIDSet once per distinct
// value.
func TermsToTemplates(groups []*grouping.DocGroup, numTerms int, cfg config.Config) []TemplateIDSet {
	result := make([]TemplateIDSet, numTerms)

	for _, g := range groups {
		for _, col := range g.Columns {
			if len(col) > cfg.LargeColumnRows {
				assignLargeColumn(result, col, g.Template.TemplateID)
			} else {
				for i, termID := range col {
					if i > 0 && col[i-1] == termID {
						continue
					}
					result[termID].Insert(g.Template.TemplateID)
				}
			}
		}
	}

	return result
}

func assignLargeColumn(result []TemplateIDSet, col []uint32, templateID uint32) {
	seen := bitset.New()
	for _, termID := range col {
		if seen.Contains(termID) {
			continue
		}
		seen.Add(termID)
		result[termID].Insert(templateID)
	}
}
