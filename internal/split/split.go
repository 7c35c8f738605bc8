// Package split optionally pulls a high-frequency value out of a variable
// column into its own group, converting that position from Variable back
// to Constant in the new group. A value that recurs far more than any
// other in its column is effectively its own template; splitting it out
// keeps the parent column from being dominated by one repeated id.
package split

import (
	"moshiki/internal/config"
	"moshiki/internal/grouping"
	"moshiki/internal/termmap"
)

// Groups scans every group in groups and, for any column whose most
// frequent term id occurs more than cfg.SplitThreshold times, carves the
// matching rows out into a new group with that position converted to a
// constant. Returns the original slice plus any newly split-out groups.
// A no-op unless cfg.SplitEnabled is set.
func Groups(groups []*grouping.DocGroup, terms *termmap.TermMap, cfg config.Config) []*grouping.DocGroup {
	if !cfg.SplitEnabled {
		return groups
	}

	result := make([]*grouping.DocGroup, 0, len(groups))
	var spawned []*grouping.DocGroup

	for _, g := range groups {
		split := splitOne(g, terms, cfg.SplitThreshold)
		result = append(result, g)
		spawned = append(spawned, split...)
	}

	return append(result, spawned...)
}

// splitOne repeatedly finds a column whose dominant term id exceeds
// threshold occurrences and splits it into a new group, until no column in
// g qualifies. g is mutated in place to remove the split-out rows.
func splitOne(g *grouping.DocGroup, terms *termmap.TermMap, threshold uint32) []*grouping.DocGroup {
	var out []*grouping.DocGroup

	for {
		colIdx, termID, ok := dominantTerm(g, threshold)
		if !ok {
			return out
		}

		newGroup := extractRows(g, colIdx, termID, terms)
		out = append(out, newGroup)
	}
}

// dominantTerm finds the first variable column with a term id occurring
// more than threshold times, returning that column index and term id.
func dominantTerm(g *grouping.DocGroup, threshold uint32) (colIdx int, termID uint32, ok bool) {
	for _, tt := range g.Template.Tokens {
		if tt.Kind != grouping.TokVariable {
			continue
		}
		col := g.Columns[tt.ColumnIndex]
		counts := make(map[uint32]uint32, len(col))
		for _, id := range col {
			counts[id]++
		}
		for id, c := range counts {
			if c > threshold {
				return tt.ColumnIndex, id, true
			}
		}
	}
	return 0, 0, false
}

// extractRows moves every row of g whose value in column colIdx equals
// termID into a new group, with that position converted to a Constant
// carrying termID. g is left with the remaining rows.
func extractRows(g *grouping.DocGroup, colIdx int, termID uint32, terms *termmap.TermMap) *grouping.DocGroup {
	col := g.Columns[colIdx]
	moveMask := make([]bool, len(col))
	for i, id := range col {
		moveMask[i] = id == termID
	}

	moved := &grouping.DocGroup{
		Template: cloneTemplate(g.Template),
		Columns:  make([][]uint32, len(g.Columns)),
	}

	keepIdx, moveIdx := 0, 0
	newGCols := make([][]uint32, len(g.Columns))
	for ci := range g.Columns {
		newGCols[ci] = g.Columns[ci][:0:0]
		moved.Columns[ci] = []uint32{}
	}

	for row := 0; row < len(col); row++ {
		if moveMask[row] {
			for ci := range g.Columns {
				moved.Columns[ci] = append(moved.Columns[ci], g.Columns[ci][row])
			}
			moveIdx++
		} else {
			for ci := range g.Columns {
				newGCols[ci] = append(newGCols[ci], g.Columns[ci][row])
			}
			keepIdx++
		}
	}

	g.Columns = newGCols
	g.NumDocs = keepIdx
	moved.NumDocs = moveIdx

	// Convert the split position to a Constant in the new group and drop
	// its column; shift every other Variable column index above it down
	// by one to stay consistent with the column removal.
	constText, _ := terms.FindTermForTermID(termID)
	for i := range moved.Template.Tokens {
		tt := &moved.Template.Tokens[i]
		if tt.Kind != grouping.TokVariable {
			continue
		}
		if tt.ColumnIndex == colIdx {
			*tt = grouping.TemplateToken{
				Kind:        grouping.TokConstant,
				TokenIndex:  tt.TokenIndex,
				ConstTermID: termID,
				ConstText:   string(constText),
			}
			continue
		}
		if tt.ColumnIndex > colIdx {
			tt.ColumnIndex--
		}
	}
	moved.Columns = append(moved.Columns[:colIdx], moved.Columns[colIdx+1:]...)

	return moved
}

func cloneTemplate(t grouping.Template) grouping.Template {
	tokens := make([]grouping.TemplateToken, len(t.Tokens))
	copy(tokens, t.Tokens)
	return grouping.Template{Tokens: tokens}
}
