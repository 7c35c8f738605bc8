// Multi-term query support. This is an additive convenience on top of the
// single-term Search contract, not part of it: it is only reachable
// through MultiTermQuery itself. Adapted from a heap-based block merge
// over per-term row lists, the same shape as a posting-list merge, scored
// with a TF times inverse-document-frequency formula.
package search

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"moshiki/internal/templatesio"
)

// ScoredDoc is one multi-term hit: the template and row it was found at,
// the term ids of that row's Variable slots, and its relevance score.
type ScoredDoc struct {
	TemplateID uint32
	Row        int
	TermIDs    []uint32
	Score      float64
}

// termRows holds, for one term within one template, the sorted list of
// rows that carry it.
type termRows struct {
	term string
	rows []int
}

// rowEntry is a min-heap element: one term's cursor into its row list.
type rowEntry struct {
	term string
	rows []int
	pos  int
}

func (e *rowEntry) row() int { return e.rows[e.pos] }

type minRowHeap []*rowEntry

func (h minRowHeap) Len() int            { return len(h) }
func (h minRowHeap) Less(i, j int) bool  { return h[i].row() < h[j].row() }
func (h minRowHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minRowHeap) Push(x interface{}) { *h = append(*h, x.(*rowEntry)) }
func (h *minRowHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MultiTermQuery finds rows that carry every term in terms, scores each
// hit with TF (always 1 per row in this column layout) times
// log((totalDocs+1)/(documentFrequency+1)) summed across terms, and
// returns hits ordered by less.
func (idx *Index) MultiTermQuery(terms []string, less func(a, b ScoredDoc) bool) ([]ScoredDoc, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("search: MultiTermQuery requires at least one term")
	}

	df := make(map[string]int, len(terms))
	byTemplate := make(map[uint32][]termRows)

	for _, term := range terms {
		termID, ok := indexOf(idx.Dict, term)
		if !ok {
			return nil, nil
		}
		for _, templateID := range idx.Dict[termID].TemplateIDs {
			if int(templateID) >= len(idx.Templates) {
				continue
			}
			rec := idx.Templates[templateID]
			rows, err := idx.termRowsInTemplate(rec, uint32(termID))
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				continue
			}
			df[term] += len(rows)
			byTemplate[templateID] = append(byTemplate[templateID], termRows{term: term, rows: rows})
		}
	}

	var totalDocs uint32
	for _, rec := range idx.Templates {
		totalDocs += rec.NumDocs
	}

	var hits []ScoredDoc
	for templateID, perTerm := range byTemplate {
		if len(perTerm) != len(terms) {
			continue // this template doesn't carry all query terms
		}
		matched, err := mergeRows(perTerm, len(terms))
		if err != nil {
			return nil, err
		}

		cols, err := idx.loadColumns(idx.Templates[templateID])
		if err != nil {
			return nil, err
		}
		for _, row := range matched {
			score := 0.0
			for _, t := range terms {
				score += math.Log(float64(totalDocs+1) / float64(df[t]+1))
			}
			hits = append(hits, ScoredDoc{
				TemplateID: templateID,
				Row:        row,
				TermIDs:    rowTermIDs(idx.Templates[templateID], cols, row),
				Score:      score,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return less(hits[i], hits[j]) })
	return hits, nil
}

// mergeRows returns, via a min-heap merge over each term's sorted row
// list, the rows present in every one of the numTerms lists.
func mergeRows(perTerm []termRows, numTerms int) ([]int, error) {
	h := &minRowHeap{}
	heap.Init(h)
	for _, tr := range perTerm {
		if len(tr.rows) > 0 {
			heap.Push(h, &rowEntry{term: tr.term, rows: tr.rows})
		}
	}

	var matched []int
	for h.Len() > 0 {
		currentRow := (*h)[0].row()

		var atRow []*rowEntry
		for _, e := range *h {
			if e.row() == currentRow {
				atRow = append(atRow, e)
			}
		}

		if len(atRow) == numTerms {
			matched = append(matched, currentRow)
		}

		for _, e := range atRow {
			e.pos++
			if e.pos < len(e.rows) {
				heap.Fix(h, indexInHeap(h, e))
			} else {
				heap.Remove(h, indexInHeap(h, e))
			}
		}
	}
	return matched, nil
}

func indexInHeap(h *minRowHeap, target *rowEntry) int {
	for i, e := range *h {
		if e == target {
			return i
		}
	}
	return -1
}

// termRowsInTemplate scans rec's columns for rows carrying termID.
func (idx *Index) termRowsInTemplate(rec templatesio.Record, termID uint32) ([]int, error) {
	cols, err := idx.loadColumns(rec)
	if err != nil {
		return nil, err
	}
	var rows []int
	for row := 0; row < int(rec.NumDocs); row++ {
		for _, col := range cols {
			if row < len(col) && col[row] == termID {
				rows = append(rows, row)
				break
			}
		}
	}
	return rows, nil
}
