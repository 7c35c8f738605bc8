// Package search implements the single-term lookup and reconstruction
// contract: find a term in the dictionary, classify every template it
// could appear in, scan the matching templates' columns for the rows that
// actually carry the term, and replay a row back into its original line.
package search

import (
	"fmt"
	"path/filepath"
	"sort"

	"moshiki/internal/columns"
	"moshiki/internal/dictionary"
	"moshiki/internal/grouping"
	"moshiki/internal/obslog"
	"moshiki/internal/templatesio"
)

var log = obslog.Named("search")

// MatchKind classifies how a template could contain a query term.
type MatchKind int

const (
	NoMatch MatchKind = iota
	VariableMayMatch
	Full
)

// Doc is a reconstructed row: the template it belongs to and, in template
// order, the term id carried by each of that template's Variable slots.
type Doc struct {
	TemplateID uint32
	TermIDs    []uint32
}

// Index holds an opened dictionary and template set, ready to serve
// Search and Reconstruct calls against the column files under dir.
type Index struct {
	Templates []templatesio.Record // indexed by TemplateID
	Dict      []dictionary.Entry   // sorted by term bytes; index == term id
	dir       string
}

// Open loads the dictionary and templates files written under dir.
func Open(dir string) (*Index, error) {
	templates, err := templatesio.ReadFile(filepath.Join(dir, "templates"))
	if err != nil {
		return nil, fmt.Errorf("search: load templates: %w", err)
	}
	dict, err := dictionary.ReadFile(filepath.Join(dir, "dictionary"))
	if err != nil {
		return nil, fmt.Errorf("search: load dictionary: %w", err)
	}

	byID := make([]templatesio.Record, len(templates))
	for _, rec := range templates {
		if int(rec.TemplateID) >= len(byID) {
			grown := make([]templatesio.Record, rec.TemplateID+1)
			copy(grown, byID)
			byID = grown
		}
		byID[rec.TemplateID] = rec
	}

	return &Index{Templates: byID, Dict: dict, dir: dir}, nil
}

// CheckMatch classifies how rec could contain query: Full if a Constant
// slot's text equals query outright, VariableMayMatch if rec has any
// Variable slot (so a column scan might still find query), NoMatch
// otherwise.
func CheckMatch(rec templatesio.Record, query string) MatchKind {
	hasVariable := false
	for _, tt := range rec.Tokens {
		switch tt.Kind {
		case grouping.TokConstant:
			if tt.ConstText == query {
				return Full
			}
		case grouping.TokVariable:
			hasVariable = true
		}
	}
	if hasVariable {
		return VariableMayMatch
	}
	return NoMatch
}

// DefaultMaxHits bounds Search when a caller passes maxHits <= 0.
const DefaultMaxHits = 10_000

// Search classifies every template with CheckMatch and emits up to maxHits
// matching Docs: every row of a Full template, and the rows carrying term
// in a VariableMayMatch template whose dictionary posting lists it. A term
// that is neither a template constant nor in the dictionary returns a nil
// slice, no error.
func (idx *Index) Search(term string, maxHits int) ([]Doc, error) {
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}

	termID, inDict := indexOf(idx.Dict, term)

	var out []Doc
	for i, rec := range idx.Templates {
		var (
			docs []Doc
			err  error
		)
		switch CheckMatch(rec, term) {
		case Full:
			docs, err = idx.emitFull(rec, maxHits-len(out))
		case VariableMayMatch:
			postings := []uint32(nil)
			if inDict {
				postings = idx.Dict[termID].TemplateIDs
			}
			j := sort.Search(len(postings), func(k int) bool { return postings[k] >= uint32(i) })
			if j == len(postings) || postings[j] != uint32(i) {
				continue
			}
			docs, err = idx.emitMatching(rec, uint32(termID), maxHits-len(out))
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
		if len(out) >= maxHits {
			break
		}
	}

	log.InfoFields("search completed", map[string]interface{}{"term": term, "hits": len(out)})
	return out, nil
}

// Reconstruct replays rec's tokens in order, popping term ids from
// doc.TermIDs for each Variable slot, to rebuild the original line text.
func (idx *Index) Reconstruct(rec templatesio.Record, doc Doc) (string, error) {
	var out []byte
	next := 0
	for _, tt := range rec.Tokens {
		switch tt.Kind {
		case grouping.TokConstant:
			out = append(out, tt.ConstText...)
		case grouping.TokWhitespace:
			for i := uint32(0); i < tt.WSLen; i++ {
				out = append(out, ' ')
			}
		case grouping.TokVariable:
			if next >= len(doc.TermIDs) {
				return "", fmt.Errorf("search: doc for template %d has too few term ids to reconstruct", rec.TemplateID)
			}
			termID := doc.TermIDs[next]
			next++
			if int(termID) >= len(idx.Dict) {
				return "", fmt.Errorf("search: term id %d out of range", termID)
			}
			out = append(out, idx.Dict[termID].Term...)
		}
	}
	return string(out), nil
}

func (idx *Index) emitFull(rec templatesio.Record, maxHits int) ([]Doc, error) {
	cols, err := idx.loadColumns(rec)
	if err != nil {
		return nil, err
	}

	numDocs := int(rec.NumDocs)
	if maxHits > 0 && numDocs > maxHits {
		numDocs = maxHits
	}

	docs := make([]Doc, 0, numDocs)
	for row := 0; row < numDocs; row++ {
		docs = append(docs, Doc{TemplateID: rec.TemplateID, TermIDs: rowTermIDs(rec, cols, row)})
	}
	return docs, nil
}

func (idx *Index) emitMatching(rec templatesio.Record, termID uint32, maxHits int) ([]Doc, error) {
	cols, err := idx.loadColumns(rec)
	if err != nil {
		return nil, err
	}

	var docs []Doc
	for row := 0; row < int(rec.NumDocs); row++ {
		matched := false
		for _, col := range cols {
			if row < len(col) && col[row] == termID {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		docs = append(docs, Doc{TemplateID: rec.TemplateID, TermIDs: rowTermIDs(rec, cols, row)})
		if maxHits > 0 && len(docs) >= maxHits {
			break
		}
	}
	return docs, nil
}

// rowTermIDs gathers row's term id out of each Variable column, in
// template-token order rather than raw ColumnIndex order: the two diverge
// once two or more positions are promoted from Constant to Variable out of
// token order, and Reconstruct pops doc.TermIDs in template-token order.
func rowTermIDs(rec templatesio.Record, cols [][]uint32, row int) []uint32 {
	var ids []uint32
	for _, tt := range rec.Tokens {
		if tt.Kind != grouping.TokVariable {
			continue
		}
		var id uint32
		if col := cols[tt.ColumnIndex]; row < len(col) {
			id = col[row]
		}
		ids = append(ids, id)
	}
	return ids
}

// loadColumns loads rec's Variable columns in ColumnIndex order.
func (idx *Index) loadColumns(rec templatesio.Record) ([][]uint32, error) {
	numVariable := 0
	for _, tt := range rec.Tokens {
		if tt.Kind == grouping.TokVariable && tt.ColumnIndex+1 > numVariable {
			numVariable = tt.ColumnIndex + 1
		}
	}

	cols := make([][]uint32, numVariable)
	for _, tt := range rec.Tokens {
		if tt.Kind != grouping.TokVariable {
			continue
		}
		if cols[tt.ColumnIndex] != nil {
			continue
		}
		path := columns.Path(idx.dir, rec.TemplateID, tt.ColumnIndex)
		col, err := columns.ReadColumn(path)
		if err != nil {
			return nil, fmt.Errorf("search: load column %s: %w", path, err)
		}
		cols[tt.ColumnIndex] = col
	}
	return cols, nil
}

// indexOf binary-searches entries (sorted by Term) for term, returning its
// position, which doubles as its dictionary term id.
func indexOf(entries []dictionary.Entry, term string) (int, bool) {
	i := sort.Search(len(entries), func(i int) bool {
		return string(entries[i].Term) >= term
	})
	if i < len(entries) && string(entries[i].Term) == term {
		return i, true
	}
	return 0, false
}
