// Package dictionary builds the sorted term dictionary: every interned
// term, sorted lexicographically, paired with the sorted set of templates
// whose columns reference it. Building the dictionary also produces the
// old-term-id-to-new-term-id remap that column writers need, since term
// ids handed out during ingestion arrive in discovery order, not sorted
// order.
package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"moshiki/internal/assign"
	"moshiki/internal/termmap"
)

const (
	magicNumber   uint32 = 0x4D534B44 // "MSKD"
	formatVersion uint8  = 1
)

// Entry is one row of the built dictionary: a term and the sorted,
// deduplicated template ids that reference it.
type Entry struct {
	Term        []byte
	TemplateIDs []uint32
}

type sortedTerm struct {
	bytes []byte
	oldID uint32
}

// Build sorts every term interned in terms, merges duplicate term bytes
// under one new id, and unions their template-id sets. A term that maps to
// no templates (only ever used as a template constant, never a column
// value) is skipped from the output entries; its old id's slot in oldToNew
// holds the new id of the next kept term (or len(entries) if none follows),
// so a lookup through that slot does not name the skipped term.
func Build(terms *termmap.TermMap, termToTemplates []assign.TemplateIDSet) (entries []Entry, oldToNew []uint32) {
	numOld := terms.NumTerms()
	sorted := make([]sortedTerm, 0, numOld)

	it := terms.Iter()
	for it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		sorted = append(sorted, sortedTerm{bytes: key, oldID: it.Value()})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i].bytes) < string(sorted[j].bytes)
	})

	oldToNew = make([]uint32, numOld)
	entries = make([]Entry, 0, numOld)

	var newID uint32
	i := 0
	for i < len(sorted) {
		term := sorted[i].bytes
		var templateIDs []uint32

		j := i
		for j < len(sorted) && string(sorted[j].bytes) == string(term) {
			oldToNew[sorted[j].oldID] = newID
			templateIDs = append(templateIDs, termToTemplates[sorted[j].oldID].Slice()...)
			j++
		}

		if len(templateIDs) > 0 {
			sort.Slice(templateIDs, func(a, b int) bool { return templateIDs[a] < templateIDs[b] })
			templateIDs = dedupSorted(templateIDs)
			entries = append(entries, Entry{Term: term, TemplateIDs: templateIDs})
			newID++
		}

		i = j
	}

	return entries, oldToNew
}

func dedupSorted(ids []uint32) []uint32 {
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// WriteFile serializes entries to path as a sorted-string table: a header
// followed by one record per entry, in the order given (callers must pass
// entries already sorted by term).
func WriteFile(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dictionary: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeHeader(w, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeEntry(w, e); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeHeader(w io.Writer, numEntries uint32) error {
	if err := binary.Write(w, binary.LittleEndian, magicNumber); err != nil {
		return fmt.Errorf("dictionary: write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return fmt.Errorf("dictionary: write version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, numEntries); err != nil {
		return fmt.Errorf("dictionary: write entry count: %w", err)
	}
	return nil
}

func writeEntry(w io.Writer, e Entry) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(e.Term))); err != nil {
		return fmt.Errorf("dictionary: write term length: %w", err)
	}
	if _, err := w.Write(e.Term); err != nil {
		return fmt.Errorf("dictionary: write term: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.TemplateIDs))); err != nil {
		return fmt.Errorf("dictionary: write posting count: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, e.TemplateIDs); err != nil {
		return fmt.Errorf("dictionary: write postings: %w", err)
	}
	return nil
}

// ReadFile loads a dictionary previously written by WriteFile, in term
// order.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("dictionary: read magic: %w", err)
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("dictionary: bad magic number 0x%x in %s", magic, path)
	}
	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("dictionary: read version: %w", err)
	}
	var numEntries uint32
	if err := binary.Read(r, binary.LittleEndian, &numEntries); err != nil {
		return nil, fmt.Errorf("dictionary: read entry count: %w", err)
	}

	entries := make([]Entry, numEntries)
	for i := range entries {
		var termLen uint16
		if err := binary.Read(r, binary.LittleEndian, &termLen); err != nil {
			return nil, fmt.Errorf("dictionary: read term length: %w", err)
		}
		term := make([]byte, termLen)
		if _, err := io.ReadFull(r, term); err != nil {
			return nil, fmt.Errorf("dictionary: read term: %w", err)
		}
		var numPostings uint32
		if err := binary.Read(r, binary.LittleEndian, &numPostings); err != nil {
			return nil, fmt.Errorf("dictionary: read posting count: %w", err)
		}
		postings := make([]uint32, numPostings)
		if err := binary.Read(r, binary.LittleEndian, postings); err != nil {
			return nil, fmt.Errorf("dictionary: read postings: %w", err)
		}
		entries[i] = Entry{Term: term, TemplateIDs: postings}
	}
	return entries, nil
}

// Find performs a binary search for term over entries, which must be
// sorted by Term.
func Find(entries []Entry, term []byte) (Entry, bool) {
	i := sort.Search(len(entries), func(i int) bool {
		return string(entries[i].Term) >= string(term)
	})
	if i < len(entries) && string(entries[i].Term) == string(term) {
		return entries[i], true
	}
	return Entry{}, false
}
