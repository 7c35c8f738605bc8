// Package templatesio serializes the finished set of templates: for every
// group, its ordered tokens (constants carrying their literal text,
// variables carrying their column index, whitespace carrying its run
// length) plus its document count. Rust's postcard has no equivalent
// library in this ecosystem, so the format here is a small hand-rolled
// binary codec instead, in the same length-prefixed spirit as the
// dictionary and column file formats.
package templatesio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"moshiki/internal/grouping"
	"moshiki/internal/tokenizer"
)

const (
	magicNumber   uint32 = 0x4D534B54 // "MSKT"
	formatVersion uint8  = 1
)

type tokenKindWire uint8

const (
	wireConstant tokenKindWire = iota
	wireVariable
	wireWhitespace
)

// Record is one persisted template: its tokens and the document count the
// group accumulated during ingestion.
type Record struct {
	TemplateID uint32
	NumDocs    uint32
	Tokens     []grouping.TemplateToken
}

// FromGroups converts finished groups into Records, ready for WriteFile.
func FromGroups(groups []*grouping.DocGroup) []Record {
	records := make([]Record, len(groups))
	for i, g := range groups {
		records[i] = Record{
			TemplateID: g.Template.TemplateID,
			NumDocs:    uint32(g.NumDocs),
			Tokens:     g.Template.Tokens,
		}
	}
	return records
}

// WriteFile serializes records to path.
func WriteFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("templatesio: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, magicNumber); err != nil {
		return fmt.Errorf("templatesio: write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return fmt.Errorf("templatesio: write version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(records))); err != nil {
		return fmt.Errorf("templatesio: write record count: %w", err)
	}

	for _, rec := range records {
		if err := writeRecord(w, rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeRecord(w io.Writer, rec Record) error {
	if err := binary.Write(w, binary.LittleEndian, rec.TemplateID); err != nil {
		return fmt.Errorf("templatesio: write template id: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, rec.NumDocs); err != nil {
		return fmt.Errorf("templatesio: write doc count: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(rec.Tokens))); err != nil {
		return fmt.Errorf("templatesio: write token count: %w", err)
	}
	for _, tt := range rec.Tokens {
		if err := writeToken(w, tt); err != nil {
			return err
		}
	}
	return nil
}

func writeToken(w io.Writer, tt grouping.TemplateToken) error {
	if err := binary.Write(w, binary.LittleEndian, tt.TokenIndex); err != nil {
		return fmt.Errorf("templatesio: write token index: %w", err)
	}

	switch tt.Kind {
	case grouping.TokConstant:
		if err := binary.Write(w, binary.LittleEndian, wireConstant); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint8(tt.ConstType)); err != nil {
			return fmt.Errorf("templatesio: write const type: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, tt.ConstTermID); err != nil {
			return fmt.Errorf("templatesio: write const term id: %w", err)
		}
		text := []byte(tt.ConstText)
		if err := binary.Write(w, binary.LittleEndian, uint16(len(text))); err != nil {
			return fmt.Errorf("templatesio: write const text length: %w", err)
		}
		if _, err := w.Write(text); err != nil {
			return fmt.Errorf("templatesio: write const text: %w", err)
		}

	case grouping.TokVariable:
		if err := binary.Write(w, binary.LittleEndian, wireVariable); err != nil {
			return err
		}
		isIDLike := uint8(0)
		if tt.IsIDLike {
			isIDLike = 1
		}
		if err := binary.Write(w, binary.LittleEndian, isIDLike); err != nil {
			return fmt.Errorf("templatesio: write is-id-like: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(tt.ColumnIndex)); err != nil {
			return fmt.Errorf("templatesio: write column index: %w", err)
		}

	case grouping.TokWhitespace:
		if err := binary.Write(w, binary.LittleEndian, wireWhitespace); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, tt.WSLen); err != nil {
			return fmt.Errorf("templatesio: write whitespace length: %w", err)
		}

	default:
		return fmt.Errorf("templatesio: unknown token kind %d", tt.Kind)
	}
	return nil
}

// ReadFile loads records previously written by WriteFile.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("templatesio: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("templatesio: read magic: %w", err)
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("templatesio: bad magic number 0x%x in %s", magic, path)
	}
	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("templatesio: read version: %w", err)
	}
	var numRecords uint32
	if err := binary.Read(r, binary.LittleEndian, &numRecords); err != nil {
		return nil, fmt.Errorf("templatesio: read record count: %w", err)
	}

	records := make([]Record, numRecords)
	for i := range records {
		rec, err := readRecord(r)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func readRecord(r io.Reader) (Record, error) {
	var rec Record
	if err := binary.Read(r, binary.LittleEndian, &rec.TemplateID); err != nil {
		return rec, fmt.Errorf("templatesio: read template id: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.NumDocs); err != nil {
		return rec, fmt.Errorf("templatesio: read doc count: %w", err)
	}
	var numTokens uint32
	if err := binary.Read(r, binary.LittleEndian, &numTokens); err != nil {
		return rec, fmt.Errorf("templatesio: read token count: %w", err)
	}

	rec.Tokens = make([]grouping.TemplateToken, numTokens)
	for i := range rec.Tokens {
		tt, err := readToken(r)
		if err != nil {
			return rec, err
		}
		rec.Tokens[i] = tt
	}
	return rec, nil
}

func readToken(r io.Reader) (grouping.TemplateToken, error) {
	var tt grouping.TemplateToken
	if err := binary.Read(r, binary.LittleEndian, &tt.TokenIndex); err != nil {
		return tt, fmt.Errorf("templatesio: read token index: %w", err)
	}

	var kind tokenKindWire
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return tt, fmt.Errorf("templatesio: read token kind: %w", err)
	}

	switch kind {
	case wireConstant:
		tt.Kind = grouping.TokConstant
		var constType uint8
		if err := binary.Read(r, binary.LittleEndian, &constType); err != nil {
			return tt, fmt.Errorf("templatesio: read const type: %w", err)
		}
		tt.ConstType = tokenizer.TokenType(constType)
		if err := binary.Read(r, binary.LittleEndian, &tt.ConstTermID); err != nil {
			return tt, fmt.Errorf("templatesio: read const term id: %w", err)
		}
		var textLen uint16
		if err := binary.Read(r, binary.LittleEndian, &textLen); err != nil {
			return tt, fmt.Errorf("templatesio: read const text length: %w", err)
		}
		text := make([]byte, textLen)
		if _, err := io.ReadFull(r, text); err != nil {
			return tt, fmt.Errorf("templatesio: read const text: %w", err)
		}
		tt.ConstText = string(text)

	case wireVariable:
		tt.Kind = grouping.TokVariable
		var isIDLike uint8
		if err := binary.Read(r, binary.LittleEndian, &isIDLike); err != nil {
			return tt, fmt.Errorf("templatesio: read is-id-like: %w", err)
		}
		tt.IsIDLike = isIDLike != 0
		var columnIndex uint32
		if err := binary.Read(r, binary.LittleEndian, &columnIndex); err != nil {
			return tt, fmt.Errorf("templatesio: read column index: %w", err)
		}
		tt.ColumnIndex = int(columnIndex)

	case wireWhitespace:
		tt.Kind = grouping.TokWhitespace
		if err := binary.Read(r, binary.LittleEndian, &tt.WSLen); err != nil {
			return tt, fmt.Errorf("templatesio: read whitespace length: %w", err)
		}

	default:
		return tt, fmt.Errorf("templatesio: unknown wire token kind %d", kind)
	}
	return tt, nil
}
