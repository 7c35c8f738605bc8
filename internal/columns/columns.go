// Package columns persists the per-template variable columns produced by
// grouping and split: one file per column, holding a zstd-compressed array
// of term ids. Term ids are written after remapping through the dictionary
// build's old-to-new table, so a stored column already reads back in the
// ids a dictionary lookup will hand out.
package columns

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"moshiki/internal/obslog"
)

const (
	magicNumber   uint32 = 0x4D534B43 // "MSKC"
	formatVersion uint8  = 1
)

var log = obslog.Named("columns")

// Writer compresses and persists column files under a base directory.
type Writer struct {
	dir   string
	level zstd.EncoderLevel
}

// NewWriter returns a Writer that stores column files under dir, using the
// encoder level that corresponds to zstd level 6.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, level: zstd.EncoderLevelFromZstd(6)}
}

// Path returns the file path for the column at colIdx within templateID.
func Path(dir string, templateID uint32, colIdx int) string {
	return filepath.Join(dir, fmt.Sprintf("template_%d.col%d.zst", templateID, colIdx))
}

// Remap rewrites col's term ids through oldToNew, in place, and returns it.
func Remap(col []uint32, oldToNew []uint32) []uint32 {
	for i, id := range col {
		col[i] = oldToNew[id]
	}
	return col
}

// WriteColumn serializes values (a remapped term-id column) as a
// length-prefixed uint32 array, zstd-compresses it, and writes it to
// Path(w.dir, templateID, colIdx).
func (w *Writer) WriteColumn(templateID uint32, colIdx int, values []uint32) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("columns: mkdir %s: %w", w.dir, err)
	}

	path := Path(w.dir, templateID, colIdx)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("columns: create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := binary.Write(bw, binary.LittleEndian, magicNumber); err != nil {
		return fmt.Errorf("columns: write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVersion); err != nil {
		return fmt.Errorf("columns: write version: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(values))); err != nil {
		return fmt.Errorf("columns: write row count: %w", err)
	}

	enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(w.level))
	if err != nil {
		return fmt.Errorf("columns: new zstd writer: %w", err)
	}
	if err := binary.Write(enc, binary.LittleEndian, values); err != nil {
		_ = enc.Close()
		return fmt.Errorf("columns: compress column: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("columns: close zstd writer: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("columns: flush %s: %w", path, err)
	}
	log.Debug(fmt.Sprintf("wrote column template=%d col=%d rows=%d", templateID, colIdx, len(values)))
	return nil
}

// ReadColumn loads and decompresses a column file written by WriteColumn.
func ReadColumn(path string) ([]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("columns: read %s: %w", path, err)
	}
	r := bytes.NewReader(raw)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("columns: read magic: %w", err)
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("columns: bad magic number 0x%x in %s", magic, path)
	}
	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("columns: read version: %w", err)
	}
	var numRows uint32
	if err := binary.Read(r, binary.LittleEndian, &numRows); err != nil {
		return nil, fmt.Errorf("columns: read row count: %w", err)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("columns: new zstd reader: %w", err)
	}
	defer dec.Close()

	values := make([]uint32, numRows)
	if err := binary.Read(dec, binary.LittleEndian, values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("columns: decompress column: %w", err)
	}
	return values, nil
}
