package bitset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ArrayEncoderDecoder encodes and decodes a sorted []uint16, used for an
// ArrayContainer's serialized form.
type ArrayEncoderDecoder interface {
	Encode(values []uint16, writer io.Writer) error
	Decode(reader io.Reader, length int) ([]uint16, error)
}

// DeltaEncoder stores each value as the varint-encoded difference from its
// predecessor. Falls back to PlainEncoder at minLen values or fewer, where the
// varint header overhead outweighs the savings.
type DeltaEncoder struct {
	minLen          int
	fallbackEncoder ArrayEncoderDecoder
}

// NewDeltaEncoder returns a DeltaEncoder that falls back to plain encoding
// for arrays of minLen values or fewer.
func NewDeltaEncoder(minLen int) *DeltaEncoder {
	return &DeltaEncoder{minLen: minLen, fallbackEncoder: NewPlainEncoder()}
}

func (d *DeltaEncoder) Encode(values []uint16, writer io.Writer) error {
	if len(values) <= d.minLen {
		return d.fallbackEncoder.Encode(values, writer)
	}

	if err := binary.Write(writer, binary.LittleEndian, values[0]); err != nil {
		return err
	}
	prev := values[0]
	for i := 1; i < len(values); i++ {
		delta := values[i] - prev
		prev = values[i]
		if err := writeVarint(writer, uint64(delta)); err != nil {
			return err
		}
	}
	return nil
}

func (d *DeltaEncoder) Decode(reader io.Reader, length int) ([]uint16, error) {
	if length == 0 {
		return []uint16{}, nil
	}
	if length <= d.minLen {
		return d.fallbackEncoder.Decode(reader, length)
	}

	values := make([]uint16, length)
	if err := binary.Read(reader, binary.LittleEndian, &values[0]); err != nil {
		return nil, err
	}
	prev := values[0]
	for i := 1; i < length; i++ {
		delta, err := readVarint(reader)
		if err != nil {
			return nil, err
		}
		values[i] = prev + uint16(delta)
		prev = values[i]
	}
	return values, nil
}

func writeVarint(writer io.Writer, value uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, value)
	_, err := writer.Write(buf[:n])
	return err
}

func readVarint(reader io.Reader) (uint64, error) {
	var value uint64
	var buf [1]byte
	var shift uint

	for {
		if _, err := reader.Read(buf[:]); err != nil {
			return 0, err
		}
		b := buf[0]
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 64 {
			return 0, errors.New("bitset: varint overflow")
		}
	}
	return value, nil
}

// PlainEncoder writes values verbatim, with no compression.
type PlainEncoder struct{}

func NewPlainEncoder() *PlainEncoder { return &PlainEncoder{} }

func (p *PlainEncoder) Encode(values []uint16, writer io.Writer) error {
	for _, v := range values {
		if err := binary.Write(writer, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("bitset: plain encode: %w", err)
		}
	}
	return nil
}

func (p *PlainEncoder) Decode(reader io.Reader, length int) ([]uint16, error) {
	values := make([]uint16, length)
	for i := 0; i < length; i++ {
		if err := binary.Read(reader, binary.LittleEndian, &values[i]); err != nil {
			return nil, fmt.Errorf("bitset: plain decode: %w", err)
		}
	}
	return values, nil
}
