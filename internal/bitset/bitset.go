// Package bitset provides a compressed bitmap of uint32 values, used to
// track which term ids have already been assigned to a template while
// scanning a very large column. Values split on their high 16 bits into
// per-key containers, each either a sorted array (sparse) or a fixed
// bitmap (dense), mirroring the roaring bitmap layout.
package bitset

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"sort"
)

// ContainerConversionThreshold is the cardinality past which an
// ArrayContainer converts itself into a BitmapContainer.
const ContainerConversionThreshold = 4096

// Container is a set of up to 65536 uint16 values.
type Container interface {
	Add(value uint16)
	Contains(value uint16) bool
	Cardinality() int
	Union(other Container) Container
	Serialize(io.Writer) error
	Deserialize(io.Reader) error
}

// ArrayContainer stores a sorted, deduplicated slice of values. Efficient
// for sparse containers (cardinality well under the conversion threshold).
type ArrayContainer struct {
	values  []uint16
	encoder ArrayEncoderDecoder
}

// NewArrayContainer returns an empty ArrayContainer.
func NewArrayContainer() *ArrayContainer {
	return &ArrayContainer{encoder: NewDeltaEncoder(128)}
}

func (ac *ArrayContainer) Add(value uint16) {
	i := sort.Search(len(ac.values), func(i int) bool { return ac.values[i] >= value })
	if i < len(ac.values) && ac.values[i] == value {
		return
	}
	ac.values = append(ac.values, 0)
	copy(ac.values[i+1:], ac.values[i:])
	ac.values[i] = value
}

func (ac *ArrayContainer) Contains(value uint16) bool {
	i := sort.Search(len(ac.values), func(i int) bool { return ac.values[i] >= value })
	return i < len(ac.values) && ac.values[i] == value
}

func (ac *ArrayContainer) Cardinality() int { return len(ac.values) }

func (ac *ArrayContainer) Union(other Container) Container {
	switch o := other.(type) {
	case *ArrayContainer:
		result := NewArrayContainer()
		i, j := 0, 0
		for i < len(ac.values) && j < len(o.values) {
			switch {
			case ac.values[i] < o.values[j]:
				result.values = append(result.values, ac.values[i])
				i++
			case ac.values[i] > o.values[j]:
				result.values = append(result.values, o.values[j])
				j++
			default:
				result.values = append(result.values, ac.values[i])
				i++
				j++
			}
		}
		result.values = append(result.values, ac.values[i:]...)
		result.values = append(result.values, o.values[j:]...)
		return result
	case *BitmapContainer:
		return o.Union(ac)
	}
	return nil
}

func (ac *ArrayContainer) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(ac.values))); err != nil {
		return fmt.Errorf("bitset: write array length: %w", err)
	}
	if err := ac.encoder.Encode(ac.values, w); err != nil {
		return fmt.Errorf("bitset: encode array: %w", err)
	}
	return nil
}

func (ac *ArrayContainer) Deserialize(r io.Reader) error {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return fmt.Errorf("bitset: read array length: %w", err)
	}
	values, err := ac.encoder.Decode(r, int(length))
	if err != nil {
		return fmt.Errorf("bitset: decode array: %w", err)
	}
	ac.values = values
	return nil
}

func (ac *ArrayContainer) toBitmap() *BitmapContainer {
	bc := NewBitmapContainer()
	for _, v := range ac.values {
		bc.Add(v)
	}
	return bc
}

// BitmapContainer stores membership as a fixed 65536-bit bitmap. Efficient
// for dense containers.
type BitmapContainer struct {
	words       []uint64
	cardinality int
}

// NewBitmapContainer returns a BitmapContainer sized to hold every uint16.
func NewBitmapContainer() *BitmapContainer {
	return &BitmapContainer{words: make([]uint64, 1024)}
}

func (bc *BitmapContainer) Add(value uint16) {
	word, bit := value/64, value%64
	if (bc.words[word] & (1 << bit)) == 0 {
		bc.words[word] |= 1 << bit
		bc.cardinality++
	}
}

func (bc *BitmapContainer) Contains(value uint16) bool {
	word, bit := value/64, value%64
	return (bc.words[word] & (1 << bit)) != 0
}

func (bc *BitmapContainer) Cardinality() int { return bc.cardinality }

func (bc *BitmapContainer) Union(other Container) Container {
	switch o := other.(type) {
	case *BitmapContainer:
		result := NewBitmapContainer()
		for i := range bc.words {
			result.words[i] = bc.words[i] | o.words[i]
		}
		result.cardinality = 0
		for _, w := range result.words {
			result.cardinality += bits.OnesCount64(w)
		}
		return result
	case *ArrayContainer:
		return bc.Union(o.toBitmap())
	}
	return nil
}

func (bc *BitmapContainer) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(bc.words))); err != nil {
		return fmt.Errorf("bitset: write bitmap length: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, bc.words); err != nil {
		return fmt.Errorf("bitset: write bitmap words: %w", err)
	}
	return nil
}

func (bc *BitmapContainer) Deserialize(r io.Reader) error {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return fmt.Errorf("bitset: read bitmap length: %w", err)
	}
	bc.words = make([]uint64, length)
	if err := binary.Read(r, binary.LittleEndian, bc.words); err != nil {
		return fmt.Errorf("bitset: read bitmap words: %w", err)
	}
	bc.cardinality = 0
	for _, w := range bc.words {
		bc.cardinality += bits.OnesCount64(w)
	}
	return nil
}

// Set is a compressed set of uint32 values, split on the high 16 bits into
// per-key Containers.
type Set struct {
	containers  map[uint16]Container
	cardinality int
}

// New returns an empty Set.
func New() *Set {
	return &Set{containers: make(map[uint16]Container)}
}

// Add inserts value, converting its container from array to bitmap once it
// grows past ContainerConversionThreshold.
func (s *Set) Add(value uint32) {
	key, low := uint16(value>>16), uint16(value)

	c, ok := s.containers[key]
	if !ok {
		c = NewArrayContainer()
		s.containers[key] = c
	}

	before := c.Cardinality()
	c.Add(low)
	if c.Cardinality() > before {
		s.cardinality++
	}

	if ac, ok := c.(*ArrayContainer); ok && ac.Cardinality() > ContainerConversionThreshold {
		s.containers[key] = ac.toBitmap()
	}
}

// Contains reports whether value has been added.
func (s *Set) Contains(value uint32) bool {
	key, low := uint16(value>>16), uint16(value)
	c, ok := s.containers[key]
	if !ok {
		return false
	}
	return c.Contains(low)
}

// Cardinality returns the total number of distinct values added.
func (s *Set) Cardinality() int { return s.cardinality }

// Union returns a new Set containing every value in either s or other.
func (s *Set) Union(other *Set) *Set {
	result := New()
	for key, c := range s.containers {
		result.containers[key] = c
		result.cardinality += c.Cardinality()
	}
	for key, c := range other.containers {
		if existing, ok := result.containers[key]; ok {
			merged := existing.Union(c)
			result.cardinality += merged.Cardinality() - existing.Cardinality()
			result.containers[key] = merged
		} else {
			result.containers[key] = c
			result.cardinality += c.Cardinality()
		}
	}
	return result
}
