package arena

import "github.com/spaolacci/murmur3"

type entry[V any] struct {
	addr   Addr
	hash   uint32
	value  V
	filled bool
}

// SharedHashMap maps arbitrary byte-string keys to a value of type V. Key
// bytes are stored once in a shared Arena; the table itself only ever holds
// a hash, an Addr, and the value, so growing the table never touches key
// storage.
type SharedHashMap[V any] struct {
	table []entry[V]
	mask  uint32
	count int
}

// NewSharedHashMap returns a table of capacity slots, rounded up to the
// next power of two (minimum 4). The table doubles once it is half full,
// so it holds half that many entries before its first resize.
func NewSharedHashMap[V any](capacity int) *SharedHashMap[V] {
	size := nextPowerOfTwo(capacity)
	if size < 4 {
		size = 4
	}
	return &SharedHashMap[V]{
		table: make([]entry[V], size),
		mask:  uint32(size - 1),
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns the number of distinct keys stored.
func (m *SharedHashMap[V]) Len() int { return m.count }

func (m *SharedHashMap[V]) isSaturated() bool {
	return len(m.table) <= m.count*2
}

func probeStart(hash uint32) uint32 { return hash }

func (m *SharedHashMap[V]) nextProbe(pos uint32) uint32 {
	return (pos + 1) & m.mask
}

func (m *SharedHashMap[V]) resize() {
	newLen := len(m.table) * 2
	if newLen < 8 {
		newLen = 8
	}
	newMask := uint32(newLen - 1)
	newTable := make([]entry[V], newLen)

	for _, e := range m.table {
		if !e.filled {
			continue
		}
		pos := e.hash & newMask
		for {
			if !newTable[pos].filled {
				newTable[pos] = e
				break
			}
			pos = (pos + 1) & newMask
		}
	}

	m.table = newTable
	m.mask = newMask
}

// Get looks up key and reports whether it is present.
func (m *SharedHashMap[V]) Get(key []byte, ar *Arena) (V, bool) {
	hash := murmur3.Sum32(key)
	pos := probeStart(hash) & m.mask
	for {
		e := m.table[pos]
		if !e.filled {
			var zero V
			return zero, false
		}
		if e.hash == hash && bytesEqual(ar.Bytes(e.addr), key) {
			return e.value, true
		}
		pos = m.nextProbe(pos)
	}
}

// MutateOrCreate looks up key. If absent, update is called with the zero
// value of V and had=false, and its result is stored as the new entry after
// copying key into ar. If present, update is called with the stored value
// and had=true, and its result replaces it. The final stored value is
// returned.
func (m *SharedHashMap[V]) MutateOrCreate(key []byte, ar *Arena, update func(old V, had bool) V) V {
	if m.isSaturated() {
		m.resize()
	}

	if len(key) > 0xFFFF {
		key = key[:0xFFFF]
	}

	hash := murmur3.Sum32(key)
	pos := probeStart(hash) & m.mask

	for {
		e := m.table[pos]
		if !e.filled {
			var zero V
			newVal := update(zero, false)
			addr := ar.Put(key)
			m.table[pos] = entry[V]{addr: addr, hash: hash, value: newVal, filled: true}
			m.count++
			return newVal
		}
		if e.hash == hash && bytesEqual(ar.Bytes(e.addr), key) {
			newVal := update(e.value, true)
			m.table[pos].value = newVal
			return newVal
		}
		pos = m.nextProbe(pos)
	}
}

// Iter returns a fresh Iterator over all (key, value) pairs in arbitrary
// order.
func (m *SharedHashMap[V]) Iter(ar *Arena) *Iterator[V] {
	return &Iterator[V]{m: m, ar: ar, pos: -1}
}

// Iterator walks a SharedHashMap's filled entries one at a time.
type Iterator[V any] struct {
	m   *SharedHashMap[V]
	ar  *Arena
	pos int
}

// Next advances the iterator and reports whether an entry is available.
func (it *Iterator[V]) Next() bool {
	for {
		it.pos++
		if it.pos >= len(it.m.table) {
			return false
		}
		if it.m.table[it.pos].filled {
			return true
		}
	}
}

// Key returns the key at the iterator's current position.
func (it *Iterator[V]) Key() []byte {
	return it.ar.Bytes(it.m.table[it.pos].addr)
}

// Value returns the value at the iterator's current position.
func (it *Iterator[V]) Value() V {
	return it.m.table[it.pos].value
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
