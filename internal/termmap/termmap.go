// Package termmap interns term bytes into dense uint32 term ids. Most
// columns go through a hashed store so repeated values collapse to one id;
// columns flagged id-like (near-unique, e.g. request ids) instead append
// every term to a flat log and skip the hash lookup entirely, since a hash
// table that never finds a match is pure overhead.
package termmap

import "moshiki/internal/arena"

// TermMap assigns term ids out of a single shared counter, whether a term
// arrives through the hashed path or the id-like path. Ids are therefore
// unique across both stores without either one knowing about the other.
type TermMap struct {
	ar         *arena.Arena
	regular    *arena.SharedHashMap[uint32]
	idLike     []byte
	nextTermID uint32
}

// New returns an empty TermMap.
func New() *TermMap {
	return &TermMap{
		ar:      arena.New(0),
		regular: arena.NewSharedHashMap[uint32](1024),
		idLike:  make([]byte, 0, 1<<20),
	}
}

// Intern assigns (or looks up) the term id for key. When isIDLike is true,
// key is unconditionally appended as a new term in the flat log — callers
// must only pass isIDLike=true for a column already flagged id-like, since
// this path never deduplicates.
func (tm *TermMap) Intern(key []byte, isIDLike bool) uint32 {
	if isIDLike {
		id := tm.nextTermID
		tm.pushUnique(key, id)
		tm.nextTermID++
		return id
	}

	return tm.regular.MutateOrCreate(key, tm.ar, func(old uint32, had bool) uint32 {
		if had {
			return old
		}
		id := tm.nextTermID
		tm.nextTermID++
		return id
	})
}

func (tm *TermMap) pushUnique(key []byte, id uint32) {
	var lenBuf [4]byte
	putUint32(lenBuf[:], uint32(len(key)))
	tm.idLike = append(tm.idLike, lenBuf[:]...)
	tm.idLike = append(tm.idLike, key...)
	var idBuf [4]byte
	putUint32(idBuf[:], id)
	tm.idLike = append(tm.idLike, idBuf[:]...)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// NumTerms returns the total number of terms interned across both stores.
func (tm *TermMap) NumTerms() int { return int(tm.nextTermID) }

// FindTermForTermID scans both stores for the term bytes that map to id.
// This is expensive (linear in the number of interned terms); the split
// pass uses it to recover a split-out term's text, and the hot
// reconstruction path carries its own dictionary lookups instead.
func (tm *TermMap) FindTermForTermID(id uint32) ([]byte, bool) {
	it := tm.regular.Iter(tm.ar)
	for it.Next() {
		if it.Value() == id {
			return it.Key(), true
		}
	}

	pos := 0
	for pos+4 <= len(tm.idLike) {
		n := int(getUint32(tm.idLike[pos : pos+4]))
		pos += 4
		if pos+n+4 > len(tm.idLike) {
			break
		}
		bytes := tm.idLike[pos : pos+n]
		pos += n
		termID := getUint32(tm.idLike[pos : pos+4])
		pos += 4
		if termID == id {
			return bytes, true
		}
	}

	return nil, false
}

// Iterator walks every (term bytes, term id) pair across both the regular
// and id-like stores in undefined order.
type Iterator struct {
	regular *arena.Iterator[uint32]
	idLike  []byte
	pos     int
	done    bool

	key []byte
	val uint32
}

// Iter returns a fresh Iterator over tm.
func (tm *TermMap) Iter() *Iterator {
	return &Iterator{regular: tm.regular.Iter(tm.ar), idLike: tm.idLike}
}

// Next advances the iterator and reports whether an entry is available.
func (it *Iterator) Next() bool {
	if !it.done {
		if it.regular.Next() {
			it.key = it.regular.Key()
			it.val = it.regular.Value()
			return true
		}
		it.done = true
	}

	if it.pos+4 > len(it.idLike) {
		return false
	}
	n := int(getUint32(it.idLike[it.pos : it.pos+4]))
	it.pos += 4
	if it.pos+n+4 > len(it.idLike) {
		return false
	}
	it.key = it.idLike[it.pos : it.pos+n]
	it.pos += n
	it.val = getUint32(it.idLike[it.pos : it.pos+4])
	it.pos += 4
	return true
}

// Key returns the term bytes at the iterator's current position.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the term id at the iterator's current position.
func (it *Iterator) Value() uint32 { return it.val }
