package arena

import (
	"sort"
	"strconv"
	"testing"
)

func TestHashMapBasic(t *testing.T) {
	ar := New(0)
	m := NewSharedHashMap[uint32](0)

	m.MutateOrCreate([]byte("abc"), ar, func(old uint32, had bool) uint32 {
		if had {
			t.Fatalf("expected no prior value for abc")
		}
		return 3
	})
	m.MutateOrCreate([]byte("abcd"), ar, func(old uint32, had bool) uint32 {
		if had {
			t.Fatalf("expected no prior value for abcd")
		}
		return 4
	})
	m.MutateOrCreate([]byte("abc"), ar, func(old uint32, had bool) uint32 {
		if !had || old != 3 {
			t.Fatalf("expected prior value 3 for abc, got had=%v old=%d", had, old)
		}
		return 5
	})

	if m.Len() != 2 {
		t.Fatalf("expected 2 distinct keys, got %d", m.Len())
	}

	v, ok := m.Get([]byte("abc"), ar)
	if !ok || v != 5 {
		t.Fatalf("expected abc=5, got v=%d ok=%v", v, ok)
	}
}

func TestHashMapEmptyGet(t *testing.T) {
	ar := New(0)
	m := NewSharedHashMap[uint32](0)
	if _, ok := m.Get([]byte("abc"), ar); ok {
		t.Fatalf("expected no entry in empty map")
	}
}

func TestHashMapLongKeyTruncation(t *testing.T) {
	ar := New(0)
	m := NewSharedHashMap[uint32](0)

	key1 := make([]byte, 0xFFFF)
	for i := range key1 {
		key1[i] = byte(i)
	}
	m.MutateOrCreate(key1, ar, func(old uint32, had bool) uint32 {
		if had {
			t.Fatalf("expected fresh insert")
		}
		return 4
	})

	key2 := make([]byte, 0xFFFF+1)
	copy(key2, key1)
	key2[0xFFFF] = 0xFF
	m.MutateOrCreate(key2, ar, func(old uint32, had bool) uint32 {
		if !had || old != 4 {
			t.Fatalf("expected truncated key to collide with key1, had=%v old=%d", had, old)
		}
		return 3
	})

	if m.Len() != 1 {
		t.Fatalf("expected truncation to collapse both inserts into one entry, got %d", m.Len())
	}
}

func TestHashMapManyTerms(t *testing.T) {
	ar := New(0)
	m := NewSharedHashMap[uint32](0)

	const n = 20_000
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s := strconv.Itoa(i)
		want = append(want, s)
		m.MutateOrCreate([]byte(s), ar, func(old uint32, had bool) uint32 { return 5 })
	}

	got := make([]string, 0, n)
	it := m.Iter(ar)
	for it.Next() {
		got = append(got, string(it.Key()))
	}

	sort.Strings(want)
	sort.Strings(got)

	if len(got) != len(want) {
		t.Fatalf("expected %d distinct terms, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: want %q got %q", i, want[i], got[i])
		}
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 8: 8, 9: 16}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Fatalf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
