package search

import "testing"

func TestMultiTermQueryRequiresAllTerms(t *testing.T) {
	dir := t.TempDir()
	idx := buildIndex(t, dir, []string{
		"user alice action login",
		"user alice action logout",
		"user bob action login",
	})

	hits, err := idx.MultiTermQuery([]string{"alice", "login"}, func(a, b ScoredDoc) bool {
		return a.Score > b.Score
	})
	if err != nil {
		t.Fatalf("MultiTermQuery failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly 1 row carrying both 'alice' and 'login', got %d", len(hits))
	}
}

func TestMultiTermQueryUnknownTermReturnsNoHits(t *testing.T) {
	dir := t.TempDir()
	idx := buildIndex(t, dir, []string{"user alice action login"})

	hits, err := idx.MultiTermQuery([]string{"alice", "nonexistent"}, func(a, b ScoredDoc) bool {
		return a.Score > b.Score
	})
	if err != nil {
		t.Fatalf("MultiTermQuery failed: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected no hits when a term is absent from the dictionary, got %v", hits)
	}
}

func TestMultiTermQueryOrdersByProvidedComparator(t *testing.T) {
	dir := t.TempDir()
	idx := buildIndex(t, dir, []string{
		"event ok alice",
		"event ok alice",
		"event fail bob",
	})

	hits, err := idx.MultiTermQuery([]string{"ok", "alice"}, func(a, b ScoredDoc) bool {
		return a.Row < b.Row
	})
	if err != nil {
		t.Fatalf("MultiTermQuery failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 rows carrying both 'ok' and 'alice', got %d", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i-1].Row > hits[i].Row {
			t.Fatalf("expected hits ordered by ascending row, got %v", hits)
		}
	}
}
