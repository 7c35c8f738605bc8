package dictionary

import (
	"os"
	"testing"

	"moshiki/internal/assign"
	"moshiki/internal/termmap"
)

func TestBuildSortsAndRemaps(t *testing.T) {
	terms := termmap.New()
	idBanana := terms.Intern([]byte("banana"), false)
	idApple := terms.Intern([]byte("apple"), false)
	idCherry := terms.Intern([]byte("cherry"), false)

	sets := make([]assign.TemplateIDSet, terms.NumTerms())
	sets[idBanana].Insert(3)
	sets[idApple].Insert(1)
	sets[idCherry].Insert(2)

	entries, oldToNew := Build(terms, sets)

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"apple", "banana", "cherry"}
	for i, w := range want {
		if string(entries[i].Term) != w {
			t.Fatalf("expected entry %d to be %q, got %q", i, w, entries[i].Term)
		}
	}

	if oldToNew[idApple] != 0 || oldToNew[idBanana] != 1 || oldToNew[idCherry] != 2 {
		t.Fatalf("unexpected remap: %v", oldToNew)
	}
}

func TestBuildCoalescesEqualIDLikeDuplicates(t *testing.T) {
	terms := termmap.New()
	idFirst := terms.Intern([]byte("req-1"), true)
	idSecond := terms.Intern([]byte("req-1"), true)
	if idFirst == idSecond {
		t.Fatalf("id-like interning should never dedup, got same id twice")
	}

	sets := make([]assign.TemplateIDSet, terms.NumTerms())
	sets[idFirst].Insert(5)
	sets[idSecond].Insert(7)

	entries, oldToNew := Build(terms, sets)

	if len(entries) != 1 {
		t.Fatalf("expected duplicate term bytes to coalesce into 1 entry, got %d", len(entries))
	}
	if entries[0].TemplateIDs[0] != 5 || entries[0].TemplateIDs[1] != 7 {
		t.Fatalf("expected postings [5 7], got %v", entries[0].TemplateIDs)
	}
	if oldToNew[idFirst] != oldToNew[idSecond] {
		t.Fatalf("expected both old ids to remap to the same new id")
	}
}

func TestBuildSkipsTermsWithNoTemplates(t *testing.T) {
	terms := termmap.New()
	terms.Intern([]byte("only-a-constant"), false)
	usedID := terms.Intern([]byte("also-a-column-value"), false)

	sets := make([]assign.TemplateIDSet, terms.NumTerms())
	sets[usedID].Insert(0)

	entries, _ := Build(terms, sets)

	if len(entries) != 1 {
		t.Fatalf("expected terms with empty posting lists to be skipped, got %d entries", len(entries))
	}
	if string(entries[0].Term) != "also-a-column-value" {
		t.Fatalf("unexpected surviving entry: %q", entries[0].Term)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	entries := []Entry{
		{Term: []byte("alpha"), TemplateIDs: []uint32{0, 2}},
		{Term: []byte("beta"), TemplateIDs: []uint32{1}},
		{Term: []byte("gamma"), TemplateIDs: []uint32{0, 1, 2}},
	}

	path := t.TempDir() + "/dict.bin"
	if err := WriteFile(path, entries); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i, e := range entries {
		if string(got[i].Term) != string(e.Term) {
			t.Fatalf("entry %d: expected term %q, got %q", i, e.Term, got[i].Term)
		}
		if len(got[i].TemplateIDs) != len(e.TemplateIDs) {
			t.Fatalf("entry %d: expected %d postings, got %d", i, len(e.TemplateIDs), len(got[i].TemplateIDs))
		}
		for j := range e.TemplateIDs {
			if got[i].TemplateIDs[j] != e.TemplateIDs[j] {
				t.Fatalf("entry %d posting %d: expected %d, got %d", i, j, e.TemplateIDs[j], got[i].TemplateIDs[j])
			}
		}
	}
}

func TestReadFileRejectsBadMagic(t *testing.T) {
	path := t.TempDir() + "/bad.bin"
	if err := os.WriteFile(path, []byte("not a dictionary file"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Fatalf("expected an error reading a file with a bad magic number")
	}
}

func TestFind(t *testing.T) {
	entries := []Entry{
		{Term: []byte("alpha"), TemplateIDs: []uint32{0}},
		{Term: []byte("beta"), TemplateIDs: []uint32{1}},
		{Term: []byte("gamma"), TemplateIDs: []uint32{2}},
	}

	got, ok := Find(entries, []byte("beta"))
	if !ok || got.TemplateIDs[0] != 1 {
		t.Fatalf("expected to find beta mapped to template 1, got %v ok=%v", got, ok)
	}

	if _, ok := Find(entries, []byte("missing")); ok {
		t.Fatalf("expected Find to report no match for an absent term")
	}
}
