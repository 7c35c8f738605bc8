package assign

import (
	"testing"

	"moshiki/internal/config"
	"moshiki/internal/grouping"
)

func TestTemplateIDsSequential(t *testing.T) {
	groups := []*grouping.DocGroup{{}, {}, {}}
	TemplateIDs(groups)
	for i, g := range groups {
		if g.Template.TemplateID != uint32(i) {
			t.Fatalf("expected template id %d, got %d", i, g.Template.TemplateID)
		}
	}
}

func TestTemplateIDSetSingleStaysUnboxed(t *testing.T) {
	var s TemplateIDSet
	s.Insert(5)
	s.Insert(5)
	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}
	if s.many != nil {
		t.Fatalf("expected single-template set to stay unboxed")
	}
	if got := s.Slice(); len(got) != 1 || got[0] != 5 {
		t.Fatalf("expected [5], got %v", got)
	}
}

func TestTemplateIDSetPromotesToMany(t *testing.T) {
	var s TemplateIDSet
	s.Insert(5)
	s.Insert(2)
	s.Insert(5)
	s.Insert(9)

	got := s.Slice()
	want := []uint32{2, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestTermsToTemplatesSmallColumn(t *testing.T) {
	groups := []*grouping.DocGroup{
		{Columns: [][]uint32{{0, 1, 0, 2}}},
	}
	TemplateIDs(groups)

	sets := TermsToTemplates(groups, 3, config.Default())
	if sets[0].Len() != 1 || sets[0].Slice()[0] != 0 {
		t.Fatalf("expected term 0 to map to template 0, got %v", sets[0].Slice())
	}
	if sets[1].Len() != 1 {
		t.Fatalf("expected term 1 to map to 1 template")
	}
}

func TestTermsToTemplatesLargeColumnPath(t *testing.T) {
	cfg := config.Default()
	cfg.LargeColumnRows = 5

	col := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		col = append(col, uint32(i%3))
	}
	groups := []*grouping.DocGroup{{Columns: [][]uint32{col}}}
	TemplateIDs(groups)

	sets := TermsToTemplates(groups, 3, cfg)
	for termID := 0; termID < 3; termID++ {
		if sets[termID].Len() != 1 || sets[termID].Slice()[0] != 0 {
			t.Fatalf("expected term %d to map to template 0, got %v", termID, sets[termID].Slice())
		}
	}
}

func TestTermAcrossMultipleTemplates(t *testing.T) {
	groups := []*grouping.DocGroup{
		{Columns: [][]uint32{{7}}},
		{Columns: [][]uint32{{7}}},
	}
	TemplateIDs(groups)

	sets := TermsToTemplates(groups, 8, config.Default())
	if sets[7].Len() != 2 {
		t.Fatalf("expected term 7 to span 2 templates, got %d", sets[7].Len())
	}
}
