package templatesio

import (
	"testing"

	"moshiki/internal/config"
	"moshiki/internal/grouping"
	"moshiki/internal/tokenizer"
)

func TestFromGroupsAndRoundTrip(t *testing.T) {
	cfg := config.Default()
	dg := grouping.New(cfg)
	dg.Ingest("status ok req-1")
	dg.Ingest("status ok req-2")
	dg.Ingest("status fail req-3")

	groups := make([]*grouping.DocGroup, 0, len(dg.Order))
	for _, fp := range dg.Order {
		groups = append(groups, dg.Groups[fp])
	}
	for i, g := range groups {
		g.Template.TemplateID = uint32(i)
	}

	records := FromGroups(groups)
	if len(records) != len(groups) {
		t.Fatalf("expected %d records, got %d", len(groups), len(records))
	}

	path := t.TempDir() + "/templates.bin"
	if err := WriteFile(path, records); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d records back, got %d", len(records), len(got))
	}

	for i, want := range records {
		have := got[i]
		if have.TemplateID != want.TemplateID || have.NumDocs != want.NumDocs {
			t.Fatalf("record %d: expected id=%d docs=%d, got id=%d docs=%d",
				i, want.TemplateID, want.NumDocs, have.TemplateID, have.NumDocs)
		}
		if len(have.Tokens) != len(want.Tokens) {
			t.Fatalf("record %d: expected %d tokens, got %d", i, len(want.Tokens), len(have.Tokens))
		}
		for j := range want.Tokens {
			wt, ht := want.Tokens[j], have.Tokens[j]
			if wt.Kind != ht.Kind || wt.TokenIndex != ht.TokenIndex {
				t.Fatalf("record %d token %d: kind/index mismatch: want %+v got %+v", i, j, wt, ht)
			}
			switch wt.Kind {
			case grouping.TokConstant:
				if wt.ConstText != ht.ConstText || wt.ConstTermID != ht.ConstTermID || wt.ConstType != ht.ConstType {
					t.Fatalf("record %d token %d: constant mismatch: want %+v got %+v", i, j, wt, ht)
				}
			case grouping.TokVariable:
				if wt.ColumnIndex != ht.ColumnIndex || wt.IsIDLike != ht.IsIDLike {
					t.Fatalf("record %d token %d: variable mismatch: want %+v got %+v", i, j, wt, ht)
				}
			case grouping.TokWhitespace:
				if wt.WSLen != ht.WSLen {
					t.Fatalf("record %d token %d: whitespace mismatch: want %+v got %+v", i, j, wt, ht)
				}
			}
		}
	}
}

func TestConstTokenRoundTripsTokenType(t *testing.T) {
	cfg := config.Default()
	dg := grouping.New(cfg)
	dg.Ingest("src: 10.10.34.30 count 42")

	var group *grouping.DocGroup
	for _, fp := range dg.Order {
		group = dg.Groups[fp]
	}
	group.Template.TemplateID = 0

	records := FromGroups([]*grouping.DocGroup{group})
	path := t.TempDir() + "/templates.bin"
	if err := WriteFile(path, records); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	foundIPv4 := false
	foundNumber := false
	for _, tt := range got[0].Tokens {
		if tt.Kind != grouping.TokConstant {
			continue
		}
		if tt.ConstType == tokenizer.IPv4 {
			foundIPv4 = true
		}
		if tt.ConstType == tokenizer.Number {
			foundNumber = true
		}
	}
	if !foundIPv4 || !foundNumber {
		t.Fatalf("expected IPv4 and Number constant token types to round-trip, got %+v", got[0].Tokens)
	}
}
