package split

import (
	"testing"

	"moshiki/internal/config"
	"moshiki/internal/grouping"
)

func TestSplitDisabledIsNoop(t *testing.T) {
	cfg := config.Default()
	dg := grouping.New(cfg)
	for i := 0; i < 5; i++ {
		dg.Ingest("value x")
	}
	var groups []*grouping.DocGroup
	for _, g := range dg.Groups {
		groups = append(groups, g)
	}

	out := Groups(groups, dg.Terms, cfg)
	if len(out) != len(groups) {
		t.Fatalf("expected split disabled to be a no-op, got %d groups from %d", len(out), len(groups))
	}
}

func TestSplitExtractsDominantValue(t *testing.T) {
	cfg := config.Default()
	cfg.SplitEnabled = true
	cfg.SplitThreshold = 5

	dg := grouping.New(cfg)
	// 10 lines with "common", 2 lines with distinct rare values: the
	// "common" value dominates its column well past the threshold.
	for i := 0; i < 10; i++ {
		dg.Ingest("value common")
	}
	dg.Ingest("value rare1")
	dg.Ingest("value rare2")

	var groups []*grouping.DocGroup
	for _, g := range dg.Groups {
		groups = append(groups, g)
	}
	if len(groups) != 1 {
		t.Fatalf("expected single fingerprint group before split, got %d", len(groups))
	}

	out := Groups(groups, dg.Terms, cfg)
	if len(out) != 2 {
		t.Fatalf("expected split to produce 2 groups (remainder + split-out), got %d", len(out))
	}

	var totalDocs int
	var foundConstantSplit bool
	for _, g := range out {
		totalDocs += g.NumDocs
		for _, tt := range g.Template.Tokens {
			if tt.Kind == grouping.TokConstant && tt.ConstText == "common" {
				foundConstantSplit = true
			}
		}
	}
	if totalDocs != 12 {
		t.Fatalf("expected total doc count preserved across split, got %d", totalDocs)
	}
	if !foundConstantSplit {
		t.Fatalf("expected one group to carry 'common' as a constant after splitting")
	}
}
