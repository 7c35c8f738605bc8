package merge

import (
	"testing"

	"moshiki/internal/config"
	"moshiki/internal/grouping"
)

func TestMergeSmallGroupsAcrossDifferentTypes(t *testing.T) {
	cfg := config.Default()
	cfg.MergeConstantMinDocs = 1000
	cfg.MergeWhitespaceMinDocs = 100

	dg := grouping.New(cfg)
	// "alpha" tokenizes as Word, "123" as Number: different fingerprints,
	// but both groups have only 1 doc, well below the merge thresholds, so
	// every constant and whitespace position collapses to mergeable in the
	// signature regardless of its underlying token type.
	dg.Ingest("alpha started")
	dg.Ingest("123 started")

	if len(dg.Groups) != 2 {
		t.Fatalf("expected alpha/123 to land in separate fingerprint buckets, got %d", len(dg.Groups))
	}

	merged := Templates(dg, cfg)
	if len(merged) != 1 {
		t.Fatalf("expected small groups with below-threshold doc counts to merge into 1, got %d", len(merged))
	}
	if merged[0].NumDocs != 2 {
		t.Fatalf("expected merged group to carry both documents, got %d", merged[0].NumDocs)
	}

	var variableCount int
	for _, tt := range merged[0].Template.Tokens {
		if tt.Kind == grouping.TokVariable {
			variableCount++
		}
	}
	if variableCount == 0 {
		t.Fatalf("expected at least one position to become variable after merge")
	}
}

func TestNoMergeAcrossDifferentShapes(t *testing.T) {
	cfg := config.Default()
	dg := grouping.New(cfg)
	dg.Ingest("alpha started")
	dg.Ingest("totally different shape line here now")

	merged := Templates(dg, cfg)
	if len(merged) != 2 {
		t.Fatalf("expected differently-shaped groups to stay separate, got %d", len(merged))
	}
}

func TestSingletonGroupPassesThroughUnmerged(t *testing.T) {
	cfg := config.Default()
	dg := grouping.New(cfg)
	dg.Ingest("only one line here")

	merged := Templates(dg, cfg)
	if len(merged) != 1 {
		t.Fatalf("expected 1 group, got %d", len(merged))
	}
	if merged[0].NumDocs != 1 {
		t.Fatalf("expected NumDocs=1, got %d", merged[0].NumDocs)
	}
}
