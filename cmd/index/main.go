// Command moshiki-index ingests an ndjson log file, discovers its
// templates, and writes the on-disk dictionary/templates/column artifacts
// that cmd/search reads back.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"moshiki/internal/assign"
	"moshiki/internal/columns"
	"moshiki/internal/config"
	"moshiki/internal/dictionary"
	"moshiki/internal/grouping"
	"moshiki/internal/linesource"
	"moshiki/internal/merge"
	"moshiki/internal/obslog"
	"moshiki/internal/split"
	"moshiki/internal/templatesio"
)

var log = obslog.Named("index")

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: moshiki-index <ndjson_file> <output_folder>")
		os.Exit(1)
	}
	inputPath, outputDir := args[0], args[1]

	cfg := config.FromEnv()
	if err := run(inputPath, outputDir, cfg); err != nil {
		log.Error(err, "indexing failed")
		os.Exit(1)
	}
}

func run(inputPath, outputDir string, cfg config.Config) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output folder %s: %w", outputDir, err)
	}

	lines, err := linesource.Lines(inputPath)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	log.InfoFields("loaded input", map[string]interface{}{"path": inputPath, "lines": len(lines)})

	dg := grouping.New(cfg)
	for _, line := range lines {
		dg.Ingest(line)
	}

	groups := make([]*grouping.DocGroup, 0, len(dg.Order))
	for _, fp := range dg.Order {
		groups = append(groups, dg.Groups[fp])
	}

	// Split first, then re-bucket the post-split group set back into dg so
	// merge can run its own signature-based bucketing over it: a group
	// split runs produce have no fingerprint slot of their own yet.
	groups = split.Groups(groups, dg.Terms, cfg)
	dg.Groups = make(map[uint64]*grouping.DocGroup, len(groups))
	dg.Order = dg.Order[:0]
	for i, g := range groups {
		key := uint64(i)
		dg.Groups[key] = g
		dg.Order = append(dg.Order, key)
	}

	groups = merge.Templates(dg, cfg)
	groups = assign.TemplateIDs(groups)

	sets := assign.TermsToTemplates(groups, dg.Terms.NumTerms(), cfg)
	entries, oldToNew := dictionary.Build(dg.Terms, sets)

	if err := dictionary.WriteFile(filepath.Join(outputDir, "dictionary"), entries); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}

	records := templatesio.FromGroups(groups)
	for i := range records {
		for j := range records[i].Tokens {
			if records[i].Tokens[j].Kind == grouping.TokConstant {
				records[i].Tokens[j].ConstTermID = oldToNew[records[i].Tokens[j].ConstTermID]
			}
		}
	}
	if err := templatesio.WriteFile(filepath.Join(outputDir, "templates"), records); err != nil {
		return fmt.Errorf("write templates: %w", err)
	}

	w := columns.NewWriter(outputDir)
	for _, g := range groups {
		for colIdx, col := range g.Columns {
			remapped := columns.Remap(append([]uint32(nil), col...), oldToNew)
			if err := w.WriteColumn(g.Template.TemplateID, colIdx, remapped); err != nil {
				return fmt.Errorf("write column template=%d col=%d: %w", g.Template.TemplateID, colIdx, err)
			}
		}
	}

	if cfg.PrintStats {
		printStats(groups, dg.Terms.NumTerms(), len(entries))
	}

	log.InfoFields("indexing complete", map[string]interface{}{
		"templates": len(groups),
		"terms":     dg.Terms.NumTerms(),
		"output":    outputDir,
	})
	return nil
}

func printStats(groups []*grouping.DocGroup, numTerms, numDictEntries int) {
	fmt.Printf("--- moshiki indexing stats ---\n")
	fmt.Printf("templates:        %d\n", len(groups))
	fmt.Printf("interned terms:   %d\n", numTerms)
	fmt.Printf("dictionary rows:  %d\n", numDictEntries)
	var totalDocs int
	for _, g := range groups {
		totalDocs += g.NumDocs
	}
	fmt.Printf("total documents:  %d\n", totalDocs)
}
