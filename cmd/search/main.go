// Command moshiki-search looks up a single term against a previously
// written moshiki output folder and prints every reconstructed line that
// matches it.
package main

import (
	"flag"
	"fmt"
	"os"

	"moshiki/internal/obslog"
	"moshiki/internal/search"
)

var log = obslog.Named("search-cli")

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: moshiki-search <query> <output_folder>")
		os.Exit(1)
	}
	query, outputDir := args[0], args[1]

	if err := run(query, outputDir); err != nil {
		log.Error(err, "search failed")
		os.Exit(1)
	}
}

func run(query, outputDir string) error {
	idx, err := search.Open(outputDir)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	docs, err := idx.Search(query, 0)
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	fmt.Printf("%d matches for %q\n", len(docs), query)
	for _, doc := range docs {
		rec := idx.Templates[doc.TemplateID]
		line, err := idx.Reconstruct(rec, doc)
		if err != nil {
			return fmt.Errorf("reconstruct template %d: %w", doc.TemplateID, err)
		}
		fmt.Println(line)
	}
	return nil
}
