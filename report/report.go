package report

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bulkrna/degsea/gsea"
)

// Write writes every present family's table and plots under
// <resultsRoot>/<contrast>/<family>/, fanning the per-family work out across
// a worker pool. Families run independently against disjoint directories, so
// no ordering is guaranteed between them. A family with zero enriched terms
// writes no files. Per-family write failures are logged and do not stop the
// other families.
func Write(bundle *gsea.Bundle, contrast, resultsRoot string, entrez2symbol map[int64]string, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}

	// Will block after `concurrency` simultaneous goroutines are running
	semaphore := make(chan struct{}, concurrency)
	var pool sync.WaitGroup

	for family, result := range bundle.Results {
		semaphore <- struct{}{}
		pool.Add(1)

		go func(family string, result *gsea.Result) {
			// Be sure to permit unblocking once we finish
			defer func() { <-semaphore }()
			defer pool.Done()

			if err := writeFamily(result, contrast, resultsRoot, entrez2symbol); err != nil {
				log.Printf("%s: %s: reporting failed: %v\n", contrast, family, err)
			}
		}(family, result)
	}

	pool.Wait()
}

// writeFamily writes one family's GSEA_Table.txt and one plot per term.
func writeFamily(result *gsea.Result, contrast, resultsRoot string, entrez2symbol map[int64]string) error {
	if len(result.Terms) == 0 {
		fmt.Printf("%s: %s: no enriched terms; nothing to write\n", contrast, result.Family)
		return nil
	}

	dir := filepath.Join(resultsRoot, contrast, result.Family)

	if err := WriteTable(filepath.Join(dir, "GSEA_Table.txt"), Rows(result, entrez2symbol)); err != nil {
		return err
	}

	for i, term := range result.Terms {
		filename := filepath.Join(dir, fmt.Sprintf("%d_%s.jpeg", i+1, SanitizeFilename(term.Description)))
		if err := PlotTerm(filename, term); err != nil {
			return err
		}
	}

	return nil
}

// SanitizeFilename replaces characters that cannot appear in a file name
// with underscores. Term descriptions routinely contain slashes.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 32 {
			return '_'
		}
		return r
	}, name)
}
