// Package report writes enrichment results to disk: one tab-separated table
// per gene-set family plus one running-score plot per enriched term, fanned
// out across families with a worker pool.
package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"github.com/bulkrna/degsea/deg"
	"github.com/bulkrna/degsea/gsea"
)

// TableRow is one line of a family's GSEA_Table.txt.
type TableRow struct {
	ID              string  `csv:"ID"`
	Description     string  `csv:"Description"`
	SetSize         int     `csv:"setSize"`
	EnrichmentScore float64 `csv:"enrichmentScore"`
	NES             float64 `csv:"NES"`
	PValue          float64 `csv:"pvalue"`
	PAdjust         float64 `csv:"p.adjust"`
	OraPValue       float64 `csv:"ora_pvalue"`

	// CoreEnrichment is the leading-edge genes as slash-joined symbols.
	CoreEnrichment string `csv:"core_enrichment"`
}

// Rows converts a result table, relabelling leading-edge Entrez identifiers
// to human-readable gene symbols. Identifiers without a symbol are kept
// as-is.
func Rows(result *gsea.Result, entrez2symbol map[int64]string) []*TableRow {
	rows := make([]*TableRow, 0, len(result.Terms))
	for _, term := range result.Terms {
		symbols := make([]string, 0, len(term.CoreEnrichment))
		for _, id := range term.CoreEnrichment {
			symbols = append(symbols, relabel(id, entrez2symbol))
		}

		rows = append(rows, &TableRow{
			ID:              term.ID,
			Description:     term.Description,
			SetSize:         term.SetSize,
			EnrichmentScore: term.ES,
			NES:             term.NES,
			PValue:          term.PValue,
			PAdjust:         term.PAdjust,
			OraPValue:       term.OraPValue,
			CoreEnrichment:  strings.Join(symbols, "/"),
		})
	}

	return rows
}

func relabel(entrez string, entrez2symbol map[int64]string) string {
	id, err := strconv.ParseInt(entrez, 10, 64)
	if err != nil {
		return entrez
	}
	if symbol, exists := entrez2symbol[id]; exists {
		return symbol
	}

	return entrez
}

// marshalTab writes rows as a tab-separated table. The explicit writer is
// used rather than gocsv's package-level configuration because table writes
// run concurrently across reporting workers.
func marshalTab(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(w)); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// WriteTable writes a family's enrichment rows as a tab-separated table.
func WriteTable(path string, rows []*TableRow) error {
	return marshalTab(path, &rows)
}

// WriteDEGTable writes the fitted differential expression table as a
// tab-separated file, in its significance ordering.
func WriteDEGTable(path string, table *deg.ResultTable) error {
	return marshalTab(path, &table.Results)
}

// ReadTable reads a table written by WriteTable.
func ReadTable(path string) ([]*TableRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true

	rows := []*TableRow{}
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}
