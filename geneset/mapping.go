package geneset

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// ensemblMapping is one row of the organism's Ensembl-to-Entrez lookup
// table. Entrez is null for Ensembl genes without a cross-reference.
type ensemblMapping struct {
	Ensembl string   `csv:"ensembl_gene_id"`
	Entrez  null.Int `csv:"entrezgene_id"`
}

// geneInfo is one row of the organism's symbol lookup table.
type geneInfo struct {
	Entrez int64  `csv:"GeneID"`
	Symbol string `csv:"Symbol"`
}

func tabReader() {
	// Tell gocsv to use tab as the delimiter
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})
}

// LoadEnsembl2Entrez reads the Ensembl-to-Entrez mapping table. Rows without
// an Entrez value are skipped; the caller sees those genes as unmapped.
func LoadEnsembl2Entrez(path string) (map[string]int64, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	records := []*ensemblMapping{}
	tabReader()
	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, pfx.Err(err)
	}

	out := make(map[string]int64, len(records))
	for _, record := range records {
		if !record.Entrez.Valid || record.Ensembl == "" {
			continue
		}
		out[record.Ensembl] = record.Entrez.Int64
	}

	return out, nil
}

// LoadGeneInfo reads the symbol lookup table and returns both directions:
// symbol to Entrez (used when mapping custom GMT members) and Entrez to
// symbol (used when relabelling results for reporting).
func LoadGeneInfo(path string) (map[string]int64, map[int64]string, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	records := []*geneInfo{}
	tabReader()
	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, nil, pfx.Err(err)
	}

	symbol2entrez := make(map[string]int64, len(records))
	entrez2symbol := make(map[int64]string, len(records))
	for _, record := range records {
		if record.Symbol == "" {
			continue
		}
		symbol2entrez[record.Symbol] = record.Entrez
		entrez2symbol[record.Entrez] = record.Symbol
	}

	return symbol2entrez, entrez2symbol, nil
}
