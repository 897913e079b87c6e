package quant

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// quantRecord is one transcript row of a salmon quant.sf file. Only the
// transcript name and the estimated read count are consumed; the other
// columns (Length, EffectiveLength, TPM) are ignored.
type quantRecord struct {
	Name     string  `csv:"Name"`
	NumReads float64 `csv:"NumReads"`
}

// QuantPath returns the conventional location of a sample's salmon output:
// <inputRoot>/<sampleID>/quant.sf
func QuantPath(inputRoot, sampleID string) string {
	return filepath.Join(inputRoot, sampleID, "quant.sf")
}

// Tx2GenePath returns the conventional location of the transcript-to-gene
// mapping table under the input root.
func Tx2GenePath(inputRoot string) string {
	return filepath.Join(inputRoot, "salmon_tx2gene.tsv")
}

// LoadTx2Gene reads the two-column, headerless transcript-to-gene mapping
// table. Loaded once per process and shared across all comparisons.
func LoadTx2Gene(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	tx2gene := make(map[string]string)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		if len(record) < 2 {
			return nil, pfx.Err(fmt.Errorf("tx2gene row %v has fewer than 2 columns", record))
		}
		tx2gene[record[0]] = record[1]
	}

	if len(tx2gene) == 0 {
		return nil, pfx.Err(fmt.Errorf("tx2gene table %s is empty", path))
	}

	return tx2gene, nil
}

// loadQuant reads a single quant.sf file.
func loadQuant(path string) ([]*quantRecord, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	records := []*quantRecord{}

	// Tell gocsv to use tab as the delimiter
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})

	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, pfx.Err(err)
	}

	return records, nil
}

// BuildCounts imports every sample's quant.sf and aggregates transcript-level
// estimated counts to gene level via the tx2gene mapping. Transcripts without
// a gene mapping are skipped. Estimated counts are summed per gene and then
// rounded to integers.
func BuildCounts(inputRoot string, meta *Metadata, tx2gene map[string]string) (*CountMatrix, error) {
	cm := NewCountMatrix(meta.SampleIDs())

	for sampleIdx, sample := range meta.Samples {
		path := QuantPath(inputRoot, sample.ID)

		records, err := loadQuant(path)
		if err != nil {
			return nil, pfx.Err(err)
		}
		if len(records) == 0 {
			return nil, pfx.Err(fmt.Errorf("quantification %s holds no transcripts", path))
		}

		perGene := make(map[string]float64)
		for _, record := range records {
			geneID, exists := tx2gene[record.Name]
			if !exists {
				continue
			}
			perGene[geneID] += record.NumReads
		}

		// Insert in sorted order so gene row order is deterministic across
		// runs regardless of map iteration order.
		geneIDs := make([]string, 0, len(perGene))
		for geneID := range perGene {
			geneIDs = append(geneIDs, geneID)
		}
		sort.Strings(geneIDs)
		for _, geneID := range geneIDs {
			cm.Add(geneID, sampleIdx, int(math.Round(perGene[geneID])))
		}
	}

	return cm, nil
}
