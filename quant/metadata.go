// Package quant imports salmon transcript quantifications and builds
// gene-level count matrices for differential expression testing.
package quant

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// Sample is one row of a comparison's metadata file: a sample identifier and
// the condition it belongs to. The identifier column is literally named "X"
// in the upstream metadata files.
type Sample struct {
	ID        string `csv:"X"`
	Condition string `csv:"condition"`
}

// Metadata is the per-comparison sample sheet.
type Metadata struct {
	Samples []Sample
}

// LoadMetadata reads a tab-separated metadata file with "X" and "condition"
// columns.
func LoadMetadata(path string) (*Metadata, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	records := []*Sample{}

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

	meta := &Metadata{}
	for _, record := range records {
		if record.ID == "" {
			continue
		}
		if record.Condition == "" {
			return nil, pfx.Err(fmt.Errorf("sample %s has no condition", record.ID))
		}
		meta.Samples = append(meta.Samples, *record)
	}

	if len(meta.Samples) < 2 {
		return nil, pfx.Err(fmt.Errorf("metadata %s lists %d samples; need at least 2", path, len(meta.Samples)))
	}

	return meta, nil
}

// Groups maps each condition to the column indexes of its samples.
func (m *Metadata) Groups() map[string][]int {
	groups := make(map[string][]int)
	for i, s := range m.Samples {
		groups[s.Condition] = append(groups[s.Condition], i)
	}

	return groups
}

// SmallestGroupSize returns the sample count of the smallest condition group.
func (m *Metadata) SmallestGroupSize() int {
	smallest := 0
	for _, idx := range m.Groups() {
		if smallest == 0 || len(idx) < smallest {
			smallest = len(idx)
		}
	}

	return smallest
}

// SampleIDs returns the sample identifiers in metadata order.
func (m *Metadata) SampleIDs() []string {
	ids := make([]string, 0, len(m.Samples))
	for _, s := range m.Samples {
		ids = append(ids, s.ID)
	}

	return ids
}
