package quant

// CountMatrix holds gene-level counts for a set of named samples. The length
// of each counts slice matches the length of SampleNames and indexing into it
// reflects indexing into SampleNames.
type CountMatrix struct {
	SampleNames []string

	// geneIDs and geneIdx are mappings between internal gene index and
	// external gene identifier.
	geneIDs []string
	geneIdx map[string]int

	counts map[string][]int
}

// NewCountMatrix creates an empty matrix over the given sample names.
func NewCountMatrix(sampleNames []string) *CountMatrix {
	return &CountMatrix{
		SampleNames: sampleNames,
		geneIdx:     make(map[string]int),
		counts:      make(map[string][]int),
	}
}

// Add accumulates count into the gene's cell for the given sample column,
// creating the gene row if it has not been seen before.
func (cm *CountMatrix) Add(geneID string, sampleIdx int, count int) {
	if _, exists := cm.geneIdx[geneID]; !exists {
		cm.geneIdx[geneID] = len(cm.geneIDs)
		cm.geneIDs = append(cm.geneIDs, geneID)
		cm.counts[geneID] = make([]int, len(cm.SampleNames))
	}
	cm.counts[geneID][sampleIdx] += count
}

// Genes returns the gene identifiers in insertion order.
func (cm *CountMatrix) Genes() []string {
	return cm.geneIDs
}

// Counts returns the per-sample counts for a gene, or nil if absent.
func (cm *CountMatrix) Counts(geneID string) []int {
	return cm.counts[geneID]
}

// HasGene reports whether the matrix contains a row for geneID.
func (cm *CountMatrix) HasGene(geneID string) bool {
	_, exists := cm.geneIdx[geneID]
	return exists
}

// NGenes returns the number of gene rows.
func (cm *CountMatrix) NGenes() int {
	return len(cm.geneIDs)
}

// FilterLowCounts returns a new matrix without genes whose summed count
// within any smallest-size condition group falls below threshold. The
// threshold is a group-sum cutoff relative to the smallest group, not a
// per-sample cutoff.
func (cm *CountMatrix) FilterLowCounts(meta *Metadata, threshold int) *CountMatrix {
	groups := meta.Groups()
	smallest := meta.SmallestGroupSize()

	out := NewCountMatrix(cm.SampleNames)
	for _, geneID := range cm.geneIDs {
		counts := cm.counts[geneID]

		keep := true
		for _, idx := range groups {
			if len(idx) != smallest {
				continue
			}

			sum := 0
			for _, i := range idx {
				sum += counts[i]
			}
			if sum < threshold {
				keep = false
				break
			}
		}

		if !keep {
			continue
		}
		for i, c := range counts {
			out.Add(geneID, i, c)
		}
	}

	return out
}
