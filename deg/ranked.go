package deg

import (
	"sort"
	"strconv"
)

// RankedGene is one entry of the ranked list handed to enrichment testing:
// a cross-reference identifier and the (shrunken) log2 fold change.
type RankedGene struct {
	Entrez string
	Score  float64
}

// RankedList derives the enrichment input from a fitted table. Rows without
// a cross-reference identifier are dropped; duplicate identifiers are reduced
// to the row with the maximum effect size (an explicit max-by-key reduction,
// so the result does not depend on sort stability); the list is ordered by
// descending effect size.
func (t *ResultTable) RankedList() []RankedGene {
	best := make(map[string]float64)
	order := make([]string, 0, len(t.Results))

	for _, r := range t.Results {
		if !r.Entrez.Valid {
			continue
		}
		key := strconv.FormatInt(r.Entrez.Int64, 10)

		score, seen := best[key]
		if !seen {
			best[key] = r.Log2FoldChange
			order = append(order, key)
			continue
		}
		if r.Log2FoldChange > score {
			best[key] = r.Log2FoldChange
		}
	}

	ranked := make([]RankedGene, 0, len(order))
	for _, key := range order {
		ranked = append(ranked, RankedGene{Entrez: key, Score: best[key]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
