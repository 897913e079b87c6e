package gsea

import (
	fet "github.com/glycerine/golang-fisher-exact"

	"github.com/bulkrna/degsea/deg"
)

// annotateOverRepresentation fills each term's Fisher exact p-value from the
// 2x2 contingency of set membership against significance over the ranked
// universe:
//
//	            significant  not significant
//	in set          n11           n12
//	not in set      n21           n22
//
// The two-sided p-value is kept. With no significant-gene universe every
// term's column is left at 1.
func annotateOverRepresentation(result *Result, ranked []deg.RankedGene, significant map[string]bool) {
	nSig := 0
	for _, g := range ranked {
		if significant[g.Entrez] {
			nSig++
		}
	}

	for i := range result.Terms {
		term := &result.Terms[i]
		term.OraPValue = 1

		if nSig == 0 {
			continue
		}

		n11 := 0
		for _, idx := range term.HitRanks {
			if significant[ranked[idx].Entrez] {
				n11++
			}
		}
		n12 := len(term.HitRanks) - n11
		n21 := nSig - n11
		n22 := len(ranked) - n11 - n12 - n21

		_, _, _, twop := fet.FisherExactTest(n11, n12, n21, n22)
		term.OraPValue = twop
	}
}
