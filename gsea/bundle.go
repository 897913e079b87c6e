package gsea

import (
	"hash/fnv"
	"log"

	"github.com/bulkrna/degsea/deg"
	"github.com/bulkrna/degsea/geneset"
)

// Bundle collects the per-family enrichment outcomes for one comparison:
// either a result table or an explicit failure reason. A family appears in
// exactly one of the two maps.
type Bundle struct {
	Results  map[string]*Result
	Failures map[string]string
}

// FamilyParams returns the enrichment parameters for a gene-set family:
// pathway sets are tested down to 5 members at a relaxed 0.1 cutoff,
// ontology branches are restricted to 100-500 member sets, and the curated
// and custom families use the defaults.
func FamilyParams(family string) Params {
	params := DefaultParams()

	switch family {
	case geneset.FamilyKEGG:
		params.MinSize = 5
		params.PCutoff = 0.1
	case geneset.FamilyGOCC, geneset.FamilyGOBP, geneset.FamilyGOMF:
		params.MinSize = 100
		params.MaxSize = 500
	}

	return params
}

// seedFor derives a stable RNG seed from the contrast label and family so a
// rerun reproduces the same permutations without a flag.
func seedFor(contrast, family string) int64 {
	h := fnv.New64a()
	h.Write([]byte(contrast))
	h.Write([]byte{0})
	h.Write([]byte(family))

	return int64(h.Sum64())
}

// EnrichAll runs every gene-set family against the ranked list, isolating
// failures: one family's error is logged with the family name and recorded
// as its failure reason, and every other family still runs. significant is
// the Entrez universe of significant genes used for the Fisher
// over-representation column; it may be empty.
func EnrichAll(ranked []deg.RankedGene, provider *geneset.Provider, contrast string, permutations int, significant map[string]bool) *Bundle {
	bundle := &Bundle{
		Results:  make(map[string]*Result),
		Failures: make(map[string]string),
	}

	for _, coll := range provider.Collections() {
		params := FamilyParams(coll.Family)
		if permutations > 0 {
			params.Permutations = permutations
		}
		params.Seed = seedFor(contrast, coll.Family)

		result, err := Enrich(ranked, coll, params)
		if err != nil {
			log.Printf("%s: enrichment failed: %v\n", coll.Family, err)
			bundle.Failures[coll.Family] = err.Error()
			continue
		}

		annotateOverRepresentation(result, ranked, significant)
		bundle.Results[coll.Family] = result
	}

	return bundle
}
