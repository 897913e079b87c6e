package gsea

import (
	"strconv"
	"strings"
	"testing"

	"github.com/bulkrna/degsea/geneset"
)

// testProvider builds a provider whose MSigDB and KEGG families are testable
// against a 40-gene ranked list, while the GO branches demand 100-member
// sets and the custom family is empty, so both must fail and be isolated.
func testProvider() *geneset.Provider {
	topGenes := make([]string, 10)
	for i := range topGenes {
		topGenes[i] = strconv.Itoa(i + 1)
	}

	small := geneset.Set{Description: "small set", Members: topGenes[:6]}

	return &geneset.Provider{
		MSigDB: &geneset.Collection{Family: geneset.FamilyMSigDB, Sets: map[string]geneset.Set{
			"HALLMARK_TOP": {Description: "top genes", Members: topGenes},
		}},
		KEGG: &geneset.Collection{Family: geneset.FamilyKEGG, Sets: map[string]geneset.Set{
			"hsa00001": small,
		}},
		GOCC: &geneset.Collection{Family: geneset.FamilyGOCC, Sets: map[string]geneset.Set{
			"GO:0000001": small,
		}},
		GOBP: &geneset.Collection{Family: geneset.FamilyGOBP, Sets: map[string]geneset.Set{
			"GO:0000002": small,
		}},
		GOMF: &geneset.Collection{Family: geneset.FamilyGOMF, Sets: map[string]geneset.Set{
			"GO:0000003": small,
		}},
		Custom: &geneset.Collection{Family: geneset.FamilyCustom, Sets: map[string]geneset.Set{}},
	}
}

func TestEnrichAllIsolatesFailures(t *testing.T) {
	ranked := rankedList(40)

	significant := map[string]bool{"1": true, "2": true, "3": true}
	bundle := EnrichAll(ranked, testProvider(), "IL1a_vs_PBS", 200, significant)

	if _, exists := bundle.Results[geneset.FamilyMSigDB]; !exists {
		t.Fatalf("MSigDB result absent; failures: %v", bundle.Failures)
	}
	if _, exists := bundle.Results[geneset.FamilyKEGG]; !exists {
		t.Fatalf("KEGG result absent; failures: %v", bundle.Failures)
	}

	// GO branches have no testable set (min size 100) and the custom family
	// has no sets at all: present as failures, absent from results, and the
	// reason names the family.
	for _, family := range []string{geneset.FamilyGOCC, geneset.FamilyGOBP, geneset.FamilyGOMF, geneset.FamilyCustom} {
		if _, exists := bundle.Results[family]; exists {
			t.Fatalf("%s unexpectedly produced a result", family)
		}
		reason, exists := bundle.Failures[family]
		if !exists {
			t.Fatalf("%s failure not recorded", family)
		}
		if !strings.Contains(reason, family) {
			t.Fatalf("%s failure reason %q does not name the family", family, reason)
		}
	}
}

func TestEnrichAllReproducible(t *testing.T) {
	ranked := rankedList(40)

	a := EnrichAll(ranked, testProvider(), "IL1a_vs_PBS", 200, nil)
	b := EnrichAll(ranked, testProvider(), "IL1a_vs_PBS", 200, nil)

	termsA := a.Results[geneset.FamilyMSigDB].Terms
	termsB := b.Results[geneset.FamilyMSigDB].Terms
	if len(termsA) != len(termsB) {
		t.Fatalf("runs disagree on term count: %d vs %d", len(termsA), len(termsB))
	}
	for i := range termsA {
		if termsA[i].PValue != termsB[i].PValue || termsA[i].NES != termsB[i].NES {
			t.Fatalf("term %d differs between identical runs", i)
		}
	}
}

func TestFamilyParams(t *testing.T) {
	for _, v := range []struct {
		family  string
		minSize int
		maxSize int
		cutoff  float64
	}{
		{geneset.FamilyMSigDB, 10, 500, 0.05},
		{geneset.FamilyKEGG, 5, 500, 0.1},
		{geneset.FamilyGOCC, 100, 500, 0.05},
		{geneset.FamilyGOBP, 100, 500, 0.05},
		{geneset.FamilyGOMF, 100, 500, 0.05},
		{geneset.FamilyCustom, 10, 500, 0.05},
	} {
		params := FamilyParams(v.family)
		if params.MinSize != v.minSize || params.MaxSize != v.maxSize || params.PCutoff != v.cutoff {
			t.Fatalf("%s params = %+v", v.family, params)
		}
	}
}

func TestSeedForStable(t *testing.T) {
	if seedFor("IL1a_vs_PBS", "KEGG") != seedFor("IL1a_vs_PBS", "KEGG") {
		t.Fatal("seed is not stable")
	}
	if seedFor("IL1a_vs_PBS", "KEGG") == seedFor("IL1b_vs_PBS", "KEGG") {
		t.Fatal("different contrasts share a seed")
	}
}
