package deg

import (
	"math"
	"testing"

	"github.com/bulkrna/degsea/quant"
)

func testMetadata() *quant.Metadata {
	return &quant.Metadata{Samples: []quant.Sample{
		{ID: "s1", Condition: "IL1a"},
		{ID: "s2", Condition: "IL1a"},
		{ID: "s3", Condition: "PBS"},
		{ID: "s4", Condition: "PBS"},
	}}
}

func testMatrix() *quant.CountMatrix {
	cm := quant.NewCountMatrix([]string{"s1", "s2", "s3", "s4"})
	add := func(gene string, counts []int) {
		for i, c := range counts {
			cm.Add(gene, i, c)
		}
	}

	add("up", []int{500, 520, 50, 55})
	add("down", []int{20, 25, 240, 250})
	add("flat1", []int{100, 110, 105, 95})
	add("flat2", []int{60, 62, 58, 61})
	add("flat3", []int{200, 190, 210, 205})
	add("silent", []int{0, 0, 0, 0})

	return cm
}

func TestSizeFactorsEqualLibraries(t *testing.T) {
	cm := quant.NewCountMatrix([]string{"s1", "s2"})
	for i, c := range []int{10, 10} {
		cm.Add("g1", i, c)
	}
	for i, c := range []int{30, 30} {
		cm.Add("g2", i, c)
	}

	factors, err := SizeFactors(cm)
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range factors {
		if math.Abs(f-1) > 1e-9 {
			t.Fatalf("factor[%d] = %v, expected 1 for identical libraries", i, f)
		}
	}
}

func TestSizeFactorsScaledLibrary(t *testing.T) {
	// Sample 2 is sample 1 sequenced twice as deep: its factor must be
	// twice sample 1's.
	cm := quant.NewCountMatrix([]string{"s1", "s2"})
	for i, c := range []int{10, 20} {
		cm.Add("g1", i, c)
	}
	for i, c := range []int{50, 100} {
		cm.Add("g2", i, c)
	}
	for i, c := range []int{7, 14} {
		cm.Add("g3", i, c)
	}

	factors, err := SizeFactors(cm)
	if err != nil {
		t.Fatal(err)
	}
	if ratio := factors[1] / factors[0]; math.Abs(ratio-2) > 1e-9 {
		t.Fatalf("factor ratio = %v, expected 2", ratio)
	}
}

func TestComputeOrdersAndAnnotates(t *testing.T) {
	entrez := map[string]int64{"up": 1017, "down": 7157, "flat1": 11, "flat2": 12, "flat3": 13}

	table, err := Compute(testMatrix(), testMetadata(), "IL1a", "PBS", entrez)
	if err != nil {
		t.Fatal(err)
	}

	if len(table.Results) != 6 {
		t.Fatalf("table holds %d rows, expected 6", len(table.Results))
	}

	byGene := make(map[string]*Result)
	for _, r := range table.Results {
		byGene[r.Gene] = r
	}

	if r := byGene["up"]; r.Log2FoldChange <= 0 || !r.PAdj.Valid || r.PAdj.Float64 > 0.05 {
		t.Fatalf("up-regulated gene: %+v", r)
	}
	if r := byGene["down"]; r.Log2FoldChange >= 0 {
		t.Fatalf("down-regulated gene has positive fold change: %+v", r)
	}
	if r := byGene["flat1"]; r.PValue.Valid && r.PValue.Float64 < 0.05 {
		t.Fatalf("flat gene tests significant: %+v", r)
	}

	// The silent gene is untested: null p-values, sorted last, Entrez null.
	last := table.Results[len(table.Results)-1]
	if last.Gene != "silent" || last.PAdj.Valid || last.Entrez.Valid {
		t.Fatalf("last row = %+v, expected the untested silent gene", last)
	}

	// Ordered ascending by adjusted p-value, nulls last.
	prev := -1.0
	for _, r := range table.Results {
		if !r.PAdj.Valid {
			continue
		}
		if r.PAdj.Float64 < prev {
			t.Fatalf("table is not ordered by adjusted p-value")
		}
		prev = r.PAdj.Float64
	}

	if r := byGene["up"]; !r.Entrez.Valid || r.Entrez.Int64 != 1017 {
		t.Fatalf("up gene Entrez = %+v, expected 1017", r.Entrez)
	}
}

func TestComputeRowsSubsetOfMatrix(t *testing.T) {
	cm := testMatrix()
	table, err := Compute(cm, testMetadata(), "IL1a", "PBS", nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range table.Results {
		if !cm.HasGene(r.Gene) {
			t.Fatalf("result row %q is not a matrix gene", r.Gene)
		}
	}
	if len(table.Results) != cm.NGenes() {
		t.Fatalf("%d rows for %d genes", len(table.Results), cm.NGenes())
	}
}

func TestComputeUnknownCondition(t *testing.T) {
	if _, err := Compute(testMatrix(), testMetadata(), "TNFa", "PBS", nil); err == nil {
		t.Fatal("expected an error for a condition absent from the metadata")
	}
}

func TestStableGeneID(t *testing.T) {
	for _, v := range []struct {
		in       string
		expected string
	}{
		{"ENSG00000141510", "ENSG00000141510"},
		{"ENSG00000141510+ENSG00000012048", "ENSG00000141510"},
		{"A+B+C", "A"},
		{"", ""},
	} {
		if got := StableGeneID(v.in); got != v.expected {
			t.Fatalf("StableGeneID(%q) = %q, expected %q", v.in, got, v.expected)
		}
	}
}

func TestComputeTruncatesCompositeIDs(t *testing.T) {
	cm := quant.NewCountMatrix([]string{"s1", "s2", "s3", "s4"})
	for i, c := range []int{100, 110, 20, 25} {
		cm.Add("ENSG1+ENSG2", i, c)
	}
	for i, c := range []int{50, 52, 48, 51} {
		cm.Add("ENSG3", i, c)
	}

	table, err := Compute(cm, testMetadata(), "IL1a", "PBS", map[string]int64{"ENSG1": 42})
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range table.Results {
		if r.Gene == "ENSG1+ENSG2" {
			if !r.Entrez.Valid || r.Entrez.Int64 != 42 {
				t.Fatalf("composite row Entrez = %+v, expected 42 via truncation", r.Entrez)
			}
			return
		}
	}
	t.Fatal("composite gene row not found")
}

func TestShrinkagePullsNoisyEstimatesIn(t *testing.T) {
	entrez := map[string]int64{"up": 1, "down": 2, "flat1": 3, "flat2": 4, "flat3": 5}
	table, err := Compute(testMatrix(), testMetadata(), "IL1a", "PBS", entrez)
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range table.Results {
		if r.Gene != "up" {
			continue
		}
		// The raw contrast is near log2(9.7); shrinkage moves it toward
		// zero without changing its sign or overshooting.
		if r.Log2FoldChange < 1 || r.Log2FoldChange > 4 {
			t.Fatalf("shrunken fold change %v outside [1, 4]", r.Log2FoldChange)
		}
	}
}
