package deg

import (
	"testing"

	"gopkg.in/guregu/null.v3"
)

func row(gene string, lfc float64, entrez int64, mapped bool) *Result {
	r := &Result{Gene: gene, Log2FoldChange: lfc}
	if mapped {
		r.Entrez = null.IntFrom(entrez)
	}
	return r
}

func TestRankedListDeduplicates(t *testing.T) {
	// Two rows share Entrez 1017; the one with the larger effect size wins
	// regardless of table order.
	table := &ResultTable{Results: []*Result{
		row("g1", -0.5, 1017, true),
		row("g2", 1.1, 7157, true),
		row("g3", 2.3, 1017, true),
	}}

	ranked := table.RankedList()
	if len(ranked) != 2 {
		t.Fatalf("ranked list holds %d entries, expected 2", len(ranked))
	}
	if ranked[0].Entrez != "1017" || ranked[0].Score != 2.3 {
		t.Fatalf("first entry = %+v, expected {1017 2.3}", ranked[0])
	}
	if ranked[1].Entrez != "7157" || ranked[1].Score != 1.1 {
		t.Fatalf("second entry = %+v, expected {7157 1.1}", ranked[1])
	}
}

func TestRankedListDropsUnmapped(t *testing.T) {
	table := &ResultTable{Results: []*Result{
		row("mapped", 1.0, 42, true),
		row("unmapped", 5.0, 0, false),
	}}

	ranked := table.RankedList()
	if len(ranked) != 1 {
		t.Fatalf("ranked list holds %d entries, expected 1", len(ranked))
	}
	if ranked[0].Entrez != "42" {
		t.Fatalf("entry = %+v, expected Entrez 42", ranked[0])
	}
}

func TestRankedListSortedDescending(t *testing.T) {
	table := &ResultTable{Results: []*Result{
		row("a", -2.0, 1, true),
		row("b", 3.0, 2, true),
		row("c", 0.5, 3, true),
	}}

	ranked := table.RankedList()
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("ranked list is not descending at %d: %v", i, ranked)
		}
	}
	if ranked[0].Entrez != "2" || ranked[2].Entrez != "1" {
		t.Fatalf("ranked order = %v", ranked)
	}
}
