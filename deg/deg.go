package deg

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/guregu/null.v3"

	"github.com/bulkrna/degsea/quant"
)

// Pseudocount added to group means before taking fold-change ratios, in
// normalized-count units.
const pseudocount = 0.5

// Floor for method-of-moments dispersion estimates.
const minDispersion = 1e-8

// Result is one fitted gene row.
type Result struct {
	Gene           string     `csv:"gene"`
	BaseMean       float64    `csv:"baseMean"`
	Log2FoldChange float64    `csv:"log2FoldChange"`
	LfcSE          float64    `csv:"lfcSE"`
	Stat           float64    `csv:"stat"`
	PValue         null.Float `csv:"pvalue"`
	PAdj           null.Float `csv:"padj"`

	// Entrez is the cross-reference identifier; null when the stable gene
	// identifier has no mapping. Unmapped rows are retained here and dropped
	// only when the ranked list is derived.
	Entrez null.Int `csv:"entrez"`
}

// ResultTable holds the fitted contrast, ordered ascending by adjusted
// p-value with null adjusted p-values last.
type ResultTable struct {
	Treatment string
	Baseline  string
	Results   []*Result
}

// groupMoments holds a condition group's normalized-count mean and variance.
type groupMoments struct {
	n    int
	mean float64
	vari float64
}

func moments(normalized []float64, idx []int) groupMoments {
	g := groupMoments{n: len(idx)}
	for _, i := range idx {
		g.mean += normalized[i]
	}
	g.mean /= float64(g.n)

	if g.n > 1 {
		for _, i := range idx {
			d := normalized[i] - g.mean
			g.vari += d * d
		}
		g.vari /= float64(g.n - 1)
	}

	return g
}

// dispersion estimates a gene's negative-binomial dispersion by the method
// of moments from the pooled within-group variance.
func dispersion(t, b groupMoments) float64 {
	df := t.n + b.n - 2
	if df < 1 {
		return minDispersion
	}

	pooledVar := (float64(t.n-1)*t.vari + float64(b.n-1)*b.vari) / float64(df)
	mu := (float64(t.n)*t.mean + float64(b.n)*b.mean) / float64(t.n+b.n)
	if mu <= 0 {
		return minDispersion
	}

	alpha := (pooledVar - mu) / (mu * mu)
	if alpha < minDispersion {
		return minDispersion
	}

	return alpha
}

// StableGeneID truncates a composite row identifier at its first "+". The
// upstream naming convention joins co-assembled gene identifiers with "+";
// the first member is the stable one.
func StableGeneID(rowID string) string {
	if id, _, found := strings.Cut(rowID, "+"); found {
		return id
	}

	return rowID
}

// Compute fits the treatment-versus-baseline contrast on a filtered count
// matrix. Per gene: size-factor normalization, method-of-moments dispersion
// moderated toward the genome-wide typical value, a Wald test on the log2
// fold change, BH adjustment across genes, and an empirical-Bayes shrinkage
// of the fold change toward zero for low-information genes. The entrez map
// translates stable gene identifiers to cross-reference IDs; genes absent
// from it keep a null Entrez column.
func Compute(cm *quant.CountMatrix, meta *quant.Metadata, treatment, baseline string, entrez map[string]int64) (*ResultTable, error) {
	groups := meta.Groups()
	treatIdx, exists := groups[treatment]
	if !exists {
		return nil, pfx.Err(fmt.Errorf("condition %q does not appear in the metadata", treatment))
	}
	baseIdx, exists := groups[baseline]
	if !exists {
		return nil, pfx.Err(fmt.Errorf("baseline condition %q does not appear in the metadata", baseline))
	}

	factors, err := SizeFactors(cm)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// First pass: gene-wise dispersions, so the second pass can moderate
	// each estimate toward the typical value.
	rawAlphas := make(map[string]float64, cm.NGenes())
	alphaList := make([]float64, 0, cm.NGenes())
	for _, geneID := range cm.Genes() {
		normalized := normalize(cm.Counts(geneID), factors)
		alpha := dispersion(moments(normalized, treatIdx), moments(normalized, baseIdx))
		rawAlphas[geneID] = alpha
		if alpha > minDispersion {
			alphaList = append(alphaList, math.Log(alpha))
		}
	}

	logAlphaMid := math.Log(0.1) // fallback typical dispersion
	if len(alphaList) > 0 {
		if m, err := stats.Median(alphaList); err == nil {
			logAlphaMid = m
		}
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}

	table := &ResultTable{Treatment: treatment, Baseline: baseline}
	for _, geneID := range cm.Genes() {
		normalized := normalize(cm.Counts(geneID), factors)

		all := 0.0
		for _, v := range normalized {
			all += v
		}
		baseMean := all / float64(len(normalized))

		t := moments(normalized, treatIdx)
		b := moments(normalized, baseIdx)

		res := &Result{Gene: geneID, BaseMean: baseMean}
		if id, exists := entrez[StableGeneID(geneID)]; exists {
			res.Entrez = null.IntFrom(id)
		}

		if t.mean == 0 && b.mean == 0 {
			// No expression in either group: no testable contrast.
			table.Results = append(table.Results, res)
			continue
		}

		// Moderate the dispersion toward the typical value in log space.
		alpha := math.Exp((math.Log(rawAlphas[geneID]) + logAlphaMid) / 2)

		lfc := math.Log2((t.mean + pseudocount) / (b.mean + pseudocount))

		// Delta-method variance of the log2 group mean under NB sampling:
		// Var(log2 mu^) = (1/ln2)^2 * (1/(n*mu) + alpha/n).
		invLn2Sq := 1 / (math.Ln2 * math.Ln2)
		vT := invLn2Sq * (1/(float64(t.n)*(t.mean+pseudocount)) + alpha/float64(t.n))
		vB := invLn2Sq * (1/(float64(b.n)*(b.mean+pseudocount)) + alpha/float64(b.n))
		se := math.Sqrt(vT + vB)

		z := lfc / se
		p := 2 * normal.CDF(-math.Abs(z))

		res.Log2FoldChange = lfc
		res.LfcSE = se
		res.Stat = z
		res.PValue = null.FloatFrom(p)
		table.Results = append(table.Results, res)
	}

	adjustPValues(table.Results)
	shrinkFoldChanges(table.Results)

	sort.SliceStable(table.Results, func(i, j int) bool {
		ri, rj := table.Results[i], table.Results[j]
		if ri.PAdj.Valid != rj.PAdj.Valid {
			// Null adjusted p-values sort last.
			return ri.PAdj.Valid
		}
		if !ri.PAdj.Valid {
			return ri.Gene < rj.Gene
		}
		if ri.PAdj.Float64 != rj.PAdj.Float64 {
			return ri.PAdj.Float64 < rj.PAdj.Float64
		}
		if ri.PValue.Float64 != rj.PValue.Float64 {
			return ri.PValue.Float64 < rj.PValue.Float64
		}
		return ri.Gene < rj.Gene
	})

	return table, nil
}

// adjustPValues BH-adjusts the tested rows in place; untested rows keep a
// null adjusted p-value.
func adjustPValues(results []*Result) {
	tested := make([]int, 0, len(results))
	pvals := make([]float64, 0, len(results))
	for i, r := range results {
		if r.PValue.Valid {
			tested = append(tested, i)
			pvals = append(pvals, r.PValue.Float64)
		}
	}

	fdr := BenjaminiHochberg(pvals)
	for j, i := range tested {
		results[i].PAdj = null.FloatFrom(fdr[j])
	}
}

// shrinkFoldChanges applies a zero-centred normal prior to the fold changes:
// the prior variance is estimated by moments from the spread of the raw
// estimates beyond their sampling noise, and each estimate is scaled by
// prior/(prior+se^2) so noisy, low-count genes move toward zero.
func shrinkFoldChanges(results []*Result) {
	var sumLfcSq, sumSESq float64
	n := 0
	for _, r := range results {
		if !r.PValue.Valid {
			continue
		}
		sumLfcSq += r.Log2FoldChange * r.Log2FoldChange
		sumSESq += r.LfcSE * r.LfcSE
		n++
	}
	if n == 0 {
		return
	}

	priorVar := sumLfcSq/float64(n) - sumSESq/float64(n)
	if priorVar < 1e-6 {
		priorVar = 1e-6
	}

	for _, r := range results {
		if !r.PValue.Valid {
			continue
		}
		shrink := priorVar / (priorVar + r.LfcSE*r.LfcSE)
		r.Log2FoldChange *= shrink
	}
}
