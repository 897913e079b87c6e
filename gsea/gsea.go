// Package gsea scores preranked gene-set enrichment: a weighted
// Kolmogorov-Smirnov-style running statistic against a ranked gene list,
// with a gene-label permutation null for normalization and p-values.
package gsea

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/carbocation/pfx"

	"github.com/bulkrna/degsea/deg"
	"github.com/bulkrna/degsea/geneset"
)

// Params controls one family's enrichment run.
type Params struct {
	// MinSize and MaxSize bound the number of set members present in the
	// ranked list; sets outside the bounds are not tested. MaxSize <= 0
	// means unbounded.
	MinSize int
	MaxSize int

	// PCutoff is applied to the BH-adjusted p-value.
	PCutoff float64

	// Permutations is the number of gene-label permutations per term.
	Permutations int

	Seed int64
}

// DefaultParams mirrors the conventional preranked defaults.
func DefaultParams() Params {
	return Params{MinSize: 10, MaxSize: 500, PCutoff: 0.05, Permutations: 1000}
}

// Term is one enriched term of a family's result table.
type Term struct {
	ID          string
	Description string
	SetSize     int
	ES          float64
	NES         float64
	PValue      float64
	PAdjust     float64

	// OraPValue is the two-sided Fisher exact p-value for the overlap of the
	// set with the significant-gene universe (see Fisher in this package).
	OraPValue float64

	// CoreEnrichment is the leading-edge subset driving the score, as
	// Entrez identifiers in ranked order.
	CoreEnrichment []string

	// Running is the running enrichment score along the ranked list, kept
	// for plotting; HitRanks are the 0-based positions of set members.
	Running  []float64
	HitRanks []int
}

// Result is one family's enrichment table. Zero terms is a valid outcome:
// candidates were tested and none passed the cutoffs.
type Result struct {
	Family string
	Terms  []Term
}

// ErrNoTermEnriched is the recoverable per-family failure: no gene set had
// enough members in the ranked list to be tested at all.
type ErrNoTermEnriched struct {
	Family string
}

func (e ErrNoTermEnriched) Error() string {
	return fmt.Sprintf("%s: no term is enriched under the specified size bounds", e.Family)
}

// runningScore walks the ranked list and returns the running statistic,
// its extreme value, and the index of the extreme. Hits step up by score
// weight, misses step down by the uniform miss penalty.
func runningScore(scores []float64, isHit []bool, nHits int) (running []float64, es float64, esIdx int) {
	n := len(scores)

	sumHit := 0.0
	for i, hit := range isHit {
		if hit {
			sumHit += math.Abs(scores[i])
		}
	}
	if sumHit == 0 {
		// All hit scores are exactly zero; weight hits uniformly instead.
		sumHit = float64(nHits)
	}
	missPenalty := 1.0 / float64(n-nHits)

	running = make([]float64, n)
	run := 0.0
	for i := 0; i < n; i++ {
		if isHit[i] {
			w := math.Abs(scores[i]) / sumHit
			if w == 0 {
				w = 1.0 / float64(nHits)
			}
			run += w
		} else {
			run -= missPenalty
		}
		running[i] = run

		if math.Abs(run) > math.Abs(es) {
			es = run
			esIdx = i
		}
	}

	return running, es, esIdx
}

// permutedES computes the enrichment statistic for a random set of nHits
// gene labels.
func permutedES(scores []float64, nHits int, rng *rand.Rand, scratch []bool) float64 {
	for i := range scratch {
		scratch[i] = false
	}
	for _, idx := range rng.Perm(len(scores))[:nHits] {
		scratch[idx] = true
	}

	_, es, _ := runningScore(scores, scratch, nHits)

	return es
}

// Enrich tests every set of the collection against the ranked list. Terms
// surviving the adjusted-p cutoff are returned ordered by adjusted p-value;
// zero surviving terms is a valid empty result. ErrNoTermEnriched is
// returned when no set has enough ranked-list members to test.
func Enrich(ranked []deg.RankedGene, coll *geneset.Collection, params Params) (*Result, error) {
	if len(ranked) == 0 {
		return nil, pfx.Err(fmt.Errorf("%s: ranked gene list is empty", coll.Family))
	}

	n := len(ranked)
	scores := make([]float64, n)
	rankOf := make(map[string]int, n)
	for i, g := range ranked {
		scores[i] = g.Score
		rankOf[g.Entrez] = i
	}

	rng := rand.New(rand.NewSource(params.Seed))

	type candidate struct {
		term    string
		set     geneset.Set
		hits    []int
		running []float64
		es      float64
		esIdx   int
		pvalue  float64
		nes     float64
	}

	candidates := []*candidate{}
	for _, term := range coll.Terms() {
		set := coll.Sets[term]

		seen := make(map[int]bool, len(set.Members))
		hits := make([]int, 0, len(set.Members))
		for _, member := range set.Members {
			if idx, exists := rankOf[member]; exists && !seen[idx] {
				seen[idx] = true
				hits = append(hits, idx)
			}
		}
		sort.Ints(hits)

		if len(hits) < params.MinSize || len(hits) >= n {
			continue
		}
		if params.MaxSize > 0 && len(hits) > params.MaxSize {
			continue
		}

		candidates = append(candidates, &candidate{term: term, set: set, hits: hits})
	}

	if len(candidates) == 0 {
		return nil, ErrNoTermEnriched{Family: coll.Family}
	}

	scratch := make([]bool, n)
	for _, c := range candidates {
		isHit := make([]bool, n)
		for _, idx := range c.hits {
			isHit[idx] = true
		}
		c.running, c.es, c.esIdx = runningScore(scores, isHit, len(c.hits))

		// Gene-label permutation null, split by sign as in the original
		// GSEA procedure: the observed score is compared against permuted
		// scores of the same sign only.
		sameSign := []float64{}
		moreExtreme := 0
		for i := 0; i < params.Permutations; i++ {
			permES := permutedES(scores, len(c.hits), rng, scratch)
			if (permES >= 0) != (c.es >= 0) {
				continue
			}
			sameSign = append(sameSign, math.Abs(permES))
			if math.Abs(permES) >= math.Abs(c.es) {
				moreExtreme++
			}
		}

		c.pvalue = (float64(moreExtreme) + 1) / (float64(len(sameSign)) + 1)

		meanAbs := 0.0
		for _, v := range sameSign {
			meanAbs += v
		}
		if len(sameSign) > 0 {
			meanAbs /= float64(len(sameSign))
		}
		if meanAbs > 0 {
			c.nes = c.es / meanAbs
		}
	}

	pvals := make([]float64, len(candidates))
	for i, c := range candidates {
		pvals[i] = c.pvalue
	}
	padj := deg.BenjaminiHochberg(pvals)

	result := &Result{Family: coll.Family}
	for i, c := range candidates {
		if padj[i] > params.PCutoff {
			continue
		}

		result.Terms = append(result.Terms, Term{
			ID:             c.term,
			Description:    c.set.Description,
			SetSize:        len(c.hits),
			ES:             c.es,
			NES:            c.nes,
			PValue:         c.pvalue,
			PAdjust:        padj[i],
			CoreEnrichment: leadingEdge(ranked, c.hits, c.es, c.esIdx),
			Running:        c.running,
			HitRanks:       c.hits,
		})
	}

	sort.SliceStable(result.Terms, func(i, j int) bool {
		if result.Terms[i].PAdjust != result.Terms[j].PAdjust {
			return result.Terms[i].PAdjust < result.Terms[j].PAdjust
		}
		return result.Terms[i].ID < result.Terms[j].ID
	})

	return result, nil
}

// leadingEdge returns the set members on the extreme side of the running
// score peak: hits at or before the peak for positive scores, hits at or
// after it for negative ones.
func leadingEdge(ranked []deg.RankedGene, hits []int, es float64, esIdx int) []string {
	edge := []string{}
	for _, idx := range hits {
		if es >= 0 && idx <= esIdx {
			edge = append(edge, ranked[idx].Entrez)
		} else if es < 0 && idx >= esIdx {
			edge = append(edge, ranked[idx].Entrez)
		}
	}

	return edge
}
