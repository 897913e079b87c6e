// Package deg fits per-gene negative-binomial contrasts between two sample
// conditions and turns the fitted table into the ranked gene list consumed by
// enrichment testing.
package deg

import (
	"fmt"
	"math"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"

	"github.com/bulkrna/degsea/quant"
)

// SizeFactors estimates per-sample library size factors with the
// median-of-ratios method: each sample's factor is the median, over genes
// expressed in every sample, of the ratio of its count to the gene's
// geometric mean count (Anders & Huber, 2010).
func SizeFactors(cm *quant.CountMatrix) ([]float64, error) {
	nSamples := len(cm.SampleNames)
	if nSamples == 0 {
		return nil, pfx.Err(fmt.Errorf("count matrix has no samples"))
	}

	ratios := make([][]float64, nSamples)

	for _, geneID := range cm.Genes() {
		counts := cm.Counts(geneID)

		// Geometric mean in log space; genes with any zero count carry no
		// information for this estimator.
		logSum := 0.0
		zero := false
		for _, c := range counts {
			if c == 0 {
				zero = true
				break
			}
			logSum += math.Log(float64(c))
		}
		if zero {
			continue
		}
		geoMean := math.Exp(logSum / float64(nSamples))

		for i, c := range counts {
			ratios[i] = append(ratios[i], float64(c)/geoMean)
		}
	}

	factors := make([]float64, nSamples)
	for i, r := range ratios {
		if len(r) == 0 {
			return nil, pfx.Err(fmt.Errorf("no gene is expressed in every sample; cannot estimate size factors"))
		}

		median, err := stats.Median(r)
		if err != nil {
			return nil, pfx.Err(err)
		}
		factors[i] = median
	}

	return factors, nil
}

// normalize divides each sample's counts by its size factor.
func normalize(counts []int, factors []float64) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = float64(c) / factors[i]
	}

	return out
}
