package report

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/carbocation/pfx"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/bulkrna/degsea/gsea"
)

// 6x4 inches at 300 DPI.
const (
	plotWidth  = 1800
	plotHeight = 1200
)

const jpegQuality = 90

// PlotTerm renders one term's running enrichment score along the ranked
// list, titled with the term description and annotated with its normalized
// enrichment score and p-values, and saves it as a JPEG.
func PlotTerm(filename string, term gsea.Term) error {
	running := term.Running

	xValues := make([]float64, len(running))
	for i := range xValues {
		xValues[i] = float64(i + 1)
	}

	// Peak of the running score, for the annotation anchor.
	peakIdx := 0
	for i, v := range running {
		if absFloat(v) > absFloat(running[peakIdx]) {
			peakIdx = i
		}
	}

	graph := chart.Chart{
		Title:  term.Description,
		Width:  plotWidth,
		Height: plotHeight,
		XAxis: chart.XAxis{
			Name: "Rank in ordered gene list",
		},
		YAxis: chart.YAxis{
			Name: "Running enrichment score",
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xValues,
				YValues: running,
			},
			chart.AnnotationSeries{
				Annotations: []chart.Value2{
					{
						XValue: xValues[peakIdx],
						YValue: running[peakIdx],
						Label: fmt.Sprintf("NES=%.3f p=%.2e p.adjust=%.2e",
							term.NES, term.PValue, term.PAdjust),
					},
				},
			},
		},
	}

	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return pfx.Err(err)
	}

	// The chart backend emits PNG; transcode to the JPEG output contract.
	img, err := png.Decode(buffer)
	if err != nil {
		return pfx.Err(err)
	}

	outFile, err := os.Create(filename)
	if err != nil {
		return pfx.Err(err)
	}
	defer outFile.Close()

	if err := jpeg.Encode(outFile, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return pfx.Err(err)
	}

	return nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
