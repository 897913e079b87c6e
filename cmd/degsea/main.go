// degsea runs the RNA-seq analysis for the paper's seven sample comparisons:
// differential gene expression on salmon quantifications, preranked gene-set
// enrichment against six gene-set families, and per-term plot rendering.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/bulkrna/degsea/deg"
	"github.com/bulkrna/degsea/geneset"
	"github.com/bulkrna/degsea/gsea"
	"github.com/bulkrna/degsea/quant"
	"github.com/bulkrna/degsea/report"
)

// Adjusted-p threshold for calling a gene significant.
const alpha = 0.05

// Group-sum count threshold for the low-count gene filter.
const countThreshold = 10

// Comparison is one registry entry: a name locating the metadata file, the
// metadata file itself, and the contrast label naming treatment and baseline
// around a single "_vs_" token.
type Comparison struct {
	Name         string
	MetadataFile string
	Contrast     string
}

// The seven comparisons of the study, run unconditionally in this order.
var comparisons = []Comparison{
	{Name: "IL1a_vs_PBS", MetadataFile: "colData_IL1a_vs_PBS.txt", Contrast: "IL1a_vs_PBS"},
	{Name: "IL1b_vs_PBS", MetadataFile: "colData_IL1b_vs_PBS.txt", Contrast: "IL1b_vs_PBS"},
	{Name: "TNFa_vs_PBS", MetadataFile: "colData_TNFa_vs_PBS.txt", Contrast: "TNFa_vs_PBS"},
	{Name: "LPS_vs_PBS", MetadataFile: "colData_LPS_vs_PBS.txt", Contrast: "LPS_vs_PBS"},
	{Name: "IL1a_vs_IL1b", MetadataFile: "colData_IL1a_vs_IL1b.txt", Contrast: "IL1a_vs_IL1b"},
	{Name: "TNFa_vs_IL1a", MetadataFile: "colData_TNFa_vs_IL1a.txt", Contrast: "TNFa_vs_IL1a"},
	{Name: "IL1aTNFa_vs_PBS", MetadataFile: "colData_IL1aTNFa_vs_PBS.txt", Contrast: "IL1aTNFa_vs_PBS"},
}

func main() {
	var (
		inputRoot      string
		resultsRoot    string
		annotationRoot string
		organism       string
		permutations   int
		concurrency    int
	)

	flag.StringVar(&inputRoot, "input", "input", "Directory holding per-sample salmon output, salmon_tx2gene.tsv, and the GMT/ custom gene-set directory")
	flag.StringVar(&resultsRoot, "results", "results", "Directory holding per-comparison metadata and receiving all output")
	flag.StringVar(&annotationRoot, "annotation", filepath.Join("input", "annotation"), "Directory holding the gene-set and identifier annotation tables")
	flag.StringVar(&organism, "organism", "hsa", "Organism code for the pathway database")
	flag.IntVar(&permutations, "permutations", 1000, "Gene-label permutations per enrichment term")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Concurrent reporting workers")
	flag.Parse()

	// Pre-flight: report which metadata files exist before any processing.
	for _, comparison := range comparisons {
		path := filepath.Join(resultsRoot, comparison.Name, comparison.MetadataFile)
		if _, err := os.Stat(path); err != nil {
			fmt.Printf("%s: metadata %s does not exist\n", comparison.Name, path)
		} else {
			fmt.Printf("%s: metadata %s exists\n", comparison.Name, path)
		}
	}

	tx2gene, err := quant.LoadTx2Gene(quant.Tx2GenePath(inputRoot))
	if err != nil {
		log.Fatalln(err)
	}
	log.Println("Loaded", len(tx2gene), "transcript-to-gene mappings")

	provider, err := geneset.Load(annotationRoot, filepath.Join(inputRoot, "GMT"), organism)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Loaded gene sets: MSigDB=%d KEGG=%d GO_CC=%d GO_BP=%d GO_MF=%d custom=%d\n",
		len(provider.MSigDB.Sets), len(provider.KEGG.Sets), len(provider.GOCC.Sets),
		len(provider.GOBP.Sets), len(provider.GOMF.Sets), len(provider.Custom.Sets))

	for _, comparison := range comparisons {
		if err := runComparison(comparison, inputRoot, resultsRoot, tx2gene, provider, permutations, concurrency); err != nil {
			// Fatal for this comparison only; the remaining comparisons
			// still run.
			log.Printf("%s: %v\n", comparison.Name, err)
		}
	}
}

func runComparison(comparison Comparison, inputRoot, resultsRoot string, tx2gene map[string]string, provider *geneset.Provider, permutations, concurrency int) error {
	log.Println("Processing", comparison.Name)

	for _, family := range geneset.Families {
		if err := os.MkdirAll(filepath.Join(resultsRoot, comparison.Contrast, family), os.ModePerm); err != nil {
			return err
		}
	}

	meta, err := quant.LoadMetadata(filepath.Join(resultsRoot, comparison.Name, comparison.MetadataFile))
	if err != nil {
		return err
	}

	treatment, baseline, err := quant.ParseContrast(comparison.Contrast)
	if err != nil {
		return err
	}

	counts, err := quant.BuildCounts(inputRoot, meta, tx2gene)
	if err != nil {
		return err
	}
	filtered := counts.FilterLowCounts(meta, countThreshold)
	log.Printf("%s: %d of %d genes pass the low-count filter\n", comparison.Name, filtered.NGenes(), counts.NGenes())

	table, err := deg.Compute(filtered, meta, treatment, baseline, provider.Ensembl2Entrez)
	if err != nil {
		return err
	}

	if err := report.WriteDEGTable(filepath.Join(resultsRoot, comparison.Contrast, "DEG_Table.txt"), table); err != nil {
		return err
	}

	significant := make(map[string]bool)
	for _, r := range table.Results {
		if r.PAdj.Valid && r.PAdj.Float64 < alpha && r.Entrez.Valid {
			significant[strconv.FormatInt(r.Entrez.Int64, 10)] = true
		}
	}
	log.Printf("%s: %d significant genes at padj < %g\n", comparison.Name, len(significant), alpha)

	ranked := table.RankedList()
	if len(ranked) == 0 {
		return fmt.Errorf("no genes with a cross-reference identifier; cannot rank")
	}

	bundle := gsea.EnrichAll(ranked, provider, comparison.Contrast, permutations, significant)
	report.Write(bundle, comparison.Contrast, resultsRoot, provider.Entrez2Symbol, concurrency)

	return nil
}
