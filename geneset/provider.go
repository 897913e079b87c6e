package geneset

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"
)

// Gene-set family labels. These double as the per-comparison output
// directory names.
const (
	FamilyMSigDB = "MSIGDB"
	FamilyKEGG   = "KEGG"
	FamilyGOCC   = "GO_CC"
	FamilyGOBP   = "GO_BP"
	FamilyGOMF   = "GO_MF"
	FamilyCustom = "custom"
)

// Families lists every gene-set family in reporting order.
var Families = []string{FamilyMSigDB, FamilyKEGG, FamilyGOCC, FamilyGOBP, FamilyGOMF, FamilyCustom}

// msigdbRow is one (term, gene) pair of the curated signature table.
type msigdbRow struct {
	Term   string `csv:"gs_name"`
	Entrez int64  `csv:"entrez_gene"`
}

// Provider holds every gene-set collection plus the identifier lookup
// tables. It is built once per process and shared read-only across all
// comparisons and all parallel reporting branches.
type Provider struct {
	MSigDB *Collection
	KEGG   *Collection
	GOCC   *Collection
	GOBP   *Collection
	GOMF   *Collection
	Custom *Collection

	Ensembl2Entrez map[string]int64
	Symbol2Entrez  map[string]int64
	Entrez2Symbol  map[int64]string
}

// Collections returns the loaded collections in reporting order. The custom
// collection is included even when empty; enrichment handles zero sets.
func (p *Provider) Collections() []*Collection {
	return []*Collection{p.MSigDB, p.KEGG, p.GOCC, p.GOBP, p.GOMF, p.Custom}
}

// Load builds the provider from the annotation directory and the custom GMT
// directory. The four families load concurrently; any failure other than a
// missing custom directory is fatal.
func Load(annotationRoot, gmtDir, organism string) (*Provider, error) {
	p := &Provider{}

	var err error
	p.Ensembl2Entrez, err = LoadEnsembl2Entrez(filepath.Join(annotationRoot, "ensembl2entrez.tsv"))
	if err != nil {
		return nil, pfx.Err(err)
	}
	p.Symbol2Entrez, p.Entrez2Symbol, err = LoadGeneInfo(filepath.Join(annotationRoot, "gene_info.tsv"))
	if err != nil {
		return nil, pfx.Err(err)
	}

	var g errgroup.Group

	g.Go(func() error {
		coll, err := loadMSigDB(filepath.Join(annotationRoot, "msigdb.tsv"))
		if err != nil {
			return err
		}
		p.MSigDB = coll
		return nil
	})

	g.Go(func() error {
		sets, err := ParseGMT(filepath.Join(annotationRoot, fmt.Sprintf("kegg_%s.gmt", organism)))
		if err != nil {
			return err
		}
		p.KEGG = &Collection{Family: FamilyKEGG, Sets: sets}
		return nil
	})

	g.Go(func() error {
		for _, branch := range []struct {
			family string
			file   string
			dest   **Collection
		}{
			{FamilyGOCC, "go_cc.gmt", &p.GOCC},
			{FamilyGOBP, "go_bp.gmt", &p.GOBP},
			{FamilyGOMF, "go_mf.gmt", &p.GOMF},
		} {
			sets, err := ParseGMT(filepath.Join(annotationRoot, branch.file))
			if err != nil {
				return err
			}
			*branch.dest = &Collection{Family: branch.family, Sets: sets}
		}
		return nil
	})

	g.Go(func() error {
		coll, err := loadCustom(gmtDir, p.Symbol2Entrez)
		if err != nil {
			return err
		}
		p.Custom = coll
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, pfx.Err(err)
	}

	return p, nil
}

// loadMSigDB reads the curated signature table of (term, Entrez gene) pairs
// into a collection.
func loadMSigDB(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	// Tell gocsv to use tab as the delimiter. Streamed rather than slurped:
	// the signature table is by far the largest annotation input.
	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true

	rows := []*msigdbRow{}
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	coll := &Collection{Family: FamilyMSigDB, Sets: make(map[string]Set)}
	for _, row := range rows {
		if row.Term == "" {
			continue
		}
		set := coll.Sets[row.Term]
		if set.Description == "" {
			set.Description = row.Term
		}
		set.Members = append(set.Members, strconv.FormatInt(row.Entrez, 10))
		coll.Sets[row.Term] = set
	}

	if len(coll.Sets) == 0 {
		return nil, pfx.Err(fmt.Errorf("signature table %s holds no sets", path))
	}

	return coll, nil
}

// loadCustom parses every GMT file in dir, concatenates their sets, and maps
// member gene symbols to Entrez identifiers. A missing directory yields an
// empty collection rather than an error.
func loadCustom(dir string, symbol2entrez map[string]int64) (*Collection, error) {
	coll := &Collection{Family: FamilyCustom, Sets: make(map[string]Set)}

	paths, err := filepath.Glob(filepath.Join(dir, "*.gmt"))
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(paths) == 0 {
		log.Println("No custom gene sets found under", dir)
		return coll, nil
	}

	for _, path := range paths {
		sets, err := ParseGMT(path)
		if err != nil {
			return nil, pfx.Err(err)
		}

		for term, set := range sets {
			members := make([]string, 0, len(set.Members))
			for _, symbol := range set.Members {
				if id, exists := symbol2entrez[symbol]; exists {
					members = append(members, strconv.FormatInt(id, 10))
				}
			}
			if len(members) == 0 {
				continue
			}
			coll.Sets[term] = Set{Description: set.Description, Members: members}
		}
	}

	return coll, nil
}
