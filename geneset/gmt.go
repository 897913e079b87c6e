// Package geneset loads the annotated gene-set collections that enrichment
// testing runs against, normalized to the Entrez identifier scheme of the
// ranked gene list.
package geneset

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
)

// Set is one gene set: a description and its member identifiers.
type Set struct {
	Description string
	Members     []string
}

// Collection maps term names to gene sets for one gene-set family.
type Collection struct {
	Family string
	Sets   map[string]Set
}

// Terms returns the collection's term names in sorted order.
func (c *Collection) Terms() []string {
	terms := make([]string, 0, len(c.Sets))
	for term := range c.Sets {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	return terms
}

// ParseGMT reads a GMT gene-set file: one set per line, tab-separated, with
// the set name in column 1, a description in column 2, and member gene
// identifiers in the remaining columns. Lines with fewer than three columns
// are skipped.
func ParseGMT(path string) (map[string]Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	sets := make(map[string]Set)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}

		description := fields[1]
		if description == "" {
			description = fields[0]
		}

		members := make([]string, 0, len(fields)-2)
		for _, member := range fields[2:] {
			if member != "" {
				members = append(members, member)
			}
		}
		if len(members) == 0 {
			continue
		}

		sets[fields[0]] = Set{Description: description, Members: members}
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	if len(sets) == 0 {
		return nil, pfx.Err(fmt.Errorf("gene-set file %s holds no sets", path))
	}

	return sets, nil
}
