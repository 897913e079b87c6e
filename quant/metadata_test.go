package quant

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "colData.txt",
		"X\tcondition\ns1\tPBS\ns2\tPBS\ns3\tIL1a\ns4\tIL1a\n")

	meta, err := LoadMetadata(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(meta.Samples) != 4 {
		t.Fatalf("parsed %d samples, expected 4", len(meta.Samples))
	}
	if meta.Samples[0].ID != "s1" || meta.Samples[0].Condition != "PBS" {
		t.Fatalf("first sample = %+v", meta.Samples[0])
	}

	groups := meta.Groups()
	if len(groups["PBS"]) != 2 || len(groups["IL1a"]) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	if meta.SmallestGroupSize() != 2 {
		t.Fatalf("smallest group size = %d, expected 2", meta.SmallestGroupSize())
	}
}

func TestLoadMetadataMissingFile(t *testing.T) {
	if _, err := LoadMetadata(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected an error for a missing metadata file")
	}
}

func TestLoadMetadataMissingCondition(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "colData.txt", "X\tcondition\ns1\tPBS\ns2\t\n")

	if _, err := LoadMetadata(path); err == nil {
		t.Fatal("expected an error for a sample without a condition")
	}
}

func TestSmallestGroupSizeUneven(t *testing.T) {
	meta := &Metadata{Samples: []Sample{
		{ID: "a", Condition: "x"},
		{ID: "b", Condition: "x"},
		{ID: "c", Condition: "x"},
		{ID: "d", Condition: "y"},
		{ID: "e", Condition: "y"},
	}}

	if got := meta.SmallestGroupSize(); got != 2 {
		t.Fatalf("smallest group size = %d, expected 2", got)
	}
}
