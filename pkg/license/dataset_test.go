package license

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corepkg/extractor/pkg/errors"
)

func TestNewDatasetDropsEmptyRefs(t *testing.T) {
	ds := NewDataset([]Reference{
		{ID: "MIT", Text: "mit text"},
		{ID: "", Text: "orphan"},
		{ID: "Empty", Text: ""},
	})

	if ds.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ds.Len())
	}
	if ds.References()[0].ID != "MIT" {
		t.Errorf("kept ref = %s, want MIT", ds.References()[0].ID)
	}
}

func TestNewDatasetSortsByID(t *testing.T) {
	ds := NewDataset([]Reference{
		{ID: "Zlib", Text: "z"},
		{ID: "Apache-2.0", Text: "a"},
		{ID: "MIT", Text: "m"},
	})

	want := []string{"Apache-2.0", "MIT", "Zlib"}
	for i, ref := range ds.References() {
		if ref.ID != want[i] {
			t.Errorf("refs[%d] = %s, want %s", i, ref.ID, want[i])
		}
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "mit.json"), `{"licenseId":"MIT","licenseText":"mit text"}`)
	writeFile(t, filepath.Join(dir, "apache.json"), `{"licenseId":"Apache-2.0","licenseText":"apache text"}`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{not json`)
	writeFile(t, filepath.Join(dir, "notes.txt"), `ignored`)

	ds, err := LoadDataset(dir)
	if err != nil {
		t.Fatalf("LoadDataset error: %v", err)
	}
	if ds.Len() != 2 {
		t.Errorf("Len = %d, want 2 (broken and non-JSON files skipped)", ds.Len())
	}
}

func TestLoadDatasetEmptyDir(t *testing.T) {
	_, err := LoadDataset(t.TempDir())
	if err == nil {
		t.Fatal("expected error for empty dataset directory")
	}
	if !errors.Is(err, errors.ErrCodeInvalidDataset) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidDataset)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
