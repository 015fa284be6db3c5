package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRead_MissingFile(t *testing.T) {
	var d doc
	found, err := Read(filepath.Join(t.TempDir(), "nope.json"), &d)
	if err != nil {
		t.Fatalf("Read missing: %v", err)
	}
	if found {
		t.Error("found = true for missing file")
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	if err := Write(path, doc{Name: "a", Count: 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got doc
	found, err := Read(path, &got)
	if err != nil || !found {
		t.Fatalf("Read: found=%v err=%v", found, err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, "doc.json"), doc{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1", len(entries))
	}
}

func TestRead_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var d doc
	found, err := Read(path, &d)
	if !found {
		t.Error("found should be true for an existing file")
	}
	if !IsCorrupt(err) {
		t.Errorf("IsCorrupt(%v) = false", err)
	}
}
