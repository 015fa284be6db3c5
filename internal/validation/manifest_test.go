package validation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/HendryAvila/sdd-engine/internal/graph"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "reqs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "reqs", "login.md"), []byte("## Acceptance Criteria\nDES-1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest := `artifacts:
  - id: REQ-1
    type: requirement
    name: Login
    content_file: reqs/login.md
    fields:
      priority: high
    links: [DES-1, TEST-1]
  - id: DES-1
    type: Design
    name: Login design
    version: "1.2"
    content: |
      ## Architecture
  - id: TEST-1
    type: test
    name: Login test
`
	path := filepath.Join(dir, "artifacts.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if diff := cmp.Diff([]string{"DES-1", "REQ-1", "TEST-1"}, g.IDs()); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	req, _ := g.Get("REQ-1")
	want := &graph.Artifact{
		Type:    graph.TypeRequirement,
		ID:      "REQ-1",
		Name:    "Login",
		Content: "## Acceptance Criteria\nDES-1\n",
		Fields:  map[string]string{"priority": "high"},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("REQ-1 (-want +got):\n%s", diff)
	}
	des, _ := g.Get("DES-1")
	if des.Type != graph.TypeDesign || des.Version != "1.2" {
		t.Errorf("DES-1 = %+v", des)
	}
	if diff := cmp.Diff([]string{"DES-1", "TEST-1"}, g.Links("REQ-1")); diff != "" {
		t.Errorf("links (-want +got):\n%s", diff)
	}

	report := newValidator(t, DefaultConfig()).ValidateAll(g)
	if !report.Valid || report.Summary.TotalIssues != 0 {
		t.Errorf("manifest graph report: %+v", report.Issues)
	}
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown key", "artifacts:\n  - id: A\n    type: design\n    owner: me\n", sdderr.ErrInvalidInput},
		{"duplicate id", "artifacts:\n  - {id: A, type: design}\n  - {id: A, type: test}\n", sdderr.ErrInvalidInput},
		{"bad type", "artifacts:\n  - {id: A, type: epic}\n", sdderr.ErrInvalidInput},
		{"missing id", "artifacts:\n  - {type: design}\n", sdderr.ErrInvalidInput},
		{"missing content file", "artifacts:\n  - {id: A, type: design, content_file: nope.md}\n", sdderr.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml), t.TempDir())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseManifest_Empty(t *testing.T) {
	g, err := ParseManifest(nil, t.TempDir())
	if err != nil {
		t.Fatalf("ParseManifest(empty): %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len = %d, want 0", g.Len())
	}
}
