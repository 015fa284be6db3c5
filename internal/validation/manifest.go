package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/sdd-engine/internal/graph"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// Manifest is the YAML description of an artifact set.
//
//	artifacts:
//	  - id: REQ-1
//	    type: requirement
//	    name: Login
//	    content_file: requirements/login.md
//	    links: [DES-1, TEST-1]
type Manifest struct {
	Artifacts []ManifestArtifact `yaml:"artifacts"`
}

// ManifestArtifact is one artifact entry. ContentFile, when set, is read
// relative to the manifest and replaces Content.
type ManifestArtifact struct {
	ID          string            `yaml:"id"`
	Type        string            `yaml:"type"`
	Name        string            `yaml:"name"`
	Version     string            `yaml:"version"`
	Content     string            `yaml:"content"`
	ContentFile string            `yaml:"content_file"`
	Fields      map[string]string `yaml:"fields"`
	Links       []string          `yaml:"links"`
}

// LoadManifest reads the manifest at path and builds a deferred-mode graph.
func LoadManifest(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sdderr.Persistence("reading manifest", err)
	}
	return ParseManifest(data, filepath.Dir(path))
}

// ParseManifest decodes data; content files resolve against baseDir.
// Unknown keys and duplicate ids are rejected.
func ParseManifest(data []byte, baseDir string) (*graph.Graph, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, sdderr.Invalid("parsing manifest: %v", err)
	}

	g := graph.New()
	seen := make(map[string]bool)
	for i, ma := range m.Artifacts {
		if seen[ma.ID] {
			return nil, sdderr.Invalid("manifest artifact %d: duplicate id %q", i, ma.ID)
		}
		seen[ma.ID] = true

		t, err := graph.ParseType(ma.Type)
		if err != nil {
			return nil, fmt.Errorf("manifest artifact %q: %w", ma.ID, err)
		}
		content := ma.Content
		if ma.ContentFile != "" {
			p := ma.ContentFile
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			b, err := os.ReadFile(p)
			if err != nil {
				return nil, sdderr.Persistence(fmt.Sprintf("reading content of %s", ma.ID), err)
			}
			content = string(b)
		}
		if err := g.Register(&graph.Artifact{
			Type:    t,
			ID:      ma.ID,
			Name:    ma.Name,
			Version: ma.Version,
			Content: content,
			Fields:  ma.Fields,
		}); err != nil {
			return nil, fmt.Errorf("manifest artifact %d: %w", i, err)
		}
		for _, to := range ma.Links {
			if err := g.Link(ma.ID, to); err != nil {
				return nil, fmt.Errorf("manifest artifact %q: %w", ma.ID, err)
			}
		}
	}
	return g, nil
}
