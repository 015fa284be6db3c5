// Package graph holds the artifact graph: requirements, designs, tests
// and other artifacts connected by link and reference edges.
package graph

import (
	"sort"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// ArtifactType classifies an artifact.
type ArtifactType string

const (
	TypeRequirement    ArtifactType = "requirement"
	TypeDesign         ArtifactType = "design"
	TypeImplementation ArtifactType = "implementation"
	TypeTest           ArtifactType = "test"
	TypeDocumentation  ArtifactType = "documentation"
	TypeSteering       ArtifactType = "steering"
)

// Types lists every artifact type.
func Types() []ArtifactType {
	return []ArtifactType{TypeRequirement, TypeDesign, TypeImplementation, TypeTest, TypeDocumentation, TypeSteering}
}

// ParseType accepts a type name case-insensitively.
func ParseType(s string) (ArtifactType, error) {
	t := ArtifactType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", sdderr.Invalid("unknown artifact type %q", s)
}

// Artifact is a node in the graph.
type Artifact struct {
	Type    ArtifactType      `json:"type" yaml:"type"`
	ID      string            `json:"id" yaml:"id"`
	Name    string            `json:"name" yaml:"name"`
	Version string            `json:"version,omitempty" yaml:"version,omitempty"`
	Content string            `json:"content,omitempty" yaml:"content,omitempty"`
	Fields  map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// EdgeKind distinguishes declared links from references found in content.
type EdgeKind string

const (
	EdgeLink      EdgeKind = "link"
	EdgeReference EdgeKind = "reference"
)

// Edge is a directed connection between two artifact ids.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Graph indexes artifacts by id. It keeps the caller's *Artifact values
// rather than copies. Edge sets are deduplicated. In the default deferred
// mode edges may name ids that are registered later (or never); strict
// mode rejects them at insertion.
type Graph struct {
	nodes  map[string]*Artifact
	links  map[string]map[string]bool
	refs   map[string]map[string]bool
	strict bool
}

// Option configures a Graph.
type Option func(*Graph)

// Strict makes Link and Reference reject unknown endpoints.
func Strict() Option {
	return func(g *Graph) { g.strict = true }
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes: make(map[string]*Artifact),
		links: make(map[string]map[string]bool),
		refs:  make(map[string]map[string]bool),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Register adds a or replaces the artifact with the same id. Edges
// already recorded for the id are kept.
func (g *Graph) Register(a *Artifact) error {
	if a == nil {
		return sdderr.Invalid("artifact is required")
	}
	if strings.TrimSpace(a.ID) == "" {
		return sdderr.Invalid("artifact id is required")
	}
	if _, err := ParseType(string(a.Type)); err != nil {
		return err
	}
	g.nodes[a.ID] = a
	return nil
}

// Get returns the artifact registered under id.
func (g *Graph) Get(id string) (*Artifact, bool) {
	a, ok := g.nodes[id]
	return a, ok
}

// Has reports whether id is registered.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of registered artifacts.
func (g *Graph) Len() int { return len(g.nodes) }

// IDs returns registered ids in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Artifacts returns registered artifacts sorted by id.
func (g *Graph) Artifacts() []*Artifact {
	out := make([]*Artifact, 0, len(g.nodes))
	for _, id := range g.IDs() {
		out = append(out, g.nodes[id])
	}
	return out
}

// Link records a declared dependency from -> to.
func (g *Graph) Link(from, to string) error {
	return g.addEdge(g.links, from, to)
}

// Reference records that from's content mentions to.
func (g *Graph) Reference(from, to string) error {
	return g.addEdge(g.refs, from, to)
}

func (g *Graph) addEdge(set map[string]map[string]bool, from, to string) error {
	if from == "" || to == "" {
		return sdderr.Invalid("edge endpoints are required")
	}
	if g.strict {
		for _, id := range []string{from, to} {
			if !g.Has(id) {
				return sdderr.Invalid("artifact %q is not registered", id)
			}
		}
	}
	if set[from] == nil {
		set[from] = make(map[string]bool)
	}
	set[from][to] = true
	return nil
}

// Links returns the targets linked from id, sorted.
func (g *Graph) Links(id string) []string { return sortedKeys(g.links[id]) }

// References returns the ids referenced by id, sorted.
func (g *Graph) References(id string) []string { return sortedKeys(g.refs[id]) }

// LinkedFrom returns the ids that link to id, sorted.
func (g *Graph) LinkedFrom(id string) []string { return incoming(g.links, id) }

// ReferencedBy returns the ids that reference id, sorted.
func (g *Graph) ReferencedBy(id string) []string { return incoming(g.refs, id) }

// Edges returns all edges ordered by kind, source, then target.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, kind := range []EdgeKind{EdgeLink, EdgeReference} {
		set := g.links
		if kind == EdgeReference {
			set = g.refs
		}
		for _, from := range sortedKeys(set) {
			for _, to := range sortedKeys(set[from]) {
				out = append(out, Edge{From: from, To: to, Kind: kind})
			}
		}
	}
	return out
}

// DanglingEdges returns edges with at least one unregistered endpoint.
func (g *Graph) DanglingEdges() []Edge {
	var out []Edge
	for _, e := range g.Edges() {
		if !g.Has(e.From) || !g.Has(e.To) {
			out = append(out, e)
		}
	}
	return out
}

func incoming[V any](set map[string]map[string]V, id string) []string {
	var out []string
	for from, targets := range set {
		if _, ok := targets[id]; ok {
			out = append(out, from)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
