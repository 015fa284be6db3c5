package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/graph"
)

// ConsistencyRule inspects all artifacts at once. Kind is filled in by
// the validator.
type ConsistencyRule interface {
	Name() string
	Check(artifacts []*graph.Artifact) []Issue
}

// DefaultRules returns the built-in consistency rules.
func DefaultRules() []ConsistencyRule {
	return []ConsistencyRule{NameCollisionRule{}, VersionDriftRule{}}
}

// NameCollisionRule warns when distinct artifacts have names equal after
// lower-casing and removing '-', '_' and spaces.
type NameCollisionRule struct{}

func (NameCollisionRule) Name() string { return "name-collision" }

func (NameCollisionRule) Check(artifacts []*graph.Artifact) []Issue {
	groups := make(map[string]map[string]bool)
	for _, a := range artifacts {
		key := normalizeName(a.Name)
		if key == "" {
			continue
		}
		if groups[key] == nil {
			groups[key] = make(map[string]bool)
		}
		groups[key][a.ID] = true
	}

	var out []Issue
	for _, key := range sortedKeys(groups) {
		ids := sortedIDs(groups[key])
		if len(ids) < 2 {
			continue
		}
		out = append(out, Issue{
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("artifacts %s have colliding names", strings.Join(ids, ", ")),
			ArtifactID: ids[0],
			Related:    ids,
			Suggestion: "give each artifact a distinct name",
			Metadata:   map[string]string{"normalized": key},
		})
	}
	return out
}

func normalizeName(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(name)))
}

// VersionDriftRule warns when artifacts of one type carry more than one
// distinct version.
type VersionDriftRule struct{}

func (VersionDriftRule) Name() string { return "version-drift" }

func (VersionDriftRule) Check(artifacts []*graph.Artifact) []Issue {
	versions := make(map[graph.ArtifactType]map[string]bool)
	ids := make(map[graph.ArtifactType]map[string]bool)
	for _, a := range artifacts {
		if a.Version == "" {
			continue
		}
		if versions[a.Type] == nil {
			versions[a.Type] = make(map[string]bool)
			ids[a.Type] = make(map[string]bool)
		}
		versions[a.Type][a.Version] = true
		ids[a.Type][a.ID] = true
	}

	var out []Issue
	for _, t := range graph.Types() {
		if len(versions[t]) < 2 {
			continue
		}
		vs := sortedIDs(versions[t])
		related := sortedIDs(ids[t])
		out = append(out, Issue{
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("%s artifacts use %d versions: %s", t, len(vs), strings.Join(vs, ", ")),
			ArtifactID: related[0],
			Related:    related,
			Suggestion: fmt.Sprintf("align all %s artifacts on one version", t),
			Metadata:   map[string]string{"type": string(t), "versions": strings.Join(vs, ",")},
		})
	}
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
