package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/graph"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// Config holds the per-type requirements the checks enforce.
type Config struct {
	RequiredFields    map[graph.ArtifactType][]string
	RequiredSections  map[graph.ArtifactType][]string
	RequiredLinks     map[graph.ArtifactType][]graph.ArtifactType
	ReferencePatterns []string
	AllowCycles       bool
}

// DefaultConfig requires requirements to link to a design and a test.
func DefaultConfig() Config {
	return Config{
		RequiredFields: map[graph.ArtifactType][]string{
			graph.TypeRequirement: {"name", "content"},
			graph.TypeDesign:      {"name", "content"},
			graph.TypeTest:        {"name"},
		},
		RequiredSections: map[graph.ArtifactType][]string{
			graph.TypeRequirement: {"Acceptance Criteria"},
			graph.TypeDesign:      {"Architecture"},
		},
		RequiredLinks: map[graph.ArtifactType][]graph.ArtifactType{
			graph.TypeRequirement: {graph.TypeDesign, graph.TypeTest},
		},
		ReferencePatterns: []string{`REQ-\d+`, `DES-\d+`, `TEST-\d+`, `#\d+`},
	}
}

// Validator runs the five checks over a graph.
type Validator struct {
	cfg      Config
	rules    []ConsistencyRule
	patterns []*regexp.Regexp
	sections map[string]*regexp.Regexp
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithRules replaces the built-in consistency rules.
func WithRules(rules ...ConsistencyRule) Option {
	return func(v *Validator) { v.rules = rules }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New compiles cfg. An invalid reference pattern is an input error.
func New(cfg Config, opts ...Option) (*Validator, error) {
	v := &Validator{
		cfg:      cfg,
		rules:    DefaultRules(),
		sections: make(map[string]*regexp.Regexp),
		logger:   slog.Default(),
	}
	for _, p := range cfg.ReferencePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, sdderr.Invalid("reference pattern %q: %v", p, err)
		}
		v.patterns = append(v.patterns, re)
	}
	for _, titles := range cfg.RequiredSections {
		for _, title := range titles {
			v.sections[title] = regexp.MustCompile(`(?m)^##?\s+` + regexp.QuoteMeta(title) + `\s*$`)
		}
	}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// ValidateConsistency runs every consistency rule.
func (v *Validator) ValidateConsistency(g *graph.Graph) []Issue {
	arts := g.Artifacts()
	var out []Issue
	for _, r := range v.rules {
		for _, is := range r.Check(arts) {
			is.Kind = KindConsistency
			if is.Metadata == nil {
				is.Metadata = map[string]string{}
			}
			is.Metadata["rule"] = r.Name()
			out = append(out, is)
		}
	}
	return out
}

// ValidateCompleteness reports missing required fields (error) and
// sections (warning), and each artifact's completeness percentage.
func (v *Validator) ValidateCompleteness(g *graph.Graph) ([]Issue, map[string]float64) {
	var out []Issue
	pct := make(map[string]float64)
	for _, a := range g.Artifacts() {
		fields := v.cfg.RequiredFields[a.Type]
		sections := v.cfg.RequiredSections[a.Type]
		total := len(fields) + len(sections)
		present := 0
		for _, f := range fields {
			if fieldValue(a, f) != "" {
				present++
				continue
			}
			out = append(out, Issue{
				Kind:       KindCompleteness,
				Severity:   SeverityError,
				Message:    fmt.Sprintf("%s %s is missing required field %q", a.Type, a.ID, f),
				ArtifactID: a.ID,
				Location:   "field:" + f,
				Suggestion: fmt.Sprintf("set %q", f),
			})
		}
		for _, s := range sections {
			if v.sections[s].MatchString(a.Content) {
				present++
				continue
			}
			out = append(out, Issue{
				Kind:       KindCompleteness,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("%s %s is missing section %q", a.Type, a.ID, s),
				ArtifactID: a.ID,
				Location:   "section:" + s,
				Suggestion: fmt.Sprintf("add a \"## %s\" heading", s),
			})
		}
		pct[a.ID] = percent(present, total)
	}
	return out, pct
}

// fieldValue resolves a required field name against the artifact's
// built-in attributes first, then its free-form fields.
func fieldValue(a *graph.Artifact, name string) string {
	switch strings.ToLower(name) {
	case "id":
		return a.ID
	case "name":
		return strings.TrimSpace(a.Name)
	case "version":
		return strings.TrimSpace(a.Version)
	case "content":
		return strings.TrimSpace(a.Content)
	}
	return strings.TrimSpace(a.Fields[name])
}

// Coverage summarizes required-link coverage.
type Coverage struct {
	Required    int                `json:"required"`
	Missing     int                `json:"missing"`
	Percent     float64            `json:"percent"`
	PerArtifact map[string]float64 `json:"perArtifact"`
}

// ValidateGaps emits a warning for every required link type an artifact
// has no outgoing link to.
func (v *Validator) ValidateGaps(g *graph.Graph) ([]Issue, Coverage) {
	var out []Issue
	cov := Coverage{PerArtifact: make(map[string]float64)}
	for _, a := range g.Artifacts() {
		required := v.cfg.RequiredLinks[a.Type]
		if len(required) == 0 {
			continue
		}
		linked := make(map[graph.ArtifactType]bool)
		for _, to := range g.Links(a.ID) {
			if target, ok := g.Get(to); ok {
				linked[target.Type] = true
			}
		}
		missing := 0
		for _, t := range required {
			if linked[t] {
				continue
			}
			missing++
			out = append(out, Issue{
				Kind:       KindGap,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("%s %s has no link to a %s", a.Type, a.ID, t),
				ArtifactID: a.ID,
				Suggestion: fmt.Sprintf("link %s to the %s that covers it", a.ID, t),
				Metadata:   map[string]string{"sourceType": string(a.Type), "missingType": string(t)},
			})
		}
		cov.Required += len(required)
		cov.Missing += missing
		cov.PerArtifact[a.ID] = percent(len(required)-missing, len(required))
	}
	cov.Percent = percent(cov.Required-cov.Missing, cov.Required)
	return out, cov
}

// ValidateDependencies reports link cycles (error, or info when cycles
// are allowed) and edges whose endpoints are not registered (error).
func (v *Validator) ValidateDependencies(g *graph.Graph) []Issue {
	var out []Issue
	sev := SeverityError
	if v.cfg.AllowCycles {
		sev = SeverityInfo
	}
	for _, c := range g.Cycles() {
		out = append(out, Issue{
			Kind:       KindDependency,
			Severity:   sev,
			Message:    fmt.Sprintf("dependency cycle: %s -> %s", strings.Join(c, " -> "), c[0]),
			ArtifactID: c[0],
			Related:    c,
			Suggestion: "break the cycle by removing one of its links",
		})
	}
	for _, e := range g.DanglingEdges() {
		var missing []string
		for _, id := range []string{e.From, e.To} {
			if !g.Has(id) {
				missing = append(missing, id)
			}
		}
		out = append(out, Issue{
			Kind:       KindDependency,
			Severity:   SeverityError,
			Message:    fmt.Sprintf("%s %s -> %s points to unregistered artifact(s) %s", e.Kind, e.From, e.To, strings.Join(missing, ", ")),
			ArtifactID: e.From,
			Related:    missing,
			Metadata:   map[string]string{"edge": string(e.Kind)},
		})
	}
	return out
}

// ValidateReferences extracts ids from artifact content. Known ids are
// recorded as reference edges; unknown ids produce a warning.
func (v *Validator) ValidateReferences(g *graph.Graph) []Issue {
	var out []Issue
	for _, a := range g.Artifacts() {
		for _, id := range v.extractRefs(a.Content) {
			if id == a.ID {
				continue
			}
			if g.Has(id) {
				if err := g.Reference(a.ID, id); err != nil {
					v.logger.Warn("could not record reference", "from", a.ID, "to", id, "error", err)
				}
				continue
			}
			out = append(out, Issue{
				Kind:       KindReference,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("%s references unknown artifact %s", a.ID, id),
				ArtifactID: a.ID,
				Related:    []string{id},
				Suggestion: fmt.Sprintf("register %s or fix the reference", id),
			})
		}
	}
	return out
}

// extractRefs returns distinct matches in first-seen order.
func (v *Validator) extractRefs(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, re := range v.patterns {
		for _, m := range re.FindAllString(content, -1) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(part) * 100 / float64(total)
}

func sortedIDs(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
