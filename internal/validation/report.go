package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/graph"
)

// Summary aggregates a Report.
type Summary struct {
	TotalArtifacts int              `json:"totalArtifacts"`
	TotalIssues    int              `json:"totalIssues"`
	BySeverity     map[Severity]int `json:"bySeverity"`
	ByKind         map[Kind]int     `json:"byKind"`
	// GapCoverage is the share of required links present, in percent.
	GapCoverage float64 `json:"gapCoverage"`
	// Completeness averages the per-artifact completeness of artifacts
	// that have requirements, in percent.
	Completeness float64 `json:"completeness"`
}

// Report is the outcome of ValidateAll.
type Report struct {
	Valid                bool               `json:"valid"`
	Issues               []Issue            `json:"issues"`
	Summary              Summary            `json:"summary"`
	ArtifactCompleteness map[string]float64 `json:"artifactCompleteness"`
	ArtifactCoverage     map[string]float64 `json:"artifactCoverage"`
	// TopologicalOrder is nil when the links contain a cycle.
	TopologicalOrder []string `json:"topologicalOrder"`
}

// ValidateAll runs every check. A check that panics is reported as one
// critical issue and the remaining checks still run.
func (v *Validator) ValidateAll(g *graph.Graph) *Report {
	r := &Report{
		Issues:               []Issue{},
		ArtifactCompleteness: map[string]float64{},
		ArtifactCoverage:     map[string]float64{},
	}
	gapCoverage := 100.0
	var completeness map[string]float64

	checks := []struct {
		kind Kind
		run  func() []Issue
	}{
		{KindConsistency, func() []Issue { return v.ValidateConsistency(g) }},
		{KindCompleteness, func() []Issue {
			is, pct := v.ValidateCompleteness(g)
			completeness = pct
			return is
		}},
		{KindGap, func() []Issue {
			is, cov := v.ValidateGaps(g)
			gapCoverage = cov.Percent
			r.ArtifactCoverage = cov.PerArtifact
			return is
		}},
		{KindDependency, func() []Issue { return v.ValidateDependencies(g) }},
		{KindReference, func() []Issue { return v.ValidateReferences(g) }},
	}
	for _, c := range checks {
		r.Issues = append(r.Issues, v.runCheck(c.kind, c.run)...)
	}

	if completeness != nil {
		r.ArtifactCompleteness = completeness
	}
	r.TopologicalOrder = g.TopologicalOrder()
	r.Summary = Summary{
		TotalArtifacts: g.Len(),
		TotalIssues:    len(r.Issues),
		BySeverity:     map[Severity]int{},
		ByKind:         map[Kind]int{},
		GapCoverage:    gapCoverage,
		Completeness:   v.averageCompleteness(g, completeness),
	}
	r.Valid = true
	for _, is := range r.Issues {
		r.Summary.BySeverity[is.Severity]++
		r.Summary.ByKind[is.Kind]++
		if blocking(is.Severity) {
			r.Valid = false
		}
	}
	v.logger.Info("validation finished",
		"artifacts", r.Summary.TotalArtifacts, "issues", r.Summary.TotalIssues, "valid", r.Valid)
	return r
}

func (v *Validator) runCheck(kind Kind, run func() []Issue) (issues []Issue) {
	defer func() {
		if p := recover(); p != nil {
			v.logger.Error("validation check failed", "check", kind, "panic", p)
			issues = []Issue{{
				Kind:     kind,
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("%s check could not run: %v", kind, p),
			}}
		}
	}()
	return run()
}

func (v *Validator) averageCompleteness(g *graph.Graph, pct map[string]float64) float64 {
	sum, n := 0.0, 0
	for _, a := range g.Artifacts() {
		if len(v.cfg.RequiredFields[a.Type])+len(v.cfg.RequiredSections[a.Type]) == 0 {
			continue
		}
		p, ok := pct[a.ID]
		if !ok {
			continue
		}
		sum += p
		n++
	}
	if n == 0 {
		return 100
	}
	return sum / float64(n)
}

// IssuesFor returns the issues attached to artifactID.
func (r *Report) IssuesFor(artifactID string) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.ArtifactID == artifactID {
			out = append(out, is)
		}
	}
	return out
}

// GenerateReport renders r as markdown.
func GenerateReport(r *Report) string {
	var b strings.Builder
	b.WriteString("# Artifact Validation Report\n\n")
	if r == nil {
		b.WriteString("No validation report available.\n")
		return b.String()
	}

	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Status: %s\n", status)
	fmt.Fprintf(&b, "- Artifacts: %d\n", r.Summary.TotalArtifacts)
	fmt.Fprintf(&b, "- Issues: %d\n", r.Summary.TotalIssues)
	fmt.Fprintf(&b, "- Gap coverage: %.1f%%\n", r.Summary.GapCoverage)
	fmt.Fprintf(&b, "- Completeness: %.1f%%\n", r.Summary.Completeness)

	b.WriteString("\n## Issues by Severity\n\n")
	b.WriteString("| Severity | Count |\n|----------|-------|\n")
	for _, s := range Severities {
		fmt.Fprintf(&b, "| %s | %d |\n", s, r.Summary.BySeverity[s])
	}

	b.WriteString("\n## Issues by Check\n\n")
	b.WriteString("| Check | Count |\n|-------|-------|\n")
	for _, k := range Kinds {
		fmt.Fprintf(&b, "| %s | %d |\n", k, r.Summary.ByKind[k])
	}

	if len(r.ArtifactCoverage) > 0 {
		b.WriteString("\n## Traceability Coverage\n\n")
		b.WriteString("| Artifact | Coverage |\n|----------|----------|\n")
		for _, id := range sortedKeys(r.ArtifactCoverage) {
			fmt.Fprintf(&b, "| %s | %.1f%% |\n", id, r.ArtifactCoverage[id])
		}
	}

	b.WriteString("\n## Dependency Order\n\n")
	if r.TopologicalOrder == nil {
		b.WriteString("Not available: the dependency graph contains a cycle.\n")
	} else if len(r.TopologicalOrder) == 0 {
		b.WriteString("No artifacts.\n")
	} else {
		fmt.Fprintf(&b, "%s\n", strings.Join(r.TopologicalOrder, " → "))
	}

	if len(r.Issues) == 0 {
		b.WriteString("\nNo issues found.\n")
		return b.String()
	}

	b.WriteString("\n## Issues\n")
	for _, s := range Severities {
		group := issuesWithSeverity(r.Issues, s)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", strings.ToUpper(string(s)))
		for _, is := range group {
			subject := is.ArtifactID
			if subject == "" {
				subject = "-"
			}
			fmt.Fprintf(&b, "- **[%s] %s**: %s", is.Kind, subject, is.Message)
			if is.Suggestion != "" {
				fmt.Fprintf(&b, " _(%s)_", is.Suggestion)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func issuesWithSeverity(issues []Issue, s Severity) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Severity == s {
			out = append(out, is)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArtifactID < out[j].ArtifactID })
	return out
}
