package constitution

import "fmt"

// BlockDecision says whether a check result blocks a merge and whether it
// needs a Phase -1 (pre-implementation) review.
type BlockDecision struct {
	ShouldBlock           bool     `json:"shouldBlock"`
	RequiresPhaseMinusOne bool     `json:"requiresPhaseMinusOne"`
	Reasons               []string `json:"reasons"`
}

// ShouldBlockMerge blocks iff some violation is critical. Phase -1 review
// is required iff Article VII has a high-severity violation or Article
// VIII has any. Low and info violations never block. Reasons follow the
// result's file order and are deduplicated.
func ShouldBlockMerge(r *CheckResult) BlockDecision {
	d := BlockDecision{Reasons: []string{}}
	if r == nil {
		return d
	}
	seen := make(map[string]bool)
	reason := func(s string) {
		if !seen[s] {
			seen[s] = true
			d.Reasons = append(d.Reasons, s)
		}
	}

	for _, v := range r.Violations() {
		if v.Severity == SeverityCritical {
			d.ShouldBlock = true
			reason(fmt.Sprintf("critical violation of Article %s in %s: %s", v.Article, v.File, v.Message))
		}
		if RequiresPhaseMinusOne(v) {
			d.RequiresPhaseMinusOne = true
			reason(fmt.Sprintf("Phase -1 review required by Article %s (%s) in %s: %s",
				v.Article, v.ArticleName, v.File, v.Message))
		}
	}
	if n := r.Summary.BySeverity[SeverityError]; n > 0 {
		reason(fmt.Sprintf("%d check(s) could not be evaluated; the result is incomplete", n))
	}
	return d
}

// RequiresPhaseMinusOne reports whether v alone demands a Phase -1 review.
func RequiresPhaseMinusOne(v Violation) bool {
	switch v.Article {
	case ArticleVII:
		return v.Severity == SeverityHigh || v.Severity == SeverityCritical
	case ArticleVIII:
		return v.Severity != SeverityError
	}
	return false
}

// GateViolations returns the violations that justify opening a review gate.
func GateViolations(r *CheckResult) []Violation {
	var out []Violation
	if r == nil {
		return out
	}
	for _, v := range r.Violations() {
		if v.Severity == SeverityCritical || RequiresPhaseMinusOne(v) {
			out = append(out, v)
		}
	}
	return out
}
