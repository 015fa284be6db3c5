// Package validation checks an artifact graph for consistency,
// completeness, traceability gaps, dependency problems and dangling
// references.
package validation

// Severity grades an issue. Error and critical issues make a report invalid.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Severities lists severities from most to least serious.
var Severities = []Severity{SeverityCritical, SeverityError, SeverityWarning, SeverityInfo}

// Kind names the check that produced an issue.
type Kind string

const (
	KindConsistency  Kind = "consistency"
	KindCompleteness Kind = "completeness"
	KindGap          Kind = "gap"
	KindDependency   Kind = "dependency"
	KindReference    Kind = "reference"
)

// Kinds lists the checks in the order ValidateAll runs them.
var Kinds = []Kind{KindConsistency, KindCompleteness, KindGap, KindDependency, KindReference}

// Issue is one validation finding.
type Issue struct {
	Kind       Kind              `json:"kind"`
	Severity   Severity          `json:"severity"`
	Message    string            `json:"message"`
	ArtifactID string            `json:"artifactId,omitempty"`
	Location   string            `json:"location,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Related    []string          `json:"related,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func blocking(s Severity) bool {
	return s == SeverityCritical || s == SeverityError
}
