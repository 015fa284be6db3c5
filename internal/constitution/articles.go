// Package constitution checks source files against the nine articles of
// the project constitution and decides whether the findings block a merge.
package constitution

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// ArticleID is a roman numeral from I to IX.
type ArticleID string

const (
	ArticleI    ArticleID = "I"
	ArticleII   ArticleID = "II"
	ArticleIII  ArticleID = "III"
	ArticleIV   ArticleID = "IV"
	ArticleV    ArticleID = "V"
	ArticleVI   ArticleID = "VI"
	ArticleVII  ArticleID = "VII"
	ArticleVIII ArticleID = "VIII"
	ArticleIX   ArticleID = "IX"
)

// Severity grades a violation. SeverityError marks a rule that could not
// be evaluated; it never describes the code under check.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// SeverityOrder lists severities from most to least serious.
var SeverityOrder = []Severity{
	SeverityCritical, SeverityError, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo,
}

// Thresholds are the Article VII limits. A value equal to the limit passes.
type Thresholds struct {
	FileLines     int `json:"fileLines"`
	FunctionLines int `json:"functionLines"`
	Complexity    int `json:"complexity"`
	Dependencies  int `json:"dependencies"`
}

// SimplicityThresholds are fixed for every mode.
var SimplicityThresholds = Thresholds{
	FileLines:     500,
	FunctionLines: 50,
	Complexity:    10,
	Dependencies:  10,
}

// Article describes one constitutional article.
type Article struct {
	ID          ArticleID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	// Severity is the highest severity a violation of this article carries.
	Severity Severity `json:"severity"`
}

var articles = []Article{
	{ArticleI, "Specification First", "Source files trace back to a requirement identifier.", SeverityMedium},
	{ArticleII, "Library-First", "Features start as reusable libraries.", SeverityInfo},
	{ArticleIII, "Test-First", "Every source file has a sibling test file.", SeverityMedium},
	{ArticleIV, "CLI Interface", "Libraries expose their behavior through a CLI.", SeverityInfo},
	{ArticleV, "Observability", "Behavior is observable through text I/O and structured logs.", SeverityInfo},
	{ArticleVI, "Versioning", "Public interfaces follow semantic versioning.", SeverityInfo},
	{ArticleVII, "Simplicity", "Files, functions, complexity and dependency counts stay within limits.", SeverityHigh},
	{ArticleVIII, "Anti-Abstraction", "Frameworks are used directly without speculative base classes or factories.", SeverityHigh},
	{ArticleIX, "Documentation", "Source files carry documentation blocks.", SeverityLow},
}

// Articles returns all nine articles in order.
func Articles() []Article {
	out := make([]Article, len(articles))
	copy(out, articles)
	return out
}

// ArticleIDs returns the identifiers I..IX in order.
func ArticleIDs() []ArticleID {
	ids := make([]ArticleID, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	return ids
}

// LookupArticle accepts "VII", "vii" or "Article VII".
func LookupArticle(id string) (Article, error) {
	norm := strings.ToUpper(strings.TrimSpace(id))
	norm = strings.TrimSpace(strings.TrimPrefix(norm, "ARTICLE"))
	for _, a := range articles {
		if string(a.ID) == norm {
			return a, nil
		}
	}
	return Article{}, sdderr.Invalid("unknown article %q", id)
}

func articleName(id ArticleID) string {
	for _, a := range articles {
		if a.ID == id {
			return a.Name
		}
	}
	return string(id)
}

// Violation is one finding against one article.
type Violation struct {
	Article     ArticleID         `json:"article"`
	ArticleName string            `json:"articleName"`
	File        string            `json:"file"`
	Line        int               `json:"line,omitempty"`
	Message     string            `json:"message"`
	Severity    Severity          `json:"severity"`
	Suggestion  string            `json:"suggestion,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (v Violation) String() string {
	loc := v.File
	if v.Line > 0 {
		loc = fmt.Sprintf("%s:%d", v.File, v.Line)
	}
	return fmt.Sprintf("[%s] Article %s (%s) %s: %s", v.Severity, v.Article, v.ArticleName, loc, v.Message)
}
