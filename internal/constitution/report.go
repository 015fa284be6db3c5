package constitution

import (
	"fmt"
	"strings"
)

// GenerateReport renders r as markdown: overall summary, severity and
// article tables, then one table per file with violations.
func GenerateReport(r *CheckResult) string {
	var b strings.Builder
	b.WriteString("# Constitution Compliance Report\n\n")
	if r == nil {
		b.WriteString("No check result available.\n")
		return b.String()
	}

	d := ShouldBlockMerge(r)
	fmt.Fprintf(&b, "Generated: %s\n\n", r.Timestamp.Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Files checked: %d\n", r.Summary.FilesChecked)
	fmt.Fprintf(&b, "- Files with violations: %d\n", r.Summary.FilesWithViolations)
	fmt.Fprintf(&b, "- Total violations: %d\n", r.Summary.TotalViolations)
	fmt.Fprintf(&b, "- Merge blocked: %s\n", yesNo(d.ShouldBlock))
	fmt.Fprintf(&b, "- Phase -1 review required: %s\n", yesNo(d.RequiresPhaseMinusOne))
	if len(d.Reasons) > 0 {
		b.WriteString("\n### Reasons\n\n")
		for _, reason := range d.Reasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
	}

	b.WriteString("\n## Violations by Severity\n\n")
	b.WriteString("| Severity | Count |\n|----------|-------|\n")
	for _, s := range SeverityOrder {
		fmt.Fprintf(&b, "| %s | %d |\n", s, r.Summary.BySeverity[s])
	}

	b.WriteString("\n## Violations by Article\n\n")
	b.WriteString("| Article | Name | Count |\n|---------|------|-------|\n")
	for _, a := range articles {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", a.ID, a.Name, r.Summary.ByArticle[a.ID])
	}

	if r.Summary.TotalViolations == 0 {
		b.WriteString("\nAll checked files comply with the constitution.\n")
		return b.String()
	}

	b.WriteString("\n## Files\n")
	for _, f := range r.Files {
		if len(f.Violations) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", f.Path)
		b.WriteString("| Line | Article | Severity | Message | Suggestion |\n")
		b.WriteString("|------|---------|----------|---------|------------|\n")
		for _, v := range f.Violations {
			line := "-"
			if v.Line > 0 {
				line = fmt.Sprint(v.Line)
			}
			article := string(v.Article)
			if article == "" {
				article = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				line, article, v.Severity, escapeCell(v.Message), escapeCell(v.Suggestion))
		}
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
