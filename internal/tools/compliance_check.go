package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/constitution"
	"github.com/HendryAvila/sdd-engine/internal/gate"
	"github.com/mark3labs/mcp-go/mcp"
)

// ComplianceCheckTool handles the sdd_compliance_check MCP tool. It runs
// the constitution checker over files, stores the result for the
// feature, and opens a Phase -1 gate when the result calls for one.
type ComplianceCheckTool struct {
	root    string
	checker *constitution.Checker
	gates   *gate.Manager
	scan    constitution.ScanOptions
}

// NewComplianceCheckTool creates a ComplianceCheckTool. Relative paths
// are resolved against root; scan drives directory walks.
func NewComplianceCheckTool(root string, checker *constitution.Checker, gates *gate.Manager, scan constitution.ScanOptions) *ComplianceCheckTool {
	return &ComplianceCheckTool{root: root, checker: checker, gates: gates, scan: scan}
}

// Definition returns the MCP tool definition for registration.
func (t *ComplianceCheckTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_compliance_check",
		mcp.WithDescription(
			"Check source files against the nine constitution articles "+
				"(traceability, test-first, simplicity, anti-abstraction, documentation, ...). "+
				"Give either `paths` or `directory`. Returns a Markdown report with the merge-block "+
				"decision. When simplicity or anti-abstraction violations need a Phase -1 review, "+
				"a gate is opened for the feature.",
		),
		mcp.WithString("feature_id",
			mcp.Required(),
			mcp.Description("Feature the results are stored under, e.g. 'user-login'."),
		),
		mcp.WithString("paths",
			mcp.Description("Comma or newline separated file paths, relative to the project root."),
		),
		mcp.WithString("directory",
			mcp.Description("Directory to scan instead of explicit paths. Uses the configured extensions and excludes."),
		),
		mcp.WithBoolean("save",
			mcp.Description("Store the result for the feature (default true)."),
		),
		mcp.WithBoolean("trigger_gate",
			mcp.Description("Open a Phase -1 gate when required (default true)."),
		),
	)
}

// Handle processes the sdd_compliance_check tool call.
func (t *ComplianceCheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	featureID := req.GetString("feature_id", "")
	paths := splitList(req.GetString("paths", ""))
	dir := strings.TrimSpace(req.GetString("directory", ""))

	switch {
	case dir != "" && len(paths) > 0:
		return mcp.NewToolResultError("Give either `paths` or `directory`, not both."), nil
	case dir != "":
		files, err := constitution.CollectFiles(resolvePath(t.root, dir), t.scan)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Cannot scan %q: %v", dir, err)), nil
		}
		paths = files
	default:
		for i, p := range paths {
			paths[i] = resolvePath(t.root, p)
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultError("No files to check. Pass `paths` or a `directory` containing source files."), nil
	}

	var (
		res      *constitution.CheckResult
		analysis *gate.Analysis
		err      error
	)
	if req.GetBool("trigger_gate", true) && t.gates != nil {
		analysis, err = t.gates.AnalyzeAndTrigger(ctx, featureID, paths, "sdd_compliance_check")
		if err != nil {
			return resultFromError(err)
		}
		res = analysis.CheckResults
	} else {
		res, err = t.checker.CheckFiles(ctx, paths)
		if err != nil {
			return resultFromError(err)
		}
	}
	for i := range res.Files {
		res.Files[i].Path = relPath(t.root, res.Files[i].Path)
	}

	if req.GetBool("save", true) {
		if err := t.checker.SaveResults(featureID, res); err != nil {
			return resultFromError(err)
		}
	}

	var sb strings.Builder
	sb.WriteString(constitution.GenerateReport(res))
	if analysis != nil && analysis.Triggered {
		g := analysis.Gate
		fmt.Fprintf(&sb, "\n## Phase -1 Gate\n\n")
		fmt.Fprintf(&sb, "Gate `%s` opened for %s. Required reviewers: %s.\n",
			g.ID, g.FeatureID, listOrNone(g.RequiredReviewers))
		sb.WriteString("Resolve it with `sdd_gate_review` or `sdd_gate_waive`.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
