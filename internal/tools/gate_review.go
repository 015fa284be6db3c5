package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/gate"
	"github.com/mark3labs/mcp-go/mcp"
)

// GateReviewTool handles the sdd_gate_review MCP tool.
type GateReviewTool struct {
	gates *gate.Manager
}

// NewGateReviewTool creates a GateReviewTool.
func NewGateReviewTool(gates *gate.Manager) *GateReviewTool {
	return &GateReviewTool{gates: gates}
}

// Definition returns the MCP tool definition for registration.
func (t *GateReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_gate_review",
		mcp.WithDescription(
			"Submit a review for a Phase -1 gate. Any reject rejects the gate; "+
				"it is approved once every required reviewer has approved.",
		),
		mcp.WithString("gate_id",
			mcp.Required(),
			mcp.Description("Gate id, e.g. GATE-1718000000000-1a2b3c4d."),
		),
		mcp.WithString("reviewer",
			mcp.Required(),
			mcp.Description("Reviewer name or role, e.g. 'architect'."),
		),
		mcp.WithString("decision",
			mcp.Required(),
			mcp.Description("Review decision."),
			mcp.Enum(string(gate.DecisionApprove), string(gate.DecisionReject), string(gate.DecisionRequestChanges)),
		),
		mcp.WithString("comments",
			mcp.Description("Review comments."),
		),
	)
}

// Handle processes the sdd_gate_review tool call.
func (t *GateReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := t.gates.SubmitReview(req.GetString("gate_id", ""), gate.ReviewInput{
		Reviewer: req.GetString("reviewer", ""),
		Decision: req.GetString("decision", ""),
		Comments: req.GetString("comments", ""),
	})
	if err != nil {
		return resultFromError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Review Recorded\n\n")
	writeGate(&sb, g)
	return mcp.NewToolResultText(sb.String()), nil
}

// writeGate renders the fields a reviewer needs to act on a gate.
func writeGate(sb *strings.Builder, g *gate.Gate) {
	fmt.Fprintf(sb, "- **Gate**: %s\n", g.ID)
	fmt.Fprintf(sb, "- **Feature**: %s\n", g.FeatureID)
	fmt.Fprintf(sb, "- **Status**: %s\n", g.Status)
	fmt.Fprintf(sb, "- **Reason**: %s\n", g.Reason)
	fmt.Fprintf(sb, "- **Required reviewers**: %s\n", listOrNone(g.RequiredReviewers))
	if len(g.AffectedFiles) > 0 {
		fmt.Fprintf(sb, "- **Affected files**: %s\n", strings.Join(g.AffectedFiles, ", "))
	}
	if g.Waiver != nil {
		fmt.Fprintf(sb, "- **Waived by**: %s (%s)\n", g.Waiver.WaivedBy, g.Waiver.Justification)
	}
	if len(g.Reviews) == 0 {
		return
	}
	sb.WriteString("\n| Reviewer | Decision | Comments |\n")
	sb.WriteString("|----------|----------|----------|\n")
	for _, r := range g.Reviews {
		fmt.Fprintf(sb, "| %s | %s | %s |\n", r.Reviewer, r.Decision, strings.ReplaceAll(r.Comments, "|", "\\|"))
	}
}
