package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/gate"
	"github.com/mark3labs/mcp-go/mcp"
)

// GateListTool handles the sdd_gate_list MCP tool.
type GateListTool struct {
	gates *gate.Manager
}

// NewGateListTool creates a GateListTool.
func NewGateListTool(gates *gate.Manager) *GateListTool {
	return &GateListTool{gates: gates}
}

// Definition returns the MCP tool definition for registration.
func (t *GateListTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_gate_list",
		mcp.WithDescription(
			"List Phase -1 gates, oldest first. Filter by status, by feature, "+
				"or by a reviewer to see the pending gates still waiting on them.",
		),
		mcp.WithString("status",
			mcp.Description("Only gates with this status."),
			mcp.Enum(string(gate.StatusPending), string(gate.StatusApproved), string(gate.StatusRejected), string(gate.StatusWaived)),
		),
		mcp.WithString("feature_id",
			mcp.Description("Only gates of this feature."),
		),
		mcp.WithString("reviewer",
			mcp.Description("Only pending gates this reviewer still has to review."),
		),
	)
}

// Handle processes the sdd_gate_list tool call.
func (t *GateListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := gate.ParseStatus(req.GetString("status", ""))
	if err != nil {
		return resultFromError(err)
	}
	featureID := strings.TrimSpace(req.GetString("feature_id", ""))
	reviewer := strings.TrimSpace(req.GetString("reviewer", ""))

	var gates []*gate.Gate
	switch {
	case reviewer != "":
		gates, err = t.gates.PendingForReviewer(reviewer)
	case featureID != "":
		gates, err = t.gates.ListForFeature(featureID)
	default:
		gates, err = t.gates.List(status)
	}
	if err != nil {
		return resultFromError(err)
	}
	gates = filterGates(gates, status, featureID)

	if len(gates) == 0 {
		return mcp.NewToolResultText("No gates found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Gates (%d)\n\n", len(gates))
	sb.WriteString("| Gate | Feature | Status | Triggered | Violations | Reviews |\n")
	sb.WriteString("|------|---------|--------|-----------|------------|---------|\n")
	for _, g := range gates {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %d | %d |\n",
			g.ID, g.FeatureID, g.Status, g.TriggeredAt.Format("2006-01-02 15:04"), len(g.Violations), len(g.Reviews))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// filterGates applies the filters the chosen listing did not.
func filterGates(gates []*gate.Gate, status gate.Status, featureID string) []*gate.Gate {
	out := gates[:0]
	for _, g := range gates {
		if status != "" && g.Status != status {
			continue
		}
		if featureID != "" && g.FeatureID != featureID {
			continue
		}
		out = append(out, g)
	}
	return out
}
