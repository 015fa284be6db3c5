package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/gate"
	"github.com/mark3labs/mcp-go/mcp"
)

// GateWaiveTool handles the sdd_gate_waive MCP tool.
type GateWaiveTool struct {
	gates *gate.Manager
}

// NewGateWaiveTool creates a GateWaiveTool.
func NewGateWaiveTool(gates *gate.Manager) *GateWaiveTool {
	return &GateWaiveTool{gates: gates}
}

// Definition returns the MCP tool definition for registration.
func (t *GateWaiveTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_gate_waive",
		mcp.WithDescription(
			"Waive a pending Phase -1 gate with a written justification. "+
				"Resolved gates cannot be waived.",
		),
		mcp.WithString("gate_id",
			mcp.Required(),
			mcp.Description("Gate id to waive."),
		),
		mcp.WithString("waived_by",
			mcp.Required(),
			mcp.Description("Who takes responsibility for the waiver."),
		),
		mcp.WithString("justification",
			mcp.Required(),
			mcp.Description("Why the violations are acceptable."),
		),
	)
}

// Handle processes the sdd_gate_waive tool call.
func (t *GateWaiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := t.gates.Waive(req.GetString("gate_id", ""), gate.WaiveInput{
		WaivedBy:      req.GetString("waived_by", ""),
		Justification: req.GetString("justification", ""),
	})
	if err != nil {
		return resultFromError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Gate Waived\n\n")
	writeGate(&sb, g)
	return mcp.NewToolResultText(sb.String()), nil
}
