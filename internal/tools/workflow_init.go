package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowInitTool handles the sdd_workflow_init MCP tool.
type WorkflowInitTool struct {
	engine *workflow.Engine
}

// NewWorkflowInitTool creates a WorkflowInitTool.
func NewWorkflowInitTool(engine *workflow.Engine) *WorkflowInitTool {
	return &WorkflowInitTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *WorkflowInitTool) Definition() mcp.Tool {
	names := t.engine.Modes().Names()
	modes := make([]string, len(names))
	for i, n := range names {
		modes[i] = string(n)
	}
	return mcp.NewTool("sdd_workflow_init",
		mcp.WithDescription(
			"Start a new development workflow for a feature. "+
				"The mode (stage set and quality bar) is detected from the feature name "+
				"unless given: fix/docs/chore → small, feat/refactor → medium, breaking/arch → large. "+
				"Fails if a workflow is already active.",
		),
		mcp.WithString("feature",
			mcp.Required(),
			mcp.Description("Feature name, e.g. 'feat: user login' or 'fix: null token'."),
		),
		mcp.WithString("mode",
			mcp.Description("Workflow mode. Omit to auto-detect from the feature name."),
			mcp.Enum(modes...),
		),
		mcp.WithString("start_stage",
			mcp.Description("Stage to start in. Defaults to the mode's first stage."),
		),
	)
}

// Handle processes the sdd_workflow_init tool call.
func (t *WorkflowInitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feature := req.GetString("feature", "")
	opts := workflow.InitOptions{
		Mode:       workflow.ModeName(req.GetString("mode", "")),
		StartStage: req.GetString("start_stage", ""),
	}

	state, err := t.engine.Init(feature, opts)
	if err != nil {
		return resultFromError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Workflow Started\n\n")
	fmt.Fprintf(&sb, "- **Feature**: %s\n", state.Feature)
	fmt.Fprintf(&sb, "- **Mode**: %s\n", state.Mode)
	fmt.Fprintf(&sb, "- **Current stage**: %s\n", state.CurrentStage)
	fmt.Fprintf(&sb, "- **Stages**: %s\n", joinStages(state.Config.Stages, " → "))
	fmt.Fprintf(&sb, "- **Coverage threshold**: %d%%\n", state.Config.CoverageThreshold)
	if len(state.Config.SkipArtifacts) > 0 {
		fmt.Fprintf(&sb, "- **Skipped artifacts**: %s\n", strings.Join(state.Config.SkipArtifacts, ", "))
	}
	if next := state.Config.Transitions[state.CurrentStage]; len(next) > 0 {
		fmt.Fprintf(&sb, "\nNext: move on with `sdd_workflow_transition` to one of %s.\n", joinStages(next, ", "))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func joinStages(stages []workflow.Stage, sep string) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = string(s)
	}
	return strings.Join(parts, sep)
}
