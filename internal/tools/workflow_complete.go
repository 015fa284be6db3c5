package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/sdd-engine/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowCompleteTool handles the sdd_workflow_complete MCP tool.
type WorkflowCompleteTool struct {
	engine *workflow.Engine
}

// NewWorkflowCompleteTool creates a WorkflowCompleteTool.
func NewWorkflowCompleteTool(engine *workflow.Engine) *WorkflowCompleteTool {
	return &WorkflowCompleteTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *WorkflowCompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_workflow_complete",
		mcp.WithDescription(
			"Complete the active workflow, closing the stage in progress. "+
				"Returns a summary with per-stage durations and attempts.",
		),
		mcp.WithString("notes",
			mcp.Description("Closing notes recorded in history."),
		),
	)
}

// Handle processes the sdd_workflow_complete tool call.
func (t *WorkflowCompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := t.engine.Complete(req.GetString("notes", ""))
	if err != nil {
		return resultFromError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Workflow Completed\n\n")
	fmt.Fprintf(&sb, "- **Feature**: %s\n", summary.Feature)
	fmt.Fprintf(&sb, "- **Mode**: %s\n", summary.Mode)
	fmt.Fprintf(&sb, "- **Total duration**: %s\n", formatMillis(summary.TotalDuration))
	fmt.Fprintf(&sb, "- **Transitions**: %d\n", summary.Transitions)
	fmt.Fprintf(&sb, "- **Feedback loops**: %d\n\n", summary.FeedbackLoops)

	sb.WriteString("| Stage | Status | Attempts | Duration |\n")
	sb.WriteString("|-------|--------|----------|----------|\n")
	for _, s := range workflow.AllStages() {
		st, ok := summary.Stages[s]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %s |\n", s, st.Status, st.Attempts, formatMillis(st.Duration))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
