package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowTransitionTool handles the sdd_workflow_transition MCP tool.
// A feedback reason turns the move into a recorded feedback loop.
type WorkflowTransitionTool struct {
	engine *workflow.Engine
}

// NewWorkflowTransitionTool creates a WorkflowTransitionTool.
func NewWorkflowTransitionTool(engine *workflow.Engine) *WorkflowTransitionTool {
	return &WorkflowTransitionTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *WorkflowTransitionTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_workflow_transition",
		mcp.WithDescription(
			"Move the active workflow to another stage. The target must be one of the "+
				"current mode's allowed successors of the current stage. "+
				"Pass `feedback_reason` when going back to an earlier stage because "+
				"something was missing; the loop is recorded in history and metrics.",
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Target stage (steering, requirements, design, tasks, implement, validate, review). "+
				"'implementation' and 'validation' are accepted aliases."),
		),
		mcp.WithString("notes",
			mcp.Description("Notes recorded with the transition."),
		),
		mcp.WithString("feedback_reason",
			mcp.Description("Why the workflow loops back. Records a feedback loop before transitioning."),
		),
	)
}

// Handle processes the sdd_workflow_transition tool call.
func (t *WorkflowTransitionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := req.GetString("target", "")
	notes := req.GetString("notes", "")
	reason := strings.TrimSpace(req.GetString("feedback_reason", ""))

	before, err := t.engine.State()
	if err != nil {
		return nil, err
	}

	var state *workflow.State
	if reason != "" {
		state, err = t.engine.TransitionWithFeedback(target, reason)
	} else {
		state, err = t.engine.TransitionTo(target, notes)
	}
	if err != nil {
		return resultFromError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Stage Transition\n\n")
	if before != nil {
		fmt.Fprintf(&sb, "- **From**: %s\n", before.CurrentStage)
	}
	fmt.Fprintf(&sb, "- **To**: %s\n", state.CurrentStage)
	if reason != "" {
		fmt.Fprintf(&sb, "- **Feedback loop**: %s\n", reason)
	}
	if rec := state.Stages[state.CurrentStage]; rec != nil {
		fmt.Fprintf(&sb, "- **Attempt**: %d\n", rec.Attempts)
	}
	if next := state.Config.Transitions[state.CurrentStage]; len(next) > 0 {
		fmt.Fprintf(&sb, "\nAllowed next stages: %s\n", joinStages(next, ", "))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
