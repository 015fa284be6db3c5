package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// WorkflowStatusTool handles the sdd_workflow_status MCP tool.
type WorkflowStatusTool struct {
	engine *workflow.Engine
}

// NewWorkflowStatusTool creates a WorkflowStatusTool.
func NewWorkflowStatusTool(engine *workflow.Engine) *WorkflowStatusTool {
	return &WorkflowStatusTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *WorkflowStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_workflow_status",
		mcp.WithDescription(
			"Show the active workflow: mode, current stage, per-stage progress and "+
				"the stages it may move to next. Optionally includes the metrics summary "+
				"across every workflow recorded in this project.",
		),
		mcp.WithBoolean("include_metrics",
			mcp.Description("Append the metrics summary (stage visits, average durations, feedback loops)."),
		),
	)
}

// Handle processes the sdd_workflow_status tool call.
func (t *WorkflowStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := t.engine.State()
	if err != nil {
		return nil, fmt.Errorf("loading workflow state: %w", err)
	}
	if state == nil {
		return mcp.NewToolResultError("No workflow initialized. Start one with `sdd_workflow_init` first."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Workflow Status\n\n")
	fmt.Fprintf(&sb, "- **Feature**: %s\n", state.Feature)
	fmt.Fprintf(&sb, "- **Mode**: %s\n", state.Mode)
	fmt.Fprintf(&sb, "- **Status**: %s\n", state.Status)
	fmt.Fprintf(&sb, "- **Current stage**: %s\n", state.CurrentStage)
	fmt.Fprintf(&sb, "- **Started**: %s\n\n", state.StartedAt.Format("2006-01-02 15:04:05"))

	sb.WriteString("| Stage | Status | Attempts | Duration |\n")
	sb.WriteString("|-------|--------|----------|----------|\n")
	for _, s := range state.Config.Stages {
		rec := state.Stages[s]
		marker := "⬜ pending"
		attempts := 0
		var duration int64
		if rec != nil {
			attempts, duration = rec.Attempts, rec.Duration
			switch rec.Status {
			case workflow.StageInProgress:
				marker = "🔵 in-progress"
			case workflow.StageCompleted:
				marker = "✅ completed"
			}
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %s |\n", s, marker, attempts, formatMillis(duration))
	}

	if state.Status != workflow.StatusCompleted {
		next, err := t.engine.ValidTransitions()
		if err != nil {
			return resultFromError(err)
		}
		if len(next) > 0 {
			fmt.Fprintf(&sb, "\nAllowed next stages: %s\n", joinStages(next, ", "))
		}
	}

	if req.GetBool("include_metrics", false) {
		m, err := t.engine.Metrics()
		if err != nil {
			return nil, fmt.Errorf("loading metrics: %w", err)
		}
		writeMetrics(&sb, m)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func writeMetrics(sb *strings.Builder, m *workflow.MetricsSummary) {
	fmt.Fprintf(sb, "\n## Metrics\n\n")
	fmt.Fprintf(sb, "- **Events**: %d\n", m.TotalEvents)
	fmt.Fprintf(sb, "- **Workflows started**: %d\n", m.WorkflowsStarted)
	fmt.Fprintf(sb, "- **Workflows completed**: %d\n", m.WorkflowsCompleted)
	fmt.Fprintf(sb, "- **Transitions**: %d\n", m.Transitions)
	fmt.Fprintf(sb, "- **Feedback loops**: %d\n", m.FeedbackLoops)
	if m.WorkflowsCompleted > 0 {
		fmt.Fprintf(sb, "- **Average workflow duration**: %s\n", formatMillis(int64(m.AvgWorkflowMillis)))
	}
	if visited := m.MostVisited(); len(visited) > 0 {
		fmt.Fprintf(sb, "- **Most visited**: %s\n", joinStages(visited, ", "))
	}
	if len(m.StageVisits) == 0 {
		return
	}
	sb.WriteString("\n| Stage | Visits | Avg duration |\n")
	sb.WriteString("|-------|--------|--------------|\n")
	for _, s := range workflow.AllStages() {
		visits, ok := m.StageVisits[s]
		if !ok {
			continue
		}
		fmt.Fprintf(sb, "| %s | %d | %s |\n", s, visits, formatMillis(int64(m.AvgStageDuration[s])))
	}
}
