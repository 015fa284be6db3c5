package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the sdd-status MCP prompt.
// It instructs the AI to read and present the current workflow and gates.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("sdd-status",
		mcp.WithPromptDescription(
			"Check the current status of your SDD workflow. "+
				"Shows stage progress, open review gates, "+
				"and what to do next.",
		),
	)
}

// Handle processes the sdd-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "SDD Workflow Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `sdd_workflow_status` with include_metrics=true and " +
						"`sdd_gate_list` with status='pending' to check my SDD workflow.\n\n" +
						"Then:\n" +
						"1. Show me the current stage and stage progress in a clear, visual format\n" +
						"2. Highlight blockers, especially pending Phase -1 gates and who has to review them\n" +
						"3. Tell me exactly what I should do next\n" +
						"4. Point out stages with repeated attempts or feedback loops",
				),
			},
		},
	}, nil
}
