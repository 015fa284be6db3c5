// Package prompts implements MCP prompt handlers for the engine.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the sdd-start MCP prompt.
// It guides the AI to open a workflow for a feature and walk its stages.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("sdd-start",
		mcp.WithPromptDescription(
			"Start a development workflow for a feature and walk it stage by stage, "+
				"checking constitution compliance before the validate stage.",
		),
		mcp.WithArgument("feature",
			mcp.ArgumentDescription("Feature name, e.g. 'feat: user login'"),
		),
		mcp.WithArgument("mode",
			mcp.ArgumentDescription("Workflow mode: small, medium or large. Default: detected from the feature name"),
		),
	)
}

// Handle processes the sdd-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	feature := req.Params.Arguments["feature"]
	mode := req.Params.Arguments["mode"]

	var initCall string
	switch {
	case feature == "":
		initCall = "Ask me for the feature name, then run `sdd_workflow_init` with it"
	case mode == "":
		initCall = fmt.Sprintf("Run `sdd_workflow_init` with feature='%s' and let the mode be detected", feature)
	default:
		initCall = fmt.Sprintf("Run `sdd_workflow_init` with feature='%s' and mode='%s'", feature, mode)
	}

	description := "Start SDD workflow"
	if feature != "" {
		description = fmt.Sprintf("Start SDD workflow: %s", feature)
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"I want to build a feature with Spec-Driven Development.\n\n" +
						"Please:\n" +
						"1. " + initCall + "\n" +
						"2. Tell me which artifacts the mode expects and which it skips\n" +
						"3. Help me produce the artifact for each stage, then move on with `sdd_workflow_transition`\n" +
						"4. If a later stage shows something missing, go back with `feedback_reason` set\n" +
						"5. Before validating, run `sdd_compliance_check` on the changed files and resolve any gate it opens\n" +
						"6. Finish with `sdd_workflow_complete` and summarize the result",
				),
			},
		},
	}, nil
}
