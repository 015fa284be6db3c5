// Package resources implements the MCP resource handlers of the engine.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (sdd://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/sdd-engine/internal/gate"
	"github.com/HendryAvila/sdd-engine/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// WorkflowStateURI addresses the live workflow state.
	WorkflowStateURI = "sdd://workflow/state"
	// PendingGatesURI addresses the gates waiting for review.
	PendingGatesURI = "sdd://gates/pending"
)

// Handler manages SDD resource endpoints.
type Handler struct {
	engine *workflow.Engine
	gates  *gate.Manager
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(engine *workflow.Engine, gates *gate.Manager) *Handler {
	return &Handler{engine: engine, gates: gates}
}

// WorkflowStateResource returns the MCP resource definition for the
// workflow state.
func (h *Handler) WorkflowStateResource() mcp.Resource {
	return mcp.NewResource(
		WorkflowStateURI,
		"SDD Workflow State",
		mcp.WithResourceDescription("Active workflow: mode, current stage, per-stage records and history"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleWorkflowState returns the current workflow state as JSON.
func (h *Handler) HandleWorkflowState(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state, err := h.engine.State()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if state == nil {
		return errorResource(req.Params.URI, "no workflow initialized"), nil
	}
	return jsonResource(req.Params.URI, state)
}

// PendingGatesResource returns the MCP resource definition for pending
// review gates.
func (h *Handler) PendingGatesResource() mcp.Resource {
	return mcp.NewResource(
		PendingGatesURI,
		"SDD Pending Gates",
		mcp.WithResourceDescription("Phase -1 review gates still waiting for a decision"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandlePendingGates returns every pending gate as a JSON array.
func (h *Handler) HandlePendingGates(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	gates, err := h.gates.List(gate.StatusPending)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if gates == nil {
		gates = []*gate.Gate{}
	}
	return jsonResource(req.Params.URI, gates)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
