package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/HendryAvila/sdd-engine/internal/validation"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultManifest is the artifact manifest used when the call names none.
const DefaultManifest = "sdd/artifacts.yaml"

// ValidateTool handles the sdd_validate MCP tool.
type ValidateTool struct {
	root      string
	validator *validation.Validator
}

// NewValidateTool creates a ValidateTool. Manifest paths resolve
// against root.
func NewValidateTool(root string, validator *validation.Validator) *ValidateTool {
	return &ValidateTool{root: root, validator: validator}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("sdd_validate",
		mcp.WithDescription(
			"Validate the artifact set described by a YAML manifest: consistency, "+
				"completeness, traceability gaps, link cycles and dangling references. "+
				"Returns a report with coverage and the dependency order.",
		),
		mcp.WithString("manifest",
			mcp.Description("Manifest path relative to the project root. Defaults to "+DefaultManifest+"."),
		),
		mcp.WithString("format",
			mcp.Description("Report format (default markdown)."),
			mcp.Enum("markdown", "json"),
		),
	)
}

// Handle processes the sdd_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	manifest := req.GetString("manifest", DefaultManifest)
	if manifest == "" {
		manifest = DefaultManifest
	}

	g, err := validation.LoadManifest(resolvePath(t.root, manifest))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mcp.NewToolResultError(fmt.Sprintf("Manifest %q not found.", manifest)), nil
		}
		return resultFromError(err)
	}

	report := t.validator.ValidateAll(g)
	if req.GetString("format", "markdown") == "json" {
		text, err := jsonBlock(report)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultText(validation.GenerateReport(report)), nil
}
