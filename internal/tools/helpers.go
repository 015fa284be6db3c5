// Package tools implements the MCP tool handlers of the engine.
//
// Each tool is a struct that receives its dependencies through its
// constructor and exposes Definition and Handle for registration with
// mcp-go. One file per tool.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
	"github.com/mark3labs/mcp-go/mcp"
)

// resultFromError turns caller mistakes into tool error results so the
// host can correct the call. Anything else is a server failure.
func resultFromError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, sdderr.ErrInvalidInput) || errors.Is(err, sdderr.ErrStateMissing) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

// splitList splits a comma or newline separated argument, dropping
// blanks.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// resolvePath makes p absolute relative to root.
func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// relPath renders p relative to root when it lives under it.
func relPath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}

// jsonBlock renders v as an indented JSON code block.
func jsonBlock(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result: %w", err)
	}
	return "```json\n" + string(data) + "\n```\n", nil
}
