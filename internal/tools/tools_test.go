package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/sdd-engine/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Test helpers ---

// isErrorResult checks if a CallToolResult is an error result.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type handler interface {
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// call invokes a tool with args and fails the test on a Go error.
func call(t *testing.T, h handler, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

func mustSucceed(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	return getResultText(result)
}

func newEngine(t *testing.T) *workflow.Engine {
	t.Helper()
	return workflow.NewEngine(workflow.NewFileStore(t.TempDir(), nil), workflow.DefaultRegistry())
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- helpers.go ---

func TestSplitList(t *testing.T) {
	got := splitList(" a.ts, b.ts\n\n c.ts ,")
	want := []string{"a.ts", "b.ts", "c.ts"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitList = %q, want %q", got, want)
	}
	if got := splitList(""); len(got) != 0 {
		t.Errorf("splitList(\"\") = %q, want empty", got)
	}
}

func TestRelPath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "proj")
	if got := relPath(root, filepath.Join(root, "src", "a.ts")); got != "src/a.ts" {
		t.Errorf("relPath inside root = %q, want src/a.ts", got)
	}
	outside := filepath.Join(string(filepath.Separator), "elsewhere", "a.ts")
	if got := relPath(root, outside); got != outside {
		t.Errorf("relPath outside root = %q, want %q", got, outside)
	}
}

// --- Workflow tools ---

func TestWorkflowInitTool_Definition(t *testing.T) {
	def := NewWorkflowInitTool(newEngine(t)).Definition()
	if def.Name != "sdd_workflow_init" {
		t.Errorf("name = %q, want sdd_workflow_init", def.Name)
	}
}

func TestWorkflowInitTool_DetectsMode(t *testing.T) {
	engine := newEngine(t)
	text := mustSucceed(t, call(t, NewWorkflowInitTool(engine), map[string]interface{}{
		"feature": "feat: user login",
	}))

	if !strings.Contains(text, "**Mode**: medium") {
		t.Errorf("expected medium mode, got:\n%s", text)
	}
	if !strings.Contains(text, "**Current stage**: requirements") {
		t.Errorf("expected requirements stage, got:\n%s", text)
	}
	if !strings.Contains(text, "requirements → design → tasks → implement → validate") {
		t.Errorf("expected stage list, got:\n%s", text)
	}
}

func TestWorkflowInitTool_RejectsSecondWorkflow(t *testing.T) {
	engine := newEngine(t)
	tool := NewWorkflowInitTool(engine)
	mustSucceed(t, call(t, tool, map[string]interface{}{"feature": "fix: typo"}))

	result := call(t, tool, map[string]interface{}{"feature": "fix: another"})
	if !isErrorResult(result) {
		t.Fatal("expected error result for a second active workflow")
	}
}

func TestWorkflowInitTool_MissingFeature(t *testing.T) {
	result := call(t, NewWorkflowInitTool(newEngine(t)), map[string]interface{}{})
	if !isErrorResult(result) {
		t.Fatal("expected error result without feature")
	}
}

func TestWorkflowTransitionTool_Handle(t *testing.T) {
	engine := newEngine(t)
	mustSucceed(t, call(t, NewWorkflowInitTool(engine), map[string]interface{}{"feature": "feat: login"}))

	text := mustSucceed(t, call(t, NewWorkflowTransitionTool(engine), map[string]interface{}{
		"target": "design",
		"notes":  "requirements signed off",
	}))
	if !strings.Contains(text, "**From**: requirements") || !strings.Contains(text, "**To**: design") {
		t.Errorf("unexpected transition output:\n%s", text)
	}

	state, err := engine.State()
	if err != nil {
		t.Fatal(err)
	}
	if state.CurrentStage != workflow.StageDesign {
		t.Errorf("current stage = %q, want design", state.CurrentStage)
	}
}

func TestWorkflowTransitionTool_Feedback(t *testing.T) {
	engine := newEngine(t)
	mustSucceed(t, call(t, NewWorkflowInitTool(engine), map[string]interface{}{"feature": "feat: login"}))
	tool := NewWorkflowTransitionTool(engine)
	mustSucceed(t, call(t, tool, map[string]interface{}{"target": "design"}))

	text := mustSucceed(t, call(t, tool, map[string]interface{}{
		"target":          "requirements",
		"feedback_reason": "missing error cases",
	}))
	if !strings.Contains(text, "**Feedback loop**: missing error cases") {
		t.Errorf("expected feedback loop line, got:\n%s", text)
	}
	if !strings.Contains(text, "**Attempt**: 2") {
		t.Errorf("expected second attempt at requirements, got:\n%s", text)
	}
}

func TestWorkflowTransitionTool_IllegalTarget(t *testing.T) {
	engine := newEngine(t)
	mustSucceed(t, call(t, NewWorkflowInitTool(engine), map[string]interface{}{"feature": "feat: login"}))

	result := call(t, NewWorkflowTransitionTool(engine), map[string]interface{}{"target": "validate"})
	if !isErrorResult(result) {
		t.Fatal("expected error result for a skipped stage")
	}
}

func TestWorkflowTransitionTool_NoWorkflow(t *testing.T) {
	result := call(t, NewWorkflowTransitionTool(newEngine(t)), map[string]interface{}{"target": "design"})
	if !isErrorResult(result) {
		t.Fatal("expected error result without a workflow")
	}
}

func TestWorkflowCompleteTool_Handle(t *testing.T) {
	engine := newEngine(t)
	mustSucceed(t, call(t, NewWorkflowInitTool(engine), map[string]interface{}{"feature": "fix: null token"}))
	transition := NewWorkflowTransitionTool(engine)
	complete := NewWorkflowCompleteTool(engine)

	mustSucceed(t, call(t, transition, map[string]interface{}{"target": "implementation"}))
	mustSucceed(t, call(t, transition, map[string]interface{}{"target": "validation"}))

	text := mustSucceed(t, call(t, complete, map[string]interface{}{"notes": "shipped"}))
	for _, want := range []string{"# Workflow Completed", "**Mode**: small", "**Transitions**: 2", "| validate | completed | 1 |"} {
		if !strings.Contains(text, want) {
			t.Errorf("result should contain %q, got:\n%s", want, text)
		}
	}

	if result := call(t, complete, map[string]interface{}{}); !isErrorResult(result) {
		t.Fatal("expected error result when completing twice")
	}
}

func TestWorkflowStatusTool_NoWorkflow(t *testing.T) {
	result := call(t, NewWorkflowStatusTool(newEngine(t)), map[string]interface{}{})
	if !isErrorResult(result) {
		t.Fatal("expected error result without a workflow")
	}
	if !strings.Contains(getResultText(result), "sdd_workflow_init") {
		t.Error("error should point at sdd_workflow_init")
	}
}

func TestWorkflowStatusTool_Handle(t *testing.T) {
	engine := newEngine(t)
	mustSucceed(t, call(t, NewWorkflowInitTool(engine), map[string]interface{}{"feature": "feat: login"}))
	mustSucceed(t, call(t, NewWorkflowTransitionTool(engine), map[string]interface{}{"target": "design"}))

	text := mustSucceed(t, call(t, NewWorkflowStatusTool(engine), map[string]interface{}{
		"include_metrics": true,
	}))
	for _, want := range []string{
		"**Current stage**: design",
		"| requirements | ✅ completed | 1 |",
		"| design | 🔵 in-progress | 1 |",
		"| tasks | ⬜ pending | 0 |",
		"Allowed next stages: tasks, requirements",
		"## Metrics",
		"**Workflows started**: 1",
		"**Transitions**: 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("result should contain %q, got:\n%s", want, text)
		}
	}
}
