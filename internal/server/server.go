// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it loads the project config, creates the
// concrete stores and engines, and injects them into the tools, prompts
// and resources. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/HendryAvila/sdd-engine/internal/config"
	"github.com/HendryAvila/sdd-engine/internal/constitution"
	"github.com/HendryAvila/sdd-engine/internal/gate"
	"github.com/HendryAvila/sdd-engine/internal/prompts"
	"github.com/HendryAvila/sdd-engine/internal/resources"
	"github.com/HendryAvila/sdd-engine/internal/tools"
	"github.com/HendryAvila/sdd-engine/internal/validation"
	"github.com/HendryAvila/sdd-engine/internal/workflow"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Options configures New.
type Options struct {
	// Root is the project root. Empty means: walk up from the working
	// directory to the nearest sdd/ directory.
	Root string
	// Logger receives structured logs. It must not write to stdout,
	// which carries the MCP stdio transport.
	Logger *slog.Logger
}

// engines holds the wired domain components behind the MCP surface.
type engines struct {
	root      string
	workflow  *workflow.Engine
	checker   *constitution.Checker
	gates     *gate.Manager
	validator *validation.Validator
	scan      constitution.ScanOptions
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the compliance history database
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even if New failed.
func New(opts Options) (*server.MCPServer, func(), error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	root, err := config.FindProjectRoot(opts.Root)
	if err != nil {
		return nil, noop, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, noop, fmt.Errorf("loading config: %w", err)
	}

	e, cleanup, err := build(root, cfg, logger)
	if err != nil {
		return nil, noop, err
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"sdd-engine",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register workflow tools ---

	initTool := tools.NewWorkflowInitTool(e.workflow)
	s.AddTool(initTool.Definition(), initTool.Handle)

	transitionTool := tools.NewWorkflowTransitionTool(e.workflow)
	s.AddTool(transitionTool.Definition(), transitionTool.Handle)

	completeTool := tools.NewWorkflowCompleteTool(e.workflow)
	s.AddTool(completeTool.Definition(), completeTool.Handle)

	statusTool := tools.NewWorkflowStatusTool(e.workflow)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	// --- Register compliance and gate tools ---

	complianceTool := tools.NewComplianceCheckTool(e.root, e.checker, e.gates, e.scan)
	s.AddTool(complianceTool.Definition(), complianceTool.Handle)

	reviewTool := tools.NewGateReviewTool(e.gates)
	s.AddTool(reviewTool.Definition(), reviewTool.Handle)

	waiveTool := tools.NewGateWaiveTool(e.gates)
	s.AddTool(waiveTool.Definition(), waiveTool.Handle)

	listTool := tools.NewGateListTool(e.gates)
	s.AddTool(listTool.Definition(), listTool.Handle)

	// --- Register validation tool ---

	validateTool := tools.NewValidateTool(e.root, e.validator)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(e.workflow, e.gates)
	s.AddResource(resourceHandler.WorkflowStateResource(), resourceHandler.HandleWorkflowState)
	s.AddResource(resourceHandler.PendingGatesResource(), resourceHandler.HandlePendingGates)

	logger.Info("sdd-engine ready", "root", root, "version", Version)
	return s, cleanup, nil
}

// build creates the domain components for a project root.
//
// The SQLite run history is optional: if it cannot be opened, results
// are still stored as JSON and a warning is logged.
func build(root string, cfg *config.Config, logger *slog.Logger) (*engines, func(), error) {
	registry, err := registryFromConfig(cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("building mode registry: %w", err)
	}
	vcfg, err := validationConfig(cfg.Validation)
	if err != nil {
		return nil, noop, fmt.Errorf("validation config: %w", err)
	}
	validator, err := validation.New(vcfg, validation.WithLogger(logger))
	if err != nil {
		return nil, noop, fmt.Errorf("creating validator: %w", err)
	}

	engine := workflow.NewEngine(
		workflow.NewFileStore(config.Resolve(root, cfg.StateDir), logger),
		registry,
		workflow.WithLogger(logger),
		workflow.WithListener(workflow.ListenerFunc(func(ev workflow.Event) {
			if ev.Name == workflow.EventMetricUpdated && ev.Metric != nil {
				logger.Debug("metric recorded", "name", ev.Metric.Name)
			}
		})),
	)

	cleanup := noop
	results := constitution.MultiResultStore{
		constitution.NewFileResultStore(config.Resolve(root, cfg.ResultsDir), logger),
	}
	if cfg.HistoryDB != "" {
		history, err := constitution.OpenSQLiteResultStore(config.Resolve(root, cfg.HistoryDB))
		if err != nil {
			logger.Warn("compliance history disabled", "error", err)
		} else {
			results = append(results, history)
			cleanup = func() {
				if err := history.Close(); err != nil {
					logger.Warn("compliance history close", "error", err)
				}
			}
		}
	}

	checkerOpts := []constitution.CheckerOption{
		constitution.WithCheckerLogger(logger),
		constitution.WithResultStore(results),
	}
	if cfg.Compliance.Workers > 0 {
		checkerOpts = append(checkerOpts, constitution.WithWorkers(cfg.Compliance.Workers))
	}
	checker := constitution.NewChecker(checkerOpts...)

	gates := gate.NewManager(
		gate.NewFileStore(config.Resolve(root, cfg.GatesDir), logger),
		checker,
		gateConfig(cfg.Gate),
		gate.WithLogger(logger),
		gate.WithListener(gate.ListenerFunc(func(ev gate.Event) {
			if ev.Name == gate.EventNotification && ev.Notification != nil {
				logger.Info("gate review requested",
					"gate", ev.Gate.ID, "reviewer", ev.Notification.Reviewer, "required", ev.Notification.Required)
			}
		})),
	)

	return &engines{
		root:      root,
		workflow:  engine,
		checker:   checker,
		gates:     gates,
		validator: validator,
		scan:      scanOptions(cfg.Compliance),
	}, cleanup, nil
}

// noop is the cleanup returned when nothing needs closing.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use the engine.
func serverInstructions() string {
	return `You have access to sdd-engine, a Spec-Driven Development workflow server.

## WORKFLOW

Every feature runs through a workflow with a mode:
- small (fix/docs/chore): requirements → implement → validate
- medium (feat/refactor): requirements → design → tasks → implement → validate
- large (breaking/arch): steering → requirements → design → tasks → implement → validate → review

1. Start with sdd_workflow_init. The mode is detected from the feature name.
2. Produce the artifact of the current stage, then call sdd_workflow_transition.
3. When a later stage reveals a gap, go back with feedback_reason set.
4. Finish with sdd_workflow_complete.
Use sdd_workflow_status at any time.

## CONSTITUTION

Before validating, run sdd_compliance_check on the changed files. Critical
violations block the merge. Simplicity and anti-abstraction violations open a
Phase -1 gate: show it to the user and record decisions with sdd_gate_review,
or sdd_gate_waive with a justification. sdd_gate_list shows open gates.

## ARTIFACTS

sdd_validate checks the artifact manifest (sdd/artifacts.yaml by default) for
missing fields and sections, traceability gaps, link cycles and dangling
references.`
}
