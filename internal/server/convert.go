package server

import (
	"fmt"
	"regexp"

	"github.com/HendryAvila/sdd-engine/internal/config"
	"github.com/HendryAvila/sdd-engine/internal/constitution"
	"github.com/HendryAvila/sdd-engine/internal/gate"
	"github.com/HendryAvila/sdd-engine/internal/graph"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
	"github.com/HendryAvila/sdd-engine/internal/validation"
	"github.com/HendryAvila/sdd-engine/internal/workflow"
)

// registryFromConfig builds the mode registry: built-in modes plus the
// configured ones, and the configured detection rules when present.
func registryFromConfig(cfg *config.Config) (*workflow.Registry, error) {
	opts := workflow.RegistryOptions{DefaultMode: workflow.ModeName(cfg.DefaultMode)}

	for _, mc := range cfg.Modes {
		m, err := modeFromConfig(mc)
		if err != nil {
			return nil, err
		}
		opts.Modes = append(opts.Modes, m)
	}

	if len(cfg.Detection) > 0 {
		opts.Rules = make([]workflow.DetectionRule, 0, len(cfg.Detection))
		for _, d := range cfg.Detection {
			re, err := regexp.Compile(d.Pattern)
			if err != nil {
				return nil, sdderr.Invalid("detection pattern %q: %v", d.Pattern, err)
			}
			opts.Rules = append(opts.Rules, workflow.DetectionRule{Pattern: re, Mode: workflow.ModeName(d.Mode)})
		}
	}
	return workflow.NewRegistry(opts)
}

func modeFromConfig(mc config.ModeConfig) (workflow.Mode, error) {
	m := workflow.Mode{
		Name:              workflow.ModeName(mc.Name),
		Description:       mc.Description,
		Transitions:       make(map[workflow.Stage][]workflow.Stage, len(mc.Transitions)),
		CoverageThreshold: mc.CoverageThreshold,
		RequireEARS:       mc.RequireEARS,
		RequireADR:        mc.RequireADR,
		SkipArtifacts:     mc.SkipArtifacts,
	}
	var err error
	if m.Stages, err = stages(mc.Stages); err != nil {
		return workflow.Mode{}, fmt.Errorf("mode %q: %w", mc.Name, err)
	}
	for from, to := range mc.Transitions {
		src, err := workflow.ResolveAlias(from)
		if err != nil {
			return workflow.Mode{}, fmt.Errorf("mode %q: %w", mc.Name, err)
		}
		if m.Transitions[src], err = stages(to); err != nil {
			return workflow.Mode{}, fmt.Errorf("mode %q: %w", mc.Name, err)
		}
	}
	return m, nil
}

func stages(names []string) ([]workflow.Stage, error) {
	out := make([]workflow.Stage, 0, len(names))
	for _, n := range names {
		s, err := workflow.ResolveAlias(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// validationConfig maps the type-keyed config onto validator settings.
// Unknown artifact type names are rejected.
func validationConfig(vc config.ValidationConfig) (validation.Config, error) {
	out := validation.Config{
		RequiredFields:    make(map[graph.ArtifactType][]string, len(vc.RequiredFields)),
		RequiredSections:  make(map[graph.ArtifactType][]string, len(vc.RequiredSections)),
		RequiredLinks:     make(map[graph.ArtifactType][]graph.ArtifactType, len(vc.RequiredLinks)),
		ReferencePatterns: vc.ReferencePatterns,
		AllowCycles:       vc.AllowCycles,
	}
	for name, fields := range vc.RequiredFields {
		t, err := graph.ParseType(name)
		if err != nil {
			return validation.Config{}, err
		}
		out.RequiredFields[t] = fields
	}
	for name, sections := range vc.RequiredSections {
		t, err := graph.ParseType(name)
		if err != nil {
			return validation.Config{}, err
		}
		out.RequiredSections[t] = sections
	}
	for name, targets := range vc.RequiredLinks {
		t, err := graph.ParseType(name)
		if err != nil {
			return validation.Config{}, err
		}
		for _, target := range targets {
			tt, err := graph.ParseType(target)
			if err != nil {
				return validation.Config{}, err
			}
			out.RequiredLinks[t] = append(out.RequiredLinks[t], tt)
		}
	}
	return out, nil
}

func gateConfig(gc config.GateConfig) gate.Config {
	return gate.Config{
		RequiredReviewers: gc.RequiredReviewers,
		OptionalReviewers: gc.OptionalReviewers,
		AutoNotify:        gc.AutoNotify,
	}
}

// scanOptions falls back to the checker defaults for unset lists.
func scanOptions(cc config.ComplianceConfig) constitution.ScanOptions {
	opts := constitution.DefaultScanOptions()
	if len(cc.Extensions) > 0 {
		opts.Extensions = cc.Extensions
	}
	if len(cc.Exclude) > 0 {
		opts.Exclude = cc.Exclude
	}
	return opts
}
