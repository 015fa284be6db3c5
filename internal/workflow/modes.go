package workflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// ModeName identifies a workflow mode.
type ModeName string

const (
	ModeSmall  ModeName = "small"
	ModeMedium ModeName = "medium"
	ModeLarge  ModeName = "large"
)

// Mode is a curated subset of the stage catalog with its quality bar.
type Mode struct {
	Name              ModeName          `json:"name"`
	Description       string            `json:"description,omitempty"`
	Stages            []Stage           `json:"stages"`
	Transitions       map[Stage][]Stage `json:"transitions"`
	CoverageThreshold int               `json:"coverageThreshold"`
	RequireEARS       bool              `json:"requireEars"`
	RequireADR        bool              `json:"requireAdr"`
	SkipArtifacts     []string          `json:"skipArtifacts,omitempty"`
}

// clone returns a deep copy so callers can never mutate registry state.
func (m Mode) clone() Mode {
	out := m
	out.Stages = append([]Stage(nil), m.Stages...)
	out.SkipArtifacts = append([]string(nil), m.SkipArtifacts...)
	out.Transitions = make(map[Stage][]Stage, len(m.Transitions))
	for k, v := range m.Transitions {
		out.Transitions[k] = append([]Stage(nil), v...)
	}
	return out
}

func (m Mode) hasStage(s Stage) bool {
	for _, st := range m.Stages {
		if st == s {
			return true
		}
	}
	return false
}

// BuiltinModes returns fresh copies of the three built-in modes.
func BuiltinModes() []Mode {
	return []Mode{
		{
			Name:        ModeSmall,
			Description: "Bug fixes, docs and chores: requirements straight to code",
			Stages:      []Stage{StageRequirements, StageImplement, StageValidate},
			Transitions: map[Stage][]Stage{
				StageRequirements: {StageImplement},
				StageImplement:    {StageValidate, StageRequirements},
				StageValidate:     {StageImplement},
			},
			CoverageThreshold: 60,
			SkipArtifacts:     []string{"steering", "design", "tasks", "adr"},
		},
		{
			Name:        ModeMedium,
			Description: "Features and refactors: full requirements, design and tasks",
			Stages:      []Stage{StageRequirements, StageDesign, StageTasks, StageImplement, StageValidate},
			Transitions: map[Stage][]Stage{
				StageRequirements: {StageDesign},
				StageDesign:       {StageTasks, StageRequirements},
				StageTasks:        {StageImplement, StageDesign},
				StageImplement:    {StageValidate, StageTasks},
				StageValidate:     {StageImplement},
			},
			CoverageThreshold: 70,
			RequireEARS:       true,
			SkipArtifacts:     []string{"steering", "adr"},
		},
		{
			Name:              ModeLarge,
			Description:       "Architectural or breaking work: every stage plus review",
			Stages:            AllStages(),
			Transitions:       catalogTransitions(),
			CoverageThreshold: 80,
			RequireEARS:       true,
			RequireADR:        true,
		},
	}
}

func catalogTransitions() map[Stage][]Stage {
	out := make(map[Stage][]Stage, len(catalog))
	for s := range catalog {
		out[s] = Successors(s)
	}
	return out
}

// DetectionRule maps a feature-name pattern to a mode.
type DetectionRule struct {
	Pattern *regexp.Regexp
	Mode    ModeName
}

// DefaultDetectionRules returns the built-in auto-detection rules,
// evaluated top to bottom.
func DefaultDetectionRules() []DetectionRule {
	return []DetectionRule{
		{Pattern: regexp.MustCompile(`(?i)^\s*(fix|bugfix|hotfix|docs|chore|style)\b`), Mode: ModeSmall},
		{Pattern: regexp.MustCompile(`(?i)^\s*(feat|feature|refactor|perf)\b`), Mode: ModeMedium},
		{Pattern: regexp.MustCompile(`(?i)^\s*(breaking|major|arch)\b`), Mode: ModeLarge},
	}
}

// RegistryOptions configures a Registry. Zero values select the
// built-in behaviour.
type RegistryOptions struct {
	// Modes are added to (or replace) the built-in modes by name.
	Modes []Mode
	// Rules replaces the default detection rules when non-nil.
	Rules []DetectionRule
	// DefaultMode is returned by DetectMode when no rule matches.
	DefaultMode ModeName
}

// Registry is the immutable set of modes and detection rules. It is
// safe for concurrent use once constructed.
type Registry struct {
	modes       map[ModeName]Mode
	rules       []DetectionRule
	defaultMode ModeName
}

// NewRegistry builds a registry from the built-in modes plus opts and
// validates every mode against the stage catalog.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	r := &Registry{
		modes:       make(map[ModeName]Mode),
		rules:       DefaultDetectionRules(),
		defaultMode: ModeMedium,
	}
	for _, m := range BuiltinModes() {
		r.modes[m.Name] = m
	}
	for _, m := range opts.Modes {
		if err := validateMode(m); err != nil {
			return nil, err
		}
		r.modes[m.Name] = m.clone()
	}
	if opts.Rules != nil {
		r.rules = append([]DetectionRule(nil), opts.Rules...)
	}
	if opts.DefaultMode != "" {
		r.defaultMode = opts.DefaultMode
	}
	if _, ok := r.modes[r.defaultMode]; !ok {
		return nil, sdderr.Invalid("default mode %q is not defined", r.defaultMode)
	}
	for i, rule := range r.rules {
		if rule.Pattern == nil {
			return nil, sdderr.Invalid("detection rule %d has no pattern", i)
		}
		if _, ok := r.modes[rule.Mode]; !ok {
			return nil, sdderr.Invalid("detection rule %q targets unknown mode %q", rule.Pattern, rule.Mode)
		}
	}
	return r, nil
}

// DefaultRegistry returns the registry with only built-in modes and rules.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(RegistryOptions{})
	if err != nil {
		panic(fmt.Sprintf("workflow: built-in registry invalid: %v", err))
	}
	return r
}

// validateMode checks a configured mode. Its stages must be catalog
// stages and its transitions must stay inside the mode and inside the
// catalog; self-loops are the one edge a mode may add.
func validateMode(m Mode) error {
	if strings.TrimSpace(string(m.Name)) == "" {
		return sdderr.Invalid("mode has no name")
	}
	if len(m.Stages) == 0 {
		return sdderr.Invalid("mode %q has no stages", m.Name)
	}
	seen := make(map[Stage]bool, len(m.Stages))
	for _, s := range m.Stages {
		if !IsKnownStage(s) {
			return sdderr.Invalid("mode %q lists unknown stage %q", m.Name, s)
		}
		if seen[s] {
			return sdderr.Invalid("mode %q lists stage %q twice", m.Name, s)
		}
		seen[s] = true
	}
	for from, tos := range m.Transitions {
		if !seen[from] {
			return sdderr.Invalid("mode %q has transitions from %q which is not one of its stages", m.Name, from)
		}
		for _, to := range tos {
			if !seen[to] {
				return sdderr.Invalid("mode %q has transition %s→%s leaving the mode", m.Name, from, to)
			}
			if from != to && !catalogAllows(from, to) {
				return sdderr.Invalid("mode %q has transition %s→%s not in the stage catalog", m.Name, from, to)
			}
		}
	}
	if m.CoverageThreshold < 0 || m.CoverageThreshold > 100 {
		return sdderr.Invalid("mode %q coverage threshold %d outside 0..100", m.Name, m.CoverageThreshold)
	}
	return nil
}

// DetectMode returns the mode of the first rule whose pattern matches
// the feature name, or the default mode.
func (r *Registry) DetectMode(featureName string) ModeName {
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(featureName) {
			return rule.Mode
		}
	}
	return r.defaultMode
}

// Mode returns a copy of the named mode.
func (r *Registry) Mode(name ModeName) (Mode, error) {
	m, ok := r.modes[name]
	if !ok {
		return Mode{}, sdderr.Invalid("unknown mode %q", name)
	}
	return m.clone(), nil
}

// Names returns every registered mode name, sorted.
func (r *Registry) Names() []ModeName {
	out := make([]ModeName, 0, len(r.modes))
	for n := range r.modes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StagesOf returns the ordered stages permitted by a mode.
func (r *Registry) StagesOf(name ModeName) ([]Stage, error) {
	m, err := r.Mode(name)
	if err != nil {
		return nil, err
	}
	return m.Stages, nil
}

// TransitionsOf returns the stages reachable from stage under mode.
func (r *Registry) TransitionsOf(name ModeName, stage Stage) ([]Stage, error) {
	m, err := r.Mode(name)
	if err != nil {
		return nil, err
	}
	if !m.hasStage(stage) {
		return nil, sdderr.Invalid("stage %q is not part of mode %q", stage, name)
	}
	return m.Transitions[stage], nil
}

// FirstStage returns the first stage of a mode.
func (r *Registry) FirstStage(name ModeName) (Stage, error) {
	m, err := r.Mode(name)
	if err != nil {
		return "", err
	}
	return m.Stages[0], nil
}

// LastStage returns the last stage of a mode.
func (r *Registry) LastStage(name ModeName) (Stage, error) {
	m, err := r.Mode(name)
	if err != nil {
		return "", err
	}
	return m.Stages[len(m.Stages)-1], nil
}

// CoverageThreshold returns the required coverage percentage of a mode.
func (r *Registry) CoverageThreshold(name ModeName) (int, error) {
	m, err := r.Mode(name)
	if err != nil {
		return 0, err
	}
	return m.CoverageThreshold, nil
}

// RequiresEARS reports whether requirements must use EARS syntax.
func (r *Registry) RequiresEARS(name ModeName) (bool, error) {
	m, err := r.Mode(name)
	if err != nil {
		return false, err
	}
	return m.RequireEARS, nil
}

// RequiresADR reports whether architecture decision records are required.
func (r *Registry) RequiresADR(name ModeName) (bool, error) {
	m, err := r.Mode(name)
	if err != nil {
		return false, err
	}
	return m.RequireADR, nil
}

// SkippedArtifacts returns the artifact names a mode does not produce.
func (r *Registry) SkippedArtifacts(name ModeName) ([]string, error) {
	m, err := r.Mode(name)
	if err != nil {
		return nil, err
	}
	return m.SkipArtifacts, nil
}

// skips reports whether artifact is in the mode's skip list. Matching
// ignores case and a trailing file extension ("design.md" == "design").
func (m Mode) skips(artifact string) bool {
	name := strings.ToLower(strings.TrimSpace(artifact))
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	for _, s := range m.SkipArtifacts {
		if strings.ToLower(s) == name {
			return true
		}
	}
	return false
}
