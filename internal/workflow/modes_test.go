package workflow

import (
	"errors"
	"regexp"
	"testing"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

func TestDetectMode(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		feature string
		want    ModeName
	}{
		{"fix: crash-on-start", ModeSmall},
		{"bugfix login", ModeSmall},
		{"hotfix/payment", ModeSmall},
		{"docs: readme", ModeSmall},
		{"chore: bump deps", ModeSmall},
		{"style: lint", ModeSmall},
		{"feat: oauth", ModeMedium},
		{"feature/search", ModeMedium},
		{"refactor parser", ModeMedium},
		{"perf: cache", ModeMedium},
		{"breaking: drop v1", ModeLarge},
		{"major rewrite", ModeLarge},
		{"arch: new-storage-engine", ModeLarge},
		{"FIX: upper case", ModeSmall},
		{"fixture loading", ModeMedium}, // "fix" must be a whole word
		{"something else", ModeMedium},
	}
	for _, tt := range tests {
		if got := r.DetectMode(tt.feature); got != tt.want {
			t.Errorf("DetectMode(%q) = %s, want %s", tt.feature, got, tt.want)
		}
	}
}

func TestBuiltinModes_Shape(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		mode      ModeName
		stages    int
		first     Stage
		last      Stage
		threshold int
		ears, adr bool
	}{
		{ModeSmall, 3, StageRequirements, StageValidate, 60, false, false},
		{ModeMedium, 5, StageRequirements, StageValidate, 70, true, false},
		{ModeLarge, 7, StageSteering, StageReview, 80, true, true},
	}
	for _, tt := range tests {
		stages, _ := r.StagesOf(tt.mode)
		if len(stages) != tt.stages {
			t.Errorf("%s: %d stages, want %d", tt.mode, len(stages), tt.stages)
		}
		if first, _ := r.FirstStage(tt.mode); first != tt.first {
			t.Errorf("%s: first = %s, want %s", tt.mode, first, tt.first)
		}
		if last, _ := r.LastStage(tt.mode); last != tt.last {
			t.Errorf("%s: last = %s, want %s", tt.mode, last, tt.last)
		}
		if th, _ := r.CoverageThreshold(tt.mode); th != tt.threshold {
			t.Errorf("%s: threshold = %d, want %d", tt.mode, th, tt.threshold)
		}
		if ears, _ := r.RequiresEARS(tt.mode); ears != tt.ears {
			t.Errorf("%s: EARS = %v, want %v", tt.mode, ears, tt.ears)
		}
		if adr, _ := r.RequiresADR(tt.mode); adr != tt.adr {
			t.Errorf("%s: ADR = %v, want %v", tt.mode, adr, tt.adr)
		}
	}
}

func TestBuiltinModes_TransitionsSubsetOfCatalog(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range r.Names() {
		stages, _ := r.StagesOf(name)
		for _, s := range stages {
			next, err := r.TransitionsOf(name, s)
			if err != nil {
				t.Fatalf("TransitionsOf(%s, %s): %v", name, s, err)
			}
			for _, to := range next {
				if !catalogAllows(s, to) {
					t.Errorf("%s: %s → %s not in catalog", name, s, to)
				}
			}
		}
	}
}

func TestLargeMode_EqualsCatalog(t *testing.T) {
	r := DefaultRegistry()
	for _, s := range AllStages() {
		got, _ := r.TransitionsOf(ModeLarge, s)
		want := Successors(s)
		if len(got) != len(want) {
			t.Errorf("large %s: %v, want %v", s, got, want)
		}
	}
}

func TestTransitionsOf_StageOutsideMode(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.TransitionsOf(ModeSmall, StageDesign)
	if !errors.Is(err, sdderr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRegistry_UnknownMode(t *testing.T) {
	r := DefaultRegistry()
	if _, err := r.StagesOf("huge"); !errors.Is(err, sdderr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRegistry_ModeIsCopied(t *testing.T) {
	r := DefaultRegistry()
	m, _ := r.Mode(ModeSmall)
	m.Stages[0] = StageReview
	m.Transitions[StageRequirements] = nil
	again, _ := r.Mode(ModeSmall)
	if again.Stages[0] != StageRequirements || len(again.Transitions[StageRequirements]) == 0 {
		t.Error("registry state was mutated through a returned Mode")
	}
}

func TestNewRegistry_CustomModeWithSelfLoop(t *testing.T) {
	custom := Mode{
		Name:   "spike",
		Stages: []Stage{StageImplement, StageValidate},
		Transitions: map[Stage][]Stage{
			StageImplement: {StageImplement, StageValidate},
		},
		CoverageThreshold: 0,
	}
	r, err := NewRegistry(RegistryOptions{Modes: []Mode{custom}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	next, _ := r.TransitionsOf("spike", StageImplement)
	if len(next) != 2 {
		t.Errorf("transitions = %v", next)
	}
}

func TestNewRegistry_RejectsBadModes(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
	}{
		{"no name", Mode{Stages: []Stage{StageImplement}}},
		{"no stages", Mode{Name: "x"}},
		{"unknown stage", Mode{Name: "x", Stages: []Stage{"deploy"}}},
		{"duplicate stage", Mode{Name: "x", Stages: []Stage{StageImplement, StageImplement}}},
		{"edge outside mode", Mode{Name: "x", Stages: []Stage{StageImplement},
			Transitions: map[Stage][]Stage{StageImplement: {StageValidate}}}},
		{"edge outside catalog", Mode{Name: "x", Stages: []Stage{StageSteering, StageReview},
			Transitions: map[Stage][]Stage{StageSteering: {StageReview}}}},
		{"threshold", Mode{Name: "x", Stages: []Stage{StageImplement}, CoverageThreshold: 140}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(RegistryOptions{Modes: []Mode{tt.mode}})
			if !errors.Is(err, sdderr.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestNewRegistry_CustomRulesAndDefault(t *testing.T) {
	r, err := NewRegistry(RegistryOptions{
		Rules:       []DetectionRule{{Pattern: regexp.MustCompile(`^infra`), Mode: ModeLarge}},
		DefaultMode: ModeSmall,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.DetectMode("infra: vpc"); got != ModeLarge {
		t.Errorf("got %s, want large", got)
	}
	if got := r.DetectMode("feat: x"); got != ModeSmall {
		t.Errorf("custom rules replace defaults; got %s, want small", got)
	}
}

func TestNewRegistry_RuleToUnknownMode(t *testing.T) {
	_, err := NewRegistry(RegistryOptions{
		Rules: []DetectionRule{{Pattern: regexp.MustCompile(`x`), Mode: "nope"}},
	})
	if !errors.Is(err, sdderr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestMode_Skips(t *testing.T) {
	m, _ := DefaultRegistry().Mode(ModeSmall)
	for _, name := range []string{"design", "design.md", "TASKS.md", "adr"} {
		if !m.skips(name) {
			t.Errorf("small should skip %q", name)
		}
	}
	if m.skips("requirements.md") {
		t.Error("small should not skip requirements")
	}
}
