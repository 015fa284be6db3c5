package workflow

import (
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// Stage is a named point in the development lifecycle.
type Stage string

const (
	StageSteering     Stage = "steering"     // project-wide context docs (large only)
	StageRequirements Stage = "requirements" // EARS-style requirements
	StageDesign       Stage = "design"       // technical design
	StageTasks        Stage = "tasks"        // implementation breakdown
	StageImplement    Stage = "implement"    // writing code
	StageValidate     Stage = "validate"     // tests, coverage, compliance
	StageReview       Stage = "review"       // final review (large only)
)

// stageInfo is one entry of the stage catalog.
type stageInfo struct {
	optional   bool
	successors []Stage
}

// catalog holds every stage with its full set of legal successors.
// These edges are exactly the transitions of the large mode; the
// other modes prune them.
var catalog = map[Stage]stageInfo{
	StageSteering:     {optional: true, successors: []Stage{StageRequirements}},
	StageRequirements: {successors: []Stage{StageDesign, StageImplement, StageSteering}},
	StageDesign:       {optional: true, successors: []Stage{StageTasks, StageRequirements}},
	StageTasks:        {optional: true, successors: []Stage{StageImplement, StageDesign}},
	StageImplement:    {successors: []Stage{StageValidate, StageTasks, StageDesign, StageRequirements}},
	StageValidate:     {successors: []Stage{StageReview, StageImplement}},
	StageReview:       {optional: true, successors: []Stage{StageImplement, StageDesign}},
}

// stageOrder is the canonical lifecycle order, used wherever a stable
// listing of stages is needed.
var stageOrder = []Stage{
	StageSteering,
	StageRequirements,
	StageDesign,
	StageTasks,
	StageImplement,
	StageValidate,
	StageReview,
}

// aliases maps accepted alternative spellings to canonical stage names.
var aliases = map[string]Stage{
	"implementation": StageImplement,
	"validation":     StageValidate,
}

// AllStages returns every catalog stage in lifecycle order.
func AllStages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ResolveAlias canonicalizes a stage name. Input is trimmed and
// lower-cased; known aliases are rewritten. Names that are neither a
// catalog stage nor an alias are rejected.
func ResolveAlias(name string) (Stage, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if s, ok := aliases[n]; ok {
		return s, nil
	}
	if _, ok := catalog[Stage(n)]; ok {
		return Stage(n), nil
	}
	return "", sdderr.Invalid("unknown stage %q", name)
}

// Successors returns the full set of legal next stages for s, ignoring
// mode. Unknown stages have no successors.
func Successors(s Stage) []Stage {
	info, ok := catalog[s]
	if !ok {
		return nil
	}
	out := make([]Stage, len(info.successors))
	copy(out, info.successors)
	return out
}

// IsOptional reports whether a stage may be skipped by a mode.
func IsOptional(s Stage) bool {
	return catalog[s].optional
}

// IsKnownStage reports whether s is a canonical catalog stage.
func IsKnownStage(s Stage) bool {
	_, ok := catalog[s]
	return ok
}

// catalogAllows reports whether from→to is a catalog edge.
func catalogAllows(from, to Stage) bool {
	for _, s := range catalog[from].successors {
		if s == to {
			return true
		}
	}
	return false
}
