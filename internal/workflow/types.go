// Package workflow implements the staged development lifecycle: a
// mode-aware state machine over stages, with feedback loops, persisted
// state, and a metrics log.
//
// The pieces live in separate files:
//   - stages.go: the stage catalog (names, aliases, legal successors)
//   - modes.go: the mode registry (small/medium/large and detection rules)
//   - store.go: persistence of the live state and the metrics log
//   - engine.go: the state machine itself
//   - metrics.go: summaries derived from the metrics log
package workflow

import "time"

// StageStatus tracks progress of one stage within a workflow.
type StageStatus string

const (
	StageInProgress StageStatus = "in-progress"
	StageCompleted  StageStatus = "completed"
)

// Status is the overall status of a workflow.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// EventType labels history entries.
type EventType string

const (
	EventStarted      EventType = "workflow-started"
	EventTransition   EventType = "transition"
	EventFeedbackLoop EventType = "feedback-loop"
	EventCompleted    EventType = "workflow-completed"
)

// Metric names appended to the metrics log.
const (
	MetricWorkflowStarted   = "workflow_started"
	MetricStageTransition   = "stage_transition"
	MetricFeedbackLoop      = "feedback_loop"
	MetricWorkflowCompleted = "workflow_completed"
)

// StageRecord is the per-stage bookkeeping kept in the state.
type StageRecord struct {
	EnteredAt   time.Time   `json:"enteredAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	Status      StageStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	// Duration is the accumulated time spent in the stage across all
	// attempts, in milliseconds.
	Duration int64 `json:"duration"`
}

// HistoryEntry is one timestamped event in a workflow's history.
type HistoryEntry struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Stage     Stage     `json:"stage,omitempty"`
	From      Stage     `json:"from,omitempty"`
	To        Stage     `json:"to,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// State is the single live workflow record of a project, persisted as
// the workflow state document.
type State struct {
	Feature      string                 `json:"feature"`
	Mode         ModeName               `json:"mode"`
	CurrentStage Stage                  `json:"currentStage"`
	StartedAt    time.Time              `json:"startedAt"`
	Stages       map[Stage]*StageRecord `json:"stages"`
	History      []HistoryEntry         `json:"history"`
	Config       Mode                   `json:"config"`
	// CompletedAt and TotalDuration (milliseconds) are set by Complete.
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	TotalDuration *int64     `json:"totalDuration,omitempty"`
	Status        Status     `json:"status,omitempty"`
}

// inProgress returns the stage currently marked in-progress, if any.
func (s *State) inProgress() (Stage, bool) {
	for name, rec := range s.Stages {
		if rec.Status == StageInProgress {
			return name, true
		}
	}
	return "", false
}

// clone deep-copies the state so a failed save never leaves a
// half-mutated value visible to the caller.
func (s *State) clone() *State {
	out := *s
	out.Stages = make(map[Stage]*StageRecord, len(s.Stages))
	for k, v := range s.Stages {
		rec := *v
		if v.CompletedAt != nil {
			t := *v.CompletedAt
			rec.CompletedAt = &t
		}
		out.Stages[k] = &rec
	}
	out.History = append([]HistoryEntry(nil), s.History...)
	out.Config = s.Config.clone()
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.TotalDuration != nil {
		d := *s.TotalDuration
		out.TotalDuration = &d
	}
	return &out
}

// MetricEntry is one record of the append-only metrics log.
type MetricEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
}

// StageSummary is the per-stage part of a completion Summary.
type StageSummary struct {
	Duration int64       `json:"duration"`
	Attempts int         `json:"attempts"`
	Status   StageStatus `json:"status"`
}

// Summary is returned by Complete.
type Summary struct {
	Feature       string                 `json:"feature"`
	Mode          ModeName               `json:"mode"`
	StartedAt     time.Time              `json:"startedAt"`
	CompletedAt   time.Time              `json:"completedAt"`
	TotalDuration int64                  `json:"totalDuration"`
	Stages        map[Stage]StageSummary `json:"stages"`
	Transitions   int                    `json:"transitions"`
	FeedbackLoops int                    `json:"feedbackLoops"`
}

// InitOptions are the optional inputs of Engine.Init.
type InitOptions struct {
	Mode       ModeName
	StartStage string
}
