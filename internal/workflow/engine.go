package workflow

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// Engine is the mode-aware state machine over development stages.
// One Engine owns one project's state files; it is not safe for
// concurrent use.
type Engine struct {
	store     Store
	modes     *Registry
	logger    *slog.Logger
	listeners []Listener
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.AddListener(l) }
}

// NewEngine creates an engine over store. A nil registry selects the
// built-in modes.
func NewEngine(store Store, modes *Registry, opts ...Option) *Engine {
	if modes == nil {
		modes = DefaultRegistry()
	}
	e := &Engine{store: store, modes: modes, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddListener appends a listener; nil is ignored.
func (e *Engine) AddListener(l Listener) {
	if l != nil {
		e.listeners = append(e.listeners, l)
	}
}

// Modes returns the registry the engine was built with.
func (e *Engine) Modes() *Registry { return e.modes }

// State returns the persisted state, or nil when no workflow exists.
func (e *Engine) State() (*State, error) {
	return e.store.LoadState()
}

// Init starts a new workflow for feature. The mode is detected from the
// feature name when opts.Mode is empty, and the start stage defaults to
// the mode's first stage.
func (e *Engine) Init(feature string, opts InitOptions) (*State, error) {
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return nil, sdderr.Invalid("feature name is required")
	}

	existing, err := e.store.LoadState()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, sdderr.Invalid("a workflow already exists for %q (status: %s)", existing.Feature, existing.Status)
	}

	modeName := opts.Mode
	if modeName == "" {
		modeName = e.modes.DetectMode(feature)
	}
	mode, err := e.modes.Mode(modeName)
	if err != nil {
		return nil, err
	}

	start := mode.Stages[0]
	if opts.StartStage != "" {
		start, err = ResolveAlias(opts.StartStage)
		if err != nil {
			return nil, err
		}
		if !mode.hasStage(start) {
			return nil, sdderr.Invalid("start stage %q is not part of mode %q", start, modeName)
		}
	}

	now := timeNow()
	state := &State{
		Feature:      feature,
		Mode:         modeName,
		CurrentStage: start,
		StartedAt:    now,
		Stages: map[Stage]*StageRecord{
			start: {EnteredAt: now, Status: StageInProgress, Attempts: 1},
		},
		History: []HistoryEntry{{Type: EventStarted, Timestamp: now, Stage: start}},
		Config:  mode,
		Status:  StatusActive,
	}

	err = e.commit(state, MetricEntry{
		Timestamp: now,
		Name:      MetricWorkflowStarted,
		Data: map[string]any{
			"feature": feature,
			"mode":    string(modeName),
			"stage":   string(start),
		},
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("workflow started",
		slog.String("feature", feature), slog.String("mode", string(modeName)), slog.String("stage", string(start)))
	return state, nil
}

// TransitionTo moves the workflow from its in-progress stage to target.
// The target must be one of the mode's allowed successors of the
// current stage after alias resolution.
func (e *Engine) TransitionTo(target, notes string) (*State, error) {
	state, err := e.requireState()
	if err != nil {
		return nil, err
	}
	to, err := ResolveAlias(target)
	if err != nil {
		return nil, err
	}

	next := state.clone()
	now := nextTimestamp(next)
	metric, err := applyTransition(next, to, notes, now)
	if err != nil {
		return nil, err
	}
	if err := e.commit(next, metric); err != nil {
		return nil, err
	}
	e.logger.Info("stage transition",
		slog.String("feature", next.Feature), slog.String("from", string(state.CurrentStage)), slog.String("to", string(to)))
	return next, nil
}

// RecordFeedbackLoop appends a feedback-loop entry to the history and
// the metrics log. It does not move the workflow; callers normally
// follow it with TransitionTo, and the two writes are independent.
// Use TransitionWithFeedback for a single write.
func (e *Engine) RecordFeedbackLoop(from, to, reason string) error {
	state, err := e.requireState()
	if err != nil {
		return err
	}
	next := state.clone()
	now := nextTimestamp(next)
	metric, err := applyFeedback(next, from, to, reason, now)
	if err != nil {
		return err
	}
	if err := e.commit(next, metric); err != nil {
		return err
	}
	e.logger.Info("feedback loop recorded",
		slog.String("feature", next.Feature), slog.String("from", from), slog.String("to", to))
	return nil
}

// TransitionWithFeedback records a feedback loop from the current stage
// to target and performs the transition in one state write.
func (e *Engine) TransitionWithFeedback(target, reason string) (*State, error) {
	state, err := e.requireState()
	if err != nil {
		return nil, err
	}
	to, err := ResolveAlias(target)
	if err != nil {
		return nil, err
	}

	next := state.clone()
	now := nextTimestamp(next)
	loop, err := applyFeedback(next, string(state.CurrentStage), string(to), reason, now)
	if err != nil {
		return nil, err
	}
	move, err := applyTransition(next, to, reason, now)
	if err != nil {
		return nil, err
	}
	if err := e.commit(next, loop, move); err != nil {
		return nil, err
	}
	return next, nil
}

// Complete closes the in-progress stage and finishes the workflow.
func (e *Engine) Complete(notes string) (*Summary, error) {
	state, err := e.requireState()
	if err != nil {
		return nil, err
	}
	if state.Status == StatusCompleted {
		return nil, sdderr.Invalid("workflow %q is already completed", state.Feature)
	}

	next := state.clone()
	now := nextTimestamp(next)
	cur, ok := next.inProgress()
	if ok {
		closeStage(next.Stages[cur], now)
	}
	total := now.Sub(next.StartedAt).Milliseconds()
	next.CompletedAt = &now
	next.TotalDuration = &total
	next.Status = StatusCompleted
	next.History = append(next.History, HistoryEntry{
		Type:      EventCompleted,
		Timestamp: now,
		Stage:     cur,
		Notes:     notes,
	})

	summary := summarize(next)
	err = e.commit(next, MetricEntry{
		Timestamp: now,
		Name:      MetricWorkflowCompleted,
		Data: map[string]any{
			"feature":       next.Feature,
			"mode":          string(next.Mode),
			"totalDuration": total,
			"feedbackLoops": summary.FeedbackLoops,
			"stages":        len(summary.Stages),
		},
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("workflow completed",
		slog.String("feature", next.Feature), slog.Int64("total_ms", total))
	return summary, nil
}

// ValidTransitions returns the stages the workflow may move to next.
// It returns nil when no workflow exists or the workflow is completed.
func (e *Engine) ValidTransitions() ([]Stage, error) {
	state, err := e.store.LoadState()
	if err != nil || state == nil {
		return nil, err
	}
	if state.Status == StatusCompleted {
		return nil, nil
	}
	cur, ok := state.inProgress()
	if !ok {
		return nil, nil
	}
	return append([]Stage(nil), state.Config.Transitions[cur]...), nil
}

// CurrentMode returns the mode of the live workflow, or "" when none.
func (e *Engine) CurrentMode() (ModeName, error) {
	state, err := e.store.LoadState()
	if err != nil || state == nil {
		return "", err
	}
	return state.Mode, nil
}

// ModeConfig returns the mode configuration recorded in the state, or
// nil when no workflow exists.
func (e *Engine) ModeConfig() (*Mode, error) {
	state, err := e.store.LoadState()
	if err != nil || state == nil {
		return nil, err
	}
	m := state.Config.clone()
	return &m, nil
}

// ShouldSkipArtifact reports whether the live workflow's mode skips the
// named artifact. With no workflow nothing is skipped.
func (e *Engine) ShouldSkipArtifact(name string) (bool, error) {
	m, err := e.ModeConfig()
	if err != nil || m == nil {
		return false, err
	}
	return m.skips(name), nil
}

// CoverageThreshold returns the live workflow's required coverage. With
// no workflow it falls back to the registry's default mode.
func (e *Engine) CoverageThreshold() (int, error) {
	m, err := e.ModeConfig()
	if err != nil {
		return 0, err
	}
	if m == nil {
		return e.modes.CoverageThreshold(e.modes.defaultMode)
	}
	return m.CoverageThreshold, nil
}

// requireState loads the state for a write path.
func (e *Engine) requireState() (*State, error) {
	state, err := e.store.LoadState()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, sdderr.Missing("no workflow initialized")
	}
	return state, nil
}

// commit persists state, then appends each metric. A failed state save
// aborts before any metric is written; a failed metric append leaves
// the saved state in place and reports the error.
func (e *Engine) commit(state *State, metrics ...MetricEntry) error {
	if err := e.store.SaveState(state); err != nil {
		return err
	}
	e.emit(Event{Name: EventStateSaved, Timestamp: timeNow(), State: state.clone()})
	for i := range metrics {
		m := metrics[i]
		if err := e.store.AppendMetric(m); err != nil {
			e.logger.Warn("metric append failed after state save",
				slog.String("metric", m.Name), slog.String("error", err.Error()))
			return err
		}
		e.emit(Event{Name: EventMetricUpdated, Timestamp: m.Timestamp, Metric: &m})
	}
	return nil
}

func (e *Engine) emit(ev Event) {
	for _, l := range e.listeners {
		l.OnWorkflowEvent(ev)
	}
}

// applyTransition mutates state in place for a legal move to target.
func applyTransition(state *State, to Stage, notes string, now time.Time) (MetricEntry, error) {
	if state.Status == StatusCompleted {
		return MetricEntry{}, sdderr.Invalid("workflow %q is completed", state.Feature)
	}
	cur, ok := state.inProgress()
	if !ok {
		return MetricEntry{}, sdderr.Invalid("workflow %q has no stage in progress", state.Feature)
	}
	allowed := state.Config.Transitions[cur]
	if !containsStage(allowed, to) {
		return MetricEntry{}, sdderr.Invalid("transition %s → %s is not allowed in %s mode (allowed: %s)",
			cur, to, state.Mode, joinStages(allowed))
	}

	from := state.Stages[cur]
	closeStage(from, now)

	rec, ok := state.Stages[to]
	if !ok {
		rec = &StageRecord{}
		state.Stages[to] = rec
	}
	rec.EnteredAt = now
	rec.CompletedAt = nil
	rec.Status = StageInProgress
	rec.Attempts++

	state.CurrentStage = to
	state.History = append(state.History, HistoryEntry{
		Type:      EventTransition,
		Timestamp: now,
		From:      cur,
		To:        to,
		Notes:     notes,
	})

	return MetricEntry{
		Timestamp: now,
		Name:      MetricStageTransition,
		Data: map[string]any{
			"feature":  state.Feature,
			"from":     string(cur),
			"to":       string(to),
			"duration": from.Duration,
			"attempt":  rec.Attempts,
		},
	}, nil
}

// applyFeedback appends a feedback-loop history entry.
func applyFeedback(state *State, fromName, toName, reason string, now time.Time) (MetricEntry, error) {
	if state.Status == StatusCompleted {
		return MetricEntry{}, sdderr.Invalid("workflow %q is completed", state.Feature)
	}
	from, err := ResolveAlias(fromName)
	if err != nil {
		return MetricEntry{}, err
	}
	to, err := ResolveAlias(toName)
	if err != nil {
		return MetricEntry{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return MetricEntry{}, sdderr.Invalid("feedback loop %s → %s needs a reason", from, to)
	}
	if !state.Config.hasStage(from) || !state.Config.hasStage(to) {
		return MetricEntry{}, sdderr.Invalid("feedback loop %s → %s leaves mode %q", from, to, state.Mode)
	}

	state.History = append(state.History, HistoryEntry{
		Type:      EventFeedbackLoop,
		Timestamp: now,
		From:      from,
		To:        to,
		Reason:    reason,
	})
	return MetricEntry{
		Timestamp: now,
		Name:      MetricFeedbackLoop,
		Data: map[string]any{
			"feature": state.Feature,
			"from":    string(from),
			"to":      string(to),
			"reason":  reason,
		},
	}, nil
}

// closeStage marks rec completed and accumulates its duration.
func closeStage(rec *StageRecord, now time.Time) {
	if rec == nil || rec.Status == StageCompleted {
		return
	}
	t := now
	rec.CompletedAt = &t
	if d := now.Sub(rec.EnteredAt).Milliseconds(); d > 0 {
		rec.Duration += d
	}
	rec.Status = StageCompleted
}

// nextTimestamp returns the current time, clamped so history stays
// monotonic even if the wall clock steps backwards.
func nextTimestamp(state *State) time.Time {
	now := timeNow()
	if n := len(state.History); n > 0 && now.Before(state.History[n-1].Timestamp) {
		return state.History[n-1].Timestamp
	}
	return now
}

func summarize(state *State) *Summary {
	s := &Summary{
		Feature:   state.Feature,
		Mode:      state.Mode,
		StartedAt: state.StartedAt,
		Stages:    make(map[Stage]StageSummary, len(state.Stages)),
	}
	if state.CompletedAt != nil {
		s.CompletedAt = *state.CompletedAt
	}
	if state.TotalDuration != nil {
		s.TotalDuration = *state.TotalDuration
	}
	for name, rec := range state.Stages {
		s.Stages[name] = StageSummary{Duration: rec.Duration, Attempts: rec.Attempts, Status: rec.Status}
	}
	for _, h := range state.History {
		switch h.Type {
		case EventTransition:
			s.Transitions++
		case EventFeedbackLoop:
			s.FeedbackLoops++
		}
	}
	return s
}

func containsStage(list []Stage, s Stage) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func joinStages(list []Stage) string {
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, len(list))
	for i, s := range list {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// String renders a one-line description of the state for logs and tools.
func (s *State) String() string {
	return fmt.Sprintf("%s [%s] at %s (%s)", s.Feature, s.Mode, s.CurrentStage, s.Status)
}
