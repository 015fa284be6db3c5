package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HendryAvila/sdd-engine/internal/constitution"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
	"github.com/HendryAvila/sdd-engine/internal/slug"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// newSuffix returns the random part of a gate id.
var newSuffix = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// DefaultTriggeredBy is recorded when a trigger names no source.
const DefaultTriggeredBy = "constitution-checker"

// Config sets the reviewers attached to new gates.
type Config struct {
	RequiredReviewers []string
	OptionalReviewers []string
	AutoNotify        bool
}

// TriggerInput opens a gate.
type TriggerInput struct {
	FeatureID     string
	Violations    []constitution.Violation
	AffectedFiles []string
	TriggeredBy   string
	Reason        string
}

// ReviewInput is one reviewer's verdict.
type ReviewInput struct {
	Reviewer string
	Decision string
	Comments string
}

// WaiveInput bypasses a pending gate.
type WaiveInput struct {
	WaivedBy      string
	Justification string
}

// Analysis is the outcome of AnalyzeAndTrigger.
type Analysis struct {
	Triggered     bool                       `json:"triggered"`
	Gate          *Gate                      `json:"gate,omitempty"`
	CheckResults  *constitution.CheckResult  `json:"checkResults"`
	BlockDecision constitution.BlockDecision `json:"blockDecision"`
}

// Manager opens and resolves gates. All mutations run under one lock so
// concurrent reviews of the same gate are serialized.
type Manager struct {
	mu         sync.Mutex
	store      Store
	checker    *constitution.Checker
	cfg        Config
	logger     *slog.Logger
	listeners  []Listener
	lastMillis int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithListener registers a listener at construction.
func WithListener(l Listener) Option {
	return func(m *Manager) { m.listeners = append(m.listeners, l) }
}

// NewManager creates a Manager. checker may be nil when AnalyzeAndTrigger
// is not used.
func NewManager(store Store, checker *constitution.Checker, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		checker: checker,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// AddListener registers l for subsequent events.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// nextID returns GATE-<millis>-<hex>, with millis strictly increasing
// across calls on this manager.
func (m *Manager) nextID(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= m.lastMillis {
		ms = m.lastMillis + 1
	}
	m.lastMillis = ms
	return fmt.Sprintf("GATE-%d-%s", ms, newSuffix())
}

// Trigger opens a pending gate for the given violations.
func (m *Manager) Trigger(in TriggerInput) (*Gate, error) {
	if _, err := slug.Key(in.FeatureID); err != nil {
		return nil, err
	}
	if len(in.Violations) == 0 {
		return nil, sdderr.Invalid("a gate needs at least one violation")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := timeNow()
	g := &Gate{
		ID:                m.nextID(now),
		FeatureID:         strings.TrimSpace(in.FeatureID),
		TriggeredBy:       strings.TrimSpace(in.TriggeredBy),
		Reason:            strings.TrimSpace(in.Reason),
		TriggeredAt:       now,
		Violations:        append([]constitution.Violation(nil), in.Violations...),
		AffectedFiles:     affectedFiles(in.AffectedFiles, in.Violations),
		Status:            StatusPending,
		RequiredReviewers: append([]string{}, m.cfg.RequiredReviewers...),
		OptionalReviewers: append([]string{}, m.cfg.OptionalReviewers...),
		Reviews:           []Review{},
	}
	if g.TriggeredBy == "" {
		g.TriggeredBy = DefaultTriggeredBy
	}
	if g.Reason == "" {
		g.Reason = fmt.Sprintf("%d violation(s) require Phase -1 review", len(in.Violations))
	}
	if m.cfg.AutoNotify {
		g.Notifications = notifications(g, now)
	}

	if err := m.store.Save(g); err != nil {
		return nil, err
	}
	m.logger.Info("gate triggered",
		"gate", g.ID, "feature", g.FeatureID,
		"violations", len(g.Violations), "required_reviewers", g.RequiredReviewers)

	m.emit(Event{Name: EventTriggered, Gate: g.clone()})
	for i := range g.Notifications {
		n := g.Notifications[i]
		m.emit(Event{Name: EventNotification, Gate: g.clone(), Notification: &n})
	}
	return g.clone(), nil
}

func notifications(g *Gate, now time.Time) []Notification {
	var out []Notification
	add := func(reviewer string, required bool) {
		kind := "optional"
		if required {
			kind = "required"
		}
		out = append(out, Notification{
			Reviewer:  reviewer,
			Required:  required,
			Message:   fmt.Sprintf("Phase -1 review %s for %s (%s): %s", kind, g.FeatureID, g.ID, g.Reason),
			CreatedAt: now,
		})
	}
	for _, r := range g.RequiredReviewers {
		add(r, true)
	}
	for _, r := range g.OptionalReviewers {
		add(r, false)
	}
	return out
}

func affectedFiles(given []string, vs []constitution.Violation) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range given {
		add(p)
	}
	if len(given) == 0 {
		for _, v := range vs {
			add(v.File)
		}
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

// AnalyzeAndTrigger checks paths and opens a gate only when the result
// requires a Phase -1 review.
func (m *Manager) AnalyzeAndTrigger(ctx context.Context, featureID string, paths []string, triggeredBy string) (*Analysis, error) {
	if m.checker == nil {
		return nil, sdderr.Invalid("gate manager has no compliance checker")
	}
	if _, err := slug.Key(featureID); err != nil {
		return nil, err
	}
	res, err := m.checker.CheckFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	decision := constitution.ShouldBlockMerge(res)
	out := &Analysis{CheckResults: res, BlockDecision: decision}
	if !decision.RequiresPhaseMinusOne {
		return out, nil
	}

	vs := constitution.GateViolations(res)
	g, err := m.Trigger(TriggerInput{
		FeatureID:   featureID,
		Violations:  vs,
		TriggeredBy: triggeredBy,
		Reason:      strings.Join(decision.Reasons, "; "),
	})
	if err != nil {
		return nil, err
	}
	out.Triggered = true
	out.Gate = g
	return out, nil
}

// SubmitReview records a review. On a pending gate it may resolve the
// gate; on a resolved gate the review is stored and the status kept.
func (m *Manager) SubmitReview(id string, in ReviewInput) (*Gate, error) {
	reviewer := strings.TrimSpace(in.Reviewer)
	if reviewer == "" {
		return nil, sdderr.Invalid("reviewer is required")
	}
	decision, err := ParseDecision(in.Decision)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.requireGate(id)
	if err != nil {
		return nil, err
	}
	now := timeNow()
	g.Reviews = append(g.Reviews, Review{
		Reviewer:  reviewer,
		Decision:  decision,
		Comments:  strings.TrimSpace(in.Comments),
		Timestamp: now,
	})

	resolved := false
	if g.Status == StatusPending {
		if st := g.evaluate(); st != StatusPending {
			g.Status = st
			g.ResolvedAt = &now
			resolved = true
		}
	}
	if err := m.store.Save(g); err != nil {
		return nil, err
	}
	m.logger.Info("gate reviewed", "gate", g.ID, "reviewer", reviewer, "decision", decision, "status", g.Status)

	m.emit(Event{Name: EventReviewed, Gate: g.clone()})
	if resolved {
		m.emit(Event{Name: EventResolved, Gate: g.clone()})
	}
	return g.clone(), nil
}

// Waive bypasses a pending gate. Justification must be non-empty.
func (m *Manager) Waive(id string, in WaiveInput) (*Gate, error) {
	by := strings.TrimSpace(in.WaivedBy)
	why := strings.TrimSpace(in.Justification)
	if by == "" {
		return nil, sdderr.Invalid("waivedBy is required")
	}
	if why == "" {
		return nil, sdderr.Invalid("waiver justification is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.requireGate(id)
	if err != nil {
		return nil, err
	}
	if g.Resolved() {
		return nil, sdderr.Invalid("gate %s is already %s", g.ID, g.Status)
	}
	now := timeNow()
	g.Waiver = &Waiver{WaivedBy: by, Justification: why, Timestamp: now}
	g.Status = StatusWaived
	g.ResolvedAt = &now

	if err := m.store.Save(g); err != nil {
		return nil, err
	}
	m.logger.Warn("gate waived", "gate", g.ID, "waived_by", by, "justification", why)
	m.emit(Event{Name: EventResolved, Gate: g.clone()})
	return g.clone(), nil
}

// Get returns the gate, or nil when it does not exist.
func (m *Manager) Get(id string) (*Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Load(id)
}

// List returns gates with the given status; an empty status lists all.
func (m *Manager) List(status Status) ([]*Gate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all, err := m.store.List()
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	var out []*Gate
	for _, g := range all {
		if g.Status == status {
			out = append(out, g)
		}
	}
	return out, nil
}

// ListForFeature returns every gate opened for featureID.
func (m *Manager) ListForFeature(featureID string) ([]*Gate, error) {
	all, err := m.List("")
	if err != nil {
		return nil, err
	}
	featureID = strings.TrimSpace(featureID)
	var out []*Gate
	for _, g := range all {
		if g.FeatureID == featureID {
			out = append(out, g)
		}
	}
	return out, nil
}

// PendingForReviewer lists pending gates naming reviewer (required or
// optional) that the reviewer has not reviewed yet.
func (m *Manager) PendingForReviewer(reviewer string) ([]*Gate, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return nil, sdderr.Invalid("reviewer is required")
	}
	pending, err := m.List(StatusPending)
	if err != nil {
		return nil, err
	}
	var out []*Gate
	for _, g := range pending {
		if (contains(g.RequiredReviewers, reviewer) || contains(g.OptionalReviewers, reviewer)) && !g.hasReviewed(reviewer) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *Manager) requireGate(id string) (*Gate, error) {
	g, err := m.store.Load(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, sdderr.Missing("gate %s not found", id)
	}
	return g, nil
}

func (m *Manager) emit(e Event) {
	for _, l := range m.listeners {
		l.OnGateEvent(e)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
