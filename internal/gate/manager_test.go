package gate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/sdd-engine/internal/constitution"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

var baseTime = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// useFixedClock freezes time and makes id suffixes deterministic.
func useFixedClock(t *testing.T) {
	t.Helper()
	origNow, origSuffix := timeNow, newSuffix
	timeNow = func() time.Time { return baseTime }
	n := 0
	newSuffix = func() string {
		n++
		return fmt.Sprintf("%08x", n)
	}
	t.Cleanup(func() { timeNow, newSuffix = origNow, origSuffix })
}

func newTestManager(t *testing.T, cfg Config, opts ...Option) (*Manager, string) {
	t.Helper()
	useFixedClock(t)
	dir := t.TempDir()
	return NewManager(NewFileStore(dir, nil), constitution.NewChecker(), cfg, opts...), dir
}

func sampleViolation() constitution.Violation {
	return constitution.Violation{
		Article:     constitution.ArticleVIII,
		ArticleName: "Anti-Abstraction",
		File:        "src/svc.ts",
		Line:        1,
		Message:     "class extends speculative base BaseSvc",
		Severity:    constitution.SeverityHigh,
	}
}

func trigger(t *testing.T, m *Manager) *Gate {
	t.Helper()
	g, err := m.Trigger(TriggerInput{FeatureID: "checkout", Violations: []constitution.Violation{sampleViolation()}})
	require.NoError(t, err)
	return g
}

func TestTrigger_CreatesPendingGate(t *testing.T) {
	m, _ := newTestManager(t, Config{RequiredReviewers: []string{"architect"}, OptionalReviewers: []string{"tech-lead"}})
	g := trigger(t, m)

	assert.Regexp(t, `^GATE-\d+-[0-9a-f]{8}$`, g.ID)
	assert.Equal(t, StatusPending, g.Status)
	assert.Equal(t, "checkout", g.FeatureID)
	assert.Equal(t, DefaultTriggeredBy, g.TriggeredBy)
	assert.Equal(t, []string{"src/svc.ts"}, g.AffectedFiles)
	assert.Equal(t, []string{"architect"}, g.RequiredReviewers)
	assert.Equal(t, []string{"tech-lead"}, g.OptionalReviewers)
	assert.Equal(t, "1 violation(s) require Phase -1 review", g.Reason)
	assert.Nil(t, g.ResolvedAt)
	assert.Empty(t, g.Notifications)

	got, err := m.Get(g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestTrigger_Validation(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	_, err := m.Trigger(TriggerInput{FeatureID: "", Violations: []constitution.Violation{sampleViolation()}})
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))

	_, err = m.Trigger(TriggerInput{FeatureID: "f"})
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))
}

func TestTrigger_IDsStrictlyIncrease(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	var last int64
	for i := 0; i < 5; i++ {
		g := trigger(t, m)
		ms, err := strconv.ParseInt(strings.Split(g.ID, "-")[1], 10, 64)
		require.NoError(t, err)
		assert.Greater(t, ms, last)
		last = ms
	}
}

func TestTrigger_AutoNotify(t *testing.T) {
	var events []Event
	m, _ := newTestManager(t,
		Config{RequiredReviewers: []string{"architect"}, OptionalReviewers: []string{"tech-lead"}, AutoNotify: true},
		WithListener(ListenerFunc(func(e Event) { events = append(events, e) })),
	)
	g := trigger(t, m)

	require.Len(t, g.Notifications, 2)
	assert.Equal(t, "architect", g.Notifications[0].Reviewer)
	assert.True(t, g.Notifications[0].Required)
	assert.Equal(t, "tech-lead", g.Notifications[1].Reviewer)
	assert.False(t, g.Notifications[1].Required)
	assert.Contains(t, g.Notifications[0].Message, g.ID)

	require.Len(t, events, 3)
	assert.Equal(t, EventTriggered, events[0].Name)
	assert.Equal(t, EventNotification, events[1].Name)
	assert.Equal(t, "architect", events[1].Notification.Reviewer)
}

func TestSubmitReview_ApproveResolves(t *testing.T) {
	m, _ := newTestManager(t, Config{RequiredReviewers: []string{"architect"}})
	g := trigger(t, m)

	got, err := m.SubmitReview(g.ID, ReviewInput{Reviewer: "architect", Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, baseTime, *got.ResolvedAt)
}

func TestSubmitReview_RejectIsFinal(t *testing.T) {
	m, _ := newTestManager(t, Config{RequiredReviewers: []string{"architect"}})
	g := trigger(t, m)

	got, err := m.SubmitReview(g.ID, ReviewInput{Reviewer: "architect", Decision: "reject", Comments: "needs rework"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	require.NotNil(t, got.ResolvedAt)

	got, err = m.SubmitReview(g.ID, ReviewInput{Reviewer: "architect", Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Len(t, got.Reviews, 2)

	stored, err := m.Get(g.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Reviews, 2)
	assert.Equal(t, StatusRejected, stored.Status)
}

func TestSubmitReview_ApprovalRules(t *testing.T) {
	m, _ := newTestManager(t, Config{RequiredReviewers: []string{"architect", "security"}, OptionalReviewers: []string{"tech-lead"}})
	g := trigger(t, m)

	steps := []struct {
		reviewer string
		decision string
		want     Status
	}{
		{"tech-lead", "approve", StatusPending},
		{"architect", "request-changes", StatusPending},
		{"architect", "approve", StatusPending},
		{"security", "approve", StatusApproved},
	}
	for _, s := range steps {
		got, err := m.SubmitReview(g.ID, ReviewInput{Reviewer: s.reviewer, Decision: s.decision})
		require.NoError(t, err)
		assert.Equal(t, s.want, got.Status, "after %s %s", s.reviewer, s.decision)
	}
}

func TestSubmitReview_NoRequiredReviewers(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	g := trigger(t, m)

	got, err := m.SubmitReview(g.ID, ReviewInput{Reviewer: "anyone", Decision: "request-changes"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	got, err = m.SubmitReview(g.ID, ReviewInput{Reviewer: "anyone", Decision: "approve"})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestSubmitReview_Errors(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	g := trigger(t, m)

	_, err := m.SubmitReview(g.ID, ReviewInput{Reviewer: "", Decision: "approve"})
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))

	_, err = m.SubmitReview(g.ID, ReviewInput{Reviewer: "a", Decision: "maybe"})
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))

	_, err = m.SubmitReview("GATE-1-deadbeef", ReviewInput{Reviewer: "a", Decision: "approve"})
	assert.True(t, errors.Is(err, sdderr.ErrStateMissing))

	_, err = m.SubmitReview("../etc/passwd", ReviewInput{Reviewer: "a", Decision: "approve"})
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))
}

func TestWaive(t *testing.T) {
	var resolved []Status
	m, _ := newTestManager(t, Config{RequiredReviewers: []string{"architect"}},
		WithListener(ListenerFunc(func(e Event) {
			if e.Name == EventResolved {
				resolved = append(resolved, e.Gate.Status)
			}
		})),
	)
	g := trigger(t, m)

	_, err := m.Waive(g.ID, WaiveInput{WaivedBy: "cto", Justification: "   "})
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))

	got, err := m.Waive(g.ID, WaiveInput{WaivedBy: "cto", Justification: "hotfix for outage"})
	require.NoError(t, err)
	assert.Equal(t, StatusWaived, got.Status)
	require.NotNil(t, got.Waiver)
	assert.Equal(t, "hotfix for outage", got.Waiver.Justification)
	require.NotNil(t, got.ResolvedAt)

	_, err = m.Waive(g.ID, WaiveInput{WaivedBy: "cto", Justification: "again"})
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))

	got, err = m.SubmitReview(g.ID, ReviewInput{Reviewer: "architect", Decision: "reject"})
	require.NoError(t, err)
	assert.Equal(t, StatusWaived, got.Status)

	assert.Equal(t, []Status{StatusWaived}, resolved)
}

func TestGet_Missing(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	g, err := m.Get("GATE-1-00000000")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestListAndPendingForReviewer(t *testing.T) {
	m, _ := newTestManager(t, Config{RequiredReviewers: []string{"architect"}, OptionalReviewers: []string{"tech-lead"}})
	first := trigger(t, m)
	second := trigger(t, m)
	third := trigger(t, m)

	_, err := m.SubmitReview(first.ID, ReviewInput{Reviewer: "architect", Decision: "approve"})
	require.NoError(t, err)
	_, err = m.SubmitReview(second.ID, ReviewInput{Reviewer: "tech-lead", Decision: "approve"})
	require.NoError(t, err)

	all, err := m.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	pending, err := m.List(StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	forArchitect, err := m.PendingForReviewer("architect")
	require.NoError(t, err)
	assert.Len(t, forArchitect, 2)

	forLead, err := m.PendingForReviewer("tech-lead")
	require.NoError(t, err)
	require.Len(t, forLead, 1)
	assert.Equal(t, third.ID, forLead[0].ID)

	none, err := m.PendingForReviewer("intern")
	require.NoError(t, err)
	assert.Empty(t, none)

	byFeature, err := m.ListForFeature("checkout")
	require.NoError(t, err)
	assert.Len(t, byFeature, 3)
}

func TestAnalyzeAndTrigger(t *testing.T) {
	m, _ := newTestManager(t, Config{RequiredReviewers: []string{"architect"}})
	dir := t.TempDir()
	bad := filepath.Join(dir, "svc.ts")
	clean := filepath.Join(dir, "cart.ts")
	require.NoError(t, os.WriteFile(bad, []byte("class Svc extends BaseSvc {}\n"), 0o644))
	require.NoError(t, os.WriteFile(clean, []byte("/** Implements: REQ-1 */\nexport const x = 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cart.test.ts"), nil, 0o644))

	res, err := m.AnalyzeAndTrigger(context.Background(), "checkout", []string{clean}, "ci")
	require.NoError(t, err)
	assert.False(t, res.Triggered)
	assert.Nil(t, res.Gate)
	assert.Zero(t, res.CheckResults.Summary.TotalViolations)

	res, err = m.AnalyzeAndTrigger(context.Background(), "checkout", []string{bad, clean}, "ci")
	require.NoError(t, err)
	require.True(t, res.Triggered)
	assert.True(t, res.BlockDecision.RequiresPhaseMinusOne)
	assert.False(t, res.BlockDecision.ShouldBlock)

	g := res.Gate
	require.NotNil(t, g)
	assert.Equal(t, "ci", g.TriggeredBy)
	require.Len(t, g.Violations, 1)
	assert.Equal(t, constitution.ArticleVIII, g.Violations[0].Article)
	assert.Equal(t, constitution.SeverityHigh, g.Violations[0].Severity)
	assert.Equal(t, []string{bad}, g.AffectedFiles)
}

func TestAnalyzeAndTrigger_NoChecker(t *testing.T) {
	useFixedClock(t)
	m := NewManager(NewFileStore(t.TempDir(), nil), nil, Config{})
	_, err := m.AnalyzeAndTrigger(context.Background(), "f", nil, "")
	assert.True(t, errors.Is(err, sdderr.ErrInvalidInput))
}
