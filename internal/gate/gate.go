// Package gate manages Phase -1 review gates: records opened when a
// constitution check finds violations that need human sign-off before
// implementation proceeds.
package gate

import (
	"strings"
	"time"

	"github.com/HendryAvila/sdd-engine/internal/constitution"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

// Status is the lifecycle state of a gate. Only pending gates change.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusWaived   Status = "waived"
)

// ParseStatus accepts a status name; empty means no filter.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StatusPending, StatusApproved, StatusRejected, StatusWaived:
		return st, nil
	default:
		return "", sdderr.Invalid("unknown gate status %q", s)
	}
}

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove        Decision = "approve"
	DecisionReject         Decision = "reject"
	DecisionRequestChanges Decision = "request-changes"
)

// ParseDecision validates a decision name.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionApprove, DecisionReject, DecisionRequestChanges:
		return d, nil
	default:
		return "", sdderr.Invalid("unknown review decision %q (want approve, reject or request-changes)", s)
	}
}

// Review is one reviewer's verdict on a gate.
type Review struct {
	Reviewer  string    `json:"reviewer"`
	Decision  Decision  `json:"decision"`
	Comments  string    `json:"comments,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Waiver records a gate bypassed with justification.
type Waiver struct {
	WaivedBy      string    `json:"waivedBy"`
	Justification string    `json:"justification"`
	Timestamp     time.Time `json:"timestamp"`
}

// Notification asks a reviewer to look at a gate.
type Notification struct {
	Reviewer  string    `json:"reviewer"`
	Required  bool      `json:"required"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Gate is a persisted Phase -1 review record.
type Gate struct {
	ID                string                   `json:"id"`
	FeatureID         string                   `json:"featureId"`
	TriggeredBy       string                   `json:"triggeredBy"`
	Reason            string                   `json:"reason"`
	TriggeredAt       time.Time                `json:"triggeredAt"`
	Violations        []constitution.Violation `json:"violations"`
	AffectedFiles     []string                 `json:"affectedFiles"`
	Status            Status                   `json:"status"`
	RequiredReviewers []string                 `json:"requiredReviewers"`
	OptionalReviewers []string                 `json:"optionalReviewers"`
	Reviews           []Review                 `json:"reviews"`
	Waiver            *Waiver                  `json:"waiver,omitempty"`
	ResolvedAt        *time.Time               `json:"resolvedAt,omitempty"`
	Notifications     []Notification           `json:"notifications,omitempty"`
}

// Resolved reports whether the gate has left pending.
func (g *Gate) Resolved() bool { return g.Status != StatusPending }

// hasReviewed reports whether reviewer has any review on the gate.
func (g *Gate) hasReviewed(reviewer string) bool {
	for _, r := range g.Reviews {
		if r.Reviewer == reviewer {
			return true
		}
	}
	return false
}

// evaluate derives the status of a pending gate from its reviews: any
// reject rejects; otherwise every required reviewer must have approved.
// With no required reviewers a single approve is enough.
func (g *Gate) evaluate() Status {
	approved := make(map[string]bool)
	for _, r := range g.Reviews {
		switch r.Decision {
		case DecisionReject:
			return StatusRejected
		case DecisionApprove:
			approved[r.Reviewer] = true
		}
	}
	if len(g.RequiredReviewers) == 0 {
		if len(approved) > 0 {
			return StatusApproved
		}
		return StatusPending
	}
	for _, req := range g.RequiredReviewers {
		if !approved[req] {
			return StatusPending
		}
	}
	return StatusApproved
}

func (g *Gate) clone() *Gate {
	c := *g
	c.Violations = cloneSlice(g.Violations)
	c.AffectedFiles = cloneSlice(g.AffectedFiles)
	c.RequiredReviewers = cloneSlice(g.RequiredReviewers)
	c.OptionalReviewers = cloneSlice(g.OptionalReviewers)
	c.Reviews = cloneSlice(g.Reviews)
	c.Notifications = cloneSlice(g.Notifications)
	if g.Waiver != nil {
		w := *g.Waiver
		c.Waiver = &w
	}
	if g.ResolvedAt != nil {
		t := *g.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
