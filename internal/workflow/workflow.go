// Package workflow holds the story status transition table.
package workflow

import (
	"strings"

	"Archimedes/internal/domain"
)

// Transition names accepted by Next.
const (
	SubmitReview = "submit_review"
	Approve      = "approve"
	Publish      = "publish"
)

// Transition is one allowed edge of the story lifecycle.
type Transition struct {
	Name string
	From domain.Status
	To   domain.Status
}

// transitions lists every allowed edge. Published has no outgoing edge and
// no edge skips Awaiting Review.
var transitions = []Transition{
	{Name: SubmitReview, From: domain.StatusDraft, To: domain.StatusAwaitingReview},
	{Name: SubmitReview, From: domain.StatusAwaitingReview, To: domain.StatusAwaitingReview},
	{Name: Approve, From: domain.StatusAwaitingReview, To: domain.StatusApproved},
	{Name: Publish, From: domain.StatusApproved, To: domain.StatusPublished},
}

// Next returns the status reached by applying the named transition to
// current, or domain.ErrInvalidTransition.
func Next(current domain.Status, name string) (domain.Status, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for _, t := range transitions {
		if t.Name == name && t.From == current {
			return t.To, nil
		}
	}
	return "", domain.ErrInvalidTransition
}

// Available returns the transitions reachable from current.
func Available(current domain.Status) []Transition {
	var result []Transition
	for _, t := range transitions {
		if t.From == current {
			result = append(result, t)
		}
	}
	return result
}

// Terminal reports whether no transition leaves status.
func Terminal(status domain.Status) bool {
	return len(Available(status)) == 0
}
