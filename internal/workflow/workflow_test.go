package workflow

import (
	"errors"
	"testing"

	"Archimedes/internal/domain"
)

func TestNext(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from       domain.Status
		transition string
		want       domain.Status
		wantErr    bool
	}{
		{domain.StatusDraft, SubmitReview, domain.StatusAwaitingReview, false},
		{domain.StatusAwaitingReview, SubmitReview, domain.StatusAwaitingReview, false},
		{domain.StatusAwaitingReview, Approve, domain.StatusApproved, false},
		{domain.StatusApproved, Publish, domain.StatusPublished, false},
		{domain.StatusApproved, " PUBLISH ", domain.StatusPublished, false},
		{domain.StatusDraft, Approve, "", true},
		{domain.StatusDraft, Publish, "", true},
		{domain.StatusAwaitingReview, Publish, "", true},
		{domain.StatusApproved, SubmitReview, "", true},
		{domain.StatusPublished, SubmitReview, "", true},
		{domain.StatusPublished, Publish, "", true},
		{domain.Status("Archived"), Publish, "", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.from)+"/"+tc.transition, func(t *testing.T) {
			t.Parallel()
			got, err := Next(tc.from, tc.transition)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestTransitionsAreMonotonic(t *testing.T) {
	t.Parallel()

	for _, tr := range transitions {
		if tr.To.Rank() < tr.From.Rank() {
			t.Fatalf("transition %s moves backwards: %s -> %s", tr.Name, tr.From, tr.To)
		}
		if tr.To.Rank()-tr.From.Rank() > 1 {
			t.Fatalf("transition %s skips a status: %s -> %s", tr.Name, tr.From, tr.To)
		}
	}
	if !Terminal(domain.StatusPublished) {
		t.Fatal("expected Published to be terminal")
	}
	if Terminal(domain.StatusDraft) {
		t.Fatal("expected Draft to have outgoing transitions")
	}
}
