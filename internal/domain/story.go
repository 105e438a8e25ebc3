package domain

import "time"

// Status enumerates the editorial lifecycle of a story. Values match the
// labels persisted in the record store.
type Status string

const (
	StatusDraft          Status = "Draft"
	StatusAwaitingReview Status = "Awaiting Review"
	StatusApproved       Status = "Approved"
	StatusPublished      Status = "Published"
)

// Rank orders statuses along the lifecycle; unknown statuses rank below Draft.
func (s Status) Rank() int {
	switch s {
	case StatusDraft:
		return 1
	case StatusAwaitingReview:
		return 2
	case StatusApproved:
		return 3
	case StatusPublished:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s Status) Valid() bool {
	return s.Rank() > 0
}

// Story is the core editorial entity.
type Story struct {
	ID                 string
	Headline           string
	ShortDescription   string
	ShortDescriptionRT Document
	LongArticle        string
	LongArticleRT      Document
	ImageURL           string
	Authors            []string
	Status             Status
	Newsletters        []string
	Announcements      []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Reporter is a newsroom member known to the system.
type Reporter struct {
	ID          string
	DisplayName string
	ChatID      string
	CanPublish  bool
}

// Batch is the set of Approved stories selected by a single publish run.
type Batch []Story

// IDs returns the story identifiers in batch order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, story := range b {
		ids[i] = story.ID
	}
	return ids
}
