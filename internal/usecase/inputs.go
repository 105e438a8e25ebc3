package usecase

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"Archimedes/internal/domain"
)

const maxHeadlineLength = 250

// DraftInput carries the reporter-supplied content of a story.
type DraftInput struct {
	// Headline is stored verbatim; it may embed mention tokens.
	Headline string `json:"headline"`
	// ShortDescription is the teaser shown in the announcement.
	ShortDescription domain.Document `json:"shortDescription"`
	// LongArticle is the full text sent with the newsletter.
	LongArticle domain.Document `json:"longArticle"`
	// ImageURL optionally illustrates the story.
	ImageURL string `json:"imageUrl,omitempty"`
	// ReporterID is the record id of the drafting reporter.
	ReporterID string `json:"reporterId"`
}

// Validate ensures a new draft carries a headline and an author.
func (in DraftInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Headline, validation.Required, validation.Length(1, maxHeadlineLength), notBlank("story.headline_blank", "headline")),
		validation.Field(&in.ReporterID, validation.Required, notBlank("story.reporter_blank", "reporter id")),
		validation.Field(&in.ImageURL, is.URL),
	)
}

// validateUpdate skips the author check: authors are fixed at draft time.
func (in DraftInput) validateUpdate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Headline, validation.Required, validation.Length(1, maxHeadlineLength), notBlank("story.headline_blank", "headline")),
		validation.Field(&in.ImageURL, is.URL),
	)
}

// PublishRequest is what an editor submits to publish the approved batch.
type PublishRequest struct {
	// RequestedBy is the chat identity of the requester.
	RequestedBy string
	Subject     string
	Intro       domain.Document
	Conclusion  domain.Document
}

// Validate ensures the requester and subject are present.
func (r PublishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequestedBy, validation.Required, notBlank("publish.requester_blank", "requester")),
		validation.Field(&r.Subject, validation.Required, notBlank("publish.subject_blank", "subject")),
	)
}

// validatePreview only needs a subject; previews are not authorized.
func (r PublishRequest) validatePreview() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.Required, notBlank("publish.subject_blank", "subject")),
	)
}

func notBlank(code, field string) validation.Rule {
	return validation.By(func(value any) error {
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return validation.NewError(code, field+" must not be blank")
		}
		return nil
	})
}
