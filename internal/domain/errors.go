package domain

import (
	"errors"
	"slices"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrNotFound is returned by stores and directories when a record is absent.
	ErrNotFound = errors.New("record not found")
	// ErrPermissionDenied signals a requester without publishing rights.
	ErrPermissionDenied = errors.New("requester lacks publishing rights")
	// ErrEmptyBatch signals that no story is currently Approved.
	ErrEmptyBatch = errors.New("no approved stories to publish")
	// ErrPreconditionViolation signals a batch containing a story that is not Approved.
	ErrPreconditionViolation = errors.New("batch contains a story that is not approved")
	// ErrInvalidTransition signals a status change the workflow does not allow.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrCampaignService signals a non-success answer from the email campaign service.
	ErrCampaignService = errors.New("campaign service error")
)

const (
	codePermissionDenied = "PUBLISH_PERMISSION_DENIED"
	codeEmptyBatch       = "PUBLISH_EMPTY_BATCH"
	codePrecondition     = "PUBLISH_PRECONDITION_VIOLATION"
	codeInvalidTransit   = "STORY_INVALID_TRANSITION"
	codeValidation       = "INPUT_VALIDATION_FAILED"
	codeDeliveryFailed   = "PUBLISH_DELIVERY_FAILED"
)

// PermissionError builds the error returned when chatID may not publish.
func PermissionError(chatID, reason string) error {
	return goerrors.Wrap(ErrPermissionDenied, goerrors.CategoryAuthz, reason).
		WithTextCode(codePermissionDenied).
		WithMetadata(map[string]any{"requested_by": chatID})
}

// EmptyBatchError builds the no-op notice returned when nothing is Approved.
func EmptyBatchError() error {
	return goerrors.Wrap(ErrEmptyBatch, goerrors.CategoryNotFound, "nothing to publish").
		WithTextCode(codeEmptyBatch).
		WithSeverity(goerrors.SeverityInfo)
}

// PreconditionError builds the data-integrity error raised by a commit whose
// batch holds stories outside the Approved status. offenders maps story id to
// its current status.
func PreconditionError(offenders map[string]Status) error {
	ids := make([]string, 0, len(offenders))
	meta := make(map[string]any, len(offenders))
	for id, status := range offenders {
		ids = append(ids, id)
		meta[id] = string(status)
	}
	slices.Sort(ids)
	return goerrors.Wrap(ErrPreconditionViolation, goerrors.CategoryConflict,
		"commit aborted, manual investigation required: "+strings.Join(ids, ", ")).
		WithTextCode(codePrecondition).
		WithSeverity(goerrors.SeverityCritical).
		WithMetadata(meta)
}

// TransitionError builds the error for a rejected status change.
func TransitionError(storyID string, from Status, transition string) error {
	return goerrors.Wrap(ErrInvalidTransition, goerrors.CategoryConflict,
		transition+" from "+string(from)).
		WithTextCode(codeInvalidTransit).
		WithMetadata(map[string]any{"story_id": storyID, "from": string(from), "transition": transition})
}

// ValidationError wraps an input validation failure.
func ValidationError(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, message).
		WithTextCode(codeValidation)
}

// DeliveryError wraps the failure of one fan-out target.
func DeliveryError(err error, target string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, target+" delivery failed").
		WithTextCode(codeDeliveryFailed).
		WithMetadata(map[string]any{"target": target})
}
