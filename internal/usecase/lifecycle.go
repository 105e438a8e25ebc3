package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"Archimedes/internal/domain"
	"Archimedes/internal/markup"
	"Archimedes/internal/ports"
	"Archimedes/internal/workflow"
)

// LifecycleDeps wires the driven adapters used by the lifecycle manager.
type LifecycleDeps struct {
	Stories          ports.StoryRepository
	Reporters        ports.ReporterRepository
	Messenger        ports.Messenger
	ApprovalsChannel string
	Clock            func() time.Time
	NewID            func() string
	Logger           *slog.Logger
}

// Lifecycle is the sole writer of story status.
type Lifecycle struct {
	stories          ports.StoryRepository
	reporters        ports.ReporterRepository
	messenger        ports.Messenger
	approvalsChannel string
	now              func() time.Time
	newID            func() string
	logger           *slog.Logger
}

// NewLifecycle constructs the lifecycle manager.
func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	l := &Lifecycle{
		stories:          deps.Stories,
		reporters:        deps.Reporters,
		messenger:        deps.Messenger,
		approvalsChannel: deps.ApprovalsChannel,
		now:              deps.Clock,
		newID:            deps.NewID,
		logger:           deps.Logger,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.newID == nil {
		l.newID = uuid.NewString
	}
	return l
}

// SubmitDraft persists a new story in Draft with both rich fields rendered.
func (l *Lifecycle) SubmitDraft(ctx context.Context, in DraftInput) (domain.Story, error) {
	if err := in.Validate(); err != nil {
		return domain.Story{}, domain.ValidationError(err, "invalid draft")
	}

	now := l.now().UTC()
	story := domain.Story{
		ID:                 l.newID(),
		Headline:           strings.TrimSpace(in.Headline),
		ShortDescription:   markup.Render(in.ShortDescription),
		ShortDescriptionRT: in.ShortDescription,
		LongArticle:        markup.Render(in.LongArticle),
		LongArticleRT:      in.LongArticle,
		ImageURL:           in.ImageURL,
		Authors:            []string{in.ReporterID},
		Status:             domain.StatusDraft,
		Newsletters:        []string{},
		Announcements:      []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	saved, err := l.stories.Insert(ctx, story)
	if err != nil {
		return domain.Story{}, fmt.Errorf("insert story: %w", err)
	}

	l.info("story drafted", "story_id", saved.ID, "reporter_id", in.ReporterID)
	return saved, nil
}

// UpdateDraft rewrites the content of a story that is not yet published.
// Status is left untouched.
func (l *Lifecycle) UpdateDraft(ctx context.Context, id string, in DraftInput) (domain.Story, error) {
	if err := in.validateUpdate(); err != nil {
		return domain.Story{}, domain.ValidationError(err, "invalid draft")
	}

	story, err := l.stories.Get(ctx, id)
	if err != nil {
		return domain.Story{}, fmt.Errorf("load story %s: %w", id, err)
	}
	if workflow.Terminal(story.Status) {
		return domain.Story{}, domain.TransitionError(id, story.Status, "update")
	}

	headline := strings.TrimSpace(in.Headline)
	short := markup.Render(in.ShortDescription)
	long := markup.Render(in.LongArticle)
	fields := ports.StoryFields{
		Headline:           &headline,
		ShortDescription:   &short,
		ShortDescriptionRT: &in.ShortDescription,
		LongArticle:        &long,
		LongArticleRT:      &in.LongArticle,
	}
	if in.ImageURL != "" {
		fields.ImageURL = &in.ImageURL
	}

	if err := l.stories.Update(ctx, id, fields); err != nil {
		return domain.Story{}, fmt.Errorf("update story %s: %w", id, err)
	}

	story.Headline = headline
	story.ShortDescription, story.ShortDescriptionRT = short, in.ShortDescription
	story.LongArticle, story.LongArticleRT = long, in.LongArticle
	if in.ImageURL != "" {
		story.ImageURL = in.ImageURL
	}
	story.UpdatedAt = l.now().UTC()

	l.info("story updated", "story_id", id)
	return story, nil
}

// Stage moves a story to Awaiting Review and notifies the approvals channel.
// The status write and the notification run concurrently; a failure of one
// does not roll back the other and both failures are reported.
func (l *Lifecycle) Stage(ctx context.Context, id string) error {
	story, err := l.stories.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load story %s: %w", id, err)
	}

	next, err := workflow.Next(story.Status, workflow.SubmitReview)
	if err != nil {
		return domain.TransitionError(id, story.Status, workflow.SubmitReview)
	}

	msg := l.approvalMessage(ctx, story)

	var (
		wg        sync.WaitGroup
		updateErr error
		notifyErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := l.stories.Update(ctx, id, ports.StoryFields{Status: &next}); err != nil {
			updateErr = fmt.Errorf("update status: %w", err)
		}
	}()
	if l.messenger == nil {
		notifyErr = fmt.Errorf("notify approvals: messenger is not configured")
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.messenger.PostMessage(ctx, l.approvalsChannel, msg, nil); err != nil {
				notifyErr = fmt.Errorf("notify approvals: %w", err)
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(updateErr, notifyErr); err != nil {
		l.warn("stage incomplete", "story_id", id, "error", err)
		return fmt.Errorf("stage story %s: %w", id, err)
	}

	l.info("story staged", "story_id", id)
	return nil
}

// Approve moves a story from Awaiting Review to Approved.
func (l *Lifecycle) Approve(ctx context.Context, id string) error {
	story, err := l.stories.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load story %s: %w", id, err)
	}

	next, err := workflow.Next(story.Status, workflow.Approve)
	if err != nil {
		return domain.TransitionError(id, story.Status, workflow.Approve)
	}

	if err := l.stories.Update(ctx, id, ports.StoryFields{Status: &next}); err != nil {
		return fmt.Errorf("approve story %s: %w", id, err)
	}

	l.info("story approved", "story_id", id)
	return nil
}

// CommitPublished promotes the whole batch to Published in one store call.
// Every story is re-read first; if any is no longer Approved nothing is
// written and a precondition violation is returned.
func (l *Lifecycle) CommitPublished(ctx context.Context, batch domain.Batch, refs domain.PublicationRefs) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	ids := batch.IDs()
	current, err := l.stories.Scan(ctx, ports.StoryFilter{IDs: ids})
	if err != nil {
		return 0, fmt.Errorf("reload batch: %w", err)
	}

	statuses := make(map[string]domain.Status, len(current))
	for _, story := range current {
		statuses[story.ID] = story.Status
	}

	offenders := map[string]domain.Status{}
	for _, id := range ids {
		status, ok := statuses[id]
		if !ok {
			offenders[id] = ""
			continue
		}
		if _, err := workflow.Next(status, workflow.Publish); err != nil {
			offenders[id] = status
		}
	}
	if len(offenders) > 0 {
		err := domain.PreconditionError(offenders)
		l.alert("publish commit aborted", "offenders", len(offenders), "error", err)
		return 0, err
	}

	published := domain.StatusPublished
	fields := ports.StoryFields{Status: &published}
	if refs.CampaignID != "" {
		fields.AppendNewsletters = []string{refs.CampaignID}
	}
	if refs.AnnouncementRef != "" {
		fields.AppendAnnouncements = []string{refs.AnnouncementRef}
	}

	if err := l.stories.BatchUpdate(ctx, ids, fields); err != nil {
		return 0, fmt.Errorf("commit published: %w", err)
	}

	l.info("batch published", "stories", len(ids))
	return len(ids), nil
}

// Reporter returns the reporter registered under chatID.
func (l *Lifecycle) Reporter(ctx context.Context, chatID string) (domain.Reporter, error) {
	if l.reporters == nil {
		return domain.Reporter{}, fmt.Errorf("reporter repository is not configured")
	}
	reporter, err := l.reporters.FindByChatID(ctx, chatID)
	if err != nil {
		return domain.Reporter{}, fmt.Errorf("find reporter %s: %w", chatID, err)
	}
	return reporter, nil
}

// StoriesByReporter lists the stories authored by the reporter behind chatID.
func (l *Lifecycle) StoriesByReporter(ctx context.Context, chatID string) ([]domain.Story, error) {
	reporter, err := l.Reporter(ctx, chatID)
	if err != nil {
		return nil, err
	}

	stories, err := l.stories.Scan(ctx, ports.StoryFilter{AuthorID: reporter.ID})
	if err != nil {
		return nil, fmt.Errorf("scan stories of %s: %w", reporter.ID, err)
	}
	return stories, nil
}

// approvalMessage describes a story for the editors. Authors are rendered
// as chat mentions when the roster knows them.
func (l *Lifecycle) approvalMessage(ctx context.Context, story domain.Story) ports.Message {
	authors := make([]string, 0, len(story.Authors))
	for _, id := range story.Authors {
		authors = append(authors, l.authorLabel(ctx, id))
	}

	header := "**" + story.Headline + "** is ready for review"
	byline := "_by " + strings.Join(authors, ", ") + "_"
	sections := []string{header, byline}
	if strings.TrimSpace(story.ShortDescription) != "" {
		sections = append(sections, story.ShortDescription)
	}
	sections = append(sections, "Story id: `"+story.ID+"`")

	return ports.Message{
		Text:     "New story awaiting review: " + story.Headline,
		Sections: sections,
	}
}

func (l *Lifecycle) authorLabel(ctx context.Context, id string) string {
	if l.reporters == nil {
		return id
	}
	reporter, err := l.reporters.FindByID(ctx, id)
	if err != nil {
		l.debug("author lookup failed", "reporter_id", id, "error", err)
		return id
	}
	if reporter.ChatID != "" {
		return "<@" + reporter.ChatID + ">"
	}
	if reporter.DisplayName != "" {
		return reporter.DisplayName
	}
	return id
}

func (l *Lifecycle) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

func (l *Lifecycle) info(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *Lifecycle) warn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}

func (l *Lifecycle) alert(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Error(msg, args...)
	}
}
