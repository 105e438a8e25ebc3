package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"Archimedes/internal/domain"
	"Archimedes/internal/markup"
	"Archimedes/internal/newsletter"
	"Archimedes/internal/ports"
)

// Commit policies decide whether the batch is promoted after the fan-out.
const (
	// CommitAlways promotes the batch whatever the targets reported.
	CommitAlways = "always"
	// CommitAnySuccess skips the promotion when both targets failed.
	CommitAnySuccess = "any-success"

	defaultResolveConcurrency = 4
)

// Resolver rewrites the references embedded in stored markup.
type Resolver interface {
	Run(ctx context.Context, markup string) string
}

// EmailRenderer lays out the newsletter email.
type EmailRenderer interface {
	Render(email newsletter.Email) (newsletter.Output, error)
}

// BatchCommitter promotes a publish batch.
type BatchCommitter interface {
	CommitPublished(ctx context.Context, batch domain.Batch, refs domain.PublicationRefs) (int, error)
}

// PublisherDeps wires the collaborators of a publish run.
type PublisherDeps struct {
	Stories             ports.StoryRepository
	Reporters           ports.ReporterRepository
	Directory           ports.Directory
	Messenger           ports.Messenger
	Campaigns           ports.CampaignService
	Resolver            Resolver
	Email               EmailRenderer
	Committer           BatchCommitter
	AnnouncementChannel string
	Recipients          []string
	CommitPolicy        string
	ResolveConcurrency  int
	Logger              *slog.Logger
}

// Publisher runs the publish workflow over every Approved story.
type Publisher struct {
	stories             ports.StoryRepository
	reporters           ports.ReporterRepository
	directory           ports.Directory
	messenger           ports.Messenger
	campaigns           ports.CampaignService
	resolver            Resolver
	email               EmailRenderer
	committer           BatchCommitter
	announcementChannel string
	recipients          []string
	commitPolicy        string
	concurrency         int
	logger              *slog.Logger
}

// NewPublisher constructs the publish orchestrator.
func NewPublisher(deps PublisherDeps) *Publisher {
	p := &Publisher{
		stories:             deps.Stories,
		reporters:           deps.Reporters,
		directory:           deps.Directory,
		messenger:           deps.Messenger,
		campaigns:           deps.Campaigns,
		resolver:            deps.Resolver,
		email:               deps.Email,
		committer:           deps.Committer,
		announcementChannel: deps.AnnouncementChannel,
		recipients:          deps.Recipients,
		commitPolicy:        strings.ToLower(strings.TrimSpace(deps.CommitPolicy)),
		concurrency:         deps.ResolveConcurrency,
		logger:              deps.Logger,
	}
	if p.commitPolicy == "" {
		p.commitPolicy = CommitAlways
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultResolveConcurrency
	}
	return p
}

// Publish authorizes the requester, fans the Approved batch out to the
// announcement channel and the newsletter concurrently, then commits the
// batch according to the commit policy. The returned result is complete
// even when an error is returned from the commit.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (domain.PublishResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PublishResult{}, domain.ValidationError(err, "invalid publish request")
	}

	if err := p.authorize(ctx, req.RequestedBy); err != nil {
		return domain.PublishResult{}, err
	}

	stories, err := p.stories.Scan(ctx, ports.StoryFilter{Status: domain.StatusApproved})
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("scan approved: %w", err)
	}
	if len(stories) == 0 {
		p.info("nothing to publish", "requested_by", req.RequestedBy)
		return domain.PublishResult{}, domain.EmptyBatchError()
	}
	batch := domain.Batch(stories)
	p.debug("publish started", "requested_by", req.RequestedBy, "stories", len(batch))

	intro := markup.Render(req.Intro)
	conclusion := markup.Render(req.Conclusion)

	var (
		wg              sync.WaitGroup
		result          domain.PublishResult
		announcementRef string
		campaignID      string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Announcement, announcementRef = p.announce(ctx, req.RequestedBy, batch, intro, conclusion)
	}()
	go func() {
		defer wg.Done()
		result.Newsletter, campaignID = p.sendNewsletter(ctx, req, batch, intro, conclusion)
	}()
	wg.Wait()

	result.AnnouncementRef = announcementRef
	result.CampaignID = campaignID

	if p.commitPolicy == CommitAnySuccess && result.Succeeded() == 0 {
		p.warn("commit skipped, every target failed", "requested_by", req.RequestedBy, "stories", len(batch))
		return result, nil
	}

	refs := domain.PublicationRefs{}
	if result.Announcement.OK {
		refs.AnnouncementRef = announcementRef
	}
	if result.Newsletter.OK {
		refs.CampaignID = campaignID
	}

	published, err := p.committer.CommitPublished(ctx, batch, refs)
	if err != nil {
		return result, fmt.Errorf("commit batch: %w", err)
	}
	result.Published = published
	result.Committed = true

	p.info("publish finished",
		"requested_by", req.RequestedBy,
		"published", published,
		"announcement_ok", result.Announcement.OK,
		"newsletter_ok", result.Newsletter.OK)
	return result, nil
}

func (p *Publisher) authorize(ctx context.Context, requestedBy string) error {
	reporter, err := p.reporters.FindByChatID(ctx, requestedBy)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PermissionError(requestedBy, "requester is not a reporter")
	}
	if err != nil {
		return fmt.Errorf("find reporter %s: %w", requestedBy, err)
	}
	if !reporter.CanPublish {
		return domain.PermissionError(requestedBy, "reporter has no publishing rights")
	}
	return nil
}

// sendNewsletter resolves every field, renders the email and hands it to
// the campaign service.
func (p *Publisher) sendNewsletter(ctx context.Context, req PublishRequest, batch domain.Batch, intro, conclusion string) (domain.TargetOutcome, string) {
	outcome := domain.TargetOutcome{Target: domain.TargetNewsletter}
	fail := func(err error) (domain.TargetOutcome, string) {
		outcome.Err = domain.DeliveryError(err, string(domain.TargetNewsletter))
		p.warn("newsletter failed", "requested_by", req.RequestedBy, "error", err)
		return outcome, ""
	}
	if p.campaigns == nil || p.email == nil {
		return fail(fmt.Errorf("campaign service is not configured"))
	}

	rendered, err := p.email.Render(p.buildEmail(ctx, req.Subject, batch, intro, conclusion))
	if err != nil {
		return fail(fmt.Errorf("render newsletter: %w", err))
	}
	p.debug("newsletter rendered", "html_bytes", len(rendered.HTML), "text_bytes", len(rendered.Text))

	id, err := p.campaigns.CreateCampaign(ctx, ports.Campaign{
		Subject:    req.Subject,
		Body:       rendered.HTML,
		Recipients: p.recipients,
	})
	if err != nil {
		return fail(fmt.Errorf("create campaign: %w", err))
	}

	if err := p.campaigns.SendCampaign(ctx, id); err != nil {
		return fail(fmt.Errorf("send campaign %s: %w", id, err))
	}

	outcome.OK = true
	outcome.Detail = fmt.Sprintf("campaign %s sent to %d recipients", id, len(p.recipients))
	p.debug("sent newsletter", "requested_by", req.RequestedBy, "campaign_id", id)
	return outcome, id
}

// Preview renders the newsletter the next publish run would send for the
// currently Approved stories. Nothing is sent and no status changes.
func (p *Publisher) Preview(ctx context.Context, req PublishRequest) (newsletter.Output, error) {
	if err := req.validatePreview(); err != nil {
		return newsletter.Output{}, domain.ValidationError(err, "invalid preview request")
	}
	if p.email == nil {
		return newsletter.Output{}, fmt.Errorf("newsletter renderer is not configured")
	}

	stories, err := p.stories.Scan(ctx, ports.StoryFilter{Status: domain.StatusApproved})
	if err != nil {
		return newsletter.Output{}, fmt.Errorf("scan approved: %w", err)
	}
	if len(stories) == 0 {
		return newsletter.Output{}, domain.EmptyBatchError()
	}

	email := p.buildEmail(ctx, req.Subject, domain.Batch(stories), markup.Render(req.Intro), markup.Render(req.Conclusion))
	rendered, err := p.email.Render(email)
	if err != nil {
		return newsletter.Output{}, fmt.Errorf("render newsletter: %w", err)
	}
	return rendered, nil
}

func (p *Publisher) buildEmail(ctx context.Context, subject string, batch domain.Batch, intro, conclusion string) newsletter.Email {
	return newsletter.Email{
		Subject:    subject,
		Intro:      p.resolve(ctx, intro),
		Conclusion: p.resolve(ctx, conclusion),
		Stories:    p.resolveStories(ctx, batch),
	}
}

// resolveStories resolves headline and article of each story concurrently,
// keeping batch order.
func (p *Publisher) resolveStories(ctx context.Context, batch domain.Batch) []newsletter.Story {
	stories := make([]newsletter.Story, len(batch))
	var group errgroup.Group
	group.SetLimit(p.concurrency)
	for i, story := range batch {
		group.Go(func() error {
			stories[i] = newsletter.Story{
				Headline: p.resolve(ctx, story.Headline),
				Article:  p.resolve(ctx, story.LongArticle),
				ImageURL: story.ImageURL,
			}
			return nil
		})
	}
	_ = group.Wait()
	return stories
}

func (p *Publisher) resolve(ctx context.Context, text string) string {
	if p.resolver == nil {
		return text
	}
	return p.resolver.Run(ctx, text)
}

func (p *Publisher) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Publisher) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Publisher) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
