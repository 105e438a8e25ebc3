package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Archimedes/internal/config"
	"Archimedes/internal/domain"
	"Archimedes/internal/infrastructure/campaign"
	slackadapter "Archimedes/internal/infrastructure/slack"
	"Archimedes/internal/infrastructure/storage"
	"Archimedes/internal/logging"
	"Archimedes/internal/newsletter"
	"Archimedes/internal/passes"
	"Archimedes/internal/ports"
	"Archimedes/internal/usecase"
)

// ErrTargetsNotConfigured is returned by Publish when a fan-out target lacks
// credentials.
var ErrTargetsNotConfigured = errors.New("publish targets are not configured")

// Store is the record store behind both repository ports.
type Store interface {
	ports.StoryRepository
	ports.ReporterRepository
}

// Application wires configs to use cases.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      Store
	closeStore func() error
	messenger  ports.Messenger
	campaigns  ports.CampaignService
	lifecycle  *usecase.Lifecycle
	publisher  *usecase.Publisher
}

// New opens the record store and builds the chat, campaign and publish
// components. Adapters whose credentials are missing are left out.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger, closeStore: func() error { return nil }}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var directory ports.Directory
	if cfg.Slack.BotToken != "" {
		client := slackadapter.NewClient(slackadapter.Config{
			BotToken: cfg.Slack.BotToken,
			APIURL:   cfg.Slack.APIURL,
			Timeout:  cfg.Slack.Timeout,
		})
		a.messenger = slackadapter.NewMessenger(client, baseLogger.With("component", "slack.messenger"))
		directory = slackadapter.NewDirectory(client)
	} else {
		baseLogger.Debug("slack bot token not set, chat adapters disabled")
	}

	if cfg.Newsletter.APIKey != "" {
		a.campaigns = campaign.NewClient(cfg.Newsletter.Endpoint, cfg.Newsletter.APIKey,
			cfg.Newsletter.Timeout, baseLogger.With("component", "campaign"))
	}

	var resolver usecase.Resolver
	if directory != nil {
		registry := passes.NewDirectoryRegistry(directory, cfg.Publish.ResolveConcurrency, baseLogger.With("component", "passes"))
		pipeline, err := passes.NewPipeline(registry, cfg.Publish.Passes, baseLogger.With("component", "passes"))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("build pass pipeline: %w", err)
		}
		resolver = pipeline
	}

	renderer, err := newsletter.NewRenderer()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build newsletter renderer: %w", err)
	}

	a.lifecycle = usecase.NewLifecycle(usecase.LifecycleDeps{
		Stories:          a.store,
		Reporters:        a.store,
		Messenger:        a.messenger,
		ApprovalsChannel: cfg.Slack.ApprovalsChannel,
		Logger:           baseLogger.With("component", "lifecycle"),
	})
	a.publisher = usecase.NewPublisher(usecase.PublisherDeps{
		Stories:             a.store,
		Reporters:           a.store,
		Directory:           directory,
		Messenger:           a.messenger,
		Campaigns:           a.campaigns,
		Resolver:            resolver,
		Email:               renderer,
		Committer:           a.lifecycle,
		AnnouncementChannel: cfg.Slack.AnnouncementChannel,
		Recipients:          cfg.Newsletter.Recipients,
		CommitPolicy:        cfg.Publish.CommitPolicy,
		ResolveConcurrency:  cfg.Publish.ResolveConcurrency,
		Logger:              baseLogger.With("component", "publisher"),
	})
	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	if a.cfg.Database.Driver == config.DriverMemory {
		a.store = storage.NewMemoryRepository()
		return nil
	}

	repo, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	a.store = repo
	a.closeStore = repo.Close
	return nil
}

// Lifecycle exposes the story lifecycle manager.
func (a *Application) Lifecycle() *usecase.Lifecycle { return a.lifecycle }

// Reporters exposes the roster for seeding.
func (a *Application) Reporters() ports.ReporterRepository { return a.store }

// Publish runs a publish after checking both targets can be reached.
func (a *Application) Publish(ctx context.Context, req usecase.PublishRequest) (domain.PublishResult, error) {
	var missing []string
	if a.messenger == nil || a.cfg.Slack.AnnouncementChannel == "" {
		missing = append(missing, "slack.botToken/slack.announcementChannel")
	}
	if a.campaigns == nil {
		missing = append(missing, "newsletter.apiKey")
	}
	if len(missing) > 0 {
		return domain.PublishResult{}, fmt.Errorf("%w: set %v", ErrTargetsNotConfigured, missing)
	}
	return a.publisher.Publish(ctx, req)
}

// Preview renders the newsletter for the current Approved batch.
func (a *Application) Preview(ctx context.Context, req usecase.PublishRequest) (newsletter.Output, error) {
	return a.publisher.Preview(ctx, req)
}

// Close releases the record store.
func (a *Application) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}
