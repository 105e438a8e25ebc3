package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"Archimedes/internal/app"
	"Archimedes/internal/config"
	"Archimedes/internal/domain"
	"Archimedes/internal/logging"
	"Archimedes/internal/tracing"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "archimedes",
		Short:        "Editorial workflow: draft, review and publish newsroom stories",
		Long:         `Reporters draft stories, editors stage and approve them, and publish sends every approved story to the announcement channel and the email newsletter at once.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the YAML config (default $"+config.PathEnv+")")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newDraftCmd(opts),
		newUpdateCmd(opts),
		newStageCmd(opts),
		newApproveCmd(opts),
		newPublishCmd(opts),
		newPreviewCmd(opts),
		newStoriesCmd(opts),
		newRenderCmd(),
		newReporterCmd(opts),
	)
	return cmd
}

// withApp loads config, installs tracing and runs fn against a wired
// application that is closed afterwards.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app.Application) error) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	shutdown, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	return fn(application)
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// readDocument loads a rich document; an empty path yields an empty document.
func readDocument(path string) (domain.Document, error) {
	var doc domain.Document
	if path == "" {
		return doc, nil
	}
	err := readJSON(path, &doc)
	return doc, err
}
