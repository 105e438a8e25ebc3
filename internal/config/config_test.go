package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var overrideKeys = []string{
	PathEnv, "LOG_LEVEL", "LOG_FORMAT", "DATABASE_DRIVER", "DATABASE_DSN",
	"SLACK_BOT_TOKEN", "SLACK_API_URL", "HAPPENINGS_CHANNEL_ID", "APPROVALS_CHANNEL_ID", "SLACK_TIMEOUT",
	"PLUNK_API_URL", "PLUNK_API_KEY", "NEWSLETTER_RECIPIENTS", "PLUNK_TIMEOUT",
	"PUBLISH_COMMIT_POLICY", "PUBLISH_PASSES", "RESOLVE_CONCURRENCY",
	"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_SERVICE_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range overrideKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archimedes.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "archimedes.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Publish.CommitPolicy != "always" || cfg.Publish.ResolveConcurrency != 4 {
		t.Fatalf("unexpected publish defaults: %+v", cfg.Publish)
	}
	if strings.Join(cfg.Publish.Passes, ",") != "mentions,channels" {
		t.Fatalf("unexpected pass order %v", cfg.Publish.Passes)
	}
	if cfg.Newsletter.Endpoint != "https://api.useplunk.com/v1" {
		t.Fatalf("unexpected newsletter endpoint %q", cfg.Newsletter.Endpoint)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
logging:
  level: debug
  format: json
database:
  driver: postgres
  dsn: postgres://file
slack:
  announcementChannel: C-FILE
  approvalsChannel: C-APPROVALS
  timeout: 3s
newsletter:
  recipients: [a@example.com]
publish:
  commitPolicy: any-success
`)
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
	t.Setenv("NEWSLETTER_RECIPIENTS", "b@example.com, c@example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not read from file: %+v", cfg.Logging)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://env" {
		t.Fatalf("env should override file dsn: %+v", cfg.Database)
	}
	if cfg.Slack.BotToken != "xoxb-env" || cfg.Slack.AnnouncementChannel != "C-FILE" {
		t.Fatalf("unexpected slack config: %+v", cfg.Slack)
	}
	if cfg.Slack.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v, want 3s", cfg.Slack.Timeout)
	}
	if got := strings.Join(cfg.Newsletter.Recipients, "|"); got != "b@example.com|c@example.com" {
		t.Fatalf("recipients = %q", got)
	}
	if cfg.Publish.CommitPolicy != "any-success" {
		t.Fatalf("commit policy = %q", cfg.Publish.CommitPolicy)
	}
	if cfg.Publish.ResolveConcurrency != 4 {
		t.Fatalf("default concurrency lost in merge: %d", cfg.Publish.ResolveConcurrency)
	}
}

func TestLoadPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(PathEnv, writeConfig(t, "database:\n  driver: memory\n  dsn: \"\"\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Fatalf("driver = %q, want memory", cfg.Database.Driver)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "driver", env: map[string]string{"DATABASE_DRIVER": "mysql"}, want: "Driver"},
		{name: "policy", env: map[string]string{"PUBLISH_COMMIT_POLICY": "never"}, want: "CommitPolicy"},
		{name: "format", env: map[string]string{"LOG_FORMAT": "xml"}, want: "Format"},
		{name: "duration", env: map[string]string{"SLACK_TIMEOUT": "soon"}, want: "env overrides"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			_, err := Load("")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
