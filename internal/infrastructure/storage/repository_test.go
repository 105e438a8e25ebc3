package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	"Archimedes/internal/domain"
	"Archimedes/internal/ports"
)

type repository interface {
	ports.StoryRepository
	ports.ReporterRepository
}

func openSQLite(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "archimedes.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func repositories(t *testing.T) map[string]repository {
	return map[string]repository{
		"sqlite": openSQLite(t),
		"memory": NewMemoryRepository(),
	}
}

func sampleStory(id string, status domain.Status, created time.Time, authors ...string) domain.Story {
	rt := domain.Document{Blocks: []domain.Block{domain.Paragraph(
		domain.Text("Thanks ", domain.Style{}),
		domain.UserMention("U1"),
	)}}
	return domain.Story{
		ID:                 id,
		Headline:           "Headline " + id,
		ShortDescription:   "Thanks <@U1>",
		ShortDescriptionRT: rt,
		LongArticle:        "Long **article**",
		LongArticleRT:      rt,
		Authors:            authors,
		Status:             status,
		Newsletters:        []string{},
		Announcements:      []string{},
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

func TestRepositoryStoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := repo.Insert(ctx, sampleStory("s2", domain.StatusApproved, base.Add(time.Minute), "r1")); err != nil {
				t.Fatalf("insert s2: %v", err)
			}
			if _, err := repo.Insert(ctx, sampleStory("s1", domain.StatusApproved, base, "r1", "r2")); err != nil {
				t.Fatalf("insert s1: %v", err)
			}
			if _, err := repo.Insert(ctx, sampleStory("s3", domain.StatusDraft, base.Add(2*time.Minute), "r2")); err != nil {
				t.Fatalf("insert s3: %v", err)
			}

			got, err := repo.Get(ctx, "s1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Headline != "Headline s1" || len(got.Authors) != 2 || got.Authors[1] != "r2" {
				t.Fatalf("unexpected story %+v", got)
			}
			if len(got.ShortDescriptionRT.Blocks) != 1 || got.ShortDescriptionRT.Blocks[0].Spans[1].Mention.ID != "U1" {
				t.Fatalf("rich text not preserved: %+v", got.ShortDescriptionRT)
			}
			if !got.CreatedAt.Equal(base) {
				t.Fatalf("unexpected created at %v", got.CreatedAt)
			}

			approved, err := repo.Scan(ctx, ports.StoryFilter{Status: domain.StatusApproved})
			if err != nil {
				t.Fatalf("scan approved: %v", err)
			}
			if len(approved) != 2 || approved[0].ID != "s1" || approved[1].ID != "s2" {
				t.Fatalf("unexpected approved scan %v", ids(approved))
			}

			byAuthor, err := repo.Scan(ctx, ports.StoryFilter{AuthorID: "r2"})
			if err != nil {
				t.Fatalf("scan by author: %v", err)
			}
			if len(byAuthor) != 2 || byAuthor[0].ID != "s1" || byAuthor[1].ID != "s3" {
				t.Fatalf("unexpected author scan %v", ids(byAuthor))
			}

			if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRepositoryBatchUpdate(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"a", "b"} {
				if _, err := repo.Insert(ctx, sampleStory(id, domain.StatusApproved, base, "r1")); err != nil {
					t.Fatalf("insert %s: %v", id, err)
				}
			}

			published := domain.StatusPublished
			fields := ports.StoryFields{
				Status:              &published,
				AppendNewsletters:   []string{"camp-1"},
				AppendAnnouncements: []string{"1700000000.000100"},
			}
			if err := repo.BatchUpdate(ctx, []string{"a", "b"}, fields); err != nil {
				t.Fatalf("batch update: %v", err)
			}

			for _, id := range []string{"a", "b"} {
				story, err := repo.Get(ctx, id)
				if err != nil {
					t.Fatalf("get %s: %v", id, err)
				}
				if story.Status != domain.StatusPublished {
					t.Fatalf("story %s not published: %s", id, story.Status)
				}
				if len(story.Newsletters) != 1 || story.Newsletters[0] != "camp-1" {
					t.Fatalf("unexpected newsletters %v", story.Newsletters)
				}
				if len(story.Announcements) != 1 {
					t.Fatalf("unexpected announcements %v", story.Announcements)
				}
			}

			err := repo.BatchUpdate(ctx, []string{"a", "ghost"}, ports.StoryFields{AppendNewsletters: []string{"camp-2"}})
			if !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound for missing story, got %v", err)
			}
			story, err := repo.Get(ctx, "a")
			if err != nil {
				t.Fatalf("get a: %v", err)
			}
			if len(story.Newsletters) != 1 {
				t.Fatalf("failed batch must not write, got %v", story.Newsletters)
			}

			headline := "Rewritten"
			if err := repo.Update(ctx, "b", ports.StoryFields{Headline: &headline}); err != nil {
				t.Fatalf("update: %v", err)
			}
			story, err = repo.Get(ctx, "b")
			if err != nil {
				t.Fatalf("get b: %v", err)
			}
			if story.Headline != "Rewritten" || story.Status != domain.StatusPublished {
				t.Fatalf("unexpected story after update %+v", story)
			}
			if err := repo.Update(ctx, "ghost", ports.StoryFields{Headline: &headline}); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRepositoryReporters(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			reporter := domain.Reporter{ID: "r1", DisplayName: "Alex", ChatID: "U1", CanPublish: true}
			if err := repo.SaveReporter(ctx, reporter); err != nil {
				t.Fatalf("save: %v", err)
			}

			got, err := repo.FindByChatID(ctx, "U1")
			if err != nil {
				t.Fatalf("find by chat id: %v", err)
			}
			if got != reporter {
				t.Fatalf("expected %+v, got %+v", reporter, got)
			}

			reporter.CanPublish = false
			if err := repo.SaveReporter(ctx, reporter); err != nil {
				t.Fatalf("save again: %v", err)
			}
			got, err = repo.FindByID(ctx, "r1")
			if err != nil {
				t.Fatalf("find by id: %v", err)
			}
			if got.CanPublish {
				t.Fatal("expected publishing rights to be revoked")
			}

			if _, err := repo.FindByChatID(ctx, "U404"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "mysql", "dsn"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestPlaceholderFormatPerDriver(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		DriverSQLite:   "SELECT id FROM stories WHERE id = ?",
		DriverPostgres: "SELECT id FROM stories WHERE id = $1",
	}
	for driver, want := range cases {
		repo := NewSQLRepository(nil, driver)
		got, args, err := repo.builder.Select("id").From("stories").Where(sq.Eq{"id": "x"}).ToSql()
		if err != nil {
			t.Fatalf("%s: build: %v", driver, err)
		}
		if got != want || len(args) != 1 {
			t.Fatalf("%s: got %q %v, want %q", driver, got, args, want)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archimedes.db")
	for i := 0; i < 2; i++ {
		repo, err := Open(context.Background(), DriverSQLite, path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = repo.Close()
	}
}

func ids(stories []domain.Story) []string {
	out := make([]string, len(stories))
	for i, story := range stories {
		out[i] = story.ID
	}
	return out
}
