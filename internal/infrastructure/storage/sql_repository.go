package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"Archimedes/internal/domain"
	"Archimedes/internal/infrastructure/storage/migrations"
	"Archimedes/internal/ports"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var storyColumns = []string{
	"id", "headline", "short_description", "short_description_rt", "long_article",
	"long_article_rt", "image_url", "authors", "status", "newsletters", "announcements",
	"created_at", "updated_at",
}

var reporterColumns = []string{"id", "display_name", "chat_id", "can_publish"}

// SQLRepository persists stories and reporters in SQLite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.StoryRepository = (*SQLRepository)(nil)
var _ ports.ReporterRepository = (*SQLRepository)(nil)

// Open connects to the database, verifies the connection and applies the
// embedded migrations.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a single connection keeps in-memory databases shared.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}

	repo := NewSQLRepository(db, driver)
	if err := applyMigrations(ctx, db, repo.builder, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repo, nil
}

// NewSQLRepository wraps an already migrated sql.DB.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Close closes the database handle.
func (r *SQLRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Scan returns stories matching filter ordered by creation time.
func (r *SQLRepository) Scan(ctx context.Context, filter ports.StoryFilter) ([]domain.Story, error) {
	query := r.builder.Select(storyColumns...).From("stories").OrderBy("created_at ASC", "id ASC")
	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.AuthorID != "" {
		query = query.Where(sq.Like{"authors": `%"` + filter.AuthorID + `"%`})
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []domain.Story{}, nil
		}
		query = query.Where(sq.Eq{"id": filter.IDs})
	}

	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scan: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}

	stories := []domain.Story{}
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		stories = append(stories, story)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return stories, nil
}

// Get loads a single story.
func (r *SQLRepository) Get(ctx context.Context, id string) (domain.Story, error) {
	stories, err := r.Scan(ctx, ports.StoryFilter{IDs: []string{id}})
	if err != nil {
		return domain.Story{}, err
	}
	if len(stories) == 0 {
		return domain.Story{}, fmt.Errorf("story %s: %w", id, domain.ErrNotFound)
	}
	return stories[0], nil
}

// Insert stores a new story.
func (r *SQLRepository) Insert(ctx context.Context, story domain.Story) (domain.Story, error) {
	if story.ID == "" {
		return domain.Story{}, fmt.Errorf("story id is required")
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = r.now().UTC()
	}
	if story.UpdatedAt.IsZero() {
		story.UpdatedAt = story.CreatedAt
	}

	shortRT, err := json.Marshal(story.ShortDescriptionRT)
	if err != nil {
		return domain.Story{}, fmt.Errorf("encode short description: %w", err)
	}
	longRT, err := json.Marshal(story.LongArticleRT)
	if err != nil {
		return domain.Story{}, fmt.Errorf("encode long article: %w", err)
	}

	query, args, err := r.builder.Insert("stories").
		Columns(storyColumns...).
		Values(
			story.ID,
			story.Headline,
			story.ShortDescription,
			string(shortRT),
			story.LongArticle,
			string(longRT),
			story.ImageURL,
			encodeList(story.Authors),
			string(story.Status),
			encodeList(story.Newsletters),
			encodeList(story.Announcements),
			toMillis(story.CreatedAt),
			toMillis(story.UpdatedAt),
		).ToSql()
	if err != nil {
		return domain.Story{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Story{}, fmt.Errorf("insert story: %w", err)
	}
	return story, nil
}

// Update applies fields to one story.
func (r *SQLRepository) Update(ctx context.Context, id string, fields ports.StoryFields) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.applyUpdate(ctx, tx, []string{id}, fields)
	})
}

// BatchUpdate applies fields to every story in ids within one transaction.
// Either all stories are updated or none is.
func (r *SQLRepository) BatchUpdate(ctx context.Context, ids []string, fields ports.StoryFields) error {
	if len(ids) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.applyUpdate(ctx, tx, ids, fields)
	})
}

func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLRepository) applyUpdate(ctx context.Context, tx *sql.Tx, ids []string, fields ports.StoryFields) error {
	set, err := setClause(fields)
	if err != nil {
		return err
	}
	set["updated_at"] = toMillis(r.now())

	if len(fields.AppendNewsletters) == 0 && len(fields.AppendAnnouncements) == 0 {
		query, args, err := r.builder.Update("stories").SetMap(set).Where(sq.Eq{"id": ids}).ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update stories: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected != int64(len(ids)) {
			return fmt.Errorf("update %d of %d stories: %w", affected, len(ids), domain.ErrNotFound)
		}
		return nil
	}

	refs, err := r.loadRefs(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		current, ok := refs[id]
		if !ok {
			return fmt.Errorf("story %s: %w", id, domain.ErrNotFound)
		}

		row := make(map[string]any, len(set)+2)
		for column, value := range set {
			row[column] = value
		}
		row["newsletters"] = encodeList(appendUnique(current.newsletters, fields.AppendNewsletters))
		row["announcements"] = encodeList(appendUnique(current.announcements, fields.AppendAnnouncements))

		query, args, err := r.builder.Update("stories").SetMap(row).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update story %s: %w", id, err)
		}
	}
	return nil
}

type storyRefs struct {
	newsletters   []string
	announcements []string
}

func (r *SQLRepository) loadRefs(ctx context.Context, tx *sql.Tx, ids []string) (map[string]storyRefs, error) {
	query, args, err := r.builder.Select("id", "newsletters", "announcements").
		From("stories").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build refs query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]storyRefs, len(ids))
	for rows.Next() {
		var id, newsletters, announcements string
		if err := rows.Scan(&id, &newsletters, &announcements); err != nil {
			return nil, fmt.Errorf("scan refs: %w", err)
		}
		current := storyRefs{}
		if current.newsletters, err = decodeList(newsletters); err != nil {
			return nil, err
		}
		if current.announcements, err = decodeList(announcements); err != nil {
			return nil, err
		}
		refs[id] = current
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return refs, nil
}

// FindByChatID loads the reporter registered under a chat identity.
func (r *SQLRepository) FindByChatID(ctx context.Context, chatID string) (domain.Reporter, error) {
	return r.findReporter(ctx, sq.Eq{"chat_id": chatID}, chatID)
}

// FindByID loads a reporter by record id.
func (r *SQLRepository) FindByID(ctx context.Context, id string) (domain.Reporter, error) {
	return r.findReporter(ctx, sq.Eq{"id": id}, id)
}

func (r *SQLRepository) findReporter(ctx context.Context, where sq.Eq, key string) (domain.Reporter, error) {
	query, args, err := r.builder.Select(reporterColumns...).From("reporters").Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.Reporter{}, fmt.Errorf("build reporter query: %w", err)
	}

	var (
		reporter   domain.Reporter
		canPublish int
	)
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&reporter.ID, &reporter.DisplayName, &reporter.ChatID, &canPublish)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reporter{}, fmt.Errorf("reporter %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Reporter{}, fmt.Errorf("query reporter: %w", err)
	}
	reporter.CanPublish = canPublish != 0
	return reporter, nil
}

// SaveReporter upserts a reporter by id.
func (r *SQLRepository) SaveReporter(ctx context.Context, reporter domain.Reporter) error {
	if reporter.ID == "" || reporter.ChatID == "" {
		return fmt.Errorf("reporter id and chat id are required")
	}

	query, args, err := r.builder.Insert("reporters").
		Columns(reporterColumns...).
		Values(reporter.ID, reporter.DisplayName, reporter.ChatID, boolToInt(reporter.CanPublish)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
              display_name = excluded.display_name,
              chat_id = excluded.chat_id,
              can_publish = excluded.can_publish`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reporter upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert reporter: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (domain.Story, error) {
	var (
		story                            domain.Story
		shortRT, longRT, authors, status string
		newsletters, announcements       string
		createdAt, updatedAt             int64
	)
	err := row.Scan(
		&story.ID,
		&story.Headline,
		&story.ShortDescription,
		&shortRT,
		&story.LongArticle,
		&longRT,
		&story.ImageURL,
		&authors,
		&status,
		&newsletters,
		&announcements,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Story{}, fmt.Errorf("scan story: %w", err)
	}

	if err := json.Unmarshal([]byte(shortRT), &story.ShortDescriptionRT); err != nil {
		return domain.Story{}, fmt.Errorf("decode short description of %s: %w", story.ID, err)
	}
	if err := json.Unmarshal([]byte(longRT), &story.LongArticleRT); err != nil {
		return domain.Story{}, fmt.Errorf("decode long article of %s: %w", story.ID, err)
	}
	if story.Authors, err = decodeList(authors); err != nil {
		return domain.Story{}, err
	}
	if story.Newsletters, err = decodeList(newsletters); err != nil {
		return domain.Story{}, err
	}
	if story.Announcements, err = decodeList(announcements); err != nil {
		return domain.Story{}, err
	}
	story.Status = domain.Status(status)
	story.CreatedAt = fromMillis(createdAt)
	story.UpdatedAt = fromMillis(updatedAt)
	return story, nil
}

func setClause(fields ports.StoryFields) (map[string]any, error) {
	set := map[string]any{}
	if fields.Headline != nil {
		set["headline"] = *fields.Headline
	}
	if fields.ShortDescription != nil {
		set["short_description"] = *fields.ShortDescription
	}
	if fields.ShortDescriptionRT != nil {
		raw, err := json.Marshal(fields.ShortDescriptionRT)
		if err != nil {
			return nil, fmt.Errorf("encode short description: %w", err)
		}
		set["short_description_rt"] = string(raw)
	}
	if fields.LongArticle != nil {
		set["long_article"] = *fields.LongArticle
	}
	if fields.LongArticleRT != nil {
		raw, err := json.Marshal(fields.LongArticleRT)
		if err != nil {
			return nil, fmt.Errorf("encode long article: %w", err)
		}
		set["long_article_rt"] = string(raw)
	}
	if fields.ImageURL != nil {
		set["image_url"] = *fields.ImageURL
	}
	if fields.Status != nil {
		set["status"] = string(*fields.Status)
	}
	return set, nil
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	raw, _ := json.Marshal(values)
	return string(raw)
}

func decodeList(raw string) ([]string, error) {
	values := []string{}
	if strings.TrimSpace(raw) == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return values, nil
}

func appendUnique(current, extra []string) []string {
	seen := make(map[string]bool, len(current)+len(extra))
	out := make([]string, 0, len(current)+len(extra))
	for _, value := range append(append([]string{}, current...), extra...) {
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
