package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"Archimedes/internal/domain"
	"Archimedes/internal/ports"
)

// MemoryRepository keeps stories and reporters in process memory. It is
// used by tests and by the CLI when no database is configured.
type MemoryRepository struct {
	mu        sync.RWMutex
	stories   map[string]domain.Story
	reporters map[string]domain.Reporter
	now       func() time.Time
}

var _ ports.StoryRepository = (*MemoryRepository)(nil)
var _ ports.ReporterRepository = (*MemoryRepository)(nil)

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stories:   make(map[string]domain.Story),
		reporters: make(map[string]domain.Reporter),
		now:       time.Now,
	}
}

func (m *MemoryRepository) Scan(_ context.Context, filter ports.StoryFilter) ([]domain.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stories := []domain.Story{}
	for _, story := range m.stories {
		if filter.Status != "" && story.Status != filter.Status {
			continue
		}
		if filter.AuthorID != "" && !slices.Contains(story.Authors, filter.AuthorID) {
			continue
		}
		if filter.IDs != nil && !slices.Contains(filter.IDs, story.ID) {
			continue
		}
		stories = append(stories, cloneStory(story))
	}

	sort.Slice(stories, func(i, j int) bool {
		if stories[i].CreatedAt.Equal(stories[j].CreatedAt) {
			return stories[i].ID < stories[j].ID
		}
		return stories[i].CreatedAt.Before(stories[j].CreatedAt)
	})
	return stories, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (domain.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	story, ok := m.stories[id]
	if !ok {
		return domain.Story{}, fmt.Errorf("story %s: %w", id, domain.ErrNotFound)
	}
	return cloneStory(story), nil
}

func (m *MemoryRepository) Insert(_ context.Context, story domain.Story) (domain.Story, error) {
	if story.ID == "" {
		return domain.Story{}, fmt.Errorf("story id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stories[story.ID]; exists {
		return domain.Story{}, fmt.Errorf("story %s already exists", story.ID)
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = m.now().UTC()
	}
	if story.UpdatedAt.IsZero() {
		story.UpdatedAt = story.CreatedAt
	}
	m.stories[story.ID] = cloneStory(story)
	return cloneStory(story), nil
}

func (m *MemoryRepository) Update(ctx context.Context, id string, fields ports.StoryFields) error {
	return m.BatchUpdate(ctx, []string{id}, fields)
}

// BatchUpdate applies fields to every story or, when one is missing, to none.
func (m *MemoryRepository) BatchUpdate(_ context.Context, ids []string, fields ports.StoryFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if _, ok := m.stories[id]; !ok {
			return fmt.Errorf("story %s: %w", id, domain.ErrNotFound)
		}
	}

	now := m.now().UTC()
	for _, id := range ids {
		story := m.stories[id]
		applyFields(&story, fields)
		story.UpdatedAt = now
		m.stories[id] = story
	}
	return nil
}

func (m *MemoryRepository) FindByChatID(_ context.Context, chatID string) (domain.Reporter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, reporter := range m.reporters {
		if reporter.ChatID == chatID {
			return reporter, nil
		}
	}
	return domain.Reporter{}, fmt.Errorf("reporter %s: %w", chatID, domain.ErrNotFound)
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (domain.Reporter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reporter, ok := m.reporters[id]
	if !ok {
		return domain.Reporter{}, fmt.Errorf("reporter %s: %w", id, domain.ErrNotFound)
	}
	return reporter, nil
}

func (m *MemoryRepository) SaveReporter(_ context.Context, reporter domain.Reporter) error {
	if reporter.ID == "" || reporter.ChatID == "" {
		return fmt.Errorf("reporter id and chat id are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reporters[reporter.ID] = reporter
	return nil
}

func applyFields(story *domain.Story, fields ports.StoryFields) {
	if fields.Headline != nil {
		story.Headline = *fields.Headline
	}
	if fields.ShortDescription != nil {
		story.ShortDescription = *fields.ShortDescription
	}
	if fields.ShortDescriptionRT != nil {
		story.ShortDescriptionRT = *fields.ShortDescriptionRT
	}
	if fields.LongArticle != nil {
		story.LongArticle = *fields.LongArticle
	}
	if fields.LongArticleRT != nil {
		story.LongArticleRT = *fields.LongArticleRT
	}
	if fields.ImageURL != nil {
		story.ImageURL = *fields.ImageURL
	}
	if fields.Status != nil {
		story.Status = *fields.Status
	}
	story.Newsletters = appendUnique(story.Newsletters, fields.AppendNewsletters)
	story.Announcements = appendUnique(story.Announcements, fields.AppendAnnouncements)
}

func cloneStory(story domain.Story) domain.Story {
	story.Authors = slices.Clone(story.Authors)
	story.Newsletters = slices.Clone(story.Newsletters)
	story.Announcements = slices.Clone(story.Announcements)
	story.ShortDescriptionRT = cloneDocument(story.ShortDescriptionRT)
	story.LongArticleRT = cloneDocument(story.LongArticleRT)
	return story
}

func cloneDocument(doc domain.Document) domain.Document {
	if doc.Blocks == nil {
		return doc
	}
	blocks := make([]domain.Block, len(doc.Blocks))
	for i, block := range doc.Blocks {
		block.Spans = slices.Clone(block.Spans)
		items := make([]domain.ListItem, len(block.Items))
		for j, item := range block.Items {
			item.Spans = slices.Clone(item.Spans)
			items[j] = item
		}
		if block.Items == nil {
			items = nil
		}
		block.Items = items
		blocks[i] = block
	}
	return domain.Document{Blocks: blocks}
}
