package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"Archimedes/internal/domain"
	"Archimedes/internal/infrastructure/storage"
	"Archimedes/internal/ports"
)

// recordingStore counts writes on top of the in-memory repository and can
// be told to fail them.
type recordingStore struct {
	*storage.MemoryRepository

	mu        sync.Mutex
	writes    int
	updateErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryRepository: storage.NewMemoryRepository()}
}

func (s *recordingStore) Update(ctx context.Context, id string, fields ports.StoryFields) error {
	s.mu.Lock()
	s.writes++
	failure := s.updateErr
	s.mu.Unlock()
	if failure != nil {
		return failure
	}
	return s.MemoryRepository.Update(ctx, id, fields)
}

func (s *recordingStore) BatchUpdate(ctx context.Context, ids []string, fields ports.StoryFields) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.MemoryRepository.BatchUpdate(ctx, ids, fields)
}

func (s *recordingStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type postedMessage struct {
	channel string
	msg     ports.Message
	sender  *ports.Sender
}

type fakeMessenger struct {
	mu    sync.Mutex
	posts []postedMessage
	err   error
}

func (m *fakeMessenger) PostMessage(_ context.Context, channel string, msg ports.Message, sender *ports.Sender) (ports.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, postedMessage{channel: channel, msg: msg, sender: sender})
	if m.err != nil {
		return ports.Delivery{}, m.err
	}
	return ports.Delivery{Channel: channel, Ref: "1700000000.000100"}, nil
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

type fakeDirectory struct {
	users map[string]ports.DisplayInfo
}

func (d fakeDirectory) ResolveUser(_ context.Context, id string) (ports.DisplayInfo, error) {
	if info, ok := d.users[id]; ok {
		return info, nil
	}
	return ports.DisplayInfo{}, domain.ErrNotFound
}

func (d fakeDirectory) ResolveChannel(_ context.Context, id string) (ports.DisplayInfo, error) {
	return ports.DisplayInfo{}, domain.ErrNotFound
}

type fakeCampaigns struct {
	mu        sync.Mutex
	created   []ports.Campaign
	sent      []string
	createErr error
}

func (c *fakeCampaigns) CreateCampaign(_ context.Context, campaign ports.Campaign) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, campaign)
	if c.createErr != nil {
		return "", c.createErr
	}
	return "camp-1", nil
}

func (c *fakeCampaigns) SendCampaign(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, id)
	return nil
}

func (c *fakeCampaigns) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created) + len(c.sent)
}

var errBoom = errors.New("boom")

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "story-" + string(rune('a'+n-1))
	}
}

func plainDoc(text string) domain.Document {
	return domain.Document{Blocks: []domain.Block{domain.Paragraph(domain.Text(text, domain.Style{}))}}
}

func storyFilterApproved() ports.StoryFilter {
	return ports.StoryFilter{Status: domain.StatusApproved}
}

func statusFields(status domain.Status) ports.StoryFields {
	return ports.StoryFields{Status: &status}
}
