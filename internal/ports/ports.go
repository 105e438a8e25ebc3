package ports

import (
	"context"

	"Archimedes/internal/domain"
)

// StoryFilter selects stories in Scan. Zero fields do not constrain.
type StoryFilter struct {
	Status   domain.Status
	AuthorID string
	IDs      []string
}

// StoryFields carries a partial story update. Nil pointers leave the column
// untouched; the append slices are added to the existing reference sets.
type StoryFields struct {
	Headline            *string
	ShortDescription    *string
	ShortDescriptionRT  *domain.Document
	LongArticle         *string
	LongArticleRT       *domain.Document
	ImageURL            *string
	Status              *domain.Status
	AppendNewsletters   []string
	AppendAnnouncements []string
}

// StoryRepository is the record store holding stories.
type StoryRepository interface {
	Scan(ctx context.Context, filter StoryFilter) ([]domain.Story, error)
	Get(ctx context.Context, id string) (domain.Story, error)
	Insert(ctx context.Context, story domain.Story) (domain.Story, error)
	Update(ctx context.Context, id string, fields StoryFields) error
	BatchUpdate(ctx context.Context, ids []string, fields StoryFields) error
}

// ReporterRepository exposes the newsroom roster.
type ReporterRepository interface {
	FindByChatID(ctx context.Context, chatID string) (domain.Reporter, error)
	FindByID(ctx context.Context, id string) (domain.Reporter, error)
	SaveReporter(ctx context.Context, reporter domain.Reporter) error
}

// DisplayInfo is what the directory knows about a user or channel.
type DisplayInfo struct {
	ID        string
	Name      string
	AvatarURL string
}

// Directory resolves external identifiers embedded in markup.
type Directory interface {
	ResolveUser(ctx context.Context, id string) (DisplayInfo, error)
	ResolveChannel(ctx context.Context, id string) (DisplayInfo, error)
}

// Message is a chat payload: a fallback text plus ordered Markdown sections.
type Message struct {
	Text     string
	Sections []string
}

// Sender overrides the identity a message is posted under.
type Sender struct {
	Name    string
	IconURL string
}

// Delivery identifies a posted message.
type Delivery struct {
	Channel string
	Ref     string
}

// Messenger posts messages to the internal chat platform.
type Messenger interface {
	PostMessage(ctx context.Context, channel string, msg Message, sender *Sender) (Delivery, error)
}

// Campaign is an email campaign ready for creation.
type Campaign struct {
	Subject    string
	Body       string
	Recipients []string
}

// CampaignService creates and sends newsletter campaigns.
type CampaignService interface {
	CreateCampaign(ctx context.Context, campaign Campaign) (string, error)
	SendCampaign(ctx context.Context, id string) error
}
