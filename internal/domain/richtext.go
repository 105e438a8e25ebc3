package domain

// BlockKind enumerates the block-level nodes of a rich document.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockList      BlockKind = "list"
	BlockQuote     BlockKind = "quote"
)

// SpanKind tags the variant carried by a Span.
type SpanKind string

const (
	SpanText    SpanKind = "text"
	SpanLink    SpanKind = "link"
	SpanMention SpanKind = "mention"
)

// MentionType distinguishes the directory namespace a mention points into.
type MentionType string

const (
	MentionUser    MentionType = "user"
	MentionChannel MentionType = "channel"
)

// Document is the structured text produced by an editing surface.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// Block is one top-level node. Paragraphs, headings and quotes carry Spans;
// lists carry Items.
type Block struct {
	Kind    BlockKind  `json:"kind"`
	Level   int        `json:"level,omitempty"`
	Ordered bool       `json:"ordered,omitempty"`
	Spans   []Span     `json:"spans,omitempty"`
	Items   []ListItem `json:"items,omitempty"`
}

// ListItem is a single bullet of a list block.
type ListItem struct {
	Indent int    `json:"indent,omitempty"`
	Spans  []Span `json:"spans"`
}

// Style holds the flattened inline style flags of a span.
type Style struct {
	Bold   bool `json:"bold,omitempty"`
	Italic bool `json:"italic,omitempty"`
	Strike bool `json:"strike,omitempty"`
	Code   bool `json:"code,omitempty"`
}

// Mention references an external directory entry by opaque identifier. IDs
// must not contain whitespace, '>' or '|', which delimit the rendered token.
type Mention struct {
	Type MentionType `json:"type"`
	ID   string      `json:"id"`
}

// Span is a flat inline run. Link is only meaningful for SpanLink and
// Mention only for SpanMention.
type Span struct {
	Kind    SpanKind `json:"kind"`
	Text    string   `json:"text,omitempty"`
	Style   Style    `json:"style,omitempty"`
	Link    string   `json:"link,omitempty"`
	Mention *Mention `json:"mention,omitempty"`
}

// Text builds a plain or styled text span.
func Text(text string, style Style) Span {
	return Span{Kind: SpanText, Text: text, Style: style}
}

// Link builds a link span.
func Link(text, url string, style Style) Span {
	return Span{Kind: SpanLink, Text: text, Link: url, Style: style}
}

// UserMention builds a mention span pointing at a chat user.
func UserMention(id string) Span {
	return Span{Kind: SpanMention, Mention: &Mention{Type: MentionUser, ID: id}}
}

// ChannelMention builds a mention span pointing at a chat channel.
func ChannelMention(id string) Span {
	return Span{Kind: SpanMention, Mention: &Mention{Type: MentionChannel, ID: id}}
}

// Paragraph is a convenience constructor used by tests and the CLI.
func Paragraph(spans ...Span) Block {
	return Block{Kind: BlockParagraph, Spans: spans}
}

// IsEmpty reports whether the document has no blocks.
func (d Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}
