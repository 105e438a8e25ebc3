package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"Archimedes/internal/ports"
)

// maxSectionText is the Web API limit for a section block's text.
const maxSectionText = 3000

// Messenger posts messages through chat.postMessage.
type Messenger struct {
	client *slack.Client
	logger *slog.Logger
}

var _ ports.Messenger = (*Messenger)(nil)

// NewMessenger wires a Web API client.
func NewMessenger(client *slack.Client, logger *slog.Logger) *Messenger {
	return &Messenger{client: client, logger: logger}
}

// PostMessage delivers msg as one section block per Markdown section, with
// link and media unfurling disabled.
func (m *Messenger) PostMessage(ctx context.Context, channel string, msg ports.Message, sender *ports.Sender) (ports.Delivery, error) {
	if m.client == nil || channel == "" {
		return ports.Delivery{}, fmt.Errorf("slack messenger misconfigured")
	}

	options := []slack.MsgOption{
		slack.MsgOptionText(ToMrkdwn(msg.Text), false),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
	}
	if blocks := sectionBlocks(msg.Sections); len(blocks) > 0 {
		options = append(options, slack.MsgOptionBlocks(blocks...))
	}
	if sender != nil {
		if sender.Name != "" {
			options = append(options, slack.MsgOptionUsername(sender.Name))
		}
		if sender.IconURL != "" {
			options = append(options, slack.MsgOptionIconURL(sender.IconURL))
		}
	}

	postedChannel, ts, err := m.client.PostMessageContext(ctx, channel, options...)
	if err != nil {
		return ports.Delivery{}, fmt.Errorf("post message to %s: %w", channel, err)
	}

	if m.logger != nil {
		m.logger.Debug("message posted", "channel", postedChannel, "ts", ts, "sections", len(msg.Sections))
	}
	return ports.Delivery{Channel: postedChannel, Ref: ts}, nil
}

func sectionBlocks(sections []string) []slack.Block {
	blocks := make([]slack.Block, 0, len(sections))
	for i, section := range sections {
		text := ToMrkdwn(strings.TrimSpace(section))
		if text == "" {
			continue
		}
		if i > 0 && len(blocks) > 0 {
			blocks = append(blocks, slack.NewDividerBlock())
		}
		for _, chunk := range chunkText(text, maxSectionText) {
			blocks = append(blocks, slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, chunk, false, false), nil, nil))
		}
	}
	return blocks
}

// chunkText splits text into pieces of at most limit bytes, preferring line
// boundaries and never splitting a rune.
func chunkText(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
