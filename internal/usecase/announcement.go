package usecase

import (
	"context"
	"fmt"
	"strings"

	"Archimedes/internal/domain"
	"Archimedes/internal/ports"
)

const fallbackSenderName = "Archimedes"

// composeAnnouncement lays out the chat announcement: the intro, one section
// per story with its headline, status and short description, then the
// conclusion.
func composeAnnouncement(intro, conclusion string, batch domain.Batch) ports.Message {
	sections := make([]string, 0, len(batch)+2)
	if strings.TrimSpace(intro) != "" {
		sections = append(sections, intro)
	}
	for _, story := range batch {
		section := fmt.Sprintf("**%s** _(%s)_", story.Headline, story.Status)
		if strings.TrimSpace(story.ShortDescription) != "" {
			section += "\n" + story.ShortDescription
		}
		sections = append(sections, section)
	}
	if strings.TrimSpace(conclusion) != "" {
		sections = append(sections, conclusion)
	}

	return ports.Message{
		Text:     fmt.Sprintf("%d new stories published", len(batch)),
		Sections: sections,
	}
}

// announce resolves the free-form fields, posts the announcement under the
// requester's identity and reports how the target settled.
func (p *Publisher) announce(ctx context.Context, requestedBy string, batch domain.Batch, intro, conclusion string) (domain.TargetOutcome, string) {
	outcome := domain.TargetOutcome{Target: domain.TargetAnnouncement}
	if p.messenger == nil {
		outcome.Err = domain.DeliveryError(fmt.Errorf("messenger is not configured"), string(domain.TargetAnnouncement))
		return outcome, ""
	}

	msg := composeAnnouncement(p.resolve(ctx, intro), p.resolve(ctx, conclusion), batch)
	sender := p.sender(ctx, requestedBy)

	delivery, err := p.messenger.PostMessage(ctx, p.announcementChannel, msg, sender)
	if err != nil {
		outcome.Err = domain.DeliveryError(err, string(domain.TargetAnnouncement))
		p.warn("announcement failed", "requested_by", requestedBy, "error", err)
		return outcome, ""
	}

	outcome.OK = true
	outcome.Detail = fmt.Sprintf("posted %d stories to %s", len(batch), delivery.Channel)
	p.debug("sent announcement", "requested_by", requestedBy, "ref", delivery.Ref)
	return outcome, delivery.Ref
}

// sender looks up the requester's chat identity. Lookup failures fall back
// to the service name.
func (p *Publisher) sender(ctx context.Context, requestedBy string) *ports.Sender {
	sender := &ports.Sender{Name: fallbackSenderName}
	if p.directory == nil {
		return sender
	}

	info, err := p.directory.ResolveUser(ctx, requestedBy)
	if err != nil {
		p.debug("sender lookup failed", "requested_by", requestedBy, "error", err)
		return sender
	}
	if info.Name != "" {
		sender.Name = info.Name
	}
	sender.IconURL = info.AvatarURL
	return sender
}
