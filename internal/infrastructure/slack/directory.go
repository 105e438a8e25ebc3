package slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"Archimedes/internal/domain"
	"Archimedes/internal/ports"
)

// Directory resolves user and channel ids through users.info and
// conversations.info.
type Directory struct {
	client *slack.Client
}

var _ ports.Directory = (*Directory)(nil)

// NewDirectory wires a Web API client.
func NewDirectory(client *slack.Client) *Directory {
	return &Directory{client: client}
}

// ResolveUser returns the user's display name (profile display name, real
// name, then handle) and avatar.
func (d *Directory) ResolveUser(ctx context.Context, id string) (ports.DisplayInfo, error) {
	user, err := d.client.GetUserInfoContext(ctx, id)
	if err != nil {
		if isAPIError(err, "user_not_found", "users_not_found") {
			return ports.DisplayInfo{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return ports.DisplayInfo{}, fmt.Errorf("users.info %s: %w", id, err)
	}

	info := ports.DisplayInfo{ID: id, Name: firstNonEmpty(
		user.Profile.DisplayName,
		user.Profile.RealName,
		user.RealName,
		user.Name,
	)}
	info.AvatarURL = firstNonEmpty(user.Profile.ImageOriginal, user.Profile.Image192)
	return info, nil
}

// ResolveChannel returns the channel name without the leading #.
func (d *Directory) ResolveChannel(ctx context.Context, id string) (ports.DisplayInfo, error) {
	channel, err := d.client.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: id})
	if err != nil {
		if isAPIError(err, "channel_not_found") {
			return ports.DisplayInfo{}, fmt.Errorf("channel %s: %w", id, domain.ErrNotFound)
		}
		return ports.DisplayInfo{}, fmt.Errorf("conversations.info %s: %w", id, err)
	}
	return ports.DisplayInfo{ID: id, Name: channel.Name}, nil
}

func isAPIError(err error, codes ...string) bool {
	var apiErr slack.SlackErrorResponse
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.Err == code {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
