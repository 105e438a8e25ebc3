// Package campaign sends newsletters through the Plunk campaign API.
package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"Archimedes/internal/domain"
	"Archimedes/internal/ports"
)

// DefaultEndpoint is the public Plunk API base URL.
const DefaultEndpoint = "https://api.useplunk.com/v1"

// Client creates and sends HTML campaigns.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.CampaignService = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// CreateCampaign registers an HTML campaign and returns its id.
func (c *Client) CreateCampaign(ctx context.Context, campaign ports.Campaign) (string, error) {
	payload := map[string]any{
		"subject":    campaign.Subject,
		"body":       campaign.Body,
		"recipients": campaign.Recipients,
		"style":      "HTML",
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/campaigns", payload, &resp); err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create campaign: response carries no id")
	}

	c.debug("campaign created", "campaign_id", resp.ID, "recipients", len(campaign.Recipients))
	return resp.ID, nil
}

// SendCampaign sends a created campaign immediately.
func (c *Client) SendCampaign(ctx context.Context, id string) error {
	payload := map[string]any{
		"id":    id,
		"live":  true,
		"delay": 0,
	}

	if err := c.post(ctx, "/campaigns/send", payload, nil); err != nil {
		return fmt.Errorf("send campaign %s: %w", id, err)
	}

	c.debug("campaign sent", "campaign_id", id)
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return serviceError(resp, strings.TrimSpace(string(detail)))
	}

	if v == nil {
		if err := resp.Body.Close(); err != nil {
			return fmt.Errorf("close response body: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}

func serviceError(resp *http.Response, detail string) error {
	return goerrors.Wrap(domain.ErrCampaignService, goerrors.CategoryExternal, "unexpected status "+resp.Status).
		WithCode(resp.StatusCode).
		WithTextCode("CAMPAIGN_SERVICE_ERROR").
		WithMetadata(map[string]any{"path": resp.Request.URL.Path, "body": detail})
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
