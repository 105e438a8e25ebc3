// Package slack adapts the chat platform Web API to the messaging and
// directory ports.
package slack

import (
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Config holds the connection settings of the Web API client.
type Config struct {
	BotToken string
	APIURL   string
	Timeout  time.Duration
}

// NewClient builds a Web API client with a bounded HTTP timeout.
func NewClient(cfg Config) *slack.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	options := []slack.Option{slack.OptionHTTPClient(&http.Client{Timeout: timeout})}
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		options = append(options, slack.OptionAPIURL(apiURL))
	}
	return slack.New(cfg.BotToken, options...)
}
