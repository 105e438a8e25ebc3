package passes

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"Archimedes/internal/domain"
	"Archimedes/internal/ports"
)

const (
	// MentionsPass rewrites user mentions into display names.
	MentionsPass = "mentions"
	// ChannelsPass rewrites channel mentions into #channel-name.
	ChannelsPass = "channels"

	defaultConcurrency = 4
)

var (
	userToken    = regexp.MustCompile(`<@([^>|\s]+)>`)
	channelToken = regexp.MustCompile(`<#([^>|\s]+)(?:\|[^>]*)?>`)
)

type lookupFunc func(ctx context.Context, id string) (ports.DisplayInfo, error)

// tokenPass resolves every distinct id matched by pattern through lookup
// and substitutes the formatted result for each occurrence.
type tokenPass struct {
	name        string
	pattern     *regexp.Regexp
	lookup      lookupFunc
	format      func(name string) string
	concurrency int
	logger      *slog.Logger
}

// NewMentionPass builds the pass replacing <@ID> with the user's display name.
func NewMentionPass(directory ports.Directory, concurrency int, logger *slog.Logger) Pass {
	return &tokenPass{
		name:        MentionsPass,
		pattern:     userToken,
		lookup:      directory.ResolveUser,
		format:      func(name string) string { return name },
		concurrency: concurrency,
		logger:      logger,
	}
}

// NewChannelPass builds the pass replacing <#ID> and <#ID|label> with #name.
func NewChannelPass(directory ports.Directory, concurrency int, logger *slog.Logger) Pass {
	return &tokenPass{
		name:        ChannelsPass,
		pattern:     channelToken,
		lookup:      directory.ResolveChannel,
		format:      func(name string) string { return "#" + name },
		concurrency: concurrency,
		logger:      logger,
	}
}

func (p *tokenPass) Name() string { return p.name }

func (p *tokenPass) Apply(ctx context.Context, markup string) string {
	ids := p.distinctIDs(markup)
	if len(ids) == 0 {
		return markup
	}

	limit := p.concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var (
		mu       sync.Mutex
		resolved = make(map[string]string, len(ids))
		group    errgroup.Group
	)
	group.SetLimit(limit)

	for _, id := range ids {
		group.Go(func() error {
			info, err := p.lookup(ctx, id)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				p.log(slog.LevelDebug, "reference not found", "id", id)
				return nil
			case err != nil:
				p.log(slog.LevelWarn, "reference resolution failed", "id", id, "error", err)
				return nil
			}

			name := sanitize(info.Name)
			if name == "" {
				p.log(slog.LevelDebug, "reference has no display name", "id", id)
				return nil
			}

			mu.Lock()
			resolved[id] = p.format(name)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return p.pattern.ReplaceAllStringFunc(markup, func(token string) string {
		match := p.pattern.FindStringSubmatch(token)
		if len(match) < 2 {
			return token
		}
		if text, ok := resolved[match[1]]; ok {
			return text
		}
		return token
	})
}

func (p *tokenPass) distinctIDs(markup string) []string {
	matches := p.pattern.FindAllStringSubmatch(markup, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		if seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		ids = append(ids, match[1])
	}
	return ids
}

func (p *tokenPass) log(level slog.Level, msg string, args ...any) {
	if p.logger != nil {
		p.logger.Log(context.Background(), level, msg, append([]any{"pass", p.name}, args...)...)
	}
}

// sanitize strips the characters that delimit tokens so resolved text can
// never be matched by a later run.
func sanitize(name string) string {
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	return strings.TrimSpace(name)
}

// NewDirectoryRegistry registers the mention and channel passes backed by
// directory.
func NewDirectoryRegistry(directory ports.Directory, concurrency int, logger *slog.Logger) *Registry {
	registry := NewRegistry()
	registry.Register(NewMentionPass(directory, concurrency, logger))
	registry.Register(NewChannelPass(directory, concurrency, logger))
	return registry
}
