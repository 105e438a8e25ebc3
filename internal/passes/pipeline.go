package passes

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "Archimedes/internal/passes"

// DefaultOrder is the pass sequence used when config names none.
var DefaultOrder = []string{MentionsPass, ChannelsPass}

// Pipeline applies an ordered list of passes to a markup string.
type Pipeline struct {
	passes []Pass
	logger *slog.Logger
	tracer trace.Tracer
}

// NewPipeline resolves order against the registry. An empty order falls back
// to DefaultOrder.
func NewPipeline(registry *Registry, order []string, logger *slog.Logger) (*Pipeline, error) {
	if registry == nil {
		return nil, fmt.Errorf("pass registry is not configured")
	}
	if len(order) == 0 {
		order = DefaultOrder
	}

	passes := make([]Pass, 0, len(order))
	for _, name := range order {
		pass, err := registry.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		passes = append(passes, pass)
	}

	return &Pipeline{
		passes: passes,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Run threads markup through every pass in order. Passes are strictly
// sequential; each sees the output of the previous one.
func (p *Pipeline) Run(ctx context.Context, markup string) string {
	if p == nil || len(p.passes) == 0 || markup == "" {
		return markup
	}

	ctx, span := p.tracer.Start(ctx, "passes.run",
		trace.WithAttributes(attribute.Int("markup.length", len(markup))))
	defer span.End()

	for _, pass := range p.passes {
		passCtx, passSpan := p.tracer.Start(ctx, "passes."+pass.Name())
		markup = pass.Apply(passCtx, markup)
		passSpan.End()
	}

	p.debug("markup resolved", "passes", len(p.passes), "length", len(markup))
	return markup
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
