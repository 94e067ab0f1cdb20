// Package resolve turns raw chat text into typed segments by running it past
// an ordered list of emote catalog providers.
package resolve

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/pkg/emote"
)

const tracerName = "github.com/flemzord/emotewall/internal/resolve"

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer used for parse spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMentions enables classification of @name tokens.
func WithMentions(enabled bool) Option {
	return func(e *Engine) { e.mentions = enabled }
}

// WithLinks enables classification of http(s) URL tokens.
func WithLinks(enabled bool) Option {
	return func(e *Engine) { e.links = enabled }
}

// Engine resolves emotes in chat messages. Provider order is fixed at
// construction: ascending priority, ties keep the order given.
type Engine struct {
	providers []catalog.Provider
	logger    *slog.Logger
	tracer    trace.Tracer
	mentions  bool
	links     bool
}

// NewEngine returns an engine over providers.
func NewEngine(providers []catalog.Provider, opts ...Option) *Engine {
	sorted := slices.Clone(providers)
	slices.SortStableFunc(sorted, func(a, b catalog.Provider) int {
		return a.Priority() - b.Priority()
	})
	e := &Engine{providers: sorted}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// Providers returns the providers in resolution order.
func (e *Engine) Providers() []catalog.Provider {
	return slices.Clone(e.providers)
}

// ParseMessage splits text into segments. For each provider in order it
// waits for the provider's scoped catalog (when scope is set), then
// re-tokenizes only the remaining text segments on whitespace. Earlier
// providers therefore win a token. Emotes lists matches as they are found:
// provider by provider, message order within one provider. Adjacent text
// segments are merged at the end, and concatenating segment contents always
// yields text.
//
// The only error is ctx's, returned when it ends while waiting on a
// scoped catalog.
func (e *Engine) ParseMessage(ctx context.Context, text, scope string) (emote.ParsedMessage, error) {
	ctx, span := e.tracer.Start(ctx, "resolve.ParseMessage", trace.WithAttributes(
		attribute.String("emote.scope", scope),
		attribute.Int("message.length", len(text)),
	))
	defer span.End()

	segments := []emote.Segment{emote.NewTextSegment(text)}
	var found []emote.Data

	for _, p := range e.providers {
		if scope != "" {
			if sl, ok := p.(catalog.ScopedLoader); ok {
				sl.LoadScoped(ctx, scope)
				if err := ctx.Err(); err != nil {
					span.RecordError(err)
					return emote.ParsedMessage{}, err
				}
			}
		}
		segments = resolveWith(segments, func(tok string) (emote.Segment, bool) {
			d, ok := p.Resolve(tok, scope)
			if !ok {
				return emote.Segment{}, false
			}
			found = append(found, d)
			return emote.NewEmoteSegment(tok, d), true
		})
	}

	if e.links {
		segments = resolveWith(segments, classifyLink)
	}
	if e.mentions {
		segments = resolveWith(segments, classifyMention)
	}

	msg := emote.ParsedMessage{Segments: mergeText(segments), Emotes: found}
	span.SetAttributes(attribute.Int("message.emotes", len(msg.Emotes)))
	return msg, nil
}

// resolveWith re-splits every text segment and lets match claim individual
// non-whitespace tokens. Typed segments pass through untouched.
func resolveWith(in []emote.Segment, match func(tok string) (emote.Segment, bool)) []emote.Segment {
	out := make([]emote.Segment, 0, len(in))
	for _, seg := range in {
		if !seg.IsText() {
			out = append(out, seg)
			continue
		}
		var pending strings.Builder
		for _, tok := range tokenize(seg.Content) {
			if !isSpace(tok) {
				if typed, ok := match(tok); ok {
					if pending.Len() > 0 {
						out = append(out, emote.NewTextSegment(pending.String()))
						pending.Reset()
					}
					out = append(out, typed)
					continue
				}
			}
			pending.WriteString(tok)
		}
		if pending.Len() > 0 {
			out = append(out, emote.NewTextSegment(pending.String()))
		}
	}
	return out
}

// mergeText collapses runs of adjacent text segments.
func mergeText(in []emote.Segment) []emote.Segment {
	out := make([]emote.Segment, 0, len(in))
	for _, seg := range in {
		if n := len(out); n > 0 && seg.IsText() && out[n-1].IsText() {
			out[n-1].Content += seg.Content
			continue
		}
		out = append(out, seg)
	}
	return out
}

// tokenize splits s into alternating whitespace and non-whitespace runs.
// Joining the result returns s.
func tokenize(s string) []string {
	var toks []string
	start := 0
	var inSpace bool
	for i, r := range s {
		sp := unicode.IsSpace(r)
		if i == 0 {
			inSpace = sp
			continue
		}
		if sp != inSpace {
			toks = append(toks, s[start:i])
			start = i
			inSpace = sp
		}
	}
	if start < len(s) {
		toks = append(toks, s[start:])
	}
	return toks
}

func isSpace(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsSpace(r)
}
