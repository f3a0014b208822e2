// Package summary shortens free text, using a language model when one is
// configured and plain truncation otherwise.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	gocache "github.com/patrickmn/go-cache"
)

// MaxChars bounds every summary.
const MaxChars = 200

// Model turns a prompt into text.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer never fails: model errors fall back to truncation.
type Summarizer struct {
	model    Model
	memo     *gocache.Cache
	maxChars int
	log      *slog.Logger
}

// New constructs a Summarizer. model may be nil.
func New(model Model, log *slog.Logger) *Summarizer {
	if log == nil {
		log = slog.Default()
	}
	return &Summarizer{
		model:    model,
		memo:     gocache.New(6*time.Hour, 30*time.Minute),
		maxChars: MaxChars,
		log:      log,
	}
}

// Enabled reports whether a model is configured.
func (s *Summarizer) Enabled() bool {
	return s != nil && s.model != nil
}

// Summarize returns at most MaxChars characters describing text.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" || !s.Enabled() {
		return Truncate(text, MaxChars)
	}

	if cached, found := s.memo.Get(text); found {
		return cached.(string)
	}

	out, err := s.model.Generate(ctx, prompt(text, s.maxChars))
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		if err != nil {
			s.log.WarnContext(ctx, "summarizer failed, truncating", "err", err)
		}
		return Truncate(text, s.maxChars)
	}

	out = Truncate(out, s.maxChars)
	s.memo.Set(text, out, gocache.DefaultExpiration)
	return out
}

func prompt(text string, maxChars int) string {
	return fmt.Sprintf("Rewrite the following travel note as one friendly sentence of at most %d characters. "+
		"Reply with the sentence only.\n\n%s", maxChars, text)
}

// Truncate cuts text to at most n characters without splitting a rune.
func Truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}
