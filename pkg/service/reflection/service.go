// Package reflection generates reflective annotations and period reviews
// for transcribed voice notes through an LLM. Generation failures never
// propagate: both operations fall back to a degraded result that preserves
// the user's content, because a failed generation step must not block
// persistence of a transcription.
package reflection

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

//go:embed prompt/reflect.md
var defaultReflectPromptTmpl string

//go:embed prompt/review.md
var defaultReviewPromptTmpl string

const (
	// DefaultMaxInputChars bounds the text sent to the LLM in one request.
	// Conservative against the model context window.
	DefaultMaxInputChars = 32000

	// maxEntryChars bounds each individual transcript inside a review.
	maxEntryChars = 5000

	// degradedEmbedChars bounds how much transcript a degraded reflection
	// embeds.
	degradedEmbedChars = 3500
)

const systemPrompt = "You are a helpful, empathetic journaling assistant that provides thoughtful reflections."

// Service generates reflections and reviews. The LLM client is injected at
// construction; there is no lazily initialized global.
type Service struct {
	llm           gollem.LLMClient
	reflectTmpl   *template.Template
	reviewTmpl    *template.Template
	language      string
	maxInputChars int
}

// Option is a functional option for Service configuration
type Option func(*Service) error

// WithLanguage instructs the model to answer in the given language
func WithLanguage(lang string) Option {
	return func(s *Service) error {
		s.language = lang
		return nil
	}
}

// WithMaxInputChars overrides the maximum transcript length sent to the model
func WithMaxInputChars(n int) Option {
	return func(s *Service) error {
		if n < 1 {
			return goerr.New("max input chars must be positive", goerr.V("value", n))
		}
		s.maxInputChars = n
		return nil
	}
}

// WithReflectPrompt replaces the reflection prompt template
func WithReflectPrompt(tmpl string) Option {
	return func(s *Service) error {
		parsed, err := template.New("reflect").Parse(tmpl)
		if err != nil {
			return goerr.Wrap(err, "invalid reflect prompt template")
		}
		s.reflectTmpl = parsed
		return nil
	}
}

// WithReviewPrompt replaces the review prompt template
func WithReviewPrompt(tmpl string) Option {
	return func(s *Service) error {
		parsed, err := template.New("review").Parse(tmpl)
		if err != nil {
			return goerr.Wrap(err, "invalid review prompt template")
		}
		s.reviewTmpl = parsed
		return nil
	}
}

// New creates a reflection service with the provided LLM client
var _ interfaces.Reflector = (*Service)(nil)

func New(llm gollem.LLMClient, opts ...Option) (*Service, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required")
	}

	s := &Service{
		llm:           llm,
		reflectTmpl:   template.Must(template.New("reflect").Parse(defaultReflectPromptTmpl)),
		reviewTmpl:    template.Must(template.New("review").Parse(defaultReviewPromptTmpl)),
		maxInputChars: DefaultMaxInputChars,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Reflect generates a reflective annotation for one transcript. On any
// failure it returns a degraded annotation that embeds the transcript, so
// the caller can always persist.
func (s *Service) Reflect(ctx context.Context, transcript string) string {
	truncated := model.Truncate(transcript, s.maxInputChars)
	if truncated.Truncated() {
		logging.From(ctx).Warn("transcript truncated for reflection",
			"original_chars", truncated.OriginalLength,
			"max_chars", s.maxInputChars,
		)
	}

	var buf bytes.Buffer
	err := s.reflectTmpl.Execute(&buf, map[string]string{
		"Transcript": truncated.WithNotice(),
		"Language":   s.language,
	})
	if err != nil {
		logging.From(ctx).Error("failed to render reflect prompt", "error", err.Error())
		return s.degradedReflection(transcript)
	}

	text, err := s.generate(ctx, buf.String())
	if err != nil {
		logging.From(ctx).Error("reflection generation failed, substituting degraded annotation",
			"error", err.Error(),
		)
		return s.degradedReflection(transcript)
	}

	return text
}

// Summarize generates a review of multiple transcripts for a period (e.g.
// "today", "the past week"). Like Reflect, it never returns an error.
func (s *Service) Summarize(ctx context.Context, transcripts []string, periodLabel string) string {
	if len(transcripts) == 0 {
		return fmt.Sprintf("You don't have any entries from %s.", periodLabel)
	}

	entries := make([]string, 0, len(transcripts))
	for i, tr := range transcripts {
		entries = append(entries, fmt.Sprintf("Entry %d: %s",
			i+1, model.Truncate(tr, maxEntryChars).WithNotice()))
	}

	combined := model.Truncate(strings.Join(entries, "\n\n"), s.maxInputChars)
	if combined.Truncated() {
		logging.From(ctx).Warn("combined transcripts truncated for review",
			"original_chars", combined.OriginalLength,
			"max_chars", s.maxInputChars,
		)
	}

	var buf bytes.Buffer
	err := s.reviewTmpl.Execute(&buf, map[string]string{
		"Period":   periodLabel,
		"Entries":  combined.WithNotice(),
		"Language": s.language,
	})
	if err != nil {
		logging.From(ctx).Error("failed to render review prompt", "error", err.Error())
		return s.degradedReview(len(transcripts), periodLabel)
	}

	text, err := s.generate(ctx, buf.String())
	if err != nil {
		logging.From(ctx).Error("review generation failed, substituting degraded summary",
			"error", err.Error(),
		)
		return s.degradedReview(len(transcripts), periodLabel)
	}

	return fmt.Sprintf("📝 Review of your entries from %s:\n\n%s", periodLabel, text)
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	session, err := s.llm.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content")
	}
	if resp == nil || len(resp.Texts) == 0 || strings.TrimSpace(strings.Join(resp.Texts, "")) == "" {
		return "", goerr.New("LLM returned empty response")
	}

	return strings.Join(resp.Texts, "\n"), nil
}

// degradedReflection preserves the transcript so no user content is lost
// when generation fails.
func (s *Service) degradedReflection(transcript string) string {
	embedded := model.Truncate(transcript, degradedEmbedChars)
	return fmt.Sprintf("I transcribed your note, but couldn't generate a reflection right now.\n\nTranscript:\n%s",
		embedded.WithNotice())
}

func (s *Service) degradedReview(count int, periodLabel string) string {
	return fmt.Sprintf("I found %d entries from %s, but couldn't generate a review right now.",
		count, periodLabel)
}
