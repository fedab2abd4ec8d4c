// Package transcribe converts voice note audio into text via the OpenAI
// Whisper API.
package transcribe

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"github.com/secmon-lab/mnemosyne/pkg/utils/safe"
)

type whisperClient struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

var _ interfaces.Transcriber = (*whisperClient)(nil)

type Option func(*whisperClient)

// WithModel overrides the default whisper-1 model.
func WithModel(model string) Option {
	return func(c *whisperClient) {
		c.model = openai.AudioModel(model)
	}
}

// WithLanguage hints the spoken language (ISO-639-1, e.g. "en"). Leaving it
// empty lets Whisper auto-detect.
func WithLanguage(lang string) Option {
	return func(c *whisperClient) {
		c.language = lang
	}
}

func New(apiKey string, opts ...Option) (interfaces.Transcriber, error) {
	if apiKey == "" {
		return nil, goerr.New("openai api key is required")
	}

	c := &whisperClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.AudioModelWhisper1,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Transcribe uploads the audio file at path and returns the recognized text.
func (c *whisperClient) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open audio file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: c.model,
	}
	if c.language != "" {
		params.Language = openai.String(c.language)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(err, "failed to transcribe audio", goerr.V("path", path))
	}

	text := strings.TrimSpace(resp.Text)
	logging.From(ctx).Debug("transcription completed",
		"path", path,
		"chars", len(text),
	)

	return text, nil
}
