package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/service/transcribe"
	"github.com/urfave/cli/v3"
)

// Transcriber holds configuration for speech-to-text
type Transcriber struct {
	openaiAPIKey string
	model        string
	language     string
}

func (x *Transcriber) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key for Whisper transcription (required)",
			Category:    "Transcription",
			Sources:     cli.EnvVars("MNEMOSYNE_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "whisper-model",
			Usage:       "Whisper model name",
			Category:    "Transcription",
			Value:       "whisper-1",
			Sources:     cli.EnvVars("MNEMOSYNE_WHISPER_MODEL"),
			Destination: &x.model,
		},
		&cli.StringFlag{
			Name:        "whisper-language",
			Usage:       "Spoken language hint (ISO-639-1, empty for auto-detect)",
			Category:    "Transcription",
			Sources:     cli.EnvVars("MNEMOSYNE_WHISPER_LANGUAGE"),
			Destination: &x.language,
		},
	}
}

func (x Transcriber) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("openai-api-key.len", len(x.openaiAPIKey)),
		slog.String("model", x.model),
		slog.String("language", x.language),
	)
}

// Configure creates the Whisper transcriber.
func (x *Transcriber) Configure() (interfaces.Transcriber, error) {
	if x.openaiAPIKey == "" {
		return nil, goerr.New("openai-api-key is required")
	}

	opts := []transcribe.Option{
		transcribe.WithModel(x.model),
	}
	if x.language != "" {
		opts = append(opts, transcribe.WithLanguage(x.language))
	}

	return transcribe.New(x.openaiAPIKey, opts...)
}
