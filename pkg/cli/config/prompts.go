package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/mnemosyne/pkg/service/reflection"
	"github.com/urfave/cli/v3"
)

// Prompts holds configuration for reflection prompt overrides, loaded from
// a TOML file. All fields are optional; unset fields keep the built-in
// defaults.
type Prompts struct {
	path string
}

// promptsFile is the TOML schema of the prompt override file
type promptsFile struct {
	Language      string `toml:"language"`
	MaxInputChars int    `toml:"max_input_chars"`
	ReflectPrompt string `toml:"reflect_prompt"`
	ReviewPrompt  string `toml:"review_prompt"`
}

func (x *Prompts) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "prompts",
			Usage:       "Path to TOML file overriding reflection prompts and language",
			Category:    "LLM",
			Sources:     cli.EnvVars("MNEMOSYNE_PROMPTS"),
			Destination: &x.path,
		},
	}
}

// Configure loads the override file and returns reflection options. With no
// file configured it returns no options.
func (x *Prompts) Configure() ([]reflection.Option, error) {
	if x.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(x.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read prompts file", goerr.V("path", x.path))
	}

	var file promptsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse prompts file", goerr.V("path", x.path))
	}

	var opts []reflection.Option
	if file.Language != "" {
		opts = append(opts, reflection.WithLanguage(file.Language))
	}
	if file.MaxInputChars > 0 {
		opts = append(opts, reflection.WithMaxInputChars(file.MaxInputChars))
	}
	if file.ReflectPrompt != "" {
		opts = append(opts, reflection.WithReflectPrompt(file.ReflectPrompt))
	}
	if file.ReviewPrompt != "" {
		opts = append(opts, reflection.WithReviewPrompt(file.ReviewPrompt))
	}

	return opts, nil
}
