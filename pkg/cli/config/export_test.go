package config

// NewPrompts creates a Prompts with a preset file path for testing
func NewPrompts(path string) *Prompts {
	return &Prompts{path: path}
}
