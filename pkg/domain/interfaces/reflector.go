package interfaces

import "context"

// Reflector generates LLM annotations for transcripts. Both methods always
// return usable text; generation failures surface as degraded results that
// preserve the input, never as errors.
type Reflector interface {
	Reflect(ctx context.Context, transcript string) string
	Summarize(ctx context.Context, transcripts []string, periodLabel string) string
}
