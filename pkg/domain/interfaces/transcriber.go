package interfaces

import "context"

// Transcriber converts a local audio file into text. Errors are terminal
// for the ingestion pipeline: a note is never persisted without a
// transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}
