package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Pipeline stage failures
	ErrDownloadFailed      = errors.New("audio download failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrPersistenceFailed   = errors.New("failed to save note")
	ErrDeliveryFailed      = errors.New("failed to deliver result")

	// Lookup errors
	ErrNoteNotFound     = errors.New("note not found")
	ErrInvalidReference = errors.New("invalid reference ID")
)

// Context keys for error values
const (
	ReferenceIDKey = "reference_id"
	OwnerIDKey     = "owner_id"
	FileIDKey      = "file_id"
)
