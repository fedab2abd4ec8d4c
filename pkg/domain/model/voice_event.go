package model

import "github.com/secmon-lab/mnemosyne/pkg/domain/types"

// VoiceEvent is an inbound voice note delivered by the transport layer.
// It carries handles only; the audio bytes are fetched by the pipeline.
type VoiceEvent struct {
	OwnerID   types.OwnerID
	ChannelID string

	// FileID is the transport's handle to the audio artifact.
	FileID string

	// Duration is the audio length in seconds as reported by the transport
	// (0 if unknown).
	Duration float64

	// MessageID identifies the triggering message, used for status edits.
	MessageID string
}
