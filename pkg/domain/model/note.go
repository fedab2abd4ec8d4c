package model

import (
	"time"

	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Note is the persisted unit of work: one transcribed voice note and its
// generated reflection. Notes are immutable once created; the only mutation
// is permanent deletion.
type Note struct {
	// Seq is the repository-assigned surrogate sequence. It is allocated
	// from an atomically incremented counter, orders creation ties, and is
	// formatted into ReferenceID.
	Seq int64 `firestore:"seq"`

	// ReferenceID is the stable lookup key (e.g. NOTE17). Unique across the
	// store for all time, never reused after deletion.
	ReferenceID types.ReferenceID `firestore:"reference_id"`

	// OwnerID partitions every query and mutation.
	OwnerID types.OwnerID `firestore:"owner_id"`

	// Transcript is the raw transcribed content, not normalized.
	Transcript string `firestore:"transcript"`

	// Reflection is the generated annotation. It may be a degraded fallback
	// that embeds the transcript when generation failed.
	Reflection string `firestore:"reflection"`

	CreatedAt time.Time `firestore:"created_at"`

	// AudioDuration is the source audio length in seconds. Zero means the
	// transport did not report it.
	AudioDuration float64 `firestore:"audio_duration"`

	// SourceFileID is the transport's opaque handle to the original audio
	// blob, not the blob itself. Empty means absent.
	SourceFileID string `firestore:"source_file_id"`
}

// Clone returns a copy of the note
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	copied := *n
	return &copied
}
