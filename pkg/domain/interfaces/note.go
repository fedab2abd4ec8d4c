package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// MaxListLimit is the ceiling applied to ListRecent limits to bound
// response size.
const MaxListLimit = 20

// ErrNotFound is the shared sentinel every backend wraps when a requested
// note does not exist for the owner.
var ErrNotFound = goerr.New("note not found")

// NoteRepository defines the interface for Note data access. All queries
// and mutations except Create are scoped by owner: a note created under one
// owner is never visible to another, even if its reference ID is guessed.
type NoteRepository interface {
	// Create persists a new note. The repository assigns Seq from an
	// atomically incremented counter, formats ReferenceID from it, and
	// stamps CreatedAt. The counter guarantees reference IDs stay unique
	// under concurrent creation.
	Create(ctx context.Context, note *model.Note) (*model.Note, error)

	// GetByReference retrieves a note by its reference ID. Returns an error
	// wrapping ErrNotFound if no owner-matching note exists.
	GetByReference(ctx context.Context, owner types.OwnerID, ref types.ReferenceID) (*model.Note, error)

	// ListRecent retrieves up to limit notes ordered by CreatedAt
	// descending. The limit is clamped to MaxListLimit.
	ListRecent(ctx context.Context, owner types.OwnerID, limit int) ([]*model.Note, error)

	// GetRandom retrieves one uniformly chosen note of the owner. Returns
	// an error wrapping ErrNotFound if the owner has no notes.
	GetRandom(ctx context.Context, owner types.OwnerID) (*model.Note, error)

	// ListSince retrieves notes with CreatedAt >= since, ordered by
	// CreatedAt descending.
	ListSince(ctx context.Context, owner types.OwnerID, since time.Time) ([]*model.Note, error)

	// Delete removes a note permanently. Returns true iff a matching note
	// existed and was removed; deleting twice returns false without error.
	Delete(ctx context.Context, owner types.OwnerID, ref types.ReferenceID) (bool, error)
}
