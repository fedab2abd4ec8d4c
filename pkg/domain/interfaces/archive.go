package interfaces

import (
	"context"
	"io"

	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Archiver stores original audio artifacts for later retrieval. Archival is
// best effort: a failed upload must not abort ingestion.
type Archiver interface {
	Store(ctx context.Context, ownerID types.OwnerID, refID types.ReferenceID, r io.Reader) (string, error)
	Close() error
}
