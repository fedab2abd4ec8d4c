package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// QueryUseCase serves lookups over persisted notes. Every operation is
// scoped to the requesting owner.
type QueryUseCase struct {
	repo interfaces.Repository
}

func NewQueryUseCase(repo interfaces.Repository) *QueryUseCase {
	return &QueryUseCase{repo: repo}
}

// ListRecent returns the owner's newest notes, newest first. The limit is
// clamped by the repository.
func (uc *QueryUseCase) ListRecent(ctx context.Context, owner types.OwnerID, limit int) ([]*model.Note, error) {
	notes, err := uc.repo.Note().ListRecent(ctx, owner, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes", goerr.V(OwnerIDKey, owner))
	}
	return notes, nil
}

// ListWindow returns the owner's notes created within the past span,
// newest first.
func (uc *QueryUseCase) ListWindow(ctx context.Context, owner types.OwnerID, span time.Duration) ([]*model.Note, error) {
	since := time.Now().Add(-span)
	notes, err := uc.repo.Note().ListSince(ctx, owner, since)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes in window", goerr.V(OwnerIDKey, owner))
	}
	return notes, nil
}

// GetEntry resolves a raw reference string (case-insensitive, surrounding
// whitespace ignored) to the owner's note.
func (uc *QueryUseCase) GetEntry(ctx context.Context, owner types.OwnerID, rawRef string) (*model.Note, error) {
	ref, err := types.ParseReferenceID(rawRef)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidReference, rawRef)
	}

	note, err := uc.repo.Note().GetByReference(ctx, owner, ref)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNoteNotFound, "no such entry", goerr.V(ReferenceIDKey, ref))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V(ReferenceIDKey, ref))
	}

	return note, nil
}

// Random returns one uniformly chosen note of the owner.
func (uc *QueryUseCase) Random(ctx context.Context, owner types.OwnerID) (*model.Note, error) {
	note, err := uc.repo.Note().GetRandom(ctx, owner)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNoteNotFound, "owner has no entries", goerr.V(OwnerIDKey, owner))
		}
		return nil, goerr.Wrap(err, "failed to get random note", goerr.V(OwnerIDKey, owner))
	}
	return note, nil
}

// Delete permanently removes the owner's note. The reference ID is never
// reused afterward. Returns ErrNoteNotFound when no matching note exists.
func (uc *QueryUseCase) Delete(ctx context.Context, owner types.OwnerID, rawRef string) (types.ReferenceID, error) {
	ref, err := types.ParseReferenceID(rawRef)
	if err != nil {
		return "", goerr.Wrap(ErrInvalidReference, rawRef)
	}

	deleted, err := uc.repo.Note().Delete(ctx, owner, ref)
	if err != nil {
		return "", goerr.Wrap(err, "failed to delete note", goerr.V(ReferenceIDKey, ref))
	}
	if !deleted {
		return "", goerr.Wrap(ErrNoteNotFound, "no such entry", goerr.V(ReferenceIDKey, ref))
	}

	return ref, nil
}
