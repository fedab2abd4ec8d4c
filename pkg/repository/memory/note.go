package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

type noteRepository struct {
	mu sync.RWMutex

	// notes is keyed by reference ID; owner scoping is applied on read.
	notes map[types.ReferenceID]*model.Note

	// nextSeq is the creation counter. It only ever increases, so
	// reference IDs are never reused even after deletion.
	nextSeq int64

	// now stamps CreatedAt; replaceable so tests can backdate notes.
	now func() time.Time
}

func newNoteRepository() *noteRepository {
	return &noteRepository{
		notes:   make(map[types.ReferenceID]*model.Note),
		nextSeq: 1,
		now:     time.Now,
	}
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := note.Clone()
	created.Seq = r.nextSeq
	created.ReferenceID = types.NewReferenceID(created.Seq)
	created.CreatedAt = r.now().UTC()
	r.nextSeq++

	r.notes[created.ReferenceID] = created
	return created.Clone(), nil
}

func (r *noteRepository) GetByReference(ctx context.Context, owner types.OwnerID, ref types.ReferenceID) (*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notes[ref]
	if !exists || n.OwnerID != owner {
		return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("reference_id", ref))
	}

	return n.Clone(), nil
}

// ownedLocked returns the owner's notes ordered by CreatedAt descending,
// ties broken by Seq descending. Caller must hold at least a read lock.
func (r *noteRepository) ownedLocked(owner types.OwnerID) []*model.Note {
	var owned []*model.Note
	for _, n := range r.notes {
		if n.OwnerID == owner {
			owned = append(owned, n)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].Seq > owned[j].Seq
	})

	return owned
}

func (r *noteRepository) ListRecent(ctx context.Context, owner types.OwnerID, limit int) ([]*model.Note, error) {
	if limit <= 0 || limit > interfaces.MaxListLimit {
		limit = interfaces.MaxListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := r.ownedLocked(owner)
	if len(owned) > limit {
		owned = owned[:limit]
	}

	result := make([]*model.Note, 0, len(owned))
	for _, n := range owned {
		result = append(result, n.Clone())
	}
	return result, nil
}

func (r *noteRepository) GetRandom(ctx context.Context, owner types.OwnerID) (*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := r.ownedLocked(owner)
	if len(owned) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "owner has no notes", goerr.V("owner_id", owner))
	}

	return owned[rand.Intn(len(owned))].Clone(), nil
}

func (r *noteRepository) ListSince(ctx context.Context, owner types.OwnerID, since time.Time) ([]*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Note
	for _, n := range r.ownedLocked(owner) {
		if n.CreatedAt.Before(since) {
			continue
		}
		result = append(result, n.Clone())
	}
	return result, nil
}

func (r *noteRepository) Delete(ctx context.Context, owner types.OwnerID, ref types.ReferenceID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, exists := r.notes[ref]
	if !exists || n.OwnerID != owner {
		return false, nil
	}

	delete(r.notes, ref)
	return true, nil
}
