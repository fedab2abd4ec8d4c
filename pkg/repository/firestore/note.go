package firestore

import (
	"context"
	"math/rand"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type noteRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newNoteRepository(client *firestore.Client) *noteRepository {
	return &noteRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *noteRepository) notesCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_notes"
	}
	return "notes"
}

func (r *noteRepository) counterCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_counters"
	}
	return "counters"
}

func (r *noteRepository) noteCounterDoc() string {
	return "note_counter"
}

// getNextSeq atomically increments the note counter. The transaction makes
// concurrent Create calls observe distinct values, so reference IDs cannot
// collide. A sequence consumed by a failed Create is burned, never reused.
func (r *noteRepository) getNextSeq(ctx context.Context) (int64, error) {
	counterRef := r.client.Collection(r.counterCollection()).Doc(r.noteCounterDoc())

	var nextSeq int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				nextSeq = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": nextSeq,
				})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		currentValue, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}

		val, ok := currentValue.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
		}
		nextSeq = val + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: nextSeq},
		})
	})

	if err != nil {
		return 0, goerr.Wrap(err, "failed to get next sequence")
	}

	return nextSeq, nil
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	seq, err := r.getNextSeq(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to allocate note sequence")
	}

	created := note.Clone()
	created.Seq = seq
	created.ReferenceID = types.NewReferenceID(seq)
	created.CreatedAt = time.Now().UTC()

	docRef := r.client.Collection(r.notesCollection()).Doc(created.ReferenceID.String())

	// Doc.Create (not Set) enforces the uniqueness of the reference ID as a
	// hard constraint even if the counter were ever reset.
	if _, err := docRef.Create(ctx, created); err != nil {
		return nil, goerr.Wrap(err, "failed to create note",
			goerr.V("reference_id", created.ReferenceID),
		)
	}

	return created, nil
}

func (r *noteRepository) GetByReference(ctx context.Context, owner types.OwnerID, ref types.ReferenceID) (*model.Note, error) {
	docSnap, err := r.client.Collection(r.notesCollection()).Doc(ref.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("reference_id", ref))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("reference_id", ref))
	}

	var n model.Note
	if err := docSnap.DataTo(&n); err != nil {
		return nil, goerr.Wrap(err, "failed to decode note", goerr.V("reference_id", ref))
	}

	// Owner scoping: a guessed reference ID of another owner behaves
	// exactly like a missing note.
	if n.OwnerID != owner {
		return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("reference_id", ref))
	}

	return &n, nil
}

func (r *noteRepository) queryOwned(owner types.OwnerID) firestore.Query {
	return r.client.Collection(r.notesCollection()).
		Where("owner_id", "==", owner.String()).
		OrderBy("created_at", firestore.Desc).
		OrderBy("seq", firestore.Desc)
}

func (r *noteRepository) collectNotes(ctx context.Context, q firestore.Query) ([]*model.Note, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var notes []*model.Note
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notes")
		}

		var n model.Note
		if err := docSnap.DataTo(&n); err != nil {
			return nil, goerr.Wrap(err, "failed to decode note", goerr.V("doc_id", docSnap.Ref.ID))
		}

		notes = append(notes, &n)
	}

	return notes, nil
}

func (r *noteRepository) ListRecent(ctx context.Context, owner types.OwnerID, limit int) ([]*model.Note, error) {
	if limit <= 0 || limit > interfaces.MaxListLimit {
		limit = interfaces.MaxListLimit
	}

	return r.collectNotes(ctx, r.queryOwned(owner).Limit(limit))
}

func (r *noteRepository) GetRandom(ctx context.Context, owner types.OwnerID) (*model.Note, error) {
	notes, err := r.collectNotes(ctx, r.queryOwned(owner))
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "owner has no notes", goerr.V("owner_id", owner))
	}

	return notes[rand.Intn(len(notes))], nil
}

func (r *noteRepository) ListSince(ctx context.Context, owner types.OwnerID, since time.Time) ([]*model.Note, error) {
	q := r.queryOwned(owner).Where("created_at", ">=", since.UTC())
	return r.collectNotes(ctx, q)
}

func (r *noteRepository) Delete(ctx context.Context, owner types.OwnerID, ref types.ReferenceID) (bool, error) {
	docRef := r.client.Collection(r.notesCollection()).Doc(ref.String())

	// The existence check and the delete run in one transaction so
	// concurrent deletes of the same reference report true exactly once.
	deleted := false
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Reset on retry.
		deleted = false

		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return goerr.Wrap(err, "failed to check note existence")
		}

		var n model.Note
		if err := docSnap.DataTo(&n); err != nil {
			return goerr.Wrap(err, "failed to decode note")
		}
		if n.OwnerID != owner {
			return nil
		}

		if err := tx.Delete(docRef); err != nil {
			return goerr.Wrap(err, "failed to delete note")
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete note", goerr.V("reference_id", ref))
	}

	return deleted, nil
}
