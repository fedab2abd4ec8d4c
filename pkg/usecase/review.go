package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// ReviewUseCase generates LLM summaries over a time window of the owner's
// notes.
type ReviewUseCase struct {
	repo      interfaces.Repository
	reflector interfaces.Reflector
	loc       *time.Location
}

type ReviewOption func(*ReviewUseCase)

// WithLocation sets the time zone used to find "today's" midnight boundary.
func WithLocation(loc *time.Location) ReviewOption {
	return func(uc *ReviewUseCase) {
		uc.loc = loc
	}
}

func NewReviewUseCase(repo interfaces.Repository, reflector interfaces.Reflector, opts ...ReviewOption) *ReviewUseCase {
	uc := &ReviewUseCase{
		repo:      repo,
		reflector: reflector,
		loc:       time.Local,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ReviewToday summarizes the owner's notes created since local midnight.
func (uc *ReviewUseCase) ReviewToday(ctx context.Context, owner types.OwnerID) (string, error) {
	now := time.Now().In(uc.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, uc.loc)

	return uc.review(ctx, owner, midnight, "today")
}

// ReviewWeek summarizes the owner's notes from the past seven days.
func (uc *ReviewUseCase) ReviewWeek(ctx context.Context, owner types.OwnerID) (string, error) {
	since := time.Now().Add(-7 * 24 * time.Hour)

	return uc.review(ctx, owner, since, "the past week")
}

func (uc *ReviewUseCase) review(ctx context.Context, owner types.OwnerID, since time.Time, periodLabel string) (string, error) {
	notes, err := uc.repo.Note().ListSince(ctx, owner, since)
	if err != nil {
		return "", goerr.Wrap(err, "failed to list notes for review",
			goerr.V(OwnerIDKey, owner),
			goerr.V("since", since),
		)
	}

	// ListSince is newest-first; the review reads entries in the order they
	// were recorded.
	transcripts := make([]string, 0, len(notes))
	for i := len(notes) - 1; i >= 0; i-- {
		transcripts = append(transcripts, noteTranscript(notes[i]))
	}

	return uc.reflector.Summarize(ctx, transcripts, periodLabel), nil
}

// noteTranscript includes the reference ID so the review can point the
// user back at individual entries.
func noteTranscript(n *model.Note) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", n.Transcript, n.ReferenceID)
}
