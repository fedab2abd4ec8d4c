package usecase

import (
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
)

// UseCases aggregates the application's use case layer.
type UseCases struct {
	repo       interfaces.Repository
	ingestOpts []IngestOption
	reviewOpts []ReviewOption

	Ingest *IngestUseCase
	Query  *QueryUseCase
	Review *ReviewUseCase
}

type Option func(*UseCases)

func WithIngestOptions(opts ...IngestOption) Option {
	return func(uc *UseCases) {
		uc.ingestOpts = append(uc.ingestOpts, opts...)
	}
}

func WithReviewOptions(opts ...ReviewOption) Option {
	return func(uc *UseCases) {
		uc.reviewOpts = append(uc.reviewOpts, opts...)
	}
}

func New(
	repo interfaces.Repository,
	transcriber interfaces.Transcriber,
	reflector interfaces.Reflector,
	messenger interfaces.Messenger,
	audio interfaces.AudioSource,
	opts ...Option,
) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Ingest = NewIngestUseCase(repo, transcriber, reflector, messenger, audio, uc.ingestOpts...)
	uc.Query = NewQueryUseCase(repo)
	uc.Review = NewReviewUseCase(repo, reflector, uc.reviewOpts...)

	return uc
}
