package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/chunk"
	"github.com/secmon-lab/mnemosyne/pkg/utils/errutil"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"github.com/secmon-lab/mnemosyne/pkg/utils/safe"
	"github.com/secmon-lab/mnemosyne/pkg/utils/telemetry"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentIngests bounds how many voice notes are processed at
// once. Transcription holds an open file and an outbound API call, so the
// bound keeps memory and rate limits predictable.
const DefaultMaxConcurrentIngests = 4

// partSuffixReserve is the room kept in each fragment for the " (part i/n)"
// label appended when delivery needs multiple messages.
const partSuffixReserve = 16

// IngestResult reports the outcome of one pipeline run. FailedStage is
// empty on full success; when set, Err describes the failure. Note is
// non-nil whenever a note was persisted, even if delivery failed afterward.
type IngestResult struct {
	Note        *model.Note
	Parts       int
	FailedStage types.Stage
	Err         error
}

// IngestUseCase runs the ingestion pipeline: download the audio, transcribe
// it, generate a reflection, persist the note, and deliver the result in
// order-preserving chunks.
type IngestUseCase struct {
	repo        interfaces.Repository
	transcriber interfaces.Transcriber
	reflector   interfaces.Reflector
	messenger   interfaces.Messenger
	audio       interfaces.AudioSource
	archiver    interfaces.Archiver
	recorder    *telemetry.StageRecorder

	sem          *semaphore.Weighted
	tempDir      string
	messageLimit int
}

func NewIngestUseCase(
	repo interfaces.Repository,
	transcriber interfaces.Transcriber,
	reflector interfaces.Reflector,
	messenger interfaces.Messenger,
	audio interfaces.AudioSource,
	opts ...IngestOption,
) *IngestUseCase {
	uc := &IngestUseCase{
		repo:         repo,
		transcriber:  transcriber,
		reflector:    reflector,
		messenger:    messenger,
		audio:        audio,
		sem:          semaphore.NewWeighted(DefaultMaxConcurrentIngests),
		tempDir:      os.TempDir(),
		messageLimit: interfaces.MaxMessageLength,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

type IngestOption func(*IngestUseCase)

// WithArchiver enables best-effort upload of the original audio after the
// note is persisted.
func WithArchiver(a interfaces.Archiver) IngestOption {
	return func(uc *IngestUseCase) {
		uc.archiver = a
	}
}

// WithStageRecorder enables per-stage duration metrics.
func WithStageRecorder(r *telemetry.StageRecorder) IngestOption {
	return func(uc *IngestUseCase) {
		uc.recorder = r
	}
}

// WithTempDir sets the directory for downloaded audio files.
func WithTempDir(dir string) IngestOption {
	return func(uc *IngestUseCase) {
		uc.tempDir = dir
	}
}

// WithMaxConcurrentIngests overrides the concurrent pipeline bound.
func WithMaxConcurrentIngests(n int64) IngestOption {
	return func(uc *IngestUseCase) {
		uc.sem = semaphore.NewWeighted(n)
	}
}

// WithMessageLimit overrides the per-message character limit for delivery.
// Used by tests.
func WithMessageLimit(n int) IngestOption {
	return func(uc *IngestUseCase) {
		uc.messageLimit = n
	}
}

// HandleVoiceEvent runs the full pipeline for one inbound voice note. It
// never returns an error: failures are reported to the user in the channel
// and summarized in the result.
func (uc *IngestUseCase) HandleVoiceEvent(ctx context.Context, event *model.VoiceEvent) *IngestResult {
	if err := uc.sem.Acquire(ctx, 1); err != nil {
		return &IngestResult{FailedStage: types.StageReceived, Err: goerr.Wrap(err, "ingestion cancelled")}
	}
	defer uc.sem.Release(1)

	logger := logging.From(ctx).With(
		"owner_id", event.OwnerID,
		"file_id", event.FileID,
	)
	ctx = logging.With(ctx, logger)

	logger.Info("voice note received", "duration_sec", event.Duration)

	// Status message for in-place progress edits. Losing it is not fatal;
	// the pipeline continues and delivery falls back to plain sends.
	status, err := uc.messenger.SendText(ctx, event.ChannelID, "🎙️ Got your voice note, transcribing...")
	if err != nil {
		logger.Warn("failed to post status message", "error", err.Error())
	}

	// Download
	audioPath, err := uc.timed(ctx, types.StageDownloaded, func() (string, error) {
		return uc.download(ctx, event.FileID)
	})
	if err != nil {
		return uc.fail(ctx, event, status, types.StageDownloaded,
			goerr.Wrap(ErrDownloadFailed, err.Error(), goerr.V(FileIDKey, event.FileID)),
			"⚠️ Sorry, I couldn't download your voice note. Please try sending it again.")
	}
	defer safe.Remove(ctx, audioPath)

	// Transcribe
	transcript, err := uc.timed(ctx, types.StageTranscribed, func() (string, error) {
		return uc.transcribe(ctx, audioPath)
	})
	if err != nil {
		return uc.fail(ctx, event, status, types.StageTranscribed,
			goerr.Wrap(ErrTranscriptionFailed, err.Error(), goerr.V(FileIDKey, event.FileID)),
			"⚠️ Sorry, I couldn't transcribe your voice note. Please try again.")
	}

	uc.progress(ctx, status, "✍️ Transcribed. Reflecting...")

	// Reflect. Never fails; degraded results embed the transcript.
	reflectStart := time.Now()
	reflection := uc.reflector.Reflect(ctx, transcript)
	uc.record(ctx, types.StageReflected, time.Since(reflectStart))

	// Persist
	note := &model.Note{
		OwnerID:       event.OwnerID,
		Transcript:    transcript,
		Reflection:    reflection,
		AudioDuration: event.Duration,
		SourceFileID:  event.FileID,
	}

	persistStart := time.Now()
	created, err := uc.repo.Note().Create(ctx, note)
	uc.record(ctx, types.StagePersisted, time.Since(persistStart))
	if err != nil {
		// The transcription already cost the user's words; deliver them
		// even though the note was not saved.
		errutil.Handle(ctx, goerr.Wrap(err, "create note", goerr.V(OwnerIDKey, event.OwnerID)), "failed to persist note")
		content := fmt.Sprintf("⚠️ I couldn't save this note, so it has no reference ID.\n\n%s",
			formatNoteBody(transcript, reflection))
		parts, _ := uc.deliver(ctx, event.ChannelID, status, content)
		return &IngestResult{
			Parts:       parts,
			FailedStage: types.StagePersisted,
			Err:         goerr.Wrap(ErrPersistenceFailed, err.Error()),
		}
	}

	logger.Info("note persisted", "reference_id", created.ReferenceID, "seq", created.Seq)

	uc.archive(ctx, created, audioPath)

	// Deliver
	content := fmt.Sprintf("📝 %s\n\n%s", created.ReferenceID, formatNoteBody(transcript, reflection))
	deliverStart := time.Now()
	parts, err := uc.deliver(ctx, event.ChannelID, status, content)
	uc.record(ctx, types.StageDelivered, time.Since(deliverStart))
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "deliver note",
			goerr.V(ReferenceIDKey, created.ReferenceID)), "failed to deliver note")
		return &IngestResult{
			Note:        created,
			Parts:       parts,
			FailedStage: types.StageDelivered,
			Err:         goerr.Wrap(ErrDeliveryFailed, err.Error()),
		}
	}

	logger.Info("voice note ingested", "reference_id", created.ReferenceID, "parts", parts)

	return &IngestResult{Note: created, Parts: parts}
}

// download fetches the audio artifact into a temp file and returns its path.
func (uc *IngestUseCase) download(ctx context.Context, fileID string) (string, error) {
	r, err := uc.audio.Fetch(ctx, fileID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to fetch audio")
	}
	defer safe.Close(ctx, r)

	path := filepath.Join(uc.tempDir, fmt.Sprintf("voice_%s.ogg", uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create temp file", goerr.V("path", path))
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		safe.Remove(ctx, path)
		return "", goerr.Wrap(err, "failed to write audio", goerr.V("path", path))
	}
	if err := f.Close(); err != nil {
		safe.Remove(ctx, path)
		return "", goerr.Wrap(err, "failed to close audio file", goerr.V("path", path))
	}

	return path, nil
}

func (uc *IngestUseCase) transcribe(ctx context.Context, path string) (string, error) {
	text, err := uc.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", goerr.New("transcription returned no text")
	}
	return text, nil
}

// archive uploads the original audio. Failures are logged, never fatal.
func (uc *IngestUseCase) archive(ctx context.Context, note *model.Note, audioPath string) {
	if uc.archiver == nil {
		return
	}

	f, err := os.Open(audioPath)
	if err != nil {
		logging.From(ctx).Warn("failed to open audio for archive", "error", err.Error())
		return
	}
	defer safe.Close(ctx, f)

	obj, err := uc.archiver.Store(ctx, note.OwnerID, note.ReferenceID, f)
	if err != nil {
		logging.From(ctx).Warn("failed to archive audio",
			"reference_id", note.ReferenceID,
			"error", err.Error())
		return
	}

	logging.From(ctx).Debug("audio archived", "object", obj)
}

// deliver splits content to fit the message limit and sends every fragment
// in order. The first fragment replaces the status message when one exists.
// Returns how many fragments were delivered.
func (uc *IngestUseCase) deliver(ctx context.Context, channelID string, status interfaces.MessageHandle, content string) (int, error) {
	parts := chunk.Split(content, uc.messageLimit)
	if len(parts) > 1 {
		// Re-split with headroom so the part label never pushes a fragment
		// over the limit.
		limit := uc.messageLimit - partSuffixReserve
		if limit < 1 {
			limit = 1
		}
		parts = chunk.Split(content, limit)
		for i := range parts {
			parts[i] = fmt.Sprintf("%s (part %d/%d)", parts[i], i+1, len(parts))
		}
	}

	delivered := 0
	for i, part := range parts {
		if i == 0 && status.Timestamp != "" {
			if err := uc.messenger.EditText(ctx, status, part); err == nil {
				delivered++
				continue
			}
			// Fall through to a plain send when the edit fails.
		}

		if _, err := uc.messenger.SendText(ctx, channelID, part); err != nil {
			return delivered, goerr.Wrap(err, "failed to send fragment",
				goerr.V("part", i+1),
				goerr.V("total", len(parts)))
		}
		delivered++
	}

	return delivered, nil
}

// fail reports a pipeline failure to the user and builds the result.
func (uc *IngestUseCase) fail(ctx context.Context, event *model.VoiceEvent, status interfaces.MessageHandle, stage types.Stage, err error, userMessage string) *IngestResult {
	errutil.Handle(ctx, err, "voice note ingestion failed")
	uc.record(ctx, types.StageFailed, 0)

	if status.Timestamp != "" {
		if editErr := uc.messenger.EditText(ctx, status, userMessage); editErr == nil {
			return &IngestResult{FailedStage: stage, Err: err}
		}
	}
	if _, sendErr := uc.messenger.SendText(ctx, event.ChannelID, userMessage); sendErr != nil {
		logging.From(ctx).Error("failed to report pipeline failure to user", "error", sendErr.Error())
	}

	return &IngestResult{FailedStage: stage, Err: err}
}

func (uc *IngestUseCase) progress(ctx context.Context, status interfaces.MessageHandle, text string) {
	if status.Timestamp == "" {
		return
	}
	if err := uc.messenger.EditText(ctx, status, text); err != nil {
		logging.From(ctx).Warn("failed to update status message", "error", err.Error())
	}
}

// timed runs fn and records its duration under the given stage.
func (uc *IngestUseCase) timed(ctx context.Context, stage types.Stage, fn func() (string, error)) (string, error) {
	start := time.Now()
	out, err := fn()
	uc.record(ctx, stage, time.Since(start))
	return out, err
}

func (uc *IngestUseCase) record(ctx context.Context, stage types.Stage, elapsed time.Duration) {
	if uc.recorder == nil {
		return
	}
	uc.recorder.Record(ctx, stage, elapsed)
}

func formatNoteBody(transcript, reflection string) string {
	return fmt.Sprintf("Transcription:\n%s\n\nReflection:\n%s", transcript, reflection)
}
