package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/repository/memory"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
)

func TestHandleVoiceEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("full pipeline persists and delivers", func(t *testing.T) {
		repo := memory.New()
		messenger := newMockMessenger()
		tempDir := t.TempDir()

		uc := usecase.NewIngestUseCase(
			repo,
			&mockTranscriber{text: "I finished the report today."},
			&mockReflector{},
			messenger,
			&mockAudioSource{data: []byte("ogg-bytes")},
			usecase.WithTempDir(tempDir),
		)

		result := uc.HandleVoiceEvent(ctx, voiceEvent())
		gt.NoError(t, result.Err).Required()
		gt.Value(t, result.FailedStage).Equal(types.Stage(""))
		gt.Value(t, result.Parts).Equal(1)
		gt.Value(t, result.Note).NotNil()
		gt.Value(t, result.Note.ReferenceID).Equal(types.ReferenceID("NOTE1"))

		// The stored note carries both transcript and reflection.
		stored, err := repo.Note().GetByReference(ctx, "U100", result.Note.ReferenceID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Transcript).Equal("I finished the report today.")
		gt.Value(t, stored.Reflection).Equal("reflection on: I finished the report today.")
		gt.Value(t, stored.AudioDuration).Equal(12.5)
		gt.Value(t, stored.SourceFileID).Equal("F100")

		// The status message now shows the final result.
		final := messenger.lastContent()
		gt.Array(t, final).Length(1)
		gt.Bool(t, strings.Contains(final[0], "NOTE1")).True()
		gt.Bool(t, strings.Contains(final[0], "I finished the report today.")).True()
		gt.Bool(t, strings.Contains(final[0], "reflection on:")).True()

		// The downloaded audio was cleaned up.
		entries, err := os.ReadDir(tempDir)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(0)
	})

	t.Run("long result is delivered in labeled parts", func(t *testing.T) {
		repo := memory.New()
		messenger := newMockMessenger()

		// Roughly 10k characters of transcript, several times the
		// transport limit once the reflection is added.
		transcript := strings.Repeat("every sentence here is medium length. ", 270)
		uc := usecase.NewIngestUseCase(
			repo,
			&mockTranscriber{text: transcript},
			&mockReflector{},
			messenger,
			&mockAudioSource{data: []byte("ogg-bytes")},
			usecase.WithTempDir(t.TempDir()),
		)

		result := uc.HandleVoiceEvent(ctx, voiceEvent())
		gt.NoError(t, result.Err).Required()
		gt.Number(t, result.Parts).Greater(1)

		final := messenger.lastContent()
		gt.Array(t, final).Length(result.Parts)

		stripped := make([]string, 0, len(final))
		for i, part := range final {
			gt.Number(t, len([]rune(part))).LessOrEqual(interfaces.MaxMessageLength)
			label := fmt.Sprintf(" (part %d/%d)", i+1, result.Parts)
			gt.Bool(t, strings.HasSuffix(part, label)).True()
			stripped = append(stripped, strings.TrimSuffix(part, label))
		}

		// Stripping the labels and rejoining the parts reproduces the full
		// note, whitespace normalized at split points.
		want := fmt.Sprintf("📝 %s\n\nTranscription:\n%s\n\nReflection:\nreflection on: %s",
			result.Note.ReferenceID, transcript, transcript)
		gt.Value(t, stripSeparators(strings.Join(stripped, " "))).
			Equal(stripSeparators(want))
	})

	t.Run("download failure reports without persisting", func(t *testing.T) {
		repo := memory.New()
		messenger := newMockMessenger()

		uc := usecase.NewIngestUseCase(
			repo,
			&mockTranscriber{text: "unused"},
			&mockReflector{},
			messenger,
			&mockAudioSource{err: errors.New("fetch failed")},
			usecase.WithTempDir(t.TempDir()),
		)

		result := uc.HandleVoiceEvent(ctx, voiceEvent())
		gt.Value(t, result.FailedStage).Equal(types.StageDownloaded)
		gt.Bool(t, errors.Is(result.Err, usecase.ErrDownloadFailed)).True()
		gt.Value(t, result.Note).Nil()

		_, err := repo.Note().GetRandom(ctx, "U100")
		gt.Error(t, err)

		final := messenger.lastContent()
		gt.Array(t, final).Length(1)
		gt.Bool(t, strings.Contains(final[0], "couldn't download")).True()
	})

	t.Run("transcription failure reports without persisting", func(t *testing.T) {
		repo := memory.New()
		messenger := newMockMessenger()

		uc := usecase.NewIngestUseCase(
			repo,
			&mockTranscriber{err: errors.New("whisper unavailable")},
			&mockReflector{},
			messenger,
			&mockAudioSource{data: []byte("ogg-bytes")},
			usecase.WithTempDir(t.TempDir()),
		)

		result := uc.HandleVoiceEvent(ctx, voiceEvent())
		gt.Value(t, result.FailedStage).Equal(types.StageTranscribed)
		gt.Bool(t, errors.Is(result.Err, usecase.ErrTranscriptionFailed)).True()
		gt.Value(t, result.Note).Nil()

		final := messenger.lastContent()
		gt.Array(t, final).Length(1)
		gt.Bool(t, strings.Contains(final[0], "couldn't transcribe")).True()
	})

	t.Run("empty transcription is a transcription failure", func(t *testing.T) {
		uc := usecase.NewIngestUseCase(
			memory.New(),
			&mockTranscriber{text: "   "},
			&mockReflector{},
			newMockMessenger(),
			&mockAudioSource{data: []byte("ogg-bytes")},
			usecase.WithTempDir(t.TempDir()),
		)

		result := uc.HandleVoiceEvent(ctx, voiceEvent())
		gt.Value(t, result.FailedStage).Equal(types.StageTranscribed)
		gt.Bool(t, errors.Is(result.Err, usecase.ErrTranscriptionFailed)).True()
	})

	t.Run("persistence failure still delivers the content", func(t *testing.T) {
		messenger := newMockMessenger()

		uc := usecase.NewIngestUseCase(
			&failingCreateRepo{Repository: memory.New()},
			&mockTranscriber{text: "words that must not be lost"},
			&mockReflector{},
			messenger,
			&mockAudioSource{data: []byte("ogg-bytes")},
			usecase.WithTempDir(t.TempDir()),
		)

		result := uc.HandleVoiceEvent(ctx, voiceEvent())
		gt.Value(t, result.FailedStage).Equal(types.StagePersisted)
		gt.Bool(t, errors.Is(result.Err, usecase.ErrPersistenceFailed)).True()
		gt.Value(t, result.Note).Nil()

		final := messenger.lastContent()
		gt.Array(t, final).Length(1)
		gt.Bool(t, strings.Contains(final[0], "words that must not be lost")).True()
		gt.Bool(t, strings.Contains(final[0], "couldn't save")).True()
	})

	t.Run("delivery failure keeps the persisted note", func(t *testing.T) {
		repo := memory.New()
		messenger := newMockMessenger()
		messenger.failSend = true
		messenger.failEdit = true

		uc := usecase.NewIngestUseCase(
			repo,
			&mockTranscriber{text: "note content"},
			&mockReflector{},
			messenger,
			&mockAudioSource{data: []byte("ogg-bytes")},
			usecase.WithTempDir(t.TempDir()),
		)

		result := uc.HandleVoiceEvent(ctx, voiceEvent())
		gt.Value(t, result.FailedStage).Equal(types.StageDelivered)
		gt.Bool(t, errors.Is(result.Err, usecase.ErrDeliveryFailed)).True()
		gt.Value(t, result.Note).NotNil()

		stored, err := repo.Note().GetByReference(ctx, "U100", result.Note.ReferenceID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Transcript).Equal("note content")
	})
}

// stripSeparators removes whitespace so reassembled fragments can be
// compared against the original content regardless of split-point
// normalization.
func stripSeparators(s string) string {
	for _, sep := range []string{"\n", " "} {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}
