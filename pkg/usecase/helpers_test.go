package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

type mockReflector struct {
	reflectFn   func(ctx context.Context, transcript string) string
	summarizeFn func(ctx context.Context, transcripts []string, periodLabel string) string
}

func (m *mockReflector) Reflect(ctx context.Context, transcript string) string {
	if m.reflectFn != nil {
		return m.reflectFn(ctx, transcript)
	}
	return "reflection on: " + transcript
}

func (m *mockReflector) Summarize(ctx context.Context, transcripts []string, periodLabel string) string {
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, transcripts, periodLabel)
	}
	return fmt.Sprintf("summary of %d entries from %s", len(transcripts), periodLabel)
}

type sentMessage struct {
	ChannelID string
	Content   string
}

// mockMessenger records sends and edits. Edits are keyed by the timestamp
// of the edited message.
type mockMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	edits    map[string][]string
	failSend bool
	failEdit bool
	nextTS   int
}

func newMockMessenger() *mockMessenger {
	return &mockMessenger{edits: make(map[string][]string)}
}

func (m *mockMessenger) SendText(ctx context.Context, channelID, content string) (interfaces.MessageHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSend {
		return interfaces.MessageHandle{}, errors.New("send failed")
	}

	m.nextTS++
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, Content: content})
	return interfaces.MessageHandle{
		ChannelID: channelID,
		Timestamp: fmt.Sprintf("ts-%d", m.nextTS),
	}, nil
}

func (m *mockMessenger) EditText(ctx context.Context, handle interfaces.MessageHandle, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failEdit {
		return errors.New("edit failed")
	}

	m.edits[handle.Timestamp] = append(m.edits[handle.Timestamp], content)
	return nil
}

// lastContent returns the latest visible content of every message in
// delivery order, with edits applied.
func (m *mockMessenger) lastContent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for i, msg := range m.sent {
		ts := fmt.Sprintf("ts-%d", i+1)
		if edits := m.edits[ts]; len(edits) > 0 {
			out = append(out, edits[len(edits)-1])
			continue
		}
		out = append(out, msg.Content)
	}
	return out
}

type mockAudioSource struct {
	data []byte
	err  error
}

func (m *mockAudioSource) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// failingCreateRepo wraps a repository so Create always fails.
type failingCreateRepo struct {
	interfaces.Repository
}

func (r *failingCreateRepo) Note() interfaces.NoteRepository {
	return &failingCreateNotes{NoteRepository: r.Repository.Note()}
}

type failingCreateNotes struct {
	interfaces.NoteRepository
}

func (r *failingCreateNotes) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	return nil, errors.New("backend unavailable")
}

func voiceEvent() *model.VoiceEvent {
	return &model.VoiceEvent{
		OwnerID:   types.OwnerID("U100"),
		ChannelID: "C100",
		FileID:    "F100",
		Duration:  12.5,
		MessageID: "1700000000.000001",
	}
}
