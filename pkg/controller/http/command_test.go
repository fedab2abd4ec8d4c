package http_test

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	controller "github.com/secmon-lab/mnemosyne/pkg/controller/http"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/repository/memory"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
)

// commandMessenger records messages posted from background review delivery.
type commandMessenger struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
}

func newCommandMessenger() *commandMessenger {
	return &commandMessenger{done: make(chan struct{}, 8)}
}

func (m *commandMessenger) SendText(ctx context.Context, channelID, content string) (interfaces.MessageHandle, error) {
	m.mu.Lock()
	m.sent = append(m.sent, content)
	m.mu.Unlock()
	m.done <- struct{}{}
	return interfaces.MessageHandle{ChannelID: channelID, Timestamp: "ts-1"}, nil
}

func (m *commandMessenger) EditText(ctx context.Context, handle interfaces.MessageHandle, content string) error {
	return nil
}

type stubReflector struct{}

func (stubReflector) Reflect(ctx context.Context, transcript string) string {
	return "reflection"
}

func (stubReflector) Summarize(ctx context.Context, transcripts []string, periodLabel string) string {
	return "review covering " + periodLabel
}

type commandEnv struct {
	srv       *controller.Server
	repo      interfaces.Repository
	messenger *commandMessenger
}

func newCommandEnv(t *testing.T) *commandEnv {
	t.Helper()

	repo := memory.New()
	messenger := newCommandMessenger()
	query := usecase.NewQueryUseCase(repo)
	review := usecase.NewReviewUseCase(repo, stubReflector{})

	commands := controller.NewSlackCommandHandler(query, review, messenger)
	srv := controller.New(
		controller.WithSlackWebhook(
			controller.NewSlackEventHandler(newMockIngester(), mockBot{}),
			commands,
			testSigningSecret,
		),
	)

	return &commandEnv{srv: srv, repo: repo, messenger: messenger}
}

func (e *commandEnv) seed(t *testing.T, owner types.OwnerID, transcripts ...string) []*model.Note {
	t.Helper()

	notes := make([]*model.Note, 0, len(transcripts))
	for _, tr := range transcripts {
		created, err := e.repo.Note().Create(context.Background(), &model.Note{
			OwnerID:    owner,
			Transcript: tr,
			Reflection: "reflection for " + tr,
		})
		gt.NoError(t, err).Required()
		notes = append(notes, created)
	}
	return notes
}

// runCommand posts a signed slash command and returns the response text.
func (e *commandEnv) runCommand(t *testing.T, userID, text string) string {
	t.Helper()

	form := url.Values{}
	form.Set("command", "/journal")
	form.Set("text", text)
	form.Set("user_id", userID)
	form.Set("channel_id", "C900")
	body := []byte(form.Encode())

	req := httptest.NewRequest(nethttp.MethodPost, "/hooks/slack/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	signRequest(req, body, testSigningSecret, time.Now().Unix())

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(nethttp.StatusOK)

	var payload struct {
		ResponseType string `json:"response_type"`
		Text         string `json:"text"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload)).Required()
	return payload.Text
}

func TestCommandHistory(t *testing.T) {
	env := newCommandEnv(t)
	env.seed(t, "U1", "first note", "second note")
	env.seed(t, "U2", "someone else's note")

	text := env.runCommand(t, "U1", "history")
	gt.Bool(t, strings.Contains(text, "NOTE1")).True()
	gt.Bool(t, strings.Contains(text, "NOTE2")).True()
	gt.Bool(t, strings.Contains(text, "first note")).True()
	gt.Bool(t, strings.Contains(text, "someone else's note")).False()
}

func TestCommandHistoryEmpty(t *testing.T) {
	env := newCommandEnv(t)

	text := env.runCommand(t, "U1", "history")
	gt.Bool(t, strings.Contains(text, "No entries found")).True()
}

func TestCommandEntry(t *testing.T) {
	env := newCommandEnv(t)
	notes := env.seed(t, "U1", "the full transcript")

	t.Run("found", func(t *testing.T) {
		text := env.runCommand(t, "U1", "entry "+string(notes[0].ReferenceID))
		gt.Bool(t, strings.Contains(text, "the full transcript")).True()
		gt.Bool(t, strings.Contains(text, "reflection for the full transcript")).True()
	})

	t.Run("case-insensitive lookup", func(t *testing.T) {
		text := env.runCommand(t, "U1", "entry note1")
		gt.Bool(t, strings.Contains(text, "the full transcript")).True()
	})

	t.Run("not found", func(t *testing.T) {
		text := env.runCommand(t, "U1", "entry NOTE99")
		gt.Bool(t, strings.Contains(text, "couldn't find")).True()
	})

	t.Run("malformed reference", func(t *testing.T) {
		text := env.runCommand(t, "U1", "entry banana")
		gt.Bool(t, strings.Contains(text, "doesn't look like an entry reference")).True()
	})

	t.Run("other owner's entry is hidden", func(t *testing.T) {
		text := env.runCommand(t, "U2", "entry "+string(notes[0].ReferenceID))
		gt.Bool(t, strings.Contains(text, "couldn't find")).True()
	})
}

func TestCommandRandom(t *testing.T) {
	env := newCommandEnv(t)
	env.seed(t, "U1", "only one")

	text := env.runCommand(t, "U1", "random")
	gt.Bool(t, strings.Contains(text, "only one")).True()
}

func TestCommandWeekly(t *testing.T) {
	env := newCommandEnv(t)
	env.seed(t, "U1", "note in window")

	text := env.runCommand(t, "U1", "weekly")
	gt.Bool(t, strings.Contains(text, "past week")).True()
	gt.Bool(t, strings.Contains(text, "note in window")).True()
}

func TestCommandDelete(t *testing.T) {
	env := newCommandEnv(t)
	notes := env.seed(t, "U1", "delete me")
	ref := string(notes[0].ReferenceID)

	text := env.runCommand(t, "U1", "delete "+ref)
	gt.Bool(t, strings.Contains(text, "Deleted "+ref)).True()

	text = env.runCommand(t, "U1", "delete "+ref)
	gt.Bool(t, strings.Contains(text, "couldn't find")).True()
}

func TestCommandReview(t *testing.T) {
	env := newCommandEnv(t)
	env.seed(t, "U1", "something happened today")

	text := env.runCommand(t, "U1", "review_today")
	gt.Bool(t, strings.Contains(text, "Generating your review")).True()

	select {
	case <-env.messenger.done:
	case <-time.After(2 * time.Second):
		t.Fatal("review was not delivered")
	}

	env.messenger.mu.Lock()
	defer env.messenger.mu.Unlock()
	gt.Array(t, env.messenger.sent).Length(1)
	gt.Bool(t, strings.Contains(env.messenger.sent[0], "review covering today")).True()
}

func TestCommandHelpAndUnknown(t *testing.T) {
	env := newCommandEnv(t)

	help := env.runCommand(t, "U1", "help")
	gt.Bool(t, strings.Contains(help, "voice note")).True()

	unknown := env.runCommand(t, "U1", "frobnicate")
	gt.Bool(t, strings.Contains(unknown, `Unknown command "frobnicate"`)).True()
}

func TestCommandOwnerAllowList(t *testing.T) {
	repo := memory.New()
	messenger := newCommandMessenger()
	commands := controller.NewSlackCommandHandler(
		usecase.NewQueryUseCase(repo),
		usecase.NewReviewUseCase(repo, stubReflector{}),
		messenger,
		controller.WithCommandAllowedOwners([]string{"U1"}),
	)
	srv := controller.New(
		controller.WithSlackWebhook(
			controller.NewSlackEventHandler(newMockIngester(), mockBot{}),
			commands,
			testSigningSecret,
		),
	)
	env := &commandEnv{srv: srv, repo: repo, messenger: messenger}
	env.seed(t, "U2", "a note U2 cannot reach")

	denied := env.runCommand(t, "U2", "history")
	gt.Value(t, denied).Equal("Sorry, this bot is restricted to specific users.")

	allowed := env.runCommand(t, "U1", "history")
	gt.Bool(t, strings.Contains(allowed, "No entries found")).True()
}
