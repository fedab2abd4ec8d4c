package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/service/slack"
	slackgo "github.com/slack-go/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func TestSendAndEdit(t *testing.T) {
	var posted, updated bool

	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		posted = true
		gt.NoError(t, r.ParseForm()).Required()
		gt.Value(t, r.Form.Get("channel")).Equal("C123")
		gt.Value(t, r.Form.Get("text")).Equal("hello")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"channel": "C123",
			"ts":      "1700000000.000100",
		})
	})
	mux.HandleFunc("/chat.update", func(w http.ResponseWriter, r *http.Request) {
		updated = true
		gt.NoError(t, r.ParseForm()).Required()
		gt.Value(t, r.Form.Get("channel")).Equal("C123")
		gt.Value(t, r.Form.Get("ts")).Equal("1700000000.000100")
		gt.Value(t, r.Form.Get("text")).Equal("updated")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"channel": "C123",
			"ts":      "1700000000.000100",
			"text":    "updated",
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, err := slack.New("test-token", slackgo.OptionAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()

	ctx := context.Background()

	handle, err := svc.SendText(ctx, "C123", "hello")
	gt.NoError(t, err).Required()
	gt.Value(t, handle.ChannelID).Equal("C123")
	gt.Value(t, handle.Timestamp).Equal("1700000000.000100")
	gt.Bool(t, posted).True()

	gt.NoError(t, svc.EditText(ctx, handle, "updated")).Required()
	gt.Bool(t, updated).True()
}

func TestGetBotUserID(t *testing.T) {
	calls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"user_id": "UBOT42",
			"user":    "mnemosyne",
			"team_id": "T001",
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, err := slack.New("test-token", slackgo.OptionAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()

	ctx := context.Background()

	id, err := svc.GetBotUserID(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, id).Equal("UBOT42")

	// Second call is served from cache.
	id, err = svc.GetBotUserID(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, id).Equal("UBOT42")
	gt.Value(t, calls).Equal(1)
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	channelID := os.Getenv("TEST_SLACK_CHANNEL_ID")
	if token == "" || channelID == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN and TEST_SLACK_CHANNEL_ID are not set")
	}

	ctx := context.Background()

	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	handle, err := svc.SendText(ctx, channelID, "integration test message")
	gt.NoError(t, err).Required()
	gt.String(t, handle.Timestamp).NotEqual("")

	gt.NoError(t, svc.EditText(ctx, handle, "integration test message (edited)"))
}
