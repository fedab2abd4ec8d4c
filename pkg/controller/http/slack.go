package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
	"github.com/secmon-lab/mnemosyne/pkg/utils/async"
	"github.com/secmon-lab/mnemosyne/pkg/utils/errutil"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"github.com/slack-go/slack/slackevents"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const slackBodyKey contextKey = "slack_body"

// verifySlackSignature verifies the Slack request signature
// This is a pure function that can be used independently for testing
func verifySlackSignature(signingSecret, timestamp, signature string, body []byte) error {
	if timestamp == "" {
		return goerr.New("missing timestamp")
	}

	if signature == "" {
		return goerr.New("missing signature")
	}

	// Check timestamp to prevent replay attacks (within 5 minutes)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return goerr.Wrap(err, "invalid timestamp")
	}

	now := time.Now().Unix()
	if now-ts > 60*5 {
		return goerr.New("timestamp too old", goerr.V("timestamp", timestamp), goerr.V("now", now))
	}

	// Compute expected signature
	baseString := fmt.Sprintf("v0:%s:%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(signingSecret))
	if _, err := mac.Write([]byte(baseString)); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	expectedSignature := "v0=" + hex.EncodeToString(mac.Sum(nil))

	// Compare signatures
	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return goerr.New("signature mismatch")
	}

	return nil
}

// SlackSignatureMiddleware creates a middleware that verifies Slack request signatures
func SlackSignatureMiddleware(signingSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}
			defer func() {
				if err := r.Body.Close(); err != nil {
					logging.From(ctx).Error("failed to close request body", "error", err)
				}
			}()

			timestamp := r.Header.Get("X-Slack-Request-Timestamp")
			signature := r.Header.Get("X-Slack-Signature")

			if err := verifySlackSignature(signingSecret, timestamp, signature, body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "slack signature verification failed"), http.StatusUnauthorized)
				return
			}

			// Store body in context for later use and restore it to the request
			ctx = context.WithValue(ctx, slackBodyKey, body)
			r.Body = io.NopCloser(bytes.NewBuffer(body))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// voiceIngester runs the ingestion pipeline for one inbound voice note.
type voiceIngester interface {
	HandleVoiceEvent(ctx context.Context, event *model.VoiceEvent) *usecase.IngestResult
}

// botIdentity reports the bot's own user ID so its uploads are ignored.
type botIdentity interface {
	GetBotUserID(ctx context.Context) (string, error)
}

// SlackEventHandler handles Slack Events API webhook requests. Voice note
// uploads are dispatched to the ingestion pipeline; everything else is
// acknowledged and dropped.
type SlackEventHandler struct {
	ingest voiceIngester
	bot    botIdentity
	gate   ownerGate
}

type EventOption func(*SlackEventHandler)

// WithEventAllowedOwners restricts ingestion to the given Slack user IDs.
// An empty list allows everyone.
func WithEventAllowedOwners(ids []string) EventOption {
	return func(h *SlackEventHandler) {
		h.gate = newOwnerGate(ids)
	}
}

func NewSlackEventHandler(ingest voiceIngester, bot botIdentity, opts ...EventOption) *SlackEventHandler {
	h := &SlackEventHandler{
		ingest: ingest,
		bot:    bot,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SlackEventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Read body (already verified by middleware)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slack event"), http.StatusBadRequest)
		return
	}

	switch eventsAPIEvent.Type {
	case slackevents.URLVerification:
		var resp *slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to unmarshal challenge"), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(resp.Challenge)); err != nil {
			logging.From(ctx).Error("failed to write challenge response", "error", err)
		}
		return

	case slackevents.CallbackEvent:
		// Return 200 immediately to satisfy Slack's 3-second timeout requirement
		w.WriteHeader(http.StatusOK)

		event := h.voiceEventFrom(ctx, &eventsAPIEvent)
		if event == nil {
			return
		}

		async.Dispatch(ctx, func(ctx context.Context) error {
			result := h.ingest.HandleVoiceEvent(ctx, event)
			if result.Err != nil {
				return goerr.Wrap(result.Err, "ingestion failed",
					goerr.V("stage", result.FailedStage))
			}
			return nil
		})

	default:
		logging.From(ctx).Warn("unknown slack event type", "type", eventsAPIEvent.Type)
		w.WriteHeader(http.StatusOK)
	}
}

// voiceEventFrom extracts a voice note upload from a callback event. Returns
// nil when the event is not an audio file share from a human user.
func (h *SlackEventHandler) voiceEventFrom(ctx context.Context, event *slackevents.EventsAPIEvent) *model.VoiceEvent {
	msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return nil
	}
	if msg.SubType != "file_share" || msg.BotID != "" {
		return nil
	}

	if botID, err := h.bot.GetBotUserID(ctx); err == nil && msg.User == botID {
		return nil
	}

	if !h.gate.allows(msg.User) {
		logging.From(ctx).Info("ignoring voice note from user outside allow-list", "user", msg.User)
		return nil
	}

	if msg.Message == nil {
		return nil
	}

	for _, f := range msg.Message.Files {
		if !strings.HasPrefix(f.Mimetype, "audio/") {
			continue
		}

		return &model.VoiceEvent{
			OwnerID:   types.OwnerID(msg.User),
			ChannelID: msg.Channel,
			FileID:    f.ID,
			MessageID: msg.TimeStamp,
		}
	}

	return nil
}
