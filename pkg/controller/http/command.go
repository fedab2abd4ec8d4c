package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/chunk"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
	"github.com/secmon-lab/mnemosyne/pkg/utils/async"
	"github.com/secmon-lab/mnemosyne/pkg/utils/errutil"
	"github.com/slack-go/slack"
)

const defaultHistoryLimit = 10

// noteQuerier serves lookups over persisted notes.
type noteQuerier interface {
	ListRecent(ctx context.Context, owner types.OwnerID, limit int) ([]*model.Note, error)
	ListWindow(ctx context.Context, owner types.OwnerID, span time.Duration) ([]*model.Note, error)
	GetEntry(ctx context.Context, owner types.OwnerID, rawRef string) (*model.Note, error)
	Random(ctx context.Context, owner types.OwnerID) (*model.Note, error)
	Delete(ctx context.Context, owner types.OwnerID, rawRef string) (types.ReferenceID, error)
}

// reviewer generates LLM summaries over a window of notes.
type reviewer interface {
	ReviewToday(ctx context.Context, owner types.OwnerID) (string, error)
	ReviewWeek(ctx context.Context, owner types.OwnerID) (string, error)
}

// SlackCommandHandler handles the bot's slash command. Sub-commands that
// only read the store respond inline; review generation is slow, so it
// acknowledges immediately and posts the result to the channel when done.
type SlackCommandHandler struct {
	query     noteQuerier
	review    reviewer
	messenger interfaces.Messenger
	gate      ownerGate
}

type CommandOption func(*SlackCommandHandler)

// WithCommandAllowedOwners restricts slash commands to the given Slack
// user IDs. An empty list allows everyone.
func WithCommandAllowedOwners(ids []string) CommandOption {
	return func(h *SlackCommandHandler) {
		h.gate = newOwnerGate(ids)
	}
}

func NewSlackCommandHandler(query noteQuerier, review reviewer, messenger interfaces.Messenger, opts ...CommandOption) *SlackCommandHandler {
	h := &SlackCommandHandler{
		query:     query,
		review:    review,
		messenger: messenger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SlackCommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slash command"), http.StatusBadRequest)
		return
	}

	if !h.gate.allows(cmd.UserID) {
		respond(ctx, w, "Sorry, this bot is restricted to specific users.")
		return
	}

	owner := types.OwnerID(cmd.UserID)
	sub, arg := splitSubCommand(cmd.Text)

	switch sub {
	case "history", "":
		limit := defaultHistoryLimit
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			limit = n
		}
		notes, err := h.query.ListRecent(ctx, owner, limit)
		h.respondQuery(ctx, w, formatNoteList("Your recent entries", notes), err)

	case "entry":
		note, err := h.query.GetEntry(ctx, owner, arg)
		h.respondQuery(ctx, w, formatNote(note), err)

	case "random":
		note, err := h.query.Random(ctx, owner)
		h.respondQuery(ctx, w, formatNote(note), err)

	case "weekly":
		notes, err := h.query.ListWindow(ctx, owner, 7*24*time.Hour)
		h.respondQuery(ctx, w, formatNoteList("Your entries from the past week", notes), err)

	case "delete":
		ref, err := h.query.Delete(ctx, owner, arg)
		h.respondQuery(ctx, w, fmt.Sprintf("🗑️ Deleted %s. Its reference ID will not be reused.", ref), err)

	case "review_today":
		h.respondReview(ctx, w, cmd.ChannelID, owner, h.review.ReviewToday)

	case "review_week":
		h.respondReview(ctx, w, cmd.ChannelID, owner, h.review.ReviewWeek)

	case "help":
		respond(ctx, w, helpText)

	default:
		respond(ctx, w, fmt.Sprintf("Unknown command %q.\n\n%s", sub, helpText))
	}
}

// respondQuery writes the command response, mapping use case errors to
// user-facing messages.
func (h *SlackCommandHandler) respondQuery(ctx context.Context, w http.ResponseWriter, text string, err error) {
	switch {
	case err == nil:
		respond(ctx, w, text)
	case errors.Is(err, usecase.ErrInvalidReference):
		respond(ctx, w, "That doesn't look like an entry reference. Try something like NOTE17.")
	case errors.Is(err, usecase.ErrNoteNotFound):
		respond(ctx, w, "I couldn't find that entry.")
	default:
		errutil.Handle(ctx, err, "slash command query failed")
		respond(ctx, w, "Something went wrong, please try again.")
	}
}

// respondReview acknowledges immediately and posts the generated review to
// the channel in the background.
func (h *SlackCommandHandler) respondReview(ctx context.Context, w http.ResponseWriter, channelID string, owner types.OwnerID, generate func(context.Context, types.OwnerID) (string, error)) {
	respond(ctx, w, "📝 Generating your review, this may take a moment...")

	async.Dispatch(ctx, func(ctx context.Context) error {
		text, err := generate(ctx, owner)
		if err != nil {
			return goerr.Wrap(err, "failed to generate review", goerr.V("owner_id", owner))
		}
		return h.sendChunked(ctx, channelID, text)
	})
}

// sendChunked delivers content that may exceed the transport's message
// limit, preserving order.
func (h *SlackCommandHandler) sendChunked(ctx context.Context, channelID, content string) error {
	parts := chunk.Split(content, interfaces.MaxMessageLength)
	if len(parts) > 1 {
		// Keep headroom for the part label.
		parts = chunk.Split(content, interfaces.MaxMessageLength-16)
		for i := range parts {
			parts[i] = fmt.Sprintf("%s (part %d/%d)", parts[i], i+1, len(parts))
		}
	}

	for i, part := range parts {
		if _, err := h.messenger.SendText(ctx, channelID, part); err != nil {
			return goerr.Wrap(err, "failed to send review fragment", goerr.V("part", i+1))
		}
	}
	return nil
}

// respond writes an ephemeral slash command response.
func respond(ctx context.Context, w http.ResponseWriter, text string) {
	payload := map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "encode command response"), "failed to write command response")
	}
}

func splitSubCommand(text string) (string, string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

const helpText = `Send me a voice note and I'll transcribe it, reflect on it, and save it.

Commands:
• history [n] — list your n most recent entries (default 10)
• entry <ref> — show one entry, e.g. entry NOTE17
• random — show a random entry
• weekly — list entries from the past week
• delete <ref> — permanently delete an entry
• review_today — AI review of today's entries
• review_week — AI review of the past week
• help — this message`
