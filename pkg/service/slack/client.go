// Package slack wraps the Slack Web API as the bot's message transport and
// audio source.
package slack

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/slack-go/slack"
)

// Service is the full Slack surface the bot uses: posting and editing
// messages, downloading shared audio files, and identifying itself.
type Service interface {
	interfaces.Messenger
	interfaces.AudioSource

	GetBotUserID(ctx context.Context) (string, error)
}

// client implements Service
type client struct {
	api *slack.Client

	mu        sync.Mutex
	botUserID string
}

// New creates a new Slack service with the provided bot token. Extra options
// are passed through to the underlying API client (tests use
// slack.OptionAPIURL).
func New(token string, opts ...slack.Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	return &client{
		api: slack.New(token, opts...),
	}, nil
}

// SendText posts a message and returns a handle for later edits.
func (c *client) SendText(ctx context.Context, channelID, content string) (interfaces.MessageHandle, error) {
	ch, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(content, false),
	)
	if err != nil {
		return interfaces.MessageHandle{}, goerr.Wrap(err, "failed to post Slack message",
			goerr.V("channel_id", channelID),
		)
	}

	return interfaces.MessageHandle{ChannelID: ch, Timestamp: ts}, nil
}

// EditText replaces the content of a previously posted message.
func (c *client) EditText(ctx context.Context, handle interfaces.MessageHandle, content string) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, handle.ChannelID, handle.Timestamp,
		slack.MsgOptionText(content, false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update Slack message",
			goerr.V("channel_id", handle.ChannelID),
			goerr.V("timestamp", handle.Timestamp),
		)
	}

	return nil
}

// Fetch downloads a file shared in Slack. The caller owns the returned
// reader.
func (c *client) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	info, _, _, err := c.api.GetFileInfoContext(ctx, fileID, 0, 0)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get Slack file info", goerr.V("file_id", fileID))
	}
	if info.URLPrivateDownload == "" {
		return nil, goerr.New("Slack file has no download URL", goerr.V("file_id", fileID))
	}

	var buf bytes.Buffer
	if err := c.api.GetFileContext(ctx, info.URLPrivateDownload, &buf); err != nil {
		return nil, goerr.Wrap(err, "failed to download Slack file", goerr.V("file_id", fileID))
	}

	return io.NopCloser(&buf), nil
}

// GetBotUserID returns the bot's own user ID, cached after the first call.
func (c *client) GetBotUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.botUserID != "" {
		return c.botUserID, nil
	}

	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call auth.test")
	}

	c.botUserID = resp.UserID
	return c.botUserID, nil
}
