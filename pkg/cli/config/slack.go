package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for the Slack transport
type Slack struct {
	botToken      string
	signingSecret string
	allowedUsers  []string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("MNEMOSYNE_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack Signing Secret (for webhook verification)",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("MNEMOSYNE_SLACK_SIGNING_SECRET"),
		},
		&cli.StringSliceFlag{
			Name:        "slack-allowed-users",
			Usage:       "Slack user IDs allowed to use the bot (empty allows everyone)",
			Category:    "Slack",
			Destination: &x.allowedUsers,
			Sources:     cli.EnvVars("MNEMOSYNE_SLACK_ALLOWED_USERS"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
		slog.Int("allowed-users", len(x.allowedUsers)),
	)
}

// AllowedUsers returns the optional owner allow-list
func (x *Slack) AllowedUsers() []string {
	return x.allowedUsers
}

// SigningSecret returns the webhook signing secret
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

// Configure creates the Slack service. Both the bot token and signing
// secret are required to serve webhooks.
func (x *Slack) Configure() (slack.Service, error) {
	if x.botToken == "" {
		return nil, goerr.New("slack-bot-token is required")
	}
	if x.signingSecret == "" {
		return nil, goerr.New("slack-signing-secret is required")
	}

	return slack.New(x.botToken)
}
