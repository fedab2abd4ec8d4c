package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/utils/telemetry"
	"github.com/urfave/cli/v3"
)

// Telemetry holds configuration for metrics export and error reporting
type Telemetry struct {
	otlpEndpoint string
	sentryDSN    string
	environment  string
}

func (x *Telemetry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "otlp-endpoint",
			Usage:       "OTLP metrics endpoint (empty disables export)",
			Category:    "Telemetry",
			Sources:     cli.EnvVars("MNEMOSYNE_OTLP_ENDPOINT"),
			Destination: &x.otlpEndpoint,
		},
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error reporting (empty disables)",
			Category:    "Telemetry",
			Sources:     cli.EnvVars("MNEMOSYNE_SENTRY_DSN"),
			Destination: &x.sentryDSN,
		},
		&cli.StringFlag{
			Name:        "env",
			Usage:       "Deployment environment name reported to Sentry",
			Category:    "Telemetry",
			Value:       "production",
			Sources:     cli.EnvVars("MNEMOSYNE_ENV"),
			Destination: &x.environment,
		},
	}
}

func (x Telemetry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("otlp-endpoint", x.otlpEndpoint),
		slog.Int("sentry-dsn.len", len(x.sentryDSN)),
		slog.String("env", x.environment),
	)
}

// Configure initializes Sentry and the OTLP meter provider. The returned
// shutdown function flushes both and must be called on exit.
func (x *Telemetry) Configure(ctx context.Context, serviceName, version string) (func(context.Context) error, error) {
	if x.sentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         x.sentryDSN,
			Environment: x.environment,
			Release:     serviceName + "@" + version,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sentry")
		}
	}

	shutdownMetrics, err := telemetry.Setup(ctx, x.otlpEndpoint, serviceName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize metrics")
	}

	return func(ctx context.Context) error {
		sentry.Flush(2 * time.Second)
		return shutdownMetrics(ctx)
	}, nil
}
