package config

import (
	"context"
	"log/slog"

	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/service/archive"
	"github.com/urfave/cli/v3"
)

// Archive holds configuration for audio archival to Cloud Storage
type Archive struct {
	bucket string
	prefix string
}

func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for original audio (empty disables archival)",
			Category:    "Archive",
			Sources:     cli.EnvVars("MNEMOSYNE_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object path prefix within the archive bucket",
			Category:    "Archive",
			Value:       "audio",
			Sources:     cli.EnvVars("MNEMOSYNE_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure creates the archiver, or returns nil when no bucket is
// configured (archival disabled).
func (x *Archive) Configure(ctx context.Context) (interfaces.Archiver, error) {
	if x.bucket == "" {
		return nil, nil
	}

	return archive.New(ctx, x.bucket, archive.WithPrefix(x.prefix))
}
