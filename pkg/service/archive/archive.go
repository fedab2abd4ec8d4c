// Package archive persists original voice note audio to Cloud Storage so a
// note's source recording can be recovered after ingestion.
package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

const objectContentType = "audio/ogg"

type gcsArchiver struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.Archiver = (*gcsArchiver)(nil)

type Option func(*gcsArchiver)

// WithPrefix stores objects under the given path prefix within the bucket.
func WithPrefix(prefix string) Option {
	return func(a *gcsArchiver) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

func New(ctx context.Context, bucket string, opts ...Option) (interfaces.Archiver, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	a := &gcsArchiver{
		client: client,
		bucket: bucket,
		prefix: "audio",
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Store uploads the audio stream and returns the object path within the
// bucket.
func (a *gcsArchiver) Store(ctx context.Context, ownerID types.OwnerID, refID types.ReferenceID, r io.Reader) (string, error) {
	objName := a.objectName(ownerID, refID)

	w := a.client.Bucket(a.bucket).Object(objName).NewWriter(ctx)
	w.ContentType = objectContentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to upload audio",
			goerr.V("bucket", a.bucket),
			goerr.V("object", objName),
		)
	}

	// Close commits the object; upload errors surface here.
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize audio upload",
			goerr.V("bucket", a.bucket),
			goerr.V("object", objName),
		)
	}

	return objName, nil
}

func (a *gcsArchiver) objectName(ownerID types.OwnerID, refID types.ReferenceID) string {
	name := fmt.Sprintf("%s/%s.ogg", ownerID, refID)
	if a.prefix != "" {
		name = a.prefix + "/" + name
	}
	return name
}

func (a *gcsArchiver) Close() error {
	return a.client.Close()
}
