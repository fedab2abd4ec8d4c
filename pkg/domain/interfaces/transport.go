package interfaces

import (
	"context"
	"io"
)

// MaxMessageLength is the single-message character limit the transport
// enforces. Output exceeding it is split by the chunker before delivery.
const MaxMessageLength = 4096

// Messenger is the outbound side of the transport layer. SendText returns a
// handle usable for later in-place edits (progress updates during the
// pipeline).
type Messenger interface {
	SendText(ctx context.Context, channelID, content string) (MessageHandle, error)
	EditText(ctx context.Context, handle MessageHandle, content string) error
}

// MessageHandle identifies a sent message for later edits
type MessageHandle struct {
	ChannelID string
	Timestamp string
}

// AudioSource fetches the bytes of an audio artifact by its transport
// handle. The caller owns the returned reader and must close it.
type AudioSource interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}
