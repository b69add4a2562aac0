package transcription

import (
	"context"

	"github.com/eleven-am/voice-relay/internal/audio"
)

// Backend opens streaming recognition calls against one upstream service.
// A Backend is shared by every connection in the process.
type Backend interface {
	Name() string
	Open(ctx context.Context) (Stream, error)
}

// Stream is one upstream recognition call. Send and CloseSend are only
// called from a single goroutine; Recv from another. Recv returns io.EOF
// when the upstream ends the call cleanly. Close must be idempotent and
// must unblock a pending Recv.
type Stream interface {
	Send(ctx context.Context, pcm []byte) error
	CloseSend() error
	Recv(ctx context.Context) (Hypothesis, error)
	Close() error
}

// AudioSource is the pull side of an audio queue.
type AudioSource interface {
	Next(ctx context.Context) (audio.Frame, bool)
}
