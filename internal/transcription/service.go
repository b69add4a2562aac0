package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrStartFailed  = errors.New("transcription start failed")
	ErrStreamFailed = errors.New("transcription stream failed")
)

type Service struct {
	backend Backend
	log     *slog.Logger
}

func NewService(backend Backend, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		backend: backend,
		log:     log.With("component", "transcription", "backend", backend.Name()),
	}
}

func (s *Service) BackendName() string {
	return s.backend.Name()
}

// Start opens an upstream call and begins forwarding frames pulled from
// source. The returned session's Events channel closes when source ends,
// the upstream ends the call, or the upstream fails.
func (s *Service) Start(ctx context.Context, source AudioSource) (*Session, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := s.backend.Open(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	sess := &Session{
		stream: stream,
		events: make(chan Event, 16),
		cancel: cancel,
		log:    s.log,
	}

	sess.wg.Add(2)
	go sess.forward(ctx, source)
	go sess.receive(ctx)

	return sess, nil
}

type Session struct {
	stream Stream
	events chan Event
	cancel context.CancelFunc
	log    *slog.Logger
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error

	framesSent atomic.Int64
	closeOnce  sync.Once
}

// Events yields decoded results in upstream order. Err reports why the
// channel closed once it has.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) FramesSent() int64 {
	return s.framesSent.Load()
}

// Close abandons the upstream call and waits for the session goroutines.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if err := s.stream.Close(); err != nil {
			s.log.Debug("upstream close failed", "error", err)
		}
	})
	s.wg.Wait()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) forward(ctx context.Context, source AudioSource) {
	defer s.wg.Done()

	for {
		frame, ok := source.Next(ctx)
		if !ok {
			break
		}
		if err := s.stream.Send(ctx, frame); err != nil {
			if ctx.Err() == nil {
				s.fail(fmt.Errorf("send audio: %w", err))
			}
			return
		}
		s.framesSent.Add(1)
	}

	if ctx.Err() != nil {
		return
	}
	if err := s.stream.CloseSend(); err != nil {
		s.log.Debug("upstream close send failed", "error", err)
	}
}

func (s *Session) receive(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)
	defer s.cancel()

	for {
		h, err := s.stream.Recv(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Error("upstream receive failed", "error", err)
				s.fail(err)
			}
			return
		}

		evt, ok := decode(h)
		if !ok {
			continue
		}

		select {
		case s.events <- evt:
		case <-ctx.Done():
			return
		}
	}
}

// decode keeps the most likely alternative. Results without a non-empty
// alternative carry nothing the client can show and are dropped.
func decode(h Hypothesis) (Event, bool) {
	if len(h.Alternatives) == 0 || h.Alternatives[0] == "" {
		return Event{}, false
	}
	return Event{
		Text:    h.Alternatives[0],
		IsFinal: !h.IsPartial,
	}, true
}
