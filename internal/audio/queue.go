package audio

import (
	"context"
	"iter"
	"sync"
)

// Frame is a slice of 16-bit little-endian mono PCM. Frames are never
// mutated once pushed; the same silence frame is pushed repeatedly.
type Frame []byte

// Queue hands frames from any number of producers to a single consumer in
// push order. Push never blocks. After Close, pushes are dropped and the
// consumer drains what is buffered before seeing end of sequence.
type Queue struct {
	mu     sync.Mutex
	frames []Frame
	closed bool

	notify chan struct{}
	done   chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (q *Queue) Push(f Frame) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.frames = append(q.frames, f)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Next returns the oldest buffered frame, waiting for one if necessary.
// ok is false once the queue is closed and empty, or when ctx is done.
func (q *Queue) Next(ctx context.Context) (f Frame, ok bool) {
	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			f = q.frames[0]
			q.frames[0] = nil
			q.frames = q.frames[1:]
			q.mu.Unlock()
			return f, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Frames yields frames from the current position until the queue ends.
// Breaking out of the loop leaves unread frames in place.
func (q *Queue) Frames(ctx context.Context) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for {
			f, ok := q.Next(ctx)
			if !ok || !yield(f) {
				return
			}
		}
	}
}
