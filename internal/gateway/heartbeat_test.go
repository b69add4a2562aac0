package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakePinger struct {
	pings      atomic.Int32
	terminated atomic.Bool
	pingErr    error
	onPing     func()
}

func (f *fakePinger) Ping() error {
	f.pings.Add(1)
	if f.onPing != nil {
		f.onPing()
	}
	return f.pingErr
}

func (f *fakePinger) Terminate() error {
	f.terminated.Store(true)
	return nil
}

func runHeartbeat(t *testing.T, h *Heartbeat, ctx context.Context) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	return done
}

func TestHeartbeat_TerminatesWithoutPong(t *testing.T) {
	p := &fakePinger{}
	h := NewHeartbeat(10*time.Millisecond, p, testLogger())

	done := runHeartbeat(t, h, context.Background())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not terminate a silent peer")
	}
	if !p.terminated.Load() {
		t.Error("expected terminate")
	}
	if p.pings.Load() != 1 {
		t.Errorf("expected exactly one ping before terminate, got %d", p.pings.Load())
	}
}

func TestHeartbeat_KeepsPingingWithPongs(t *testing.T) {
	p := &fakePinger{}
	h := NewHeartbeat(10*time.Millisecond, p, testLogger())
	p.onPing = h.Pong

	ctx, cancel := context.WithCancel(context.Background())
	done := runHeartbeat(t, h, ctx)

	time.Sleep(80 * time.Millisecond)
	cancel()
	<-done

	if p.terminated.Load() {
		t.Error("responsive peer should not be terminated")
	}
	if p.pings.Load() < 3 {
		t.Errorf("expected several pings, got %d", p.pings.Load())
	}
}

func TestHeartbeat_PingErrorIsNotFatal(t *testing.T) {
	p := &fakePinger{pingErr: errors.New("write: broken pipe")}
	h := NewHeartbeat(10*time.Millisecond, p, testLogger())
	p.onPing = h.Pong

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	<-runHeartbeat(t, h, ctx)

	if p.terminated.Load() {
		t.Error("ping errors alone should not terminate")
	}
}
