package gateway

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const DefaultHeartbeatInterval = 30 * time.Second

type Pinger interface {
	Ping() error
	Terminate() error
}

// Heartbeat pings the client every interval and terminates the transport
// when the previous ping went unanswered.
type Heartbeat struct {
	interval time.Duration
	target   Pinger
	alive    atomic.Bool
	log      *slog.Logger
}

func NewHeartbeat(interval time.Duration, target Pinger, log *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if log == nil {
		log = slog.Default()
	}
	h := &Heartbeat{
		interval: interval,
		target:   target,
		log:      log,
	}
	h.alive.Store(true)
	return h
}

func (h *Heartbeat) Pong() {
	h.alive.Store(true)
}

// Run returns when ctx ends or after terminating a silent peer.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.alive.Swap(false) {
				h.log.Warn("no pong since last ping, terminating")
				_ = h.target.Terminate()
				return
			}
			if err := h.target.Ping(); err != nil {
				h.log.Debug("ping failed", "error", err)
			}
		}
	}
}
