package gateway

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/eleven-am/voice-relay/internal/audio"
)

const (
	DefaultWatchdogInterval = 200 * time.Millisecond
	DefaultIdleThreshold    = 800 * time.Millisecond
)

// IdleSource reports when genuine client audio last arrived and whether
// the connection is being torn down.
type IdleSource interface {
	LastAudio() time.Time
	Stopped() bool
}

// Watchdog keeps the upstream fed during client silence by pushing one
// silence frame per tick once the idle threshold has passed. Injections
// never count as client audio.
type Watchdog struct {
	interval  time.Duration
	threshold time.Duration
	silence   audio.Frame
	source    IdleSource
	push      func(audio.Frame)
	now       func() time.Time

	injected atomic.Int64
}

func NewWatchdog(interval, threshold time.Duration, silence audio.Frame, source IdleSource, push func(audio.Frame)) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	if len(silence) == 0 {
		silence = audio.Silence(audio.DefaultSilenceDuration)
	}
	return &Watchdog{
		interval:  interval,
		threshold: threshold,
		silence:   silence,
		source:    source,
		push:      push,
		now:       time.Now,
	}
}

func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Watchdog) tick() bool {
	if w.source.Stopped() {
		return false
	}
	if w.now().Sub(w.source.LastAudio()) <= w.threshold {
		return false
	}
	w.push(w.silence)
	w.injected.Add(1)
	return true
}

func (w *Watchdog) Injected() int64 {
	return w.injected.Load()
}
