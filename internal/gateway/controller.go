package gateway

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/voice-relay/internal/audio"
	"github.com/eleven-am/voice-relay/internal/completion"
	"github.com/eleven-am/voice-relay/internal/metrics"
	"github.com/eleven-am/voice-relay/internal/session"
	"github.com/eleven-am/voice-relay/internal/transcription"
	"github.com/eleven-am/voice-relay/internal/transport"
	"github.com/gorilla/websocket"
)

type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StatePaused
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StatePaused:
		return "paused"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Teardown reasons.
const (
	ReasonStop          = "stop"
	ReasonTransport     = "transport"
	ReasonUpstreamEnded = "upstream_ended"
	ReasonStartFailure  = "start_failure"
	ReasonStreamFailure = "stream_failure"
	ReasonShutdown      = "shutdown"
)

const trackerTimeout = 2 * time.Second

type Completer interface {
	Complete(ctx context.Context, excerpt string) (string, error)
}

// Tracker records connection lifecycles outside the process.
type Tracker interface {
	Open(ctx context.Context, rec *session.Record) error
	Close(ctx context.Context, id string, status session.Status, reason string, stats session.Stats) error
	IncrementMetric(ctx context.Context, field string, value int64) error
	RecordStats(ctx context.Context, stats session.Stats) error
}

type Config struct {
	WatchdogInterval  time.Duration
	IdleThreshold     time.Duration
	SilenceFrame      time.Duration
	HeartbeatInterval time.Duration
	MaxMessageSize    int64
}

type Deps struct {
	Transcriber *transcription.Service
	Completer   Completer
	Tracker     Tracker
}

// Controller owns one client connection from accept to teardown.
type Controller struct {
	id        string
	cfg       Config
	conn      Conn
	deps      Deps
	log       *slog.Logger
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	queue  *audio.Queue
	wg     sync.WaitGroup

	state     atomic.Int32
	lastAudio atomic.Int64

	// emitMu orders client writes against the switch to Closing so nothing
	// is sent once teardown has begun.
	emitMu sync.Mutex

	closeOnce sync.Once
	reason    string

	clientFrames     atomic.Int64
	silenceFrames    atomic.Int64
	partials         atomic.Int64
	finals           atomic.Int64
	completions      atomic.Int64
	completionErrors atomic.Int64
}

func NewController(id string, conn Conn, deps Deps, cfg Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:        id,
		cfg:       cfg,
		conn:      conn,
		deps:      deps,
		log:       log.With("conn_id", id),
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		queue:     audio.NewQueue(),
	}
	c.touch()
	return c
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) StartedAt() time.Time {
	return c.startedAt
}

func (c *Controller) RemoteAddr() string {
	return c.conn.RemoteAddr()
}

func (c *Controller) LastAudio() time.Time {
	return time.Unix(0, c.lastAudio.Load())
}

func (c *Controller) Stopped() bool {
	return c.State() >= StateClosing
}

func (c *Controller) touch() {
	c.lastAudio.Store(time.Now().UnixNano())
}

// Close begins teardown from outside the connection.
func (c *Controller) Close(reason string) {
	c.shutdown(reason, "")
}

// Run drives the connection until teardown has finished and every
// goroutine it started has returned. Cancelling ctx tears the connection
// down with ReasonShutdown.
func (c *Controller) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { c.shutdown(ReasonShutdown, "") })
	defer stop()

	metrics.ActiveConnections.Inc()
	c.trackOpen()
	c.log.Info("connection accepted", "remote_addr", c.conn.RemoteAddr())

	sess, err := c.deps.Transcriber.Start(c.ctx, c.queue)
	if err != nil {
		if c.ctx.Err() == nil {
			c.log.Error("transcription start failed", "error", err)
			c.shutdown(ReasonStartFailure, err.Error())
		}
		c.finish()
		return
	}

	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateStreaming)) {
		sess.Close()
		c.finish()
		return
	}
	c.touch()
	c.log.Info("streaming", "backend", c.deps.Transcriber.BackendName())

	hb := NewHeartbeat(c.cfg.HeartbeatInterval, c.conn, c.log)
	c.conn.OnPong(hb.Pong)
	wd := NewWatchdog(c.cfg.WatchdogInterval, c.cfg.IdleThreshold, audio.Silence(c.cfg.SilenceFrame), c, c.injectSilence)

	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		wd.Run(c.ctx)
	}()
	go func() {
		defer c.wg.Done()
		hb.Run(c.ctx)
	}()
	go c.forwardTranscripts(sess)

	c.readLoop()

	sess.Close()
	c.wg.Wait()
	c.finish()
}

func (c *Controller) readLoop() {
	for {
		binary, data, err := c.conn.Read()
		if err != nil {
			if !c.Stopped() {
				c.log.Info("transport closed", "error", err)
			}
			c.shutdown(ReasonTransport, "")
			return
		}

		in, err := transport.Decode(binary, data)
		if err != nil {
			c.log.Debug("ignoring client message", "error", err)
			continue
		}

		if in.IsAudio() {
			c.handleAudio(in.Audio)
			continue
		}
		c.handleCommand(*in.Command)
	}
}

func (c *Controller) handleAudio(data []byte) {
	frame := audio.Align(data)
	if len(frame) == 0 {
		return
	}

	switch c.State() {
	case StateStreaming, StatePaused:
	default:
		return
	}

	c.touch()
	c.queue.Push(frame)
	c.clientFrames.Add(1)
	metrics.AudioFrames.WithLabelValues(metrics.SourceClient).Inc()
}

func (c *Controller) handleCommand(cmd transport.Command) {
	switch cmd.Type {
	case transport.MessageTypeStop:
		c.log.Info("stop requested")
		c.shutdown(ReasonStop, "")

	case transport.MessageTypePause:
		if c.state.CompareAndSwap(int32(StateStreaming), int32(StatePaused)) {
			c.log.Info("paused")
		}

	case transport.MessageTypeResume:
		if c.Stopped() {
			return
		}
		c.touch()
		if c.state.CompareAndSwap(int32(StatePaused), int32(StateStreaming)) {
			c.log.Info("resumed")
		}

	case transport.MessageTypeAskAI:
		if c.Stopped() {
			return
		}
		c.wg.Add(1)
		go c.answer(cmd.Text)
	}
}

func (c *Controller) injectSilence(frame audio.Frame) {
	c.queue.Push(frame)
	c.silenceFrames.Add(1)
	metrics.AudioFrames.WithLabelValues(metrics.SourceSilence).Inc()
}

func (c *Controller) forwardTranscripts(sess *transcription.Session) {
	defer c.wg.Done()

	for evt := range sess.Events() {
		data, err := transport.EncodeTranscript(evt.Text, evt.IsFinal)
		if err != nil {
			c.log.Error("failed to encode transcript", "error", err)
			continue
		}
		if !c.emit(data) {
			continue
		}
		if evt.IsFinal {
			c.finals.Add(1)
		} else {
			c.partials.Add(1)
		}
		metrics.TranscriptEvents.WithLabelValues(metrics.TranscriptKind(evt.IsFinal)).Inc()
	}

	if err := sess.Err(); err != nil {
		c.log.Error("transcription stream failed", "error", err)
		c.shutdown(ReasonStreamFailure, err.Error())
		return
	}
	c.shutdown(ReasonUpstreamEnded, "")
}

func (c *Controller) answer(excerpt string) {
	defer c.wg.Done()

	start := time.Now()
	text, err := c.deps.Completer.Complete(c.ctx, excerpt)
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	c.completions.Add(1)

	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		c.log.Warn("completion failed", "error", err)
		c.completionErrors.Add(1)
		metrics.Completions.WithLabelValues(metrics.ResultError).Inc()
		text = completion.ErrorAnswer(err)
	} else {
		metrics.Completions.WithLabelValues(metrics.ResultOK).Inc()
	}

	data, err := transport.EncodeAnswer(text)
	if err != nil {
		c.log.Error("failed to encode answer", "error", err)
		return
	}
	c.emit(data)
}

// emit writes one message to the client unless teardown has begun.
func (c *Controller) emit(data []byte) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	if c.Stopped() {
		return false
	}
	if err := c.conn.Send(data); err != nil {
		c.log.Debug("client write failed", "error", err)
		return false
	}
	return true
}

// shutdown is the single entry into Closing. The first caller wins; its
// notice, if any, is the last message the client receives.
func (c *Controller) shutdown(reason, notice string) {
	c.closeOnce.Do(func() {
		c.emitMu.Lock()
		if notice != "" {
			if data, err := transport.EncodeError(notice); err == nil {
				if err := c.conn.Send(data); err != nil {
					c.log.Debug("error notice not delivered", "error", err)
				}
			}
		}
		c.state.Store(int32(StateClosing))
		c.emitMu.Unlock()

		c.reason = reason
		c.cancel()
		c.queue.Close()
		_ = c.conn.Close(closeCode(reason), "")
	})
}

func closeCode(reason string) int {
	switch reason {
	case ReasonStartFailure, ReasonStreamFailure:
		return websocket.CloseInternalServerErr
	case ReasonShutdown:
		return websocket.CloseGoingAway
	default:
		return websocket.CloseNormalClosure
	}
}

func (c *Controller) stats() session.Stats {
	return session.Stats{
		ClientFrames:       c.clientFrames.Load(),
		SilenceFrames:      c.silenceFrames.Load(),
		TranscriptsPartial: c.partials.Load(),
		TranscriptsFinal:   c.finals.Load(),
		Completions:        c.completions.Load(),
	}
}

func (c *Controller) trackOpen() {
	if c.deps.Tracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), trackerTimeout)
	defer cancel()

	rec := &session.Record{
		ID:         c.id,
		RemoteAddr: c.conn.RemoteAddr(),
		Backend:    c.deps.Transcriber.BackendName(),
		StartedAt:  c.startedAt,
	}
	if err := c.deps.Tracker.Open(ctx, rec); err != nil {
		c.log.Warn("failed to record connection", "error", err)
	}
}

func (c *Controller) finish() {
	c.state.Store(int32(StateClosed))
	stats := c.stats()
	duration := time.Since(c.startedAt)

	metrics.ActiveConnections.Dec()
	metrics.Teardowns.WithLabelValues(c.reason).Inc()
	metrics.ConnectionDuration.Observe(duration.Seconds())

	c.log.Info("connection closed",
		"reason", c.reason,
		"duration", duration,
		"client_frames", stats.ClientFrames,
		"silence_frames", stats.SilenceFrames,
		"transcripts", stats.TranscriptsPartial+stats.TranscriptsFinal,
	)

	if c.deps.Tracker == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), trackerTimeout)
	defer cancel()

	status := session.StatusEnded
	switch c.reason {
	case ReasonStartFailure:
		status = session.StatusError
		_ = c.deps.Tracker.IncrementMetric(ctx, session.MetricStartFailures, 1)
	case ReasonStreamFailure:
		status = session.StatusError
		_ = c.deps.Tracker.IncrementMetric(ctx, session.MetricStreamFailures, 1)
	}
	_ = c.deps.Tracker.IncrementMetric(ctx, session.MetricCompletions, stats.Completions)
	_ = c.deps.Tracker.IncrementMetric(ctx, session.MetricCompletionErrors, c.completionErrors.Load())

	if err := c.deps.Tracker.RecordStats(ctx, stats); err != nil {
		c.log.Warn("failed to record connection stats", "error", err)
	}
	if err := c.deps.Tracker.Close(ctx, c.id, status, c.reason, stats); err != nil {
		c.log.Warn("failed to close connection record", "error", err)
	}
}
