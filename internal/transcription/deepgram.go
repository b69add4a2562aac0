package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/eleven-am/voice-relay/internal/audio"
	"github.com/gorilla/websocket"
)

const defaultDeepgramURL = "wss://api.deepgram.com/v1/listen"

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// DeepgramBackend streams to a Deepgram-compatible live transcription
// websocket: binary PCM up, JSON results down.
type DeepgramBackend struct {
	url      string
	apiKey   string
	model    string
	language string
	dialer   *websocket.Dialer
}

func NewDeepgramBackend(cfg Config) *DeepgramBackend {
	u := cfg.Deepgram.URL
	if u == "" {
		u = defaultDeepgramURL
	}
	return &DeepgramBackend{
		url:      u,
		apiKey:   cfg.Deepgram.APIKey,
		model:    cfg.Deepgram.Model,
		language: cfg.Language,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (b *DeepgramBackend) Name() string {
	return "deepgram"
}

func (b *DeepgramBackend) endpoint() (string, error) {
	u, err := url.Parse(b.url)
	if err != nil {
		return "", fmt.Errorf("parse deepgram url: %w", err)
	}

	q := u.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(audio.SampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	if b.model != "" {
		q.Set("model", b.model)
	}
	if b.language != "" {
		q.Set("language", b.language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (b *DeepgramBackend) Open(ctx context.Context) (Stream, error) {
	endpoint, err := b.endpoint()
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if b.apiKey != "" {
		headers.Set("Authorization", "Token "+b.apiKey)
	}

	conn, resp, err := b.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	return &deepgramStream{conn: conn}, nil
}

type deepgramResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramStream struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *deepgramStream) Send(_ context.Context, pcm []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

func (s *deepgramStream) CloseSend() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, closeStreamMessage)
}

func (s *deepgramStream) Recv(ctx context.Context) (Hypothesis, error) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Hypothesis{}, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return Hypothesis{}, io.EOF
			}
			return Hypothesis{}, fmt.Errorf("deepgram read: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var res deepgramResult
		if err := json.Unmarshal(data, &res); err != nil {
			continue
		}
		if res.Type != "Results" {
			continue
		}

		alts := make([]string, 0, len(res.Channel.Alternatives))
		for _, a := range res.Channel.Alternatives {
			alts = append(alts, a.Transcript)
		}
		return Hypothesis{Alternatives: alts, IsPartial: !res.IsFinal}, nil
	}
}

func (s *deepgramStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
