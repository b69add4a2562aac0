package transcription

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newDeepgramServer(t *testing.T, handle func(*websocket.Conn, *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handle(ws, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDeepgramBackend_Endpoint(t *testing.T) {
	b := NewDeepgramBackend(Config{
		Language: "en-US",
		Deepgram: DeepgramConfig{Model: "nova-2"},
	})

	endpoint, err := b.endpoint()
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	if !strings.HasPrefix(endpoint, defaultDeepgramURL+"?") {
		t.Errorf("expected default url, got %s", endpoint)
	}
	for _, want := range []string{"encoding=linear16", "sample_rate=16000", "channels=1", "interim_results=true", "model=nova-2", "language=en-US"} {
		if !strings.Contains(endpoint, want) {
			t.Errorf("expected %q in %s", want, endpoint)
		}
	}
}

func TestDeepgramStream_RoundTrip(t *testing.T) {
	gotAuth := make(chan string, 1)
	gotAudio := make(chan []byte, 1)
	gotClose := make(chan string, 1)

	server := newDeepgramServer(t, func(ws *websocket.Conn, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")

		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		gotAudio <- data

		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))

		_, data, err = ws.ReadMessage()
		if err != nil {
			return
		}
		gotClose <- string(data)

		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	})

	b := NewDeepgramBackend(Config{Deepgram: DeepgramConfig{URL: wsURL(server), APIKey: "secret"}})
	ctx := context.Background()

	stream, err := b.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer stream.Close()

	if err := stream.Send(ctx, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if auth := <-gotAuth; auth != "Token secret" {
		t.Errorf("expected token auth header, got %q", auth)
	}
	if data := <-gotAudio; len(data) != 4 {
		t.Errorf("expected 4 audio bytes, got %d", len(data))
	}

	h, err := stream.Recv(ctx)
	if err != nil {
		t.Fatalf("recv partial: %v", err)
	}
	if !h.IsPartial || h.Alternatives[0] != "hel" {
		t.Errorf("unexpected partial: %+v", h)
	}

	h, err = stream.Recv(ctx)
	if err != nil {
		t.Fatalf("recv final: %v", err)
	}
	if h.IsPartial || h.Alternatives[0] != "hello" {
		t.Errorf("unexpected final: %+v", h)
	}

	if err := stream.CloseSend(); err != nil {
		t.Fatalf("close send: %v", err)
	}
	if msg := <-gotClose; msg != string(closeStreamMessage) {
		t.Errorf("expected CloseStream message, got %s", msg)
	}

	_, err = stream.Recv(ctx)
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after normal close, got %v", err)
	}
}

func TestDeepgramStream_AbnormalClose(t *testing.T) {
	server := newDeepgramServer(t, func(ws *websocket.Conn, _ *http.Request) {
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "boom"))
		time.Sleep(50 * time.Millisecond)
	})

	stream, err := NewDeepgramBackend(Config{Deepgram: DeepgramConfig{URL: wsURL(server)}}).Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer stream.Close()

	_, err = stream.Recv(context.Background())
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestDeepgramStream_CloseUnblocksRecv(t *testing.T) {
	server := newDeepgramServer(t, func(ws *websocket.Conn, _ *http.Request) {
		_, _, _ = ws.ReadMessage()
	})

	stream, err := NewDeepgramBackend(Config{Deepgram: DeepgramConfig{URL: wsURL(server)}}).Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := stream.Recv(ctx)
		done <- err
	}()

	cancel()
	stream.Close()
	stream.Close()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("recv did not unblock")
	}
}

func TestDeepgramBackend_OpenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewDeepgramBackend(Config{Deepgram: DeepgramConfig{URL: wsURL(server)}}).Open(context.Background())
	if err == nil {
		t.Fatal("expected open to fail")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status in error, got %v", err)
	}
}
