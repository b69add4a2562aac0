package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/eleven-am/voice-relay/internal/audio"
	"github.com/eleven-am/voice-relay/internal/transport"
	"github.com/gorilla/websocket"
)

// relay-client streams raw 16 kHz mono PCM16 to the relay at real-time
// pace and prints every message it receives.
//
//	RELAY_URL=ws://localhost:8080/transcribe AUDIO_FILE=sample.pcm ASK="..." relay-client

const frameDuration = 20 * time.Millisecond

func main() {
	relayURL := os.Getenv("RELAY_URL")
	if relayURL == "" {
		relayURL = "ws://localhost:8080/transcribe"
	}

	var src io.Reader = os.Stdin
	if path := os.Getenv("AUDIO_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatal("open audio:", err)
		}
		defer f.Close()
		src = f
	}

	fmt.Printf("[RELAY] Connecting to %s\n", relayURL)

	conn, resp, err := websocket.DefaultDialer.Dial(relayURL, nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("[RELAY] Dial failed: %v, status=%d, body=%s\n", err, resp.StatusCode, string(body))
		}
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(messageType, data)
	}
	command := func(cmd transport.Command) {
		data, err := transport.EncodeCommand(cmd)
		if err != nil {
			return
		}
		if err := send(websocket.TextMessage, data); err != nil {
			fmt.Printf("[RELAY] Command %s failed: %v\n", cmd.Type, err)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("[RELAY] Stopping...")
		command(transport.Command{Type: transport.MessageTypeStop})
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		readMessages(conn)
	}()

	streamAudio(src, send)

	if question := os.Getenv("ASK"); question != "" {
		command(transport.Command{Type: transport.MessageTypeAskAI, Text: question})
	}

	select {
	case <-done:
		return
	case <-time.After(5 * time.Second):
	}
	command(transport.Command{Type: transport.MessageTypeStop})
	<-done
}

func streamAudio(src io.Reader, send func(int, []byte) error) {
	buf := make([]byte, audio.FrameSize(frameDuration))
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	frames := 0
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if err := send(websocket.BinaryMessage, append([]byte(nil), buf[:n]...)); err != nil {
				fmt.Printf("[RELAY] Send error: %v\n", err)
				return
			}
			frames++
			<-ticker.C
		}
		if err != nil {
			break
		}
	}
	fmt.Printf("[RELAY] Sent %d frames (%s of audio)\n", frames, time.Duration(frames)*frameDuration)
}

func readMessages(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Println("[RELAY] Closed")
			} else {
				fmt.Printf("[RELAY] Read error: %v\n", err)
			}
			return
		}

		var msg struct {
			Type       transport.MessageType `json:"type"`
			Transcript string                `json:"transcript"`
			IsPartial  bool                  `json:"isPartial"`
			Text       string                `json:"text"`
			Message    string                `json:"message"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Printf("[RELAY] Unmarshal error: %v\n", err)
			continue
		}

		switch msg.Type {
		case transport.MessageTypeTranscript:
			if msg.IsPartial {
				fmt.Printf("[RELAY] ... %s\n", msg.Transcript)
			} else {
				fmt.Printf("[RELAY] >>> %s\n", msg.Transcript)
			}
		case transport.MessageTypeAIAnswer:
			fmt.Printf("[RELAY] AI: %s\n", msg.Text)
		case transport.MessageTypeError:
			fmt.Printf("[RELAY] Error: %s\n", msg.Message)
		default:
			fmt.Printf("[RELAY] Ignoring message type: %s\n", msg.Type)
		}
	}
}
