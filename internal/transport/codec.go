package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

type clientMessage struct {
	Type MessageType     `json:"type"`
	Text json.RawMessage `json:"text,omitempty"`
}

// Decode turns one transport message into audio or a control command.
// Binary payloads are passed through untouched. Text payloads must be a
// JSON object with a known type; anything else yields ErrMalformed or
// ErrUnknownType and should be ignored by the caller.
func Decode(binary bool, data []byte) (Inbound, error) {
	if binary {
		return Inbound{Audio: data}, nil
	}

	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch msg.Type {
	case MessageTypeStop, MessageTypePause, MessageTypeResume:
		return Inbound{Command: &Command{Type: msg.Type}}, nil
	case MessageTypeAskAI:
		return Inbound{Command: &Command{Type: msg.Type, Text: rawText(msg.Text)}}, nil
	default:
		return Inbound{}, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

// rawText accepts a JSON string, or falls back to the literal JSON for
// numbers and other scalars. Missing and null become empty.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func EncodeTranscript(text string, isFinal bool) ([]byte, error) {
	return json.Marshal(TranscriptMessage{
		Type:       MessageTypeTranscript,
		Transcript: text,
		IsPartial:  !isFinal,
	})
}

func EncodeAnswer(text string) ([]byte, error) {
	return json.Marshal(AnswerMessage{
		Type: MessageTypeAIAnswer,
		Text: text,
	})
}

func EncodeError(message string) ([]byte, error) {
	return json.Marshal(ErrorMessage{
		Type:    MessageTypeError,
		Message: message,
	})
}

// EncodeCommand renders a control command the way a client sends it.
func EncodeCommand(cmd Command) ([]byte, error) {
	msg := struct {
		Type MessageType `json:"type"`
		Text string      `json:"text,omitempty"`
	}{Type: cmd.Type, Text: cmd.Text}
	return json.Marshal(msg)
}
