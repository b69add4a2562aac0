package transport

type MessageType string

const (
	MessageTypeStop   MessageType = "stop"
	MessageTypePause  MessageType = "pause"
	MessageTypeResume MessageType = "resume"
	MessageTypeAskAI  MessageType = "ask_ai"

	MessageTypeTranscript MessageType = "transcript"
	MessageTypeAIAnswer   MessageType = "ai_answer"
	MessageTypeError      MessageType = "error"
)

// Command is a control instruction sent by the client as a text message.
// Text is only meaningful for MessageTypeAskAI.
type Command struct {
	Type MessageType
	Text string
}

// Inbound is one decoded client message: exactly one of Audio or Command is set.
type Inbound struct {
	Audio   []byte
	Command *Command
}

func (in Inbound) IsAudio() bool {
	return in.Command == nil
}

type TranscriptMessage struct {
	Type       MessageType `json:"type"`
	Transcript string      `json:"transcript"`
	IsPartial  bool        `json:"isPartial"`
}

type AnswerMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
