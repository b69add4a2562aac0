package transcription

// Event is one decoded recognition result. Partial events may be replaced
// by later partials for the same utterance; final events are never revised.
type Event struct {
	Text    string
	IsFinal bool
}

// Hypothesis is a backend result before decoding: candidate transcripts in
// descending likelihood plus the backend's partial flag.
type Hypothesis struct {
	Alternatives []string
	IsPartial    bool
}

type Config struct {
	Provider         string
	Language         string
	PartialStability string
	Deepgram         DeepgramConfig
}

type DeepgramConfig struct {
	URL    string
	APIKey string
	Model  string
}
