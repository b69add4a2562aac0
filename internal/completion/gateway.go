package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

var ErrUnavailable = errors.New("completion unavailable")

const (
	DefaultModel      = openai.GPT4oMini
	DefaultTimeout    = 30 * time.Second
	DefaultMaxExcerpt = 4000

	// FallbackAnswer is returned when the model produces no text.
	FallbackAnswer = "Sorry, I couldn't generate an answer."
)

const promptTemplate = `You are not advising. You are answering as the candidate in an interview.

1) From the transcript, find the last actual question asked. Ignore filler.
2) Answer that question directly, as if you are speaking naturally.

Rules:
- Max 80 words
- No preamble
- Tone: natural, calm, confident
- Do NOT say "The question is" or "You should"
- If it's a DSA-style problem, include the code in Cpp.

TRANSCRIPT (recent):
%s

Now respond as the candidate:`

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxExcerpt int
}

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Gateway turns a transcript excerpt into a single answer. It holds no
// per-call state and is shared across connections.
type Gateway struct {
	client     ChatClient
	model      string
	timeout    time.Duration
	maxExcerpt int
	log        *slog.Logger
}

func NewClient(cfg Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(oc)
}

func NewGateway(client ChatClient, cfg Config, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	g := &Gateway{
		client:     client,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxExcerpt: cfg.MaxExcerpt,
		log:        log.With("component", "completion"),
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.maxExcerpt <= 0 {
		g.maxExcerpt = DefaultMaxExcerpt
	}
	return g
}

func (g *Gateway) Model() string {
	return g.model
}

func (g *Gateway) Complete(ctx context.Context, excerpt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(Truncate(excerpt, g.maxExcerpt)),
			},
		},
	})
	if err != nil {
		g.log.Warn("completion failed", "error", err, "duration", time.Since(start))
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	g.log.Debug("completion done", "duration", time.Since(start), "tokens", resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		return FallbackAnswer, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return FallbackAnswer, nil
	}
	return text, nil
}

func BuildPrompt(excerpt string) string {
	return fmt.Sprintf(promptTemplate, excerpt)
}

// Truncate keeps the first max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// ErrorAnswer renders a failed completion as the text of an ai_answer.
func ErrorAnswer(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "AI error: " + apiErr.Message
	}
	return "AI error: " + strings.TrimPrefix(err.Error(), ErrUnavailable.Error()+": ")
}
