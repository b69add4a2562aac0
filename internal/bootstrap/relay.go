package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/eleven-am/voice-relay/internal/completion"
	"github.com/eleven-am/voice-relay/internal/gateway"
	"github.com/eleven-am/voice-relay/internal/session"
	"github.com/eleven-am/voice-relay/internal/transcription"
	"github.com/eleven-am/voice-relay/internal/vision"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideTranscriptionConfig(cfg *Config) transcription.Config {
	return transcription.Config{
		Provider:         cfg.STTProvider,
		Language:         cfg.STTLanguage,
		PartialStability: cfg.STTPartialStability,
		Deepgram: transcription.DeepgramConfig{
			URL:    cfg.DeepgramURL,
			APIKey: cfg.DeepgramAPIKey,
			Model:  cfg.DeepgramModel,
		},
	}
}

func ProvideTranscriptionBackend(cfg transcription.Config, client *transcribestreaming.Client) (transcription.Backend, error) {
	switch cfg.Provider {
	case "", "aws":
		return transcription.NewAWSBackend(client, cfg), nil
	case "deepgram":
		return transcription.NewDeepgramBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown STT_PROVIDER %q", cfg.Provider)
	}
}

func ProvideTranscriptionService(backend transcription.Backend, logger *slog.Logger) *transcription.Service {
	return transcription.NewService(backend, logger.With("component", "transcription"))
}

func ProvideCompletionConfig(cfg *Config) completion.Config {
	return completion.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.CompletionModel,
		Timeout:    cfg.CompletionTimeout,
		MaxExcerpt: cfg.CompletionMaxExcerpt,
	}
}

func ProvideCompletionGateway(cfg completion.Config, logger *slog.Logger) *completion.Gateway {
	return completion.NewGateway(completion.NewClient(cfg), cfg, logger.With("component", "completion"))
}

func ProvideSessionStore(redisClient *redis.Client) *session.Store {
	return session.NewStore(redisClient)
}

func ProvideGatewayConfig(cfg *Config) gateway.Config {
	return gateway.Config{
		WatchdogInterval:  cfg.WatchdogInterval,
		IdleThreshold:     cfg.IdleThreshold,
		SilenceFrame:      cfg.SilenceFrame,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxMessageSize:    cfg.MaxMessageSize,
	}
}

func ProvideGatewayDeps(cfg *Config, stt *transcription.Service, completer *completion.Gateway, store *session.Store) gateway.Deps {
	deps := gateway.Deps{
		Transcriber: stt,
		Completer:   completer,
	}
	if cfg.SessionTracking {
		deps.Tracker = store
	}
	return deps
}

func ProvideExtractor(client *textract.Client, redisClient *redis.Client, cfg *Config, logger *slog.Logger) *vision.Extractor {
	cache := vision.NewStore(redisClient, cfg.TextractCacheTTL)
	return vision.NewExtractor(client, cache, logger.With("component", "textract"))
}

func ProvideVisionHandler(extractor *vision.Extractor, logger *slog.Logger) *vision.Handler {
	return vision.NewHandler(extractor, logger.With("handler", "textract"))
}

func ProvideSessionHandler(store *session.Store, logger *slog.Logger) *session.Handler {
	return session.NewHandler(store, logger.With("handler", "session"))
}

var RelayModule = fx.Options(
	fx.Provide(
		ProvideTranscriptionConfig,
		ProvideTranscriptionBackend,
		ProvideTranscriptionService,
		ProvideCompletionConfig,
		ProvideCompletionGateway,
		ProvideSessionStore,
		ProvideGatewayConfig,
		ProvideGatewayDeps,
		ProvideExtractor,
		ProvideVisionHandler,
		ProvideSessionHandler,
	),
)
