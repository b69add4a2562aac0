package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/eleven-am/voice-relay/internal/gateway"
	"github.com/eleven-am/voice-relay/internal/health"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const version = "1.0.0"

func transcriptionCheck(cfg *Config, awsCfg aws.Config) health.Check {
	return health.Check{
		Name:     "transcription",
		Critical: true,
		Run: func(ctx context.Context) error {
			switch cfg.STTProvider {
			case "deepgram":
				if cfg.DeepgramAPIKey == "" {
					return errors.New("DEEPGRAM_API_KEY not set")
				}
				return nil
			default:
				if awsCfg.Credentials == nil {
					return errors.New("no aws credentials")
				}
				if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
					return fmt.Errorf("aws credentials: %w", err)
				}
				return nil
			}
		},
	}
}

func completionCheck(cfg *Config) health.Check {
	return health.Check{
		Name: "completion",
		Run: func(context.Context) error {
			if cfg.OpenAIAPIKey == "" {
				return errors.New("OPENAI_API_KEY not set")
			}
			return nil
		},
	}
}

func ProvideHealthHandler(cfg *Config, awsCfg aws.Config, redis *redis.Client, registry *gateway.Registry) *health.Handler {
	checks := []health.Check{
		transcriptionCheck(cfg, awsCfg),
		completionCheck(cfg),
	}
	return health.NewHandler(redis, registry, checks, version)
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementActive()
			defer h.DecrementActive()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
