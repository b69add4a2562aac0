package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideRedisClient(lc fx.Lifecycle, cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func ProvideAWSConfig(cfg *Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func ProvideTranscribeClient(awsCfg aws.Config) *transcribestreaming.Client {
	return transcribestreaming.NewFromConfig(awsCfg)
}

// ProvideTextractClient uses the dedicated OCR key pair when one is
// configured and the default credential chain otherwise.
func ProvideTextractClient(awsCfg aws.Config, cfg *Config) *textract.Client {
	return textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if cfg.OCRAccessKeyID != "" && cfg.OCRSecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.OCRAccessKeyID, cfg.OCRSecretAccessKey, "")
		}
	})
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideRedisClient,
		ProvideAWSConfig,
		ProvideTranscribeClient,
		ProvideTextractClient,
	),
)
