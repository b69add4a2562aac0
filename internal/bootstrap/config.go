package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerAddr string `yaml:"server_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
	LogLevel   string `yaml:"log_level"`

	RelayPath         string        `yaml:"relay_path"`
	WatchdogInterval  time.Duration `yaml:"watchdog_interval"`
	IdleThreshold     time.Duration `yaml:"idle_threshold"`
	SilenceFrame      time.Duration `yaml:"silence_frame"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MaxMessageSize    int64         `yaml:"max_message_size"`

	STTProvider         string `yaml:"stt_provider"`
	STTLanguage         string `yaml:"stt_language"`
	STTPartialStability string `yaml:"stt_partial_stability"`

	AWSRegion          string        `yaml:"aws_region"`
	OCRAccessKeyID     string        `yaml:"aws_access_key_id_ocr"`
	OCRSecretAccessKey string        `yaml:"aws_secret_access_key_ocr"`
	TextractCacheTTL   time.Duration `yaml:"textract_cache_ttl"`

	DeepgramAPIKey string `yaml:"deepgram_api_key"`
	DeepgramURL    string `yaml:"deepgram_url"`
	DeepgramModel  string `yaml:"deepgram_model"`

	OpenAIAPIKey         string        `yaml:"openai_api_key"`
	OpenAIBaseURL        string        `yaml:"openai_base_url"`
	CompletionModel      string        `yaml:"completion_model"`
	CompletionTimeout    time.Duration `yaml:"completion_timeout"`
	CompletionMaxExcerpt int           `yaml:"completion_max_excerpt"`

	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	SessionTracking bool   `yaml:"session_tracking"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddr: ":8080",
		GRPCAddr:   ":50051",
		LogLevel:   "info",

		RelayPath:         "/transcribe",
		WatchdogInterval:  200 * time.Millisecond,
		IdleThreshold:     800 * time.Millisecond,
		SilenceFrame:      20 * time.Millisecond,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    1 << 20,

		STTProvider:         "aws",
		STTLanguage:         "en-US",
		STTPartialStability: "medium",

		AWSRegion:        "ap-south-1",
		TextractCacheTTL: 10 * time.Minute,

		DeepgramURL:   "wss://api.deepgram.com/v1/listen",
		DeepgramModel: "nova-2",

		CompletionModel:      "gpt-4o-mini",
		CompletionTimeout:    30 * time.Second,
		CompletionMaxExcerpt: 4000,

		RedisAddr:       "localhost:6379",
		SessionTracking: true,
	}
}

// LoadConfig builds the configuration from defaults, the optional
// CONFIG_FILE overlay and the environment, in that order.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.GRPCAddr = lookupEnv("GRPC_ADDR", c.GRPCAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.RelayPath = getEnv("RELAY_PATH", c.RelayPath)
	c.WatchdogInterval = getEnvDuration("WATCHDOG_INTERVAL", c.WatchdogInterval)
	c.IdleThreshold = getEnvDuration("IDLE_THRESHOLD", c.IdleThreshold)
	c.SilenceFrame = getEnvDuration("SILENCE_FRAME", c.SilenceFrame)
	c.HeartbeatInterval = getEnvDuration("HEARTBEAT_INTERVAL", c.HeartbeatInterval)
	c.MaxMessageSize = int64(getEnvInt("MAX_MESSAGE_SIZE", int(c.MaxMessageSize)))

	c.STTProvider = getEnv("STT_PROVIDER", c.STTProvider)
	c.STTLanguage = getEnv("STT_LANGUAGE", c.STTLanguage)
	c.STTPartialStability = lookupEnv("STT_PARTIAL_STABILITY", c.STTPartialStability)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.OCRAccessKeyID = getEnv("AWS_ACCESS_KEY_ID_OCR", c.OCRAccessKeyID)
	c.OCRSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY_OCR", c.OCRSecretAccessKey)
	c.TextractCacheTTL = getEnvDuration("TEXTRACT_CACHE_TTL", c.TextractCacheTTL)

	c.DeepgramAPIKey = getEnv("DEEPGRAM_API_KEY", c.DeepgramAPIKey)
	c.DeepgramURL = getEnv("DEEPGRAM_URL", c.DeepgramURL)
	c.DeepgramModel = getEnv("DEEPGRAM_MODEL", c.DeepgramModel)

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.CompletionModel = getEnv("COMPLETION_MODEL", c.CompletionModel)
	c.CompletionTimeout = getEnvDuration("COMPLETION_TIMEOUT", c.CompletionTimeout)
	c.CompletionMaxExcerpt = getEnvInt("COMPLETION_MAX_EXCERPT", c.CompletionMaxExcerpt)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.SessionTracking = getEnvBool("SESSION_TRACKING", c.SessionTracking)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv honours an explicitly empty value.
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
