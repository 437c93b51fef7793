// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration holds all service configuration.
type Configuration struct {
	Service       ServiceConfig
	STT           STTConfig
	IFlytek       IFlytekConfig
	Google        GoogleConfig
	Audio         AudioConfig
	Kafka         KafkaConfig
	HTTP          HTTPConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Name      string
	Version   string
	Principal string
	GRPCPort  string
}

// STTConfig selects the speech provider.
type STTConfig struct {
	Provider string // iflytek, google, mock
	Language string
}

// IFlytekConfig holds iFlytek IAT credentials and session tuning.
type IFlytekConfig struct {
	AppID          string
	APIKey         string
	APISecret      string
	Endpoint       string
	FrameInterval  time.Duration
	SessionTimeout time.Duration
}

// GoogleConfig holds Cloud Speech settings.
type GoogleConfig struct {
	CredentialsFile string
	Model           string
	SessionTimeout  time.Duration
}

// AudioConfig holds normalizer and transcoder settings.
type AudioConfig struct {
	TranscoderCommand string
	TranscoderTimeout time.Duration
	TempDir           string
	MaxBytes          int
}

// KafkaConfig holds Kafka event publishing settings.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicCompleted string
	TopicFailed    string
	Principal      string
}

// HTTPConfig holds the public HTTP API settings.
type HTTPConfig struct {
	Port           string
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present; variables already set in the
// environment take precedence.
func Load() *Configuration {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is like Load but reads the given env files.
func LoadFile(paths ...string) (*Configuration, error) {
	if err := godotenv.Load(paths...); err != nil {
		return nil, err
	}
	return fromEnv(), nil
}

func fromEnv() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "travel-voice-service")

	return &Configuration{
		Service: ServiceConfig{
			Name:      envOrDefault("APP_NAME", "AI Travel Planner"),
			Version:   envOrDefault("APP_VERSION", "1.0.0"),
			Principal: principal,
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
		},
		STT: STTConfig{
			Provider: strings.ToLower(envOrDefault("STT_PROVIDER", "iflytek")),
			Language: envOrDefault("STT_LANGUAGE", "zh_cn"),
		},
		IFlytek: IFlytekConfig{
			AppID:          os.Getenv("IFLYTEK_APP_ID"),
			APIKey:         os.Getenv("IFLYTEK_API_KEY"),
			APISecret:      os.Getenv("IFLYTEK_API_SECRET"),
			Endpoint:       os.Getenv("IFLYTEK_ENDPOINT"),
			FrameInterval:  envOrDefaultDuration("IFLYTEK_FRAME_INTERVAL", 40*time.Millisecond),
			SessionTimeout: envOrDefaultDuration("IFLYTEK_SESSION_TIMEOUT", 60*time.Second),
		},
		Google: GoogleConfig{
			CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
			Model:           os.Getenv("GOOGLE_MODEL"),
			SessionTimeout:  envOrDefaultDuration("GOOGLE_SESSION_TIMEOUT", 60*time.Second),
		},
		Audio: AudioConfig{
			TranscoderCommand: os.Getenv("AUDIO_TRANSCODER_COMMAND"),
			TranscoderTimeout: envOrDefaultDuration("AUDIO_TRANSCODER_TIMEOUT", 30*time.Second),
			TempDir:           os.Getenv("AUDIO_TEMP_DIR"),
			MaxBytes:          envOrDefaultInt("AUDIO_MAX_BYTES", 10*1024*1024), // 10MB
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        splitList(os.Getenv("KAFKA_BROKERS")),
			TopicCompleted: envOrDefault("KAFKA_TOPIC_COMPLETED", "voice.recognition.completed"),
			TopicFailed:    envOrDefault("KAFKA_TOPIC_FAILED", "voice.recognition.failed"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		HTTP: HTTPConfig{
			Port:           envOrDefault("HTTP_PORT", "8000"),
			CORSOrigins:    splitList(envOrDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
			RequestTimeout: envOrDefaultDuration("HTTP_REQUEST_TIMEOUT", 120*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
