package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"voice-connector/internal/domain/apperrors"

	"github.com/joho/godotenv"
)

// Config holds everything the bot needs at runtime. It is built once by Load
// and passed to every component.
type Config struct {
	EnvFile string

	BotToken string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	CreateAssistant       bool
	AssistantID           string
	AssistantName         string
	AssistantInstructions string
	AssistantModel        string

	STTModel string
	TTSModel string
	TTSVoice string

	ThreadLifetimeSec int64
	AudioFilesFolder  string
	RunPollInterval   time.Duration
	RunTimeout        time.Duration

	MongoURI      string
	MongoDatabase string

	Port     string
	LogLevel string
	LogJSON  bool
}

func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil {
		log.Printf("Could not load env file %s: %v", path, err)
		return err
	}
	return nil
}

func GetEnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// Load reads the process environment into a Config. The env file named by
// envFile is only recorded, LoadEnv must be called first to apply it.
func Load(envFile string) (*Config, error) {
	cfg := &Config{
		EnvFile:               envFile,
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		AssistantID:           os.Getenv("OPENAI_ASSISTANT_ID"),
		AssistantName:         GetEnvOrDefault("OPENAI_ASSISTANT_NAME", "Voice assistant"),
		AssistantInstructions: os.Getenv("OPENAI_ASSISTANT_INSTRUCTIONS"),
		AssistantModel:        GetEnvOrDefault("OPENAI_ASSISTANT_MODEL", "gpt-4o-mini"),
		STTModel:              GetEnvOrDefault("OPENAI_STT_MODEL", "whisper-1"),
		TTSModel:              GetEnvOrDefault("OPENAI_TTS_MODEL", "tts-1"),
		TTSVoice:              GetEnvOrDefault("OPENAI_TTS_VOICE", "alloy"),
		AudioFilesFolder:      GetEnvOrDefault("AUDIO_FILES_FOLDER", "audio"),
		MongoURI:              os.Getenv("MONGODB_URI"),
		MongoDatabase:         GetEnvOrDefault("MONGODB_DATABASE", "VoiceConnector"),
		Port:                  GetEnvOrDefault("PORT", "8080"),
		LogLevel:              GetEnvOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.BotToken, err = requireEnv("BOT_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.CreateAssistant, err = boolEnv("CREATE_OPENAI_ASSISTANT", false); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = boolEnv("LOG_JSON", true); err != nil {
		return nil, err
	}
	if cfg.ThreadLifetimeSec, err = intEnv("THREAD_LIFETIME_SEC", 600); err != nil {
		return nil, err
	}

	pollMs, err := intEnv("RUN_POLL_INTERVAL_MS", 500)
	if err != nil {
		return nil, err
	}
	cfg.RunPollInterval = time.Duration(pollMs) * time.Millisecond

	timeoutSec, err := intEnv("RUN_TIMEOUT_SEC", 120)
	if err != nil {
		return nil, err
	}
	cfg.RunTimeout = time.Duration(timeoutSec) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if !c.CreateAssistant && c.AssistantID == "" {
		return &apperrors.ConfigurationError{Key: "OPENAI_ASSISTANT_ID", Reason: "required when CREATE_OPENAI_ASSISTANT is false"}
	}
	if c.CreateAssistant && c.AssistantModel == "" {
		return &apperrors.ConfigurationError{Key: "OPENAI_ASSISTANT_MODEL", Reason: "required when CREATE_OPENAI_ASSISTANT is true"}
	}
	if c.ThreadLifetimeSec < 0 {
		return &apperrors.ConfigurationError{Key: "THREAD_LIFETIME_SEC", Reason: "must not be negative"}
	}
	if c.RunPollInterval <= 0 {
		return &apperrors.ConfigurationError{Key: "RUN_POLL_INTERVAL_MS", Reason: "must be positive"}
	}
	if c.RunTimeout <= 0 {
		return &apperrors.ConfigurationError{Key: "RUN_TIMEOUT_SEC", Reason: "must be positive"}
	}
	return nil
}

// PersistEnv writes the given keys into the env file, keeping any other
// entries already there, and applies them to the running process.
func PersistEnv(path string, values map[string]string) error {
	current, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		current = map[string]string{}
	}

	for key, value := range values {
		current[key] = value
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	if err := godotenv.Write(current, path); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", path, err)
	}
	return nil
}

func requireEnv(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", &apperrors.ConfigurationError{Key: key, Reason: "is required but not set"}
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &apperrors.ConfigurationError{Key: key, Reason: fmt.Sprintf("invalid boolean %q", raw)}
	}
	return value, nil
}

func intEnv(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &apperrors.ConfigurationError{Key: key, Reason: fmt.Sprintf("invalid integer %q", raw)}
	}
	return value, nil
}
