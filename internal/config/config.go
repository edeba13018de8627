package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all bot configuration, read from the environment.
type Config struct {
	TelegramAPIBase  string
	TelegramFileBase string
	PollTimeout      int
	SleepSeconds     int
	DropPending      bool
	PendingWindow    int64
	PendingMax       int

	AnthropicAPIKey    string
	AnthropicURL       string
	AnthropicModel     string
	AnthropicMaxTokens int

	SpeechAPIKey   string
	SpeechURL      string
	SpeechLanguage string

	HistoryBaseURL  string
	HistoryPageSize int

	SnapshotBackend     string // "file" or "sqlite"
	SnapshotPath        string
	SaveIntervalMinutes int

	RetentionHours         int
	TriggerWord            string
	MinTotalBeforeBackfill int
	MinTotalToCompile      int
	MaxBatch               int
	KeepHead               int
	KeepTail               int

	Debug bool
}

// Load reads bot configuration from environment variables. A .env file
// in the working directory is loaded first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if telegramToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required in environment")
	}
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is required in environment")
	}

	backend := envOrDefault("STORYBOT_SNAPSHOT_BACKEND", "file")
	if backend != "file" && backend != "sqlite" {
		return Config{}, fmt.Errorf("STORYBOT_SNAPSHOT_BACKEND must be \"file\" or \"sqlite\", got %q", backend)
	}

	return Config{
		TelegramAPIBase:  fmt.Sprintf("https://api.telegram.org/bot%s", telegramToken),
		TelegramFileBase: fmt.Sprintf("https://api.telegram.org/file/bot%s", telegramToken),
		PollTimeout:      envIntOrDefault("TG_TIMEOUT", 30),
		SleepSeconds:     envIntOrDefault("TG_SLEEP_SECONDS", 1),
		DropPending:      envBoolOrDefault("TG_DROP_PENDING", true),
		PendingWindow:    int64(envIntOrDefault("TG_PENDING_WINDOW_SECONDS", 600)),
		PendingMax:       envIntOrDefault("TG_PENDING_MAX_MESSAGES", 50),

		AnthropicAPIKey:    anthropicKey,
		AnthropicURL:       envOrDefault("ANTHROPIC_MESSAGES_URL", "https://api.anthropic.com/v1/messages"),
		AnthropicModel:     envOrDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		AnthropicMaxTokens: envIntOrDefault("ANTHROPIC_MAX_TOKENS", 1024),

		SpeechAPIKey:   os.Getenv("GOOGLE_SPEECH_API_KEY"),
		SpeechURL:      envOrDefault("GOOGLE_SPEECH_URL", "https://speech.googleapis.com/v1/speech:recognize"),
		SpeechLanguage: envOrDefault("GOOGLE_SPEECH_LANGUAGE", "en-US"),

		HistoryBaseURL:  os.Getenv("STORYBOT_HISTORY_URL"),
		HistoryPageSize: envIntOrDefault("STORYBOT_HISTORY_PAGE_SIZE", 100),

		SnapshotBackend:     backend,
		SnapshotPath:        envOrDefault("STORYBOT_SNAPSHOT_PATH", "/state/messages.json"),
		SaveIntervalMinutes: envIntOrDefault("STORYBOT_SAVE_INTERVAL_MINUTES", 5),

		RetentionHours:         envIntOrDefault("STORYBOT_RETENTION_HOURS", 12),
		TriggerWord:            envOrDefault("STORYBOT_TRIGGER_WORD", "wtf"),
		MinTotalBeforeBackfill: envIntOrDefault("STORYBOT_MIN_TOTAL_BEFORE_BACKFILL", 10),
		MinTotalToCompile:      envIntOrDefault("STORYBOT_MIN_TOTAL_TO_COMPILE", 5),
		MaxBatch:               envIntOrDefault("STORYBOT_MAX_BATCH", 50),
		KeepHead:               envIntOrDefault("STORYBOT_KEEP_HEAD", 20),
		KeepTail:               envIntOrDefault("STORYBOT_KEEP_TAIL", 30),

		Debug: envBoolOrDefault("STORYBOT_DEBUG", false),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true")
}
