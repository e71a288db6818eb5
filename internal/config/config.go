package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	RelayPort   int
	RecordsPort int
	RelayURL    string
	RecordsURL  string

	HealthTimeout time.Duration
	ChatTimeout   time.Duration

	Upstream               string
	PipelineURL            string
	PipelineAPIKey         string
	UpstreamConnectTimeout time.Duration
	UpstreamReadTimeout    time.Duration
	AnthropicAPIKey        string
	AnthropicModel         string
	OpenAIAPIKey           string
	OpenAIBaseURL          string
	OpenAIModel            string

	DatabaseURL string
	NatsURL     string
	NatsToken   string

	ChromeDebuggerURL string
	PrefsPath         string
	LogFile           string
	LogLevel          string
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		RelayPort:   envInt("TABCHAT_RELAY_PORT", 5000),
		RecordsPort: envInt("TABCHAT_RECORDS_PORT", 8000),
		RelayURL:    envStr("TABCHAT_RELAY_URL", "http://localhost:5000"),
		RecordsURL:  envStr("TABCHAT_RECORDS_URL", "http://localhost:8000"),

		HealthTimeout: envDuration("TABCHAT_HEALTH_TIMEOUT", 5*time.Second),
		ChatTimeout:   envDuration("TABCHAT_CHAT_TIMEOUT", 180*time.Second),

		Upstream:               envStr("TABCHAT_UPSTREAM", "pipeline"),
		PipelineURL:            envStr("TABCHAT_PIPELINE_URL", ""),
		PipelineAPIKey:         envStr("TABCHAT_PIPELINE_API_KEY", ""),
		UpstreamConnectTimeout: envDuration("TABCHAT_UPSTREAM_CONNECT_TIMEOUT", 30*time.Second),
		UpstreamReadTimeout:    envDuration("TABCHAT_UPSTREAM_READ_TIMEOUT", 180*time.Second),
		AnthropicAPIKey:        envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:         envStr("TABCHAT_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:           envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:          envStr("OPENAI_BASE_URL", ""),
		OpenAIModel:            envStr("TABCHAT_OPENAI_MODEL", "gpt-4o-mini"),

		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),

		ChromeDebuggerURL: envStr("CHROME_DEBUGGER_URL", "http://127.0.0.1:9222"),
		PrefsPath:         envStr("TABCHAT_PREFS_PATH", "~/.config/tabchat/prefs.yaml"),
		LogFile:           envStr("TABCHAT_LOG_FILE", ""),
		LogLevel:          envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
