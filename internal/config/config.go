package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLMProvider identifies the backing model vendor for the summarizer.
type LLMProvider string

const (
	ProviderNone      LLMProvider = ""
	ProviderOllama    LLMProvider = "ollama"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ServerPort string

	// Tavily search
	TavilyAPIKey  string
	TavilyBaseURL string
	TavilyTimeout time.Duration

	// Result archive
	ResultsDir string

	// SurrealDB task persistence (optional, disabled when URL is empty)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Summarizer LLM (optional, heuristic summarizer when unset)
	LLMProvider     LLMProvider
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Pacing delay between search queries within one task
	QueryPacing time.Duration
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ServerPort: getEnv("CIVISCOPE_PORT", "8000"),

		TavilyAPIKey:  getEnv("TAVILY_API_KEY", ""),
		TavilyBaseURL: getEnv("TAVILY_BASE_URL", "https://api.tavily.com"),
		TavilyTimeout: getDuration("TAVILY_TIMEOUT", 30*time.Second),

		ResultsDir: getEnv("CIVISCOPE_RESULTS_DIR", "research_results"),

		SurrealDBURL:       getEnv("SURREALDB_URL", ""),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "civiscope"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "research"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     LLMProvider(getEnv("CIVISCOPE_LLM_PROVIDER", "")),
		LLMModel:        getEnv("CIVISCOPE_LLM_MODEL", "llama3"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		LogFile:  getEnv("CIVISCOPE_LOG_FILE", "/tmp/civiscope.log"),
		LogLevel: parseLogLevel(getEnv("CIVISCOPE_LOG_LEVEL", "INFO")),

		QueryPacing: getDuration("CIVISCOPE_QUERY_PACING", 500*time.Millisecond),
	}
}

// PersistenceEnabled reports whether SurrealDB task persistence is configured.
func (c Config) PersistenceEnabled() bool {
	return c.SurrealDBURL != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// Bare numbers are treated as seconds
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
