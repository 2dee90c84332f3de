package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	GoogleApiKey string
	SerpApiKey   string
	LLMBackend   string
	FastModel    string
	Port         string
	LogLevel     string

	AnthropicApiKey string
	AnthropicModel  string

	ResultLimit        int
	SelectCount        int
	CommentLimit       int
	ConflictForumLimit int
	RequestTimeout     time.Duration
	ForumSite          string
	UserAgent          string

	ChunkSize    int
	ChunkOverlap int
}

const (
	BackendLangchain = "langchain"
	BackendGenai     = "genai"
	BackendAnthropic = "anthropic"
)

func defaults(v *viper.Viper) {
	v.SetDefault("google_api_key", "")
	v.SetDefault("serp_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("anthropic_model", "")
	v.SetDefault("llm_backend", BackendLangchain)
	v.SetDefault("fast_model", "gemini-2.5-flash")
	v.SetDefault("port", "8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("search_result_limit", 5)
	v.SetDefault("select_count", 3)
	// Comment indices 0..COMMENT_LIMIT inclusive are kept.
	v.SetDefault("comment_limit", 5)
	v.SetDefault("conflict_forum_limit", 3)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("forum_site", "reddit.com")
	v.SetDefault("user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("chunk_size", 4000)
	v.SetDefault("chunk_overlap", 0)
}

// Load reads configuration from the environment, an optional .env file and an
// optional search-agent.yaml in the working directory.
func Load() *Config {
	// It's okay if .env doesn't exist, as long as env vars are set
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.SetConfigName("search-agent")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("Failed to read config file", "error", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		GoogleApiKey:       v.GetString("google_api_key"),
		SerpApiKey:         v.GetString("serp_api_key"),
		LLMBackend:         strings.ToLower(v.GetString("llm_backend")),
		AnthropicApiKey:    v.GetString("anthropic_api_key"),
		AnthropicModel:     v.GetString("anthropic_model"),
		FastModel:          v.GetString("fast_model"),
		Port:               v.GetString("port"),
		LogLevel:           v.GetString("log_level"),
		ResultLimit:        v.GetInt("search_result_limit"),
		SelectCount:        v.GetInt("select_count"),
		CommentLimit:       v.GetInt("comment_limit"),
		ConflictForumLimit: v.GetInt("conflict_forum_limit"),
		RequestTimeout:     v.GetDuration("request_timeout"),
		ForumSite:          v.GetString("forum_site"),
		UserAgent:          v.GetString("user_agent"),
		ChunkSize:          v.GetInt("chunk_size"),
		ChunkOverlap:       v.GetInt("chunk_overlap"),
	}

	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = 5
	}
	if cfg.SelectCount <= 0 {
		cfg.SelectCount = 3
	}
	if cfg.ConflictForumLimit <= 0 {
		cfg.ConflictForumLimit = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return cfg
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
