package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	SecretKey string
	StaticDir string
	GinMode   string

	// optional relational store; empty keeps the service in memory-only mode
	DatabaseURL string

	// AI provider
	AIProvider      string
	APIKey          string
	AIBaseURL       string
	Model           string
	Temperature     float64
	MaxTokens       int
	AITimeout       time.Duration
	AIMaxConcurrent int

	// conversation policy
	DailyLimit      int
	HistoryMax      int
	MaxMessageChars int
	TrustForwarded  bool

	// redis (shared rate limit)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// rabbitMQ (turn events)
	RabbitURL   string
	RabbitQueue string

	LogLevel  string
	LogFormat string
}

const placeholderAPIKey = "API_KEY"

// HasAPIKey reports whether a usable credential is configured. The literal
// placeholder "API_KEY" shipped in sample env files does not count.
func (c Config) HasAPIKey() bool {
	k := strings.TrimSpace(c.APIKey)
	return k != "" && k != placeholderAPIKey
}

func (c Config) DBConfigured() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "static"
	}

	aiProvider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	if aiProvider == "" {
		aiProvider = "groq"
	}

	model := os.Getenv("MODEL")
	if model == "" {
		model = "llama-3.1-8b-instant"
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "chat_turns"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return Config{
		Port:      port,
		SecretKey: secret,
		StaticDir: staticDir,
		GinMode:   os.Getenv("GIN_MODE"),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		AIProvider:      aiProvider,
		APIKey:          strings.TrimSpace(os.Getenv("API_KEY")),
		AIBaseURL:       os.Getenv("AI_BASE_URL"),
		Model:           model,
		Temperature:     envFloat("AI_TEMPERATURE", 0.9),
		MaxTokens:       envInt("AI_MAX_TOKENS", 600),
		AITimeout:       time.Duration(envInt("AI_TIMEOUT", 60)) * time.Second,
		AIMaxConcurrent: envInt("AI_MAX_CONCURRENT", 0),

		DailyLimit:      envInt("DAILY_LIMIT", 120),
		HistoryMax:      envInt("HISTORY_MAX", 16),
		MaxMessageChars: envInt("MAX_MESSAGE_CHARS", 4000),
		TrustForwarded:  envBool("TRUST_FORWARDED", true),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,

		LogLevel:  logLevel,
		LogFormat: logFormat,
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
