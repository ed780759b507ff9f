package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	PDF      PDFConfig
	Redis    RedisConfig
	Janitor  JanitorConfig
	Log      LogConfig
}

type AppConfig struct {
	AppName     string
	HTTPPort    string
	CORSOrigins []string
}

type DatabaseConfig struct {
	URL string
}

type AuthConfig struct {
	SecretKey    string
	TokenExpires time.Duration
}

type AIConfig struct {
	Timeout       time.Duration
	GoogleAPIKey  string
	GroqAPIKey    string
	GoogleBaseURL string
	GroqBaseURL   string
}

// FallbackKeys returns the server-wide API keys by provider id.
func (c AIConfig) FallbackKeys() map[string]string {
	keys := map[string]string{}
	if c.GoogleAPIKey != "" {
		keys["google"] = c.GoogleAPIKey
	}
	if c.GroqAPIKey != "" {
		keys["groq"] = c.GroqAPIKey
	}
	return keys
}

type PDFConfig struct {
	ChromePath string
	Timeout    time.Duration
}

type RedisConfig struct {
	URL            string
	StatusCacheTTL time.Duration
}

type JanitorConfig struct {
	Schedule   string
	StaleAfter time.Duration
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Config{}

	var missing, invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return def
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			invalid = append(invalid, key)
			return def
		}
		return d
	}

	cfg.App = AppConfig{
		AppName:     opt("APP_NAME", "myCv Backend API"),
		HTTPPort:    opt("HTTP_PORT", "3000"),
		CORSOrigins: splitList(opt("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	cfg.Database = DatabaseConfig{
		URL: opt("DATABASE_URL", ""),
	}

	cfg.Auth = AuthConfig{
		SecretKey:    req("APP_SECRET_KEY"),
		TokenExpires: dur("JWT_EXPIRES_IN", 7*24*time.Hour),
	}

	cfg.AI = AIConfig{
		Timeout:       dur("AI_TIMEOUT", 120*time.Second),
		GoogleAPIKey:  opt("GOOGLE_API_KEY", ""),
		GroqAPIKey:    opt("GROQ_API_KEY", ""),
		GoogleBaseURL: opt("GOOGLE_BASE_URL", ""),
		GroqBaseURL:   opt("GROQ_BASE_URL", ""),
	}

	cfg.PDF = PDFConfig{
		ChromePath: opt("CHROME_PATH", ""),
		Timeout:    dur("PDF_TIMEOUT", 60*time.Second),
	}

	cfg.Redis = RedisConfig{
		URL:            opt("REDIS_URL", ""),
		StatusCacheTTL: dur("STATUS_CACHE_TTL", 10*time.Minute),
	}

	cfg.Janitor = JanitorConfig{
		Schedule:   opt("JANITOR_SCHEDULE", "@every 15m"),
		StaleAfter: dur("JANITOR_STALE_AFTER", 30*time.Minute),
	}

	cfg.Log.Format = strings.ToLower(opt("LOG_FORMAT", "json"))
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		invalid = append(invalid, "LOG_FORMAT")
	}
	if err := cfg.Log.Level.UnmarshalText([]byte(opt("LOG_LEVEL", "info"))); err != nil {
		invalid = append(invalid, "LOG_LEVEL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewLogger builds the process logger from the log settings.
func NewLogger(c LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
