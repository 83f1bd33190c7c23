package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Defaults
const (
	DefaultAddr          = ":8080"
	DefaultAPIBaseURL    = "http://localhost:8000"
	DefaultAPITimeout    = 10 * time.Second
	DefaultHorizonDays   = 365
	DefaultTimezone      = "Europe/Moscow"
	DefaultSlowRequestMs = 500
	DefaultRateLimit     = 120
)

// DefaultVKRTypes are the work-type options of the booking form.
var DefaultVKRTypes = []string{"ВКР", "ВКРС"}

// Config holds everything main needs to wire the server.
type Config struct {
	Addr              string
	APIBaseURL        string
	APITimeout        time.Duration
	HorizonDays       int
	Location          *time.Location
	Env               string
	LogLevel          slog.Level
	LogFormat         string // "text" or "json"
	CSRFKey           []byte
	SessionKey        [32]byte
	SessionDB         string // empty = in-memory sessions
	VKRTypes          []string
	MagistracyOptions []string // empty = free text input
	SlowRequest       time.Duration
	RateLimit         int // requests per minute per IP
	TrustedOrigins    []string
}

// IsProduction reports whether the server runs with production safeguards.
func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Load reads an optional .env file, then CONSULT_* environment variables.
// PRE: none
// POST: Returns a validated Config or the first configuration error
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err == nil {
		log.Println("Loaded configuration from .env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Load uses os.Getenv; tests pass a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Addr:       get("CONSULT_ADDR", DefaultAddr),
		APIBaseURL: strings.TrimRight(get("CONSULT_API_BASE_URL", DefaultAPIBaseURL), "/"),
		Env:        get("CONSULT_ENV", EnvDevelopment),
		LogFormat:  strings.ToLower(get("CONSULT_LOG_FORMAT", "text")),
		SessionDB:  get("CONSULT_SESSION_DB", ""),
		VKRTypes:   splitList(get("CONSULT_VKR_TYPES", strings.Join(DefaultVKRTypes, ","))),
	}
	cfg.MagistracyOptions = splitList(getenv("CONSULT_MAGISTRACY_OPTIONS"))
	cfg.TrustedOrigins = splitList(getenv("CONSULT_TRUSTED_ORIGINS"))

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("CONSULT_API_BASE_URL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}

	if cfg.APITimeout, err = time.ParseDuration(get("CONSULT_API_TIMEOUT", DefaultAPITimeout.String())); err != nil || cfg.APITimeout <= 0 {
		return nil, fmt.Errorf("CONSULT_API_TIMEOUT: invalid duration %q", getenv("CONSULT_API_TIMEOUT"))
	}
	if cfg.HorizonDays, err = positiveInt(get("CONSULT_HORIZON_DAYS", strconv.Itoa(DefaultHorizonDays))); err != nil {
		return nil, fmt.Errorf("CONSULT_HORIZON_DAYS: %w", err)
	}
	slowMs, err := positiveInt(get("CONSULT_SLOW_REQUEST_MS", strconv.Itoa(DefaultSlowRequestMs)))
	if err != nil {
		return nil, fmt.Errorf("CONSULT_SLOW_REQUEST_MS: %w", err)
	}
	cfg.SlowRequest = time.Duration(slowMs) * time.Millisecond
	if cfg.RateLimit, err = positiveInt(get("CONSULT_RATE_LIMIT", strconv.Itoa(DefaultRateLimit))); err != nil {
		return nil, fmt.Errorf("CONSULT_RATE_LIMIT: %w", err)
	}

	tz := get("CONSULT_TIMEZONE", DefaultTimezone)
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("CONSULT_TIMEZONE %q: %w", tz, err)
	}

	if cfg.LogLevel, err = parseLevel(get("CONSULT_LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("CONSULT_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if len(cfg.VKRTypes) == 0 {
		cfg.VKRTypes = DefaultVKRTypes
	}

	if key := getenv("CONSULT_CSRF_KEY"); key != "" {
		cfg.CSRFKey = []byte(key)
	}

	if err := cfg.loadSessionKey(getenv("CONSULT_SESSION_KEY")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSessionKey decodes the 32-byte hex key sealing stored admin tokens.
// Development falls back to a random key, so persisted tokens do not survive restarts.
func (c *Config) loadSessionKey(raw string) error {
	if raw == "" {
		if c.IsProduction() {
			return errors.New("CONSULT_SESSION_KEY is required in production")
		}
		if _, err := io.ReadFull(rand.Reader, c.SessionKey[:]); err != nil {
			return fmt.Errorf("generate session key: %w", err)
		}
		return nil
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) != len(c.SessionKey) {
		return fmt.Errorf("CONSULT_SESSION_KEY must be %d hex-encoded bytes", len(c.SessionKey))
	}
	copy(c.SessionKey[:], decoded)
	return nil
}

// NewLogger builds the process-wide slog logger from the configured level and format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("CONSULT_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer, got %q", s)
	}
	return n, nil
}

// splitList parses a comma-separated option list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
