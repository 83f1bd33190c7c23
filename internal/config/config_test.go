package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"CONSULT_TIMEZONE": "UTC"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("addr/base = %q %q", cfg.Addr, cfg.APIBaseURL)
	}
	if cfg.APITimeout != DefaultAPITimeout || cfg.HorizonDays != DefaultHorizonDays {
		t.Errorf("timeout/horizon = %v %d", cfg.APITimeout, cfg.HorizonDays)
	}
	if cfg.SlowRequest != 500*time.Millisecond {
		t.Errorf("SlowRequest = %v", cfg.SlowRequest)
	}
	if len(cfg.VKRTypes) != 2 || len(cfg.MagistracyOptions) != 0 {
		t.Errorf("options = %v / %v", cfg.VKRTypes, cfg.MagistracyOptions)
	}
	if cfg.IsProduction() {
		t.Error("default env must be development")
	}
	if cfg.SessionKey == [32]byte{} {
		t.Error("development must generate a session key")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"CONSULT_API_BASE_URL":       "https://api.example.org/",
		"CONSULT_HORIZON_DAYS":       "30",
		"CONSULT_TIMEZONE":           "UTC",
		"CONSULT_MAGISTRACY_OPTIONS": "ИИ, , Data Science",
		"CONSULT_LOG_LEVEL":          "debug",
		"CONSULT_LOG_FORMAT":         "JSON",
		"CONSULT_SESSION_KEY":        strings.Repeat("ab", 32),
		"CONSULT_TRUSTED_ORIGINS":    "booking.example.org",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.org" {
		t.Errorf("APIBaseURL = %q (trailing slash must be trimmed)", cfg.APIBaseURL)
	}
	if cfg.HorizonDays != 30 {
		t.Errorf("HorizonDays = %d", cfg.HorizonDays)
	}
	if got := cfg.MagistracyOptions; len(got) != 2 || got[1] != "Data Science" {
		t.Errorf("MagistracyOptions = %v", got)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" {
		t.Errorf("log = %v %s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.SessionKey[0] != 0xab {
		t.Errorf("SessionKey not decoded")
	}
	if len(cfg.TrustedOrigins) != 1 || cfg.TrustedOrigins[0] != "booking.example.org" {
		t.Errorf("TrustedOrigins = %v", cfg.TrustedOrigins)
	}

	var buf bytes.Buffer
	cfg.NewLogger(&buf).Debug("probe")
	if !strings.Contains(buf.String(), `"msg":"probe"`) {
		t.Errorf("json logger output = %q", buf.String())
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"relative base url":   {"CONSULT_API_BASE_URL": "localhost:8000"},
		"bad timeout":         {"CONSULT_API_TIMEOUT": "soon"},
		"zero horizon":        {"CONSULT_HORIZON_DAYS": "0"},
		"unknown timezone":    {"CONSULT_TIMEZONE": "Mars/Olympus"},
		"bad log level":       {"CONSULT_LOG_LEVEL": "loud"},
		"bad log format":      {"CONSULT_LOG_FORMAT": "xml"},
		"short session key":   {"CONSULT_SESSION_KEY": "abcd"},
		"production sans key": {"CONSULT_ENV": "production"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			if env["CONSULT_TIMEZONE"] == "" {
				env["CONSULT_TIMEZONE"] = "UTC"
			}
			if _, err := FromEnv(envMap(env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
