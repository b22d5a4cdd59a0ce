package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateDefaults(t *testing.T) {
	if err := NewConfig(t.TempDir()).Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "cleanup shorter than freshness",
			mutate: func(c *Config) { c.Cache.CleanupTTL = c.Cache.FreshnessTTL / 2 },
			errMsg: "cache.cleanup_ttl",
		},
		{
			name:   "similarity out of range",
			mutate: func(c *Config) { c.Cache.SimilarityThreshold = 1.5 },
			errMsg: "cache.similarity_threshold",
		},
		{
			name:   "unknown embedder",
			mutate: func(c *Config) { c.Knowledge.Embedder = "openai" },
			errMsg: "knowledge.embedder",
		},
		{
			name:   "unknown mode",
			mutate: func(c *Config) { c.Knowledge.Mode = "keyword" },
			errMsg: "knowledge.mode",
		},
		{
			name:   "threshold out of range",
			mutate: func(c *Config) { c.Templates.Threshold = 120 },
			errMsg: "templates.threshold",
		},
		{
			name:   "relative backend url",
			mutate: func(c *Config) { c.Backend.URL = "/api/chat" },
			errMsg: "backend.url",
		},
		{
			name:   "empty model",
			mutate: func(c *Config) { c.Backend.Model = " " },
			errMsg: "backend.model",
		},
		{
			name:   "history too short",
			mutate: func(c *Config) { c.Chat.MaxHistory = 1 },
			errMsg: "chat.max_history",
		},
		{
			name:   "negative session idle ttl",
			mutate: func(c *Config) { c.Sessions.IdleTTL = -time.Minute },
			errMsg: "sessions.idle_ttl",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Log.Level = "verbose" },
			errMsg: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(t.TempDir())
			tt.mutate(cfg)

			err := cfg.Validate()
			var invalidErr *InvalidConfigError
			if !errors.As(err, &invalidErr) {
				t.Fatalf("expected InvalidConfigError, got %v", err)
			}
			if !strings.Contains(invalidErr.Message, tt.errMsg) {
				t.Errorf("message should mention %q, got %q", tt.errMsg, invalidErr.Message)
			}
		})
	}
}

func TestValidateDisabledSectionsSkipChecks(t *testing.T) {
	cfg := NewConfig(t.TempDir())
	cfg.Knowledge.Enabled = false
	cfg.Knowledge.Embedder = ""
	cfg.Cache.Enabled = false
	cfg.Cache.Dir = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled sections should not be validated: %v", err)
	}
}

func TestValidateListsEveryProblem(t *testing.T) {
	cfg := NewConfig(t.TempDir())
	cfg.Backend.Model = ""
	cfg.Chat.MaxHistory = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "backend.model") || !strings.Contains(msg, "chat.max_history") {
		t.Errorf("both problems should be listed, got %q", msg)
	}
}
