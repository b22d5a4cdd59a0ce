package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Validate checks the configuration. Problems are reported as one
// *InvalidConfigError listing every failed field.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Cache.Enabled {
		if c.Cache.Dir == "" {
			add("cache.dir is required when the cache is enabled")
		}
		if c.Cache.FreshnessTTL <= 0 {
			add("cache.freshness_ttl must be positive")
		}
		if c.Cache.CleanupTTL < c.Cache.FreshnessTTL {
			add("cache.cleanup_ttl must not be shorter than cache.freshness_ttl")
		}
	}
	if c.Cache.SimilarityThreshold < 0 || c.Cache.SimilarityThreshold > 1 {
		add("cache.similarity_threshold must be within [0, 1]")
	}

	if c.Knowledge.Enabled {
		switch c.Knowledge.Embedder {
		case "hash", "ollama":
		default:
			add("knowledge.embedder must be hash or ollama, got %q", c.Knowledge.Embedder)
		}
		switch c.Knowledge.Mode {
		case "semantic", "hybrid":
		default:
			add("knowledge.mode must be semantic or hybrid, got %q", c.Knowledge.Mode)
		}
		if c.Knowledge.Dimensions <= 0 {
			add("knowledge.dimensions must be positive")
		}
		if c.Knowledge.TopK <= 0 || c.Knowledge.SnippetsPerQuery <= 0 || c.Knowledge.MaxQueries <= 0 {
			add("knowledge.top_k, snippets_per_query and max_queries must be positive")
		}
	}
	if c.Knowledge.MinScore < 0 || c.Knowledge.MinScore > 1 {
		add("knowledge.min_score must be within [0, 1]")
	}

	if c.Templates.Threshold < 0 || c.Templates.Threshold > 100 {
		add("templates.threshold must be within [0, 100]")
	}

	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		add("backend.url must be an absolute URL, got %q", c.Backend.URL)
	}
	if strings.TrimSpace(c.Backend.Model) == "" {
		add("backend.model is required")
	}
	if c.Backend.LLMTimeout <= 0 || c.Backend.ChatTimeout <= 0 {
		add("backend.llm_timeout and backend.chat_timeout must be positive")
	}

	if c.Chat.MaxHistory < 2 {
		add("chat.max_history must be at least 2")
	}

	if c.Sessions.IdleTTL < 0 {
		add("sessions.idle_ttl must not be negative")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}

	if len(problems) == 0 {
		return nil
	}
	return &InvalidConfigError{
		Message: strings.Join(problems, "\n"),
		Hint:    "Fix the listed fields or run 'study-advisor config init' to start from defaults",
	}
}
