/*
Package config handles loading and saving study-advisor configuration.

Configuration is stored as YAML in ~/.study-advisor/config.yaml (or under
$STUDY_ADVISOR_HOME). Values are resolved in order: built-in defaults, the
config file, then environment overrides.

Schema:

	cache:
	  enabled: true
	  dir: ~/.study-advisor/cache
	  freshness_ttl: 24h
	  cleanup_ttl: 48h
	  similarity_threshold: 0.8
	knowledge:
	  enabled: true
	  dir: ~/.study-advisor/knowledge
	  embedder: hash            # hash | ollama
	  embedding_model: nomic-embed-text
	  dimensions: 512
	  top_k: 3
	  min_score: 0.5
	  snippets_per_query: 2
	  max_queries: 3
	  mode: semantic            # semantic | hybrid
	  keyword_weight: 0.3
	  semantic_weight: 0.7
	templates:
	  enabled: true
	  threshold: 70
	backend:
	  url: http://localhost:11434/api/chat
	  model: gemma3:12b
	  llm_timeout: 400s
	  chat_timeout: 180s
	chat:
	  max_history: 10
	server:
	  addr: 127.0.0.1:5000
	log:
	  level: info
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Environment variables read by Load.
const (
	EnvHome        = "STUDY_ADVISOR_HOME"
	EnvBackendURL  = "OLLAMA_API_URL"
	EnvModel       = "OLLAMA_MODEL"
	EnvLLMTimeout  = "LLM_TIMEOUT"
	EnvChatTimeout = "CHAT_TIMEOUT"
	EnvMaxHistory  = "MAX_CHAT_HISTORY"
)

// Config represents the root configuration structure.
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Templates TemplatesConfig `yaml:"templates"`
	Backend   BackendConfig   `yaml:"backend"`
	Chat      ChatConfig      `yaml:"chat"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir holds the SQLite database.
	Dir string `yaml:"dir"`

	// FreshnessTTL is the maximum age of an entry served on read.
	FreshnessTTL time.Duration `yaml:"freshness_ttl"`

	// CleanupTTL is the age past which a sweep removes entries.
	CleanupTTL time.Duration `yaml:"cleanup_ttl"`

	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// KnowledgeConfig configures the knowledge index.
type KnowledgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`

	// Embedder is "hash" or "ollama".
	Embedder       string `yaml:"embedder"`
	EmbeddingModel string `yaml:"embedding_model"`

	// EmbeddingURL is the Ollama server root. Empty uses the backend server.
	EmbeddingURL string `yaml:"embedding_url,omitempty"`
	Dimensions   int    `yaml:"dimensions"`

	TopK             int     `yaml:"top_k"`
	MinScore         float64 `yaml:"min_score"`
	SnippetsPerQuery int     `yaml:"snippets_per_query"`
	MaxQueries       int     `yaml:"max_queries"`

	// Mode is "semantic" or "hybrid".
	Mode           string  `yaml:"mode"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
}

// TemplatesConfig configures the canned-response matcher.
type TemplatesConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`

	// File replaces the built-in templates when set.
	File string `yaml:"file,omitempty"`
}

// BackendConfig configures the generation backend.
type BackendConfig struct {
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	LLMTimeout  time.Duration `yaml:"llm_timeout"`
	ChatTimeout time.Duration `yaml:"chat_timeout"`

	// ModelsDir receives generated Modelfiles.
	ModelsDir string `yaml:"models_dir"`
}

// ChatConfig configures follow-up chat.
type ChatConfig struct {
	MaxHistory int `yaml:"max_history"`
}

// SessionsConfig configures saved sessions and the live ones kept by the
// server. IdleTTL is how long an unused live session is kept; zero keeps
// them until restart.
type SessionsConfig struct {
	Dir     string        `yaml:"dir"`
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Home returns the data directory: $STUDY_ADVISOR_HOME or ~/.study-advisor.
func Home() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return expandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".study-advisor"), nil
}

// NewConfig returns the built-in defaults rooted at home.
func NewConfig(home string) *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled:             true,
			Dir:                 filepath.Join(home, "cache"),
			FreshnessTTL:        24 * time.Hour,
			CleanupTTL:          48 * time.Hour,
			SimilarityThreshold: 0.8,
		},
		Knowledge: KnowledgeConfig{
			Enabled:          true,
			Dir:              filepath.Join(home, "knowledge"),
			Embedder:         "hash",
			EmbeddingModel:   "nomic-embed-text",
			Dimensions:       512,
			TopK:             3,
			MinScore:         0.5,
			SnippetsPerQuery: 2,
			MaxQueries:       3,
			Mode:             "semantic",
			KeywordWeight:    0.3,
			SemanticWeight:   0.7,
		},
		Templates: TemplatesConfig{
			Enabled:   true,
			Threshold: 70,
		},
		Backend: BackendConfig{
			URL:         "http://localhost:11434/api/chat",
			Model:       "gemma3:12b",
			LLMTimeout:  400 * time.Second,
			ChatTimeout: 180 * time.Second,
			ModelsDir:   filepath.Join(home, "models"),
		},
		Chat:     ChatConfig{MaxHistory: 10},
		Sessions: SessionsConfig{Dir: filepath.Join(home, "sessions"), IdleTTL: 2 * time.Hour},
		Server:   ServerConfig{Addr: "127.0.0.1:5000"},
		Log:      LogConfig{Level: "info"},
	}
}

// GetDefaultConfigPath returns the path to config.yaml in Home.
func GetDefaultConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// CacheDBPath returns the SQLite database path.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.Cache.Dir, "advisor.db")
}
