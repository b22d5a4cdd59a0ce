/*
Package app wires the advisor's components from a loaded configuration.

Every surface (CLI, HTTP, MCP) builds one App and shares it. Optional
features degrade on their own: a storage failure disables the cache and the
tracker, a knowledge index that cannot open disables augmentation.
*/
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/advisor"
	"github.com/khanglvm/study-advisor/internal/cache"
	"github.com/khanglvm/study-advisor/internal/config"
	"github.com/khanglvm/study-advisor/internal/knowledge"
	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/llm"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/prompts"
	"github.com/khanglvm/study-advisor/internal/session"
	"github.com/khanglvm/study-advisor/internal/storage"
	"github.com/khanglvm/study-advisor/internal/templates"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Storage   *storage.SQLiteStorage
	Cache     *cache.Store
	Knowledge *knowledge.Index
	Matcher   *templates.Matcher
	Client    *llm.Client
	Tracker   *learning.Tracker
	Advisor   *advisor.Orchestrator
	Sessions  *advisor.Registry
	Saved     *session.Manager

	started time.Time
}

type buildOptions struct {
	generator llm.Generator
	embedder  knowledge.Embedder
}

// Option customizes New.
type Option func(*buildOptions)

// WithGenerator replaces the Ollama client as the text generator.
func WithGenerator(g llm.Generator) Option {
	return func(o *buildOptions) { o.generator = g }
}

// WithEmbedder replaces the configured knowledge embedder.
func WithEmbedder(e knowledge.Embedder) Option {
	return func(o *buildOptions) { o.embedder = e }
}

// New builds an App. Only the prompt builder and the sessions directory are
// fatal; everything else logs and degrades.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Client:   llm.NewClient(cfg.Backend.URL),
		Sessions: advisor.NewRegistry(),
		started:  time.Now(),
	}

	builder, err := prompts.NewBuilder(cfg.Backend.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	if a.Saved, err = session.NewManager(cfg.Sessions.Dir, logger.Named("sessions")); err != nil {
		return nil, err
	}

	a.Storage = storage.NewStorage(cfg.CacheDBPath(), logger.Named("storage"))
	if err := a.Storage.Init(); err != nil {
		logger.Warn("Running without persistent storage", zap.Error(err))
	}
	a.Tracker = learning.NewTracker(a.Storage, logger.Named("learning"))

	if cfg.Cache.Enabled {
		a.Cache = cache.New(a.Storage, cache.Options{
			FreshnessTTL:        cfg.Cache.FreshnessTTL,
			CleanupTTL:          cfg.Cache.CleanupTTL,
			SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		}, logger.Named("cache"))
		if n, err := a.Cache.Sweep(cfg.Cache.CleanupTTL); err != nil {
			logger.Warn("Cache sweep failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("Swept expired cache entries", zap.Int("removed", n))
		}
	}

	if cfg.Knowledge.Enabled {
		emb := bo.embedder
		if emb == nil {
			emb = a.newEmbedder()
		}
		idx, err := knowledge.Open(ctx, emb, knowledge.Options{
			Dir:      cfg.Knowledge.Dir,
			TopK:     cfg.Knowledge.TopK,
			MinScore: cfg.Knowledge.MinScore,
			Mode:     cfg.Knowledge.Mode,
			Fusion: knowledge.FusionConfig{
				SemanticWeight: cfg.Knowledge.SemanticWeight,
				KeywordWeight:  cfg.Knowledge.KeywordWeight,
			},
		}, logger.Named("knowledge"))
		if err != nil {
			logger.Warn("Knowledge base unavailable", zap.Error(err))
		} else {
			a.Knowledge = idx
		}
	}

	if cfg.Templates.Enabled {
		ts, err := LoadTemplates(cfg.Templates.File)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Matcher = templates.NewMatcher(ts, cfg.Templates.Threshold, logger.Named("templates"))
	}

	gen := bo.generator
	if gen == nil {
		gen = a.Client
	}
	deps := advisor.Deps{
		Builder:   builder,
		Generator: gen,
		Cache:     a.Cache,
		Matcher:   a.Matcher,
		Tracker:   a.Tracker,
	}
	if a.Knowledge != nil {
		deps.Knowledge = a.Knowledge
	}
	a.Advisor = advisor.New(deps, advisor.Options{
		LLMTimeout:       cfg.Backend.LLMTimeout,
		ChatTimeout:      cfg.Backend.ChatTimeout,
		MaxQueries:       cfg.Knowledge.MaxQueries,
		SnippetsPerQuery: cfg.Knowledge.SnippetsPerQuery,
		MinScore:         cfg.Knowledge.MinScore,
	}, logger.Named("advisor"))

	return a, nil
}

func (a *App) newEmbedder() knowledge.Embedder {
	k := a.Config.Knowledge
	if k.Embedder == "ollama" {
		endpoint := k.EmbeddingURL
		if endpoint == "" {
			endpoint = llm.BaseURL(a.Config.Backend.URL)
		}
		return knowledge.NewOllamaEmbedder(endpoint, k.EmbeddingModel, k.Dimensions)
	}
	return knowledge.NewHashEmbedder(k.Dimensions)
}

// LoadTemplates reads templates from path, or the built-in set when path is
// empty.
func LoadTemplates(path string) ([]templates.Template, error) {
	if path == "" {
		return templates.Defaults()
	}
	ts, err := templates.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates from %s: %w", path, err)
	}
	return ts, nil
}

// NewSession starts and registers a session for p.
func (a *App) NewSession(p *profile.Profile) *advisor.Session {
	s := advisor.NewSession(p, a.Config.Chat.MaxHistory)
	a.Sessions.Add(s)
	return s
}

// Sweep removes cache entries past the cleanup TTL.
func (a *App) Sweep() (int, error) {
	if a.Cache == nil {
		return 0, nil
	}
	return a.Cache.Sweep(a.Config.Cache.CleanupTTL)
}

// EvictIdleSessions drops live sessions unused for longer than the
// configured idle TTL.
func (a *App) EvictIdleSessions() int {
	ttl := a.Config.Sessions.IdleTTL
	if ttl <= 0 {
		return 0
	}
	return a.Sessions.EvictIdle(time.Now().Add(-ttl))
}

// RunSweeper sweeps the cache and evicts idle sessions every interval until
// ctx is done.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := a.Sweep(); err != nil {
				a.Logger.Warn("Cache sweep failed", zap.Error(err))
			} else if n > 0 {
				a.Logger.Info("Swept expired cache entries", zap.Int("removed", n))
			}
			if n := a.EvictIdleSessions(); n > 0 {
				a.Logger.Info("Evicted idle sessions", zap.Int("removed", n))
			}
		}
	}
}

// Close flushes the tracker and releases the index and database.
func (a *App) Close() error {
	a.Tracker.Stop()
	var firstErr error
	if a.Knowledge != nil {
		if err := a.Knowledge.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
