/*
Package cli implements the study-advisor command tree.

Every command loads the configuration, builds a logger and, when it needs the
advisor, one app.App that it closes before returning.
*/
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/app"
	"github.com/khanglvm/study-advisor/internal/config"
	"github.com/khanglvm/study-advisor/internal/logging"
	"github.com/khanglvm/study-advisor/internal/version"
)

// rootOptions carries the persistent flags to subcommands.
type rootOptions struct {
	configPath string
	logLevel   string
	dev        bool

	// appOpts are passed to app.New, for tests to swap the backend.
	appOpts []app.Option
}

// NewRootCmd builds the full command tree. opts are applied to every App the
// commands build.
func NewRootCmd(opts ...app.Option) *cobra.Command {
	o := &rootOptions{appOpts: opts}

	cmd := &cobra.Command{
		Use:   "study-advisor",
		Short: "Adaptive learning analysis and advising for students",
		Long: `study-advisor analyses a student's skills survey and grade transcript in
three stages (skills, grades, synthesis), streaming the advice as it is
generated by a local Ollama model.

Repeated profiles are answered from a fingerprint cache, common profiles
from canned templates, and generated answers are grounded in a local
knowledge base.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file (default $STUDY_ADVISOR_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&o.dev, "dev", false, "Human-readable development logging")

	cmd.AddCommand(
		newAnalyzeCmd(o),
		newServeCmd(o),
		newMCPCmd(o),
		newCacheCmd(o),
		newKnowledgeCmd(o),
		newTemplatesCmd(o),
		newSessionCmd(o),
		newModelCmd(o),
		newLearningCmd(o),
		newConfigCmd(o),
		NewVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.dev {
		cfg.Log.Development = true
	}
	return cfg, nil
}

func (o *rootOptions) logger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Development)
}

// openApp loads the configuration and builds the App.
func (o *rootOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := o.logger(cfg)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger, o.appOpts...)
	if err != nil {
		logger.Sync()
		return nil, err
	}
	return a, nil
}

// closeApp releases the App and flushes its logger.
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("Shutdown incomplete", zap.Error(err))
	}
	a.Logger.Sync()
}
