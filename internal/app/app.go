package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/five82/scrapedeck/internal/config"
	"github.com/five82/scrapedeck/internal/console"
	"github.com/five82/scrapedeck/internal/logging"
	"github.com/five82/scrapedeck/internal/metrics"
	"github.com/five82/scrapedeck/internal/prefs"
	"github.com/five82/scrapedeck/internal/scraper"
	"github.com/five82/scrapedeck/internal/state"
	"github.com/five82/scrapedeck/internal/ui"
)

// Options configure the scrapedeck application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/scrapedeck/prefs.toml
	Debug      bool
}

// Run boots the scrapedeck TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogFile, opts.Debug)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		logger.Warn("load preferences failed, using defaults", zap.Error(err))
		userPrefs = prefs.Default()
	}

	client, err := scraper.NewClient(cfg.APIURL, cfg.APIToken)
	if err != nil {
		return fmt.Errorf("init scraper client: %w", err)
	}
	logger.Info("scrapedeck starting", zap.String("api_url", client.BaseURL()))

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	store := &state.Store{}
	ctrl := NewController(ctx, client, store, ControllerOptions{
		Console:      consoleOptions(cfg, userPrefs),
		SchedulePoll: cfg.Poll.Schedule,
		Logger:       logger,
		Observer:     m,
	})
	defer ctrl.Close()

	return ui.Run(ui.Options{
		Context:   ctx,
		Backend:   ctrl,
		Store:     store,
		PollTick:  ui.DefaultUIInterval,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		Logger:    logger.Named("ui"),
	})
}

// consoleOptions maps config onto the aggregator. A log cap set in the
// preferences file wins over the config default.
func consoleOptions(cfg config.Config, p prefs.Prefs) console.Options {
	maxVisible := cfg.MaxVisibleLogs
	if p.MaxVisibleLogs > 0 && p.MaxVisibleLogs != prefs.Default().MaxVisibleLogs {
		maxVisible = p.MaxVisibleLogs
	}
	poll := cfg.Poll
	return console.Options{
		FreshnessWindow: cfg.FreshnessWindow,
		MaxVisibleLogs:  maxVisible,
		LoadMoreStep:    cfg.LoadMoreStep,
		Cadence: console.Cadence{
			Status:        poll.Status,
			Runs:          poll.Runs,
			CILogs:        poll.CILogs,
			History:       poll.History,
			LogsRunning:   poll.LogsRunning,
			LogsIdle:      poll.LogsIdle,
			ErrorsRunning: poll.ErrorsRunning,
			ErrorsIdle:    poll.ErrorsIdle,
		},
	}
}
