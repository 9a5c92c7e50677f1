package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_weightsync/internal/auth"
	"github.com/bassista/go_weightsync/internal/config"
	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/bassista/go_weightsync/internal/notify"
	"github.com/bassista/go_weightsync/internal/orchestrator"
	"github.com/bassista/go_weightsync/internal/provider"
	"github.com/bassista/go_weightsync/internal/provider/fitbit"
	"github.com/bassista/go_weightsync/internal/provider/withings"
	"github.com/bassista/go_weightsync/internal/reporting"
	"github.com/bassista/go_weightsync/internal/repository"
	"github.com/bassista/go_weightsync/internal/scheduler"
)

// notifyDrainTimeout bounds how long Shutdown waits for in-flight notifications.
const notifyDrainTimeout = 15 * time.Second

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config   *config.Config
	Sync     *orchestrator.Orchestrator
	Notifier notify.Notifier
	Reporter reporting.Reporter

	BaseCtx context.Context
	Cancel  context.CancelFunc
}

func New(cfg *config.Config, sync *orchestrator.Orchestrator, notifier notify.Notifier, reporter reporting.Reporter) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if sync == nil {
		return nil, errors.New("orchestrator is nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier is nil")
	}
	if reporter == nil {
		return nil, errors.New("reporter is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:   cfg,
		Sync:     sync,
		Notifier: notifier,
		Reporter: reporter,
		BaseCtx:  ctx,
		Cancel:   cancel,
	}, nil
}

// Build wires every dependency from configuration: token store, refreshers,
// provider clients, notifier, error reporter and the orchestrator.
func Build(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	log := logger.WithComponent("app")

	store, err := repository.NewJSONTokenStore(cfg.Data.TokenCacheDir, map[repository.Provider]string{
		repository.ProviderWithings: cfg.Withings.RefreshToken,
		repository.ProviderFitbit:   cfg.Fitbit.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}

	httpClient := provider.NewHTTPClient(cfg.Misc.HTTPTimeout)
	tokens := auth.NewTokenManager(store, map[repository.Provider]auth.Refresher{
		repository.ProviderWithings: auth.NewWithingsRefresher(cfg.Withings.ClientID, cfg.Withings.ClientSecret, cfg.Withings.TokenURL, httpClient),
		repository.ProviderFitbit:   auth.NewFitbitRefresher(cfg.Fitbit.ClientID, cfg.Fitbit.ClientSecret, cfg.Fitbit.TokenURL, httpClient),
	})

	var notifier notify.Notifier
	if cfg.Notify.Enabled() {
		notifier = notify.NewPushoverNotifier(cfg.Notify.PushoverToken, cfg.Notify.PushoverUser, cfg.Misc.HTTPTimeout)
		log.Info("pushover notifications enabled")
	} else {
		notifier = notify.LogNotifier{}
		log.Warn("PUSHOVER_USER or PUSHOVER_TOKEN not set, notifications go to the log only")
	}
	reporter := reporting.New(cfg.Misc.HoneybadgerAPIKey, cfg.Misc.Env)

	sync := orchestrator.New(
		orchestrator.Settings{
			Location: cfg.Schedule.Location,
			Debug:    cfg.Misc.Debug,
			Title:    cfg.Notify.Title,
		},
		tokens,
		withings.NewClient(cfg.Withings.APIURL, httpClient),
		fitbit.NewClient(cfg.Fitbit.APIURL, httpClient),
		notifier,
		reporter,
	)

	log.Debugf("token cache: %s, http timeout: %s", cfg.Data.TokenCacheDir, cfg.Misc.HTTPTimeout)
	return New(cfg, sync, notifier, reporter)
}

// RunOnce performs a single sync bound to the application context.
func (a *App) RunOnce() orchestrator.Result {
	return a.Sync.Run(a.BaseCtx)
}

// StartScheduler triggers a sync on the configured cron expression until the
// application context is cancelled.
func (a *App) StartScheduler() (*scheduler.CronScheduler, error) {
	s, err := scheduler.NewCronScheduler(a.Config.Schedule.Cron, a.Config.Schedule.Location, func(ctx context.Context) {
		a.Sync.Run(ctx)
	})
	if err != nil {
		return nil, err
	}
	s.Start(a.BaseCtx)
	return s, nil
}

// Shutdown cancels the lifecycle context, drains pending notifications and
// flushes the error reporter. Safe to call more than once.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if w, ok := a.Notifier.(notify.Waiter); ok {
		w.Wait(notifyDrainTimeout)
	}
	if a.Reporter != nil {
		a.Reporter.Flush()
	}
}
