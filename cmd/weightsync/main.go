package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	route "github.com/bassista/go_weightsync/internal/api/route"
	appctx "github.com/bassista/go_weightsync/internal/app"
	"github.com/bassista/go_weightsync/internal/config"
	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/enrichman/httpgrace"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var version = "dev"

var errSyncFailed = errors.New("sync failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.WithComponent("main").Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		once       bool
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:           "weightsync",
		Short:         "Sync daily weight and body fat from Withings to Fitbit",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := os.Setenv("WEIGHTSYNC_CONFIG_PATH", configPath); err != nil {
					return err
				}
			}
			return run(once)
		},
	}

	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single sync and exit, regardless of RUN_MODE")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Directory holding .env and config.yaml (overrides WEIGHTSYNC_CONFIG_PATH)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("weightsync version:", version)
		},
	})
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	return rootCmd
}

func run(once bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	level, err := logger.ApplyLevel(cfg.Misc.LogLevel, cfg.Misc.Debug)
	if err != nil {
		logger.WithComponent("main").Warnf("invalid log level '%s', keeping '%s': %v", cfg.Misc.LogLevel, level, err)
	}
	logger.WithComponent("main").Debugf("log level set to: %s", level.String())

	if once {
		cfg.Schedule.RunMode = config.RunModeManual
	}

	app, err := appctx.Build(cfg)
	if err != nil {
		return fmt.Errorf("cannot init app: %w", err)
	}
	defer app.Shutdown()

	if cfg.Schedule.RunMode == config.RunModeManual {
		logger.WithComponent("main").Info("running a single sync")
		if res := app.RunOnce(); res.Failed() {
			return errSyncFailed
		}
		return nil
	}

	return runScheduled(app)
}

// runScheduled blocks until SIGINT or SIGTERM. The caller's deferred
// Shutdown drains notifications and flushes the reporter.
func runScheduled(app *appctx.App) error {
	ctx, stop := signal.NotifyContext(app.BaseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, err := app.StartScheduler()
	if err != nil {
		return err
	}

	if port := app.Config.Server.Port; port > 0 {
		if app.Config.Misc.Debug {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
		gin.DefaultWriter = logger.Logger.Writer()
		gin.DefaultErrorWriter = logger.Logger.Writer()

		logger.WithComponent("main").Infof("control server will run on port: %d", port)
		srv := createGraceHttpServer(app.BaseCtx, "control-server", app.Config.Server, route.SetupRoutes(app))
		go func() {
			if err := srv.ListenAndServe(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithComponent("main").Errorf("control server error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.WithComponent("main").Info("shutdown requested, stopping scheduler (a token refresh in flight is completed and saved)")
	app.Cancel()
	<-sched.Done()
	return nil
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
