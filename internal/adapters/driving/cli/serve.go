package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/maintenance-agent/internal/adapters/driving/http"
	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Loads the manual index (building it from the manual directory when no
snapshot exists), then serves /analyze and the dashboard API until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := loadIndex(ctx, app); err != nil {
		return err
	}

	if app.Config.Index.Watch {
		watcher, err := worker.NewIndexWatcher(worker.IndexWatcherConfig{
			Index:      app.Index,
			Root:       app.ManualDir,
			Extensions: app.Extensions,
			Debounce:   app.Config.Index.WatchDebounce,
			Logger:     app.Logger,
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			app.Logger.Warn("manual directory cannot be watched, rebuild on demand only", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	srvCfg := app.Config.Server
	server := http.NewServer(
		http.Config{
			Host:         srvCfg.Host,
			Port:         srvCfg.Port,
			Version:      version,
			CORSOrigins:  srvCfg.CORSOrigins,
			MaxBodyBytes: srvCfg.MaxBodyBytes,
			RateLimit: http.RateLimitConfig{
				RequestsPerSecond: app.Config.RateLimit.RPS,
				Burst:             app.Config.RateLimit.Burst,
			},
			Logger: app.Logger,
		},
		http.Services{
			Analysis: app.Analysis,
			Logs:     app.Logs,
			Index:    app.Index,
			Auth:     app.Auth,
			LogStore: app.LogStore,
			Lock:     app.Lock,
		},
	)

	return server.Start(ctx)
}

// loadIndex loads or builds the manual index. An empty or missing manual
// directory leaves an empty index behind; anything else is fatal.
func loadIndex(ctx context.Context, app *App) error {
	err := app.Index.LoadOrBuild(ctx)
	switch {
	case err == nil:
		status := app.Index.Status()
		app.Logger.Info("manual index ready",
			"chunks", status.Chunks,
			"documents", status.Documents,
			"model", status.Model,
		)
		return nil
	case errors.Is(err, domain.ErrIndexEmpty), errors.Is(err, fs.ErrNotExist):
		app.Logger.Warn("manual index is empty, diagnoses will carry no manual sources",
			"manual_dir", app.ManualDir,
			"error", err,
		)
		return nil
	default:
		return fmt.Errorf("load manual index: %w", err)
	}
}
