// Package serve starts the HTTP API server.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/sigi-ilum/sigi-go/internal/api"
	"github.com/sigi-ilum/sigi-go/internal/conf"
	"github.com/sigi-ilum/sigi-go/internal/datastore"
	"github.com/sigi-ilum/sigi-go/internal/logging"
	"github.com/sigi-ilum/sigi-go/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the SIGI API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}
}

// runServer opens the backing store, wires the API and serves until
// interrupted. The store handle is shared by every request and released on
// every exit path.
func runServer(settings *conf.Settings) error {
	log := logging.ForService("server")

	// Mirror server events into a rotated log file alongside stdout.
	logPath := filepath.Join(settings.Log.Path, "sigi.log")
	fileLog, closeLog, err := logging.NewFileLogger(logPath, "server", slog.LevelInfo, settings.Log.MaxSizeMB)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	defer func() { _ = closeLog() }()

	ds := datastore.New(settings)
	if ds == nil {
		return errors.New("no backing store enabled, check the output settings")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening backing store: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil && log != nil {
			log.Error("Failed to close backing store", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if _, err := api.New(e, ds, settings, metrics); err != nil {
		return fmt.Errorf("initializing API: %w", err)
	}

	address := settings.WebServer.Host + ":" + settings.WebServer.Port

	errChan := make(chan error, 1)
	go func() {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if log != nil {
		log.Info("SIGI API server started", "address", address)
	}
	fileLog.Info("SIGI API server started", "address", address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		if log != nil {
			log.Info("Shutting down", "signal", sig.String())
		}
		fileLog.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}
