package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/audit"
	"github.com/fentz26/tempo/internal/config"
	"github.com/fentz26/tempo/internal/logging"
	"github.com/fentz26/tempo/internal/store"
	"github.com/fentz26/tempo/internal/watchdog"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbDSN      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Tempo daemon",
	Long:  `Starts the Tempo daemon which provides the HTTP API for time tracking.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	serveCmd.Flags().StringVar(&dbDSN, "db", "", "SQLite path or postgres:// DSN (overrides config)")
}

// loadConfig reads --config, or the default file when the flag is unset.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.HTTP.Address = listenAddr
	}
	if dbDSN != "" {
		cfg.DB.DSN = dbDSN
	}

	log := logging.New(cfg.LogLevel)
	log.Info("starting tempo daemon", "version", api.Version, "address", cfg.HTTP.Address, "scope", cfg.Timer.Scope)

	// Initialize store
	s, err := store.Open(cfg.DB.DSN)
	if err != nil {
		return err
	}
	log.Info("database ready", "dialect", s.Dialect())

	service := api.NewService(s, api.Options{
		Scope:    api.ScopeMode(cfg.Timer.Scope),
		Recorder: audit.NewRecorder(s),
		Logger:   log,
	})
	server := api.NewServer(service, api.ServerConfig{
		Addr:         cfg.HTTP.Address,
		APIToken:     cfg.HTTP.APIToken,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, log)
	if cfg.HTTP.APIToken == "" {
		log.Warn("api token not set; the API accepts unauthenticated requests")
	}

	wd := watchdog.New(service, &watchdog.Config{
		Interval:   cfg.Watchdog.Interval,
		MaxSession: cfg.Watchdog.MaxSession,
	}, log)
	wd.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Channel to receive server errors
	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", "error", err)
			wd.Stop()
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}
	wd.Stop()

	if err := s.Close(); err != nil {
		log.Error("database close failed", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}
