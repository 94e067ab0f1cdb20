// Package app provides the entry point shared by the emotewall commands: it
// loads configuration, builds the runtime and drives its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/flemzord/emotewall/internal/config"
	"github.com/flemzord/emotewall/internal/reload"
	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// LoadConfig resolves, loads and validates the configuration file.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := config.ResolvePath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// NewLogger builds the process logger. Every record passes through the
// redactor before reaching stderr.
func NewLogger(level slog.Level, redactor *security.Redactor) *slog.Logger {
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// Run loads configuration, starts all modules, and blocks until SIGINT or
// SIGTERM is received. SIGHUP and config file changes reload the wall
// settings.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run driven by ctx instead of termination signals. The
// modules are stopped once ctx is done.
func RunContext(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	creds := security.NewCredentialStore()
	redactor := security.NewRedactor()
	redactor.Follow(creds)
	logger := NewLogger(params.LogLevel, redactor)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("app: creating data directory: %w", err)
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	rt, err := Build(BuildParams{
		Config:      cfg,
		ConfigPath:  cfgPath,
		DataDir:     dataDir,
		Version:     params.Version,
		Logger:      logger,
		Redactor:    redactor,
		Credentials: creds,
	})
	if err != nil {
		return err
	}

	if err := rt.App.Start(); err != nil {
		return err
	}
	logger.Info("emotewall started",
		"version", params.Version,
		"config", cfgPath,
		"providers", len(rt.Providers),
		"channels", rt.Hub.Channels(),
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := reload.NewWatcher(reload.WatcherConfig{
		ConfigPath: cfgPath,
		Related:    []string{filepath.Join(filepath.Dir(cfgPath), config.DotEnvFile)},
	})
	watcher.Start(wctx)
	defer watcher.Stop()
	go watcher.Dispatch(wctx, rt.Reload.HandleReload, logger)

loop:
	for {
		select {
		case <-hup:
			logger.Info("SIGHUP received, reloading configuration")
			if err := rt.Reload.HandleReload(wctx, cfgPath); err != nil {
				logger.Error("reload failed, keeping previous configuration", "error", err)
			}
		case <-ctx.Done():
			break loop
		}
	}

	logger.Info("shutting down")
	rt.App.Stop()
	logger.Info("shutdown complete")
	return nil
}

// CheckConfig loads and validates a configuration file and instantiates
// every configured module without starting anything.
func CheckConfig(path string) (string, error) {
	cfg, resolved, err := LoadConfig(path)
	if err != nil {
		return resolved, err
	}
	dir, err := os.MkdirTemp("", "emotewall-check-")
	if err != nil {
		return resolved, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	rt, err := Build(BuildParams{
		Config:     cfg,
		ConfigPath: resolved,
		DataDir:    dir,
	})
	if err != nil {
		return resolved, err
	}
	rt.App.Close()
	return resolved, nil
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/emotewall if set, otherwise ~/.local/share/emotewall.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "emotewall")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "emotewall")
	}
	return filepath.Join(home, ".local", "share", "emotewall")
}
