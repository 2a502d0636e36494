// Package app wires the coffee binary: the server runner behind
// `coffee serve` and the client runtime shared by the interactive
// commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/coffee/internal/config"
	"github.com/flemzord/coffee/internal/core"
	"github.com/flemzord/coffee/internal/gateway"
	"github.com/flemzord/coffee/internal/metrics"
	"github.com/flemzord/coffee/internal/reload"
	"github.com/flemzord/coffee/internal/security"
	"github.com/flemzord/coffee/internal/telemetry"

	// Server modules register themselves in init.
	_ "github.com/flemzord/coffee/internal/cron"
	_ "github.com/flemzord/coffee/modules/store/memory"
	_ "github.com/flemzord/coffee/modules/store/sqlite"
)

// AuditFileName is the default audit log under the data directory.
const AuditFileName = "audit.jsonl"

// RunParams configures the server and client runtimes.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the configured and default data directory.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level

	// LogWriter receives log output. Defaults to os.Stderr.
	LogWriter io.Writer
}

// Server is a loaded but not yet started set of server modules.
type Server struct {
	App      *core.App
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	configPath string
	telemetry  *telemetry.Provider
	closers    []io.Closer
}

// NewServer loads and validates the configuration, builds the shared
// services and loads every configured module.
func NewServer(ctx context.Context, params RunParams) (*Server, error) {
	cfg, path, err := loadConfig(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateServer(cfg); err != nil {
		return nil, err
	}

	dataDir := dataDirFor(params.DataDir, cfg)
	redactor := security.NewRedactor()
	logger := NewLogger(params.LogWriter, params.LogLevel, redactor)

	s := &Server{Config: cfg, Logger: logger, configPath: path}

	auditLogger, closer, err := openAuditLog(cfg.Audit, dataDir, redactor)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	s.telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, params.Version, logger)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	s.Registry = prometheus.NewRegistry()
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(gateway.ServiceMetrics, metrics.New(s.Registry))
	appCtx.RegisterService(gateway.ServiceGatherer, prometheus.Gatherer(s.Registry))
	appCtx.RegisterService(gateway.ServiceAudit, auditLogger)
	appCtx.RegisterService(gateway.ServiceRedactor, redactor)

	s.App = core.NewApp(appCtx)
	if err := s.App.LoadModules(config.Resolve(cfg)); err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Run starts every module and blocks until ctx is canceled. Unless
// disabled, the configuration file is reloaded when it changes or on SIGHUP.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close(context.WithoutCancel(ctx))
	if !s.Config.Reload.Disabled {
		stop := s.watchConfig(ctx)
		defer stop()
	}
	return s.App.Run(ctx)
}

func (s *Server) watchConfig(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	w := reload.NewWatcher(reload.WatcherConfig{
		Path:         s.configPath,
		PollInterval: s.Config.Reload.PollInterval,
	})
	w.Start(ctx)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	r := reload.New(s.App, s.configPath, config.Resolve(s.Config), s.Logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, w.Events())
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				w.Trigger()
			}
		}
	}()

	return func() {
		signal.Stop(hup)
		cancel()
		w.Stop()
		<-done
	}
}

// Close flushes telemetry and closes the audit log. Modules are stopped by
// Run.
func (s *Server) Close(ctx context.Context) {
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.Logger.Warn("telemetry shutdown failed", "error", err)
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
	s.closers = nil
}

// Serve loads the configuration and runs the server until ctx is canceled.
func Serve(ctx context.Context, params RunParams) error {
	srv, err := NewServer(ctx, params)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// NewLogger returns a text logger whose output goes through redactor.
func NewLogger(w io.Writer, level slog.Level, redactor *security.Redactor) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func dataDirFor(override string, cfg *config.Config) string {
	switch {
	case override != "":
		return override
	case cfg.Client.DataDir != "":
		return cfg.Client.DataDir
	default:
		return DefaultDataDir()
	}
}

// openAuditLog returns a nil logger when auditing is disabled.
func openAuditLog(cfg config.AuditConfig, dataDir string, redactor *security.Redactor) (*security.AuditLogger, io.Closer, error) {
	if cfg.Disabled {
		return nil, nil, nil
	}
	path := cfg.Path
	if path == "" {
		path = filepath.Join(dataDir, AuditFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit log: %w", err)
	}
	return security.NewAuditLogger(security.AuditLoggerConfig{Writer: f, Redactor: redactor}), f, nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/coffee/coffee.yaml → ~/.config/coffee/coffee.yaml → ./coffee.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "coffee", "coffee.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "coffee", "coffee.yaml"))
	}

	candidates = append(candidates, "coffee.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, candidates)
}

// ErrNoConfig is returned when no configuration file is found.
var ErrNoConfig = errors.New("no configuration file found")

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/coffee if set, otherwise ~/.local/share/coffee.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "coffee")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "coffee")
}
