package reload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/coffee/internal/config"
)

// Target receives validated module configurations. *core.App implements it.
type Target interface {
	ReloadModules(configs map[string]yaml.Node) error
}

// Reloader re-reads the configuration file and applies it to a Target.
type Reloader struct {
	target  Target
	path    string
	modules []string
	logger  *slog.Logger
}

// New creates a Reloader for the file at path. loaded is the module set
// the server started with; changes to that set need a restart.
func New(target Target, path string, loaded []string, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		target:  target,
		path:    path,
		modules: slices.Clone(loaded),
		logger:  logger.With("component", "reload"),
	}
}

// Reload loads, validates and applies the configuration file. An invalid
// file leaves every module untouched.
func (r *Reloader) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	cfg, err := config.Load(r.path)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := config.ValidateServer(cfg); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	if ids := config.Resolve(cfg); !slices.Equal(ids, r.modules) {
		r.logger.Warn("module set changed, restart required to add or remove modules",
			"loaded", r.modules, "configured", ids)
	}

	if err := r.target.ReloadModules(cfg.Modules); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	r.logger.Info("configuration reloaded", "path", r.path)
	return nil
}

// Run reloads on every event until ctx is done or events is closed.
// Failures are logged and the previous configuration stays in effect.
func (r *Reloader) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.logger.Debug("configuration change detected", "path", ev.Path, "forced", ev.Forced)
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("configuration reload failed", "error", err)
			}
		}
	}
}
