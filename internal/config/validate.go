package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/flemzord/coffee/internal/core"
)

// storeNamespace prefixes the IDs of store modules.
const storeNamespace = "store"

// Validate checks the structural validity of a Config. Sections that are
// absent are not errors: a client-only file has no modules and a
// server-only file has no client section. Use ValidateClient and
// ValidateServer for the checks a command needs.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateClient(cfg.Client)...)

	if err := cfg.Tools.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: tools.policy: %w", err))
	}
	if cfg.Tools.Timeout < 0 {
		errs = append(errs, errors.New("config: tools.timeout must not be negative"))
	}
	if cfg.Tools.RateLimits.MessagesPerMin < 0 || cfg.Tools.RateLimits.ToolCallsPerMin < 0 {
		errs = append(errs, errors.New("config: tools.rate_limits must not be negative"))
	}

	if cfg.Reload.PollInterval < 0 {
		errs = append(errs, errors.New("config: reload.poll_interval must not be negative"))
	}

	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: telemetry: %w", err))
	}

	errs = append(errs, validateModules(cfg)...)

	return errors.Join(errs...)
}

// ValidateClient additionally requires what the client commands need.
func ValidateClient(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.Client.BackendURL == "" {
		return errors.New("config: client.backend_url is required")
	}
	return nil
}

// ValidateServer additionally requires exactly one store module.
func ValidateServer(cfg *Config) error {
	var errs []error
	if err := Validate(cfg); err != nil {
		errs = append(errs, err)
	}
	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	} else if len(storeModules(cfg)) == 0 {
		errs = append(errs, fmt.Errorf("config: a store module is required (available: %s)", availableStores()))
	}
	return errors.Join(errs...)
}

func validateClient(c ClientConfig) []error {
	var errs []error

	if c.BackendURL != "" {
		if err := checkURL(c.BackendURL, "http", "https"); err != nil {
			errs = append(errs, fmt.Errorf("config: client.backend_url: %w", err))
		}
	}
	if c.RealtimeURL != "" {
		if err := checkURL(c.RealtimeURL, "ws", "wss"); err != nil {
			errs = append(errs, fmt.Errorf("config: client.realtime_url: %w", err))
		}
	}
	if c.SendTimeout < 0 || c.DedupWindow < 0 {
		errs = append(errs, errors.New("config: client timeouts must not be negative"))
	}
	if c.Resubscribe.Initial < 0 || c.Resubscribe.Max < 0 || c.Resubscribe.StaleAfter < 0 {
		errs = append(errs, errors.New("config: client.resubscribe values must not be negative"))
	}
	if c.Resubscribe.Max > 0 && c.Resubscribe.Initial > c.Resubscribe.Max {
		errs = append(errs, errors.New("config: client.resubscribe.initial exceeds max"))
	}

	return errs
}

func validateModules(cfg *Config) []error {
	var errs []error

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if stores := storeModules(cfg); len(stores) > 1 {
		errs = append(errs, fmt.Errorf("config: only one store module may be configured, got %s", strings.Join(stores, ", ")))
	}

	return errs
}

func storeModules(cfg *Config) []string {
	var ids []string
	for _, id := range Resolve(cfg) {
		if core.ModuleID(id).Namespace() == storeNamespace {
			ids = append(ids, id)
		}
	}
	return ids
}

func availableStores() string {
	var ids []string
	for _, info := range core.GetModulesByNamespace(storeNamespace) {
		ids = append(ids, string(info.ID))
	}
	if len(ids) == 0 {
		return "none compiled in"
	}
	return strings.Join(ids, ", ")
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme %q not one of %s", u.Scheme, strings.Join(schemes, ", "))
}
