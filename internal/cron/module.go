package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/coffee/internal/core"
	"github.com/flemzord/coffee/internal/matching"
	"github.com/flemzord/coffee/internal/store"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
	_ core.Reloader     = (*Module)(nil)
)

const moduleID core.ModuleID = "cron.rematch"

// ModuleConfig configures the "cron.rematch" module.
type ModuleConfig struct {
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Module periodically recomputes matches for every user in the store.
type Module struct {
	mu        sync.Mutex
	config    ModuleConfig
	appCtx    *core.AppContext
	scheduler *Scheduler
	matcher   Rematcher
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  moduleID,
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config = m.config.withDefaults()
	m.appCtx = ctx
	m.scheduler = NewScheduler(ctx.Logger)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

func (c ModuleConfig) withDefaults() ModuleConfig {
	if c.Schedule == "" {
		c.Schedule = DefaultRematchSchedule
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Minute
	}
	return c
}

func (c ModuleConfig) validate() error {
	if _, err := scheduleParser().Parse(c.Schedule); err != nil {
		return fmt.Errorf("cron.rematch: invalid schedule %q: %w", c.Schedule, err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("cron.rematch: timeout must not be negative")
	}
	return nil
}

// Start implements core.Starter. The store is resolved here so the store
// module may be loaded in any order.
func (m *Module) Start() error {
	backend, err := core.Lookup[store.Backend](m.appCtx, store.ServiceName)
	if err != nil {
		return fmt.Errorf("cron.rematch: no store module loaded: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.matcher = matching.NewService(backend, m.appCtx.Logger)
	if err := m.scheduler.RegisterJob(m.job(m.config)); err != nil {
		return err
	}
	return m.scheduler.Start()
}

func (m *Module) job(cfg ModuleConfig) *RematchJob {
	return &RematchJob{
		Matcher:      m.matcher,
		ScheduleExpr: cfg.Schedule,
		Timeout:      cfg.Timeout,
		Logger:       m.appCtx.Logger,
	}
}

// Reload implements core.Reloader. A running scheduler is replaced only
// when the schedule or timeout changed.
func (m *Module) Reload(ctx *core.AppContext) error {
	var next ModuleConfig
	if node, ok := ctx.ModuleConfig(moduleID); ok {
		if err := node.Decode(&next); err != nil {
			return fmt.Errorf("cron.rematch: %w", err)
		}
	}
	next = next.withDefaults()
	if err := next.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if next == m.config {
		return nil
	}
	if m.matcher == nil {
		m.config = next
		return nil
	}

	sched := NewScheduler(m.appCtx.Logger)
	if err := sched.RegisterJob(m.job(next)); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := m.scheduler.Stop(stopCtx); err != nil {
		m.appCtx.Logger.Warn("stopping previous scheduler", "error", err)
	}

	m.appCtx.Logger.Info("rematch schedule updated", "schedule", next.Schedule, "timeout", next.Timeout)
	m.scheduler = sched
	m.config = next
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}

// Config returns the configuration currently in effect.
func (m *Module) Config() ModuleConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// RunNow triggers the rematch job outside its schedule.
func (m *Module) RunNow(ctx context.Context) error {
	m.mu.Lock()
	sched := m.scheduler
	m.mu.Unlock()
	return sched.RunNow(ctx, RematchJobName)
}
