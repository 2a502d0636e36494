// Package gateway is the backend HTTP API: message and profile storage,
// the agent tool endpoints, agent thread persistence and a websocket push
// channel for newly created messages.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/coffee/internal/core"
	"github.com/flemzord/coffee/internal/matching"
	"github.com/flemzord/coffee/internal/metrics"
	"github.com/flemzord/coffee/internal/realtime"
	"github.com/flemzord/coffee/internal/security"
	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// Service names resolved at Start. Only the store is required.
const (
	ServiceMetrics  = "metrics"
	ServiceGatherer = "metrics.gatherer"
	ServiceAudit    = "security.audit"
	ServiceHub      = "realtime.hub"
	ServiceRedactor = "security.redactor"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// createNotifier is implemented by stores that can report new messages.
type createNotifier interface {
	SetOnCreate(fn func(message.Message))
}

// pinger is implemented by stores that can report their health.
type pinger interface {
	Ping(ctx context.Context) error
}

// Gateway is the HTTP gateway module.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	hub       *realtime.Hub
	startedAt time.Time

	// Resolved at Start() via the service registry.
	store    store.Backend
	matcher  *matching.Service
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	audit    *security.AuditLogger

	mu   sync.Mutex
	addr net.Addr
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The hub is created here so other
// modules can publish to it before Start.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.hub = realtime.NewHub(realtime.HubConfig{EchoToSender: true}, g.logger)

	ctx.RegisterService(ServiceHub, g.hub)

	if r, err := core.Lookup[*security.Redactor](ctx, ServiceRedactor); err == nil {
		r.AddLiteral(g.config.Auth.BearerToken)
		r.AddLiteral(g.config.Auth.BasicPass)
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter. It resolves dependencies from the service
// registry and starts the HTTP server.
func (g *Gateway) Start() error {
	backend, err := core.Lookup[store.Backend](g.appCtx, store.ServiceName)
	if err != nil {
		return fmt.Errorf("gateway: no store module loaded: %w", err)
	}
	g.bind(backend)

	// Optional services degrade gracefully when missing.
	if m, err := core.Lookup[*metrics.Metrics](g.appCtx, ServiceMetrics); err == nil {
		g.metrics = m
	}
	if gt, err := core.Lookup[prometheus.Gatherer](g.appCtx, ServiceGatherer); err == nil {
		g.gatherer = gt
	}
	if a, err := core.Lookup[*security.AuditLogger](g.appCtx, ServiceAudit); err == nil {
		g.audit = a
	}

	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway API is unauthenticated", "bind", g.config.Bind)
	}

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	g.mu.Lock()
	g.addr = ln.Addr()
	g.mu.Unlock()
	g.startedAt = time.Now()

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Push subscribers are dropped first so they
// reconnect to the next instance, then the server shuts down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.hub != nil {
		g.hub.DropAll()
	}
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Addr returns the listen address once started.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}

// bind attaches the gateway to its store and feeds the hub from it.
func (g *Gateway) bind(backend store.Backend) {
	g.store = backend
	g.matcher = matching.NewService(backend, g.logger)
	if n, ok := backend.(createNotifier); ok {
		n.SetOnCreate(g.hub.Publish)
	} else {
		g.logger.Warn("store cannot notify new messages, push channel will stay silent")
	}
}
