package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/flemzord/coffee/internal/backend"
	"github.com/flemzord/coffee/internal/clienttools"
	"github.com/flemzord/coffee/internal/config"
	"github.com/flemzord/coffee/internal/identity"
	"github.com/flemzord/coffee/internal/live"
	"github.com/flemzord/coffee/internal/metrics"
	"github.com/flemzord/coffee/internal/realtime"
	"github.com/flemzord/coffee/internal/security"
	"github.com/flemzord/coffee/internal/telemetry"
	"github.com/flemzord/coffee/internal/threadlink"
	"github.com/flemzord/coffee/internal/tool"
	"github.com/flemzord/coffee/internal/ui"
)

var _ clienttools.Backend = (*backend.Client)(nil)

// ClientParams configures NewClient.
type ClientParams struct {
	RunParams

	// OnEvent receives live session events. It must not block.
	OnEvent func(live.Event)

	// OnNavigate is called for every screen transition requested by a tool.
	OnNavigate func(ui.Route)

	// OnOverlay is called with the visible widgets after every change.
	OnOverlay func(ui.OverlayState)

	// OnAgentMessage receives text the user sends back to the agent, such as
	// a profile option selection. Nil logs it.
	OnAgentMessage func(ctx context.Context, text string) error

	// HTTPClient overrides the backend and realtime HTTP client.
	HTTPClient *http.Client
}

// Client is the wired client core: one signed-in identity, the backend
// RPC, the live conversation manager and the agent tool dispatch table.
type Client struct {
	Config    *config.Config
	Logger    *slog.Logger
	Identity  *identity.FileProvider
	Guard     *identity.Guard
	Backend   *backend.Client
	Live      *live.Manager
	Tools     *tool.Registry
	Navigator *ui.RecordingNavigator
	Overlay   *ui.Overlay
	Threads   *threadlink.Linker
	Audit     *security.AuditLogger

	telemetry *telemetry.Provider
	closers   []io.Closer
}

// NewClient loads the configuration and wires the client core. The
// bearer token of a stored session wins over client.token.
func NewClient(ctx context.Context, params ClientParams) (*Client, error) {
	cfg, _, err := loadConfig(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateClient(cfg); err != nil {
		return nil, err
	}

	dataDir := dataDirFor(params.DataDir, cfg)
	redactor := security.NewRedactor()
	logger := NewLogger(params.LogWriter, params.LogLevel, redactor)

	c := &Client{
		Config:   cfg,
		Logger:   logger,
		Identity: identity.NewFileProvider(dataDir),
	}
	c.Guard = identity.NewGuard(c.Identity)

	token := cfg.Client.Token
	sess, err := c.Identity.Load()
	switch {
	case err == nil && sess.Token != "":
		token = sess.Token
	case err != nil && !errors.Is(err, identity.ErrNoSession):
		return nil, err
	}
	redactor.AddLiteral(token)

	audit, closer, err := openAuditLog(cfg.Audit, dataDir, redactor)
	if err != nil {
		return nil, err
	}
	c.Audit = audit
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	if c.telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, params.Version, logger); err != nil {
		c.Close()
		return nil, err
	}

	c.Backend, err = backend.New(backend.Config{
		BaseURL:    cfg.Client.BackendURL,
		Token:      token,
		HTTPClient: params.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	// The CLI is a short-lived process; its collectors are never scraped.
	m := metrics.New(nil)
	limiter := security.NewRateLimiter(cfg.Tools.RateLimits)

	c.Live = live.NewManager(c.Identity, c.Backend, live.ManagerConfig{
		Session: live.Config{
			SendTimeout: cfg.Client.SendTimeout,
			DedupWindow: cfg.Client.DedupWindow,
			Logger:      logger,
			Metrics:     m,
			Limiter:     limiter,
			OnEvent:     params.OnEvent,
		},
		Channel: realtime.NewWSChannel(config.RealtimeURL(cfg.Client), token, params.HTTPClient, logger),
		Backoff: realtime.Backoff{
			Initial:    cfg.Client.Resubscribe.Initial,
			Max:        cfg.Client.Resubscribe.Max,
			StaleAfter: cfg.Client.Resubscribe.StaleAfter,
		},
	})

	send := params.OnAgentMessage
	if send == nil {
		send = func(_ context.Context, text string) error {
			logger.Info("message for agent", "text", text)
			return nil
		}
	}
	c.Navigator = &ui.RecordingNavigator{OnNavigate: params.OnNavigate}
	c.Overlay = ui.NewOverlay(send, params.OnOverlay, logger)

	c.Tools = tool.NewRegistry(logger)
	c.Tools.SetResolver(c.Guard)
	c.Tools.SetPolicy(cfg.Tools.Policy)
	c.Tools.SetAuditLogger(audit)
	c.Tools.SetRateLimiter(limiter)
	c.Tools.SetMetrics(m)
	c.Tools.SetTimeout(cfg.Tools.Timeout)
	if err := clienttools.Register(c.Tools, clienttools.Deps{
		Navigator: c.Navigator,
		Overlay:   c.Overlay,
		Backend:   c.Backend,
	}); err != nil {
		c.Close()
		return nil, err
	}

	c.Threads = threadlink.New(threadlink.Config{
		Store:    c.Backend,
		Resolver: c.Guard,
		Logger:   logger,
	})
	c.Threads.Start(context.WithoutCancel(ctx))

	return c, nil
}

// Session returns the live session of the signed-in user.
func (c *Client) Session(ctx context.Context) (*live.Session, error) {
	return c.Live.Current(ctx)
}

// SignIn stores s in the data directory, then opens a client with the
// new credentials and makes sure the backend knows the user.
func SignIn(ctx context.Context, params ClientParams, s identity.Session, email, phone string) (created bool, err error) {
	cfg, _, err := loadConfig(params.ConfigPath)
	if err != nil {
		return false, err
	}
	if err := identity.NewFileProvider(dataDirFor(params.DataDir, cfg)).SignIn(s); err != nil {
		return false, err
	}

	c, err := NewClient(ctx, params)
	if err != nil {
		return false, err
	}
	defer c.Close()

	c.Audit.Log(security.AuditEvent{Type: security.EventSignIn, UserID: s.UserID})
	created, err = c.Backend.SyncUser(ctx, s.UserID, email, phone)
	if err != nil {
		return false, fmt.Errorf("syncing user: %w", err)
	}
	return created, nil
}

// SignOut removes the session. Live sessions of the previous identity are
// torn down by the manager.
func (c *Client) SignOut() error {
	userID, _ := c.Identity.CurrentIdentity(context.Background())
	if err := c.Identity.SignOut(); err != nil {
		return err
	}
	c.Audit.Log(security.AuditEvent{Type: security.EventSignOut, UserID: userID})
	return nil
}

// Close stops background work and releases files. It is safe to call on a
// partially built Client.
func (c *Client) Close() {
	if c.Threads != nil {
		c.Threads.Stop()
	}
	if c.Live != nil {
		c.Live.Close()
	}
	if err := c.telemetry.Shutdown(context.Background()); err != nil {
		c.Logger.Warn("telemetry shutdown failed", "error", err)
	}
	for _, cl := range c.closers {
		_ = cl.Close()
	}
	c.closers = nil
}
