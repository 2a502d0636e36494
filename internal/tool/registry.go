package tool

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/coffee/internal/identity"
	"github.com/flemzord/coffee/internal/metrics"
	"github.com/flemzord/coffee/internal/security"
)

// DefaultTimeout bounds a single tool execution.
const DefaultTimeout = 30 * time.Second

// unknownLabel is the metrics label for unregistered tool names, which
// would otherwise let the agent create arbitrary series.
const unknownLabel = "unknown"

// Resolver yields the trusted session identity. *identity.Guard implements it.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Schema is a tool's name paired with its description and JSON Schema.
type Schema struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Registry holds the dispatch table and routes invocations through rate
// limiting, policy, identity resolution and audit.
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	resolver    Resolver
	policy      Policy
	auditLogger *security.AuditLogger
	rateLimiter *security.RateLimiter
	metrics     *metrics.Metrics
	timeout     time.Duration
	logger      *slog.Logger
}

// NewRegistry creates an empty registry. Identity-bound tools fail with
// identity.ErrNoSession until a Resolver is set.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		timeout: DefaultTimeout,
		logger:  logger.With("component", "tool-dispatch"),
	}
}

// SetResolver configures the identity source for identity-bound tools.
func (r *Registry) SetResolver(res Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = res
}

// SetPolicy replaces the allow/deny policy.
func (r *Registry) SetPolicy(p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = p
}

// SetAuditLogger configures audit logging for tool executions.
func (r *Registry) SetAuditLogger(logger *security.AuditLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditLogger = logger
}

// SetRateLimiter configures rate limiting for tool executions.
func (r *Registry) SetRateLimiter(limiter *security.RateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateLimiter = limiter
}

// SetMetrics configures dispatch metrics.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// SetTimeout bounds each execution. Non-positive values restore the default.
func (r *Registry) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = d
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name, or ErrUnknownTool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t, nil
}

// Schemas returns all registered tool schemas sorted by name.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.tools))
	for name, t := range r.tools {
		schemas = append(schemas, Schema{
			Name:        name,
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	slices.SortFunc(schemas, func(a, b Schema) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return schemas
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs one invocation: lookup → rate limit → policy → params
// validation → identity → execute → audit. It never panics and never
// returns a Go error; every failure becomes a StatusError result.
func (r *Registry) Dispatch(ctx context.Context, inv Invocation) (res Result) {
	start := time.Now()
	name := strings.TrimSpace(inv.Name)
	label := name

	r.mu.RLock()
	t, found := r.tools[name]
	resolver := r.resolver
	policy := r.policy
	al := r.auditLogger
	rl := r.rateLimiter
	m := r.metrics
	timeout := r.timeout
	r.mu.RUnlock()

	if !found {
		label = unknownLabel
	}

	ctx, span := otel.Tracer("github.com/flemzord/coffee/internal/tool").Start(ctx, "tool.dispatch",
		trace.WithAttributes(attribute.String("tool.name", label)))

	var userID string
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", p)
			res = Failure(fmt.Errorf("%w: %s: %v", ErrToolPanic, name, p))
		}

		span.SetAttributes(attribute.String("tool.status", string(res.Status)))
		if !res.OK() {
			span.SetStatus(codes.Error, res.Message)
		}
		span.End()

		m.ObserveTool(label, string(res.Status), time.Since(start))

		detail := truncateForAudit(res.Message)
		if res.OK() {
			detail = string(res.Status)
		}
		al.Log(security.AuditEvent{
			Type:     security.EventToolResult,
			UserID:   userID,
			ToolName: name,
			Detail:   detail,
			Metadata: map[string]string{"status": string(res.Status)},
		})
	}()

	if !found {
		r.logger.Warn("unknown tool", "tool", name)
		return Failure(fmt.Errorf("%w: %q", ErrUnknownTool, name))
	}

	if rl != nil {
		if err := rl.Allow(security.KindToolCall); err != nil {
			al.Log(security.AuditEvent{
				Type:     security.EventRateLimit,
				ToolName: name,
				Detail:   "tool_call rate limit exceeded",
			})
			return Failure(fmt.Errorf("tool %s: %w", name, err))
		}
	}

	if policy.Resolve(name) == ApprovalDeny {
		return Failure(fmt.Errorf("%w: %s", ErrDenied, name))
	}

	if err := security.ValidatePayload(inv.Params, 0, 0); err != nil {
		return Failure(fmt.Errorf("%w: %w", ErrBadToolParams, err))
	}

	var env ExecutionEnv
	if t.RequiresIdentity() {
		id, err := resolve(ctx, resolver)
		if err != nil {
			r.logger.Warn("identity-bound tool without session", "tool", name, "error", err)
			return Failure(fmt.Errorf("tool %s: %w", name, err))
		}
		userID = id
		env.UserID = id

		if supplied := suppliedUserID(inv.Params); supplied != "" && supplied != id {
			r.logger.Warn("ignoring agent-supplied user_id", "tool", name, "user_id", id, "supplied_user_id", supplied)
			al.Log(security.AuditEvent{
				Type:     security.EventIdentityOverride,
				UserID:   id,
				ToolName: name,
				Detail:   "agent-supplied user_id replaced by session identity",
				Metadata: map[string]string{"supplied_user_id": supplied},
			})
		}
	}

	al.Log(security.AuditEvent{
		Type:     security.EventToolCall,
		UserID:   userID,
		ToolName: name,
		Detail:   truncateForAudit(string(inv.Params)),
	})

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := t.Execute(execCtx, inv.Params, env)
	if err != nil {
		span.RecordError(err)
		r.logger.Debug("tool failed", "tool", name, "error", err)
		return Failure(err)
	}
	if out.Status == "" {
		out.Status = StatusSuccess
	}
	return out
}

func resolve(ctx context.Context, res Resolver) (string, error) {
	if res == nil {
		return "", identity.ErrNoSession
	}
	return res.Resolve(ctx)
}

// maxAuditDetailLen is the maximum length of audit detail strings.
const maxAuditDetailLen = 4096

// truncateForAudit truncates s to maxAuditDetailLen on a rune boundary.
func truncateForAudit(s string) string {
	if len(s) <= maxAuditDetailLen {
		return s
	}
	i := maxAuditDetailLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + "...(truncated)"
}
