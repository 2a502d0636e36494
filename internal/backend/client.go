// Package backend is the HTTP client for the coffee API. It implements
// the message store consumed by the live session and the profile and
// matching calls consumed by the tool dispatch table.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// maxResponseSize bounds response bodies (10 MB).
const maxResponseSize = 10 * 1024 * 1024

// DefaultTimeout is the per-request timeout when the caller supplies no
// http.Client.
const DefaultTimeout = 15 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com".
	BaseURL string
	// Token is sent as a bearer credential when set.
	Token string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the coffee API.
type Client struct {
	base   string
	token  string
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:   base,
		token:  cfg.Token,
		http:   hc,
		logger: logger.With("component", "backend-client"),
	}, nil
}

// CreateMessage implements store.MessageStore.
func (c *Client) CreateMessage(ctx context.Context, senderID, receiverID, content string) (message.Message, error) {
	var m message.Message
	err := c.do(ctx, http.MethodPost, "/api/messages", SendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}, &m)
	return m, err
}

// QueryMessages implements store.MessageStore.
func (c *Client) QueryMessages(ctx context.Context, q store.MessageQuery) ([]message.Message, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("involving", q.Involving)
	if q.Peer != "" {
		v.Set("peer", q.Peer)
	}
	if q.Order == store.Desc {
		v.Set("order", "desc")
	} else {
		v.Set("order", "asc")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	var out []message.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryProfiles implements store.ProfileReader.
func (c *Client) QueryProfiles(ctx context.Context, userIDs []string) ([]message.Profile, error) {
	if len(userIDs) == 0 {
		return []message.Profile{}, nil
	}
	v := url.Values{}
	for _, id := range userIDs {
		v.Add("id", id)
	}

	var out []message.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SyncUser ensures the user row exists and reports whether it was created.
func (c *Client) SyncUser(ctx context.Context, userID, email, phone string) (created bool, err error) {
	var resp Response
	err = c.do(ctx, http.MethodPost, "/api/users/sync", SyncRequest{UserID: userID, Email: email, Phone: phone}, &resp)
	return resp.Status == StatusCreated, err
}

// SaveProfileSection merges attrs into the user's profile.
func (c *Client) SaveProfileSection(ctx context.Context, userID string, attrs message.Attributes) (message.Profile, error) {
	var resp Response
	err := c.do(ctx, http.MethodPost, "/api/tools/save_profile_section", SaveProfileRequest{UserID: userID, Attributes: attrs}, &resp)
	if err != nil {
		return message.Profile{}, err
	}
	if resp.Profile == nil {
		return message.Profile{}, fmt.Errorf("%w: response has no profile", ErrRequestFailed)
	}
	return *resp.Profile, nil
}

// GetUserProfile returns nil without error when the user has no profile.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (*message.Profile, error) {
	var resp Response
	if err := c.do(ctx, http.MethodGet, "/api/tools/get_user_profile/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// TriggerMatching recomputes the user's matches.
func (c *Client) TriggerMatching(ctx context.Context, userID string) ([]message.Match, error) {
	var resp Response
	if err := c.do(ctx, http.MethodPost, "/api/tools/trigger_matching/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Matches), nil
}

// GetMatches returns the user's stored matches.
func (c *Client) GetMatches(ctx context.Context, userID string, limit int) ([]message.Match, error) {
	path := "/api/tools/get_matches/" + url.PathEscape(userID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp Response
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Matches), nil
}

// SaveThread links an agent thread to its user.
func (c *Client) SaveThread(ctx context.Context, t message.AgentThread) error {
	return c.do(ctx, http.MethodPost, "/api/threads", ThreadRequest{UserID: t.UserID, ThreadID: t.ThreadID, Title: t.Title}, nil)
}

// ListThreads returns the user's agent threads, most recent first.
func (c *Client) ListThreads(ctx context.Context, userID string) ([]message.AgentThread, error) {
	var out []message.AgentThread
	if err := c.do(ctx, http.MethodGet, "/api/threads/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do sends a request and decodes a 2xx JSON body into out when non-nil.
// A 2xx envelope with status "error" is reported as ErrRequestFailed.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrRequestFailed, err)
	}
	if err := mapHTTPError(resp.StatusCode, data); err != nil {
		return err
	}

	var env Response
	if json.Unmarshal(data, &env) == nil && env.Status == StatusError {
		return fmt.Errorf("%w: %s", ErrRequestFailed, env.Message)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrRequestFailed, err)
	}
	return nil
}

func nonNil(ms []message.Match) []message.Match {
	if ms == nil {
		return []message.Match{}
	}
	return ms
}

// IsUnavailable reports whether err means the backend could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, store.ErrStoreUnavailable)
}

var _ store.Store = (*Client)(nil)
