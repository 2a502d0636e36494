package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/flemzord/coffee/pkg/message"
)

// WSChannel subscribes to the gateway's websocket push endpoint.
type WSChannel struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger
}

// NewWSChannel creates a Channel dialing endpoint (ws:// or wss://) with
// an optional bearer token.
func NewWSChannel(endpoint, token string, client *http.Client, logger *slog.Logger) *WSChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSChannel{
		url:    endpoint,
		token:  token,
		client: client,
		logger: logger.With("component", "realtime.ws"),
	}
}

var _ Channel = (*WSChannel)(nil)

// Subscribe implements Channel.
func (c *WSChannel) Subscribe(ctx context.Context, receiverID string) (Subscription, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("realtime: invalid url: %w", err)
	}
	q := u.Query()
	q.Set("receiver", receiverID)
	u.RawQuery = q.Encode()

	opts := &websocket.DialOptions{HTTPClient: c.client}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}

	conn, _, err := websocket.Dial(ctx, u.String(), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %w", ErrChannelDropped, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := newSubscription(DefaultBuffer, func() {
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "unsubscribed")
	})
	s.watch(ctx)

	go c.readLoop(readCtx, conn, s)
	return s, nil
}

func (c *WSChannel) readLoop(ctx context.Context, conn *websocket.Conn, s *subscription) {
	for {
		var m message.Message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				s.end(nil)
				return
			}
			c.logger.Warn("push channel read failed", "error", err)
			s.end(fmt.Errorf("%w: %w", ErrChannelDropped, err))
			return
		}

		select {
		case s.events <- m:
		case <-s.done:
			return
		}
	}
}
