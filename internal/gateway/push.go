package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// handleSubscribe streams messages received by ?receiver= over a
// websocket. Clients never write; the read side only watches for close.
func (g *Gateway) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	receiver := strings.TrimSpace(r.URL.Query().Get("receiver"))
	if receiver == "" {
		writeError(w, http.StatusBadRequest, "receiver is required")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	ctx := conn.CloseRead(r.Context())
	sub, err := g.hub.Subscribe(ctx, receiver)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Close()

	g.logger.Debug("push subscriber connected", "receiver_id", receiver)

	for {
		select {
		case m := <-sub.Events():
			wctx, cancel := context.WithTimeout(ctx, g.config.PushWriteTimeout)
			err := wsjson.Write(wctx, conn, m)
			cancel()
			if err != nil {
				g.logger.Debug("push write failed", "receiver_id", receiver, "error", err)
				return
			}
		case <-sub.Done():
			if sub.Err() != nil {
				_ = conn.Close(websocket.StatusTryAgainLater, "subscription dropped")
			} else {
				_ = conn.Close(websocket.StatusNormalClosure, "")
			}
			return
		}
	}
}
