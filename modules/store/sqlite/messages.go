package sqlite

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

var tracer = otel.Tracer("github.com/flemzord/coffee/modules/store/sqlite")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// CreateMessage implements store.MessageStore.
func (s *Store) CreateMessage(ctx context.Context, senderID, receiverID, content string) (message.Message, error) {
	ctx, span := startSpan(ctx, "sqlite.create_message", attribute.String("sender.id", senderID))
	defer span.End()

	if senderID == "" || receiverID == "" || strings.TrimSpace(content) == "" {
		return message.Message{}, store.ErrInvalidMessage
	}

	m := message.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.clock(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.ReceiverID, m.Content, toNanos(m.CreatedAt))
	if err != nil {
		span.RecordError(err)
		return message.Message{}, unavailable("create message", err)
	}

	if hook := s.hook(); hook != nil {
		hook(m)
	}
	return m, nil
}

// QueryMessages implements store.MessageStore. Equal timestamps keep
// insertion order (rowid).
func (s *Store) QueryMessages(ctx context.Context, q store.MessageQuery) ([]message.Message, error) {
	ctx, span := startSpan(ctx, "sqlite.query_messages", attribute.String("user.id", q.Involving))
	defer span.End()

	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		where string
		args  []any
	)
	if q.Peer != "" {
		where = `(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)`
		args = []any{q.Involving, q.Peer, q.Peer, q.Involving}
	} else {
		where = `sender_id = ? OR receiver_id = ?`
		args = []any{q.Involving, q.Involving}
	}
	order := "created_at ASC, rowid ASC"
	if q.Order == store.Desc {
		order = "created_at DESC, rowid DESC"
	}
	args = append(args, sqlLimit(q.Limit))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender_id, receiver_id, content, created_at FROM messages WHERE `+where+
			` ORDER BY `+order+` LIMIT ?`, args...)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("query messages", err)
	}
	defer rows.Close()

	out := make([]message.Message, 0)
	for rows.Next() {
		var (
			m  message.Message
			ts int64
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &ts); err != nil {
			return nil, unavailable("scan message", err)
		}
		m.CreatedAt = fromNanos(ts)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query messages", err)
	}
	return out, nil
}
