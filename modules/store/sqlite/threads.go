package sqlite

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// SaveThread implements store.ThreadStore.
func (s *Store) SaveThread(ctx context.Context, t message.AgentThread) error {
	ctx, span := startSpan(ctx, "sqlite.save_thread", attribute.String("thread.id", t.ThreadID))
	defer span.End()

	if t.ThreadID == "" || t.UserID == "" {
		return fmt.Errorf("%w: thread and user ids are required", store.ErrInvalidQuery)
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = s.clock()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (thread_id, user_id, title, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			updated_at = excluded.updated_at`,
		t.ThreadID, t.UserID, t.Title, toNanos(t.UpdatedAt))
	if err != nil {
		span.RecordError(err)
		return unavailable("save thread", err)
	}
	return nil
}

// ListThreads implements store.ThreadStore.
func (s *Store) ListThreads(ctx context.Context, userID string) ([]message.AgentThread, error) {
	ctx, span := startSpan(ctx, "sqlite.list_threads", attribute.String("user.id", userID))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, user_id, title, updated_at FROM threads
		WHERE user_id = ?
		ORDER BY updated_at DESC, thread_id ASC`, userID)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("list threads", err)
	}
	defer rows.Close()

	out := make([]message.AgentThread, 0)
	for rows.Next() {
		var (
			t  message.AgentThread
			ts int64
		)
		if err := rows.Scan(&t.ThreadID, &t.UserID, &t.Title, &ts); err != nil {
			return nil, unavailable("scan thread", err)
		}
		t.UpdatedAt = fromNanos(ts)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list threads", err)
	}
	return out, nil
}
