package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

const profileColumns = `user_id, email, phone, attributes, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (message.Profile, error) {
	var (
		p     message.Profile
		attrs string
		ts    int64
	)
	if err := row.Scan(&p.UserID, &p.Email, &p.Phone, &attrs, &ts); err != nil {
		return message.Profile{}, err
	}
	if err := json.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
		return message.Profile{}, fmt.Errorf("decode attributes of %s: %w", p.UserID, err)
	}
	p.UpdatedAt = fromNanos(ts)
	return p, nil
}

// QueryProfiles implements store.ProfileReader. Results follow the order
// of userIDs; unknown ids are omitted.
func (s *Store) QueryProfiles(ctx context.Context, userIDs []string) ([]message.Profile, error) {
	ctx, span := startSpan(ctx, "sqlite.query_profiles", attribute.Int("profiles.requested", len(userIDs)))
	defer span.End()

	out := make([]message.Profile, 0, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE user_id IN (`+placeholders+`)`, args...)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("query profiles", err)
	}
	defer rows.Close()

	byID := make(map[string]message.Profile, len(userIDs))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, unavailable("scan profile", err)
		}
		byID[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query profiles", err)
	}

	for _, id := range userIDs {
		if p, ok := byID[id]; ok {
			out = append(out, p)
			delete(byID, id)
		}
	}
	return out, nil
}

// GetProfile implements store.ProfileWriter.
func (s *Store) GetProfile(ctx context.Context, userID string) (message.Profile, error) {
	ctx, span := startSpan(ctx, "sqlite.get_profile", attribute.String("user.id", userID))
	defer span.End()

	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return message.Profile{}, fmt.Errorf("%w: profile %s", store.ErrNotFound, userID)
	}
	if err != nil {
		span.RecordError(err)
		return message.Profile{}, unavailable("get profile", err)
	}
	return p, nil
}

// ListProfiles implements store.ProfileWriter.
func (s *Store) ListProfiles(ctx context.Context) ([]message.Profile, error) {
	ctx, span := startSpan(ctx, "sqlite.list_profiles")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("list profiles", err)
	}
	defer rows.Close()

	out := make([]message.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, unavailable("scan profile", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list profiles", err)
	}
	return out, nil
}

// SaveProfileSection implements store.ProfileWriter. The read-merge-write
// runs in one transaction.
func (s *Store) SaveProfileSection(ctx context.Context, userID string, attrs message.Attributes) (message.Profile, error) {
	ctx, span := startSpan(ctx, "sqlite.save_profile_section", attribute.String("user.id", userID))
	defer span.End()

	if userID == "" {
		return message.Profile{}, fmt.Errorf("%w: empty user id", store.ErrInvalidQuery)
	}

	p, err := s.updateProfile(ctx, userID, func(p *message.Profile) {
		p.Merge(attrs)
	})
	if err != nil {
		span.RecordError(err)
	}
	return p, err
}

// SyncUser implements store.ProfileWriter.
func (s *Store) SyncUser(ctx context.Context, userID, email, phone string) (message.Profile, error) {
	ctx, span := startSpan(ctx, "sqlite.sync_user", attribute.String("user.id", userID))
	defer span.End()

	if userID == "" {
		return message.Profile{}, fmt.Errorf("%w: empty user id", store.ErrInvalidQuery)
	}

	p, err := s.updateProfile(ctx, userID, func(p *message.Profile) {
		if email != "" {
			p.Email = email
		}
		if phone != "" {
			p.Phone = phone
		}
	})
	if err != nil {
		span.RecordError(err)
	}
	return p, err
}

// updateProfile loads the user's row (or a blank profile), applies fn and
// upserts the result.
func (s *Store) updateProfile(ctx context.Context, userID string, fn func(*message.Profile)) (message.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return message.Profile{}, unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE user_id = ?`, userID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p = message.Profile{UserID: userID}
	case err != nil:
		return message.Profile{}, unavailable("load profile", err)
	}

	fn(&p)
	p.UpdatedAt = s.clock()

	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return message.Profile{}, fmt.Errorf("sqlite: encode attributes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, email, phone, attributes, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			phone = excluded.phone,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`,
		p.UserID, p.Email, p.Phone, string(attrs), toNanos(p.UpdatedAt))
	if err != nil {
		return message.Profile{}, unavailable("save profile", err)
	}

	if err := tx.Commit(); err != nil {
		return message.Profile{}, unavailable("commit", err)
	}
	return p, nil
}
