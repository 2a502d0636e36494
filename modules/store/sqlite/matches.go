package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/coffee/pkg/message"
)

// ReplaceMatches implements store.MatchStore.
func (s *Store) ReplaceMatches(ctx context.Context, userID string, matches []message.Match) error {
	ctx, span := startSpan(ctx, "sqlite.replace_matches",
		attribute.String("user.id", userID), attribute.Int("matches.count", len(matches)))
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE user_id = ?`, userID); err != nil {
		span.RecordError(err)
		return unavailable("clear matches", err)
	}

	for _, m := range matches {
		overlap, err := json.Marshal(nonNil(m.OverlapInterests))
		if err != nil {
			return fmt.Errorf("sqlite: encode overlap: %w", err)
		}
		var age sql.NullInt64
		if m.Age != nil {
			age = sql.NullInt64{Int64: int64(*m.Age), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO matches
				(user_id, match_user_id, score, name, age, city, tagline, overlap_interests)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, m.MatchUserID, m.Score, m.Name, age, m.City, m.Tagline, string(overlap))
		if err != nil {
			span.RecordError(err)
			return unavailable("insert match", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// GetMatches implements store.MatchStore.
func (s *Store) GetMatches(ctx context.Context, userID string, limit int) ([]message.Match, error) {
	ctx, span := startSpan(ctx, "sqlite.get_matches", attribute.String("user.id", userID))
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT match_user_id, score, name, age, city, tagline, overlap_interests
		FROM matches WHERE user_id = ?
		ORDER BY score DESC, match_user_id ASC
		LIMIT ?`, userID, sqlLimit(limit))
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("get matches", err)
	}
	defer rows.Close()

	out := make([]message.Match, 0)
	for rows.Next() {
		var (
			m       message.Match
			age     sql.NullInt64
			overlap string
		)
		if err := rows.Scan(&m.MatchUserID, &m.Score, &m.Name, &age, &m.City, &m.Tagline, &overlap); err != nil {
			return nil, unavailable("scan match", err)
		}
		if age.Valid {
			a := int(age.Int64)
			m.Age = &a
		}
		if err := json.Unmarshal([]byte(overlap), &m.OverlapInterests); err != nil {
			return nil, unavailable("decode overlap", err)
		}
		if len(m.OverlapInterests) == 0 {
			m.OverlapInterests = nil
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get matches", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
