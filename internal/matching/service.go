package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// Match list limits.
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Errors returned by Service.
var (
	ErrMissingUser     = errors.New("matching: user id required")
	ErrProfileNotFound = errors.New("matching: user profile not found")
)

// Store is the persistence the service needs.
type Store interface {
	store.ProfileWriter
	store.MatchStore
}

// Service implements the profile and match operations exposed to the
// onboarding agent. The caller is responsible for passing a trusted user id.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a Service over st.
func NewService(st Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger.With("component", "matching")}
}

// SaveProfileSection merges attrs into the user's profile, creating it if
// needed. Nil attributes leave stored values untouched.
func (s *Service) SaveProfileSection(ctx context.Context, userID string, attrs message.Attributes) (message.Profile, error) {
	ctx, span := startSpan(ctx, "matching.save_profile_section", userID)
	defer span.End()

	if userID = strings.TrimSpace(userID); userID == "" {
		return message.Profile{}, ErrMissingUser
	}
	p, err := s.store.SaveProfileSection(ctx, userID, attrs)
	if err != nil {
		span.RecordError(err)
		return message.Profile{}, err
	}
	return p, nil
}

// GetUserProfile returns the user's profile, or nil when none exists yet.
func (s *Service) GetUserProfile(ctx context.Context, userID string) (*message.Profile, error) {
	ctx, span := startSpan(ctx, "matching.get_user_profile", userID)
	defer span.End()

	if userID = strings.TrimSpace(userID); userID == "" {
		return nil, ErrMissingUser
	}
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &p, nil
}

// TriggerMatching recomputes the user's matches against every other
// profile, replaces the stored ones and returns the new list.
func (s *Service) TriggerMatching(ctx context.Context, userID string) ([]message.Match, error) {
	ctx, span := startSpan(ctx, "matching.trigger", userID)
	defer span.End()

	if userID = strings.TrimSpace(userID); userID == "" {
		return nil, ErrMissingUser
	}

	self, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	all, err := s.store.ListProfiles(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res := Compute(self, all)
	matches := make([]message.Match, 0, len(res.Flat))
	for _, c := range res.Flat {
		matches = append(matches, c.Match())
	}

	if err := s.store.ReplaceMatches(ctx, userID, matches); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("matching.count", len(matches)))
	s.logger.Debug("matches recomputed", "user_id", userID, "count", len(matches))
	return matches, nil
}

// GetMatches returns the user's stored matches by score descending.
// Non-positive limits take DefaultLimit; larger ones are capped at MaxLimit.
func (s *Service) GetMatches(ctx context.Context, userID string, limit int) ([]message.Match, error) {
	ctx, span := startSpan(ctx, "matching.get_matches", userID)
	defer span.End()

	if userID = strings.TrimSpace(userID); userID == "" {
		return nil, ErrMissingUser
	}
	ms, err := s.store.GetMatches(ctx, userID, ClampLimit(limit, DefaultLimit))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if ms == nil {
		ms = []message.Match{}
	}
	return ms, nil
}

// RematchAll recomputes matches for every profile and returns how many
// users were processed. Failures for one user are logged and skipped.
func (s *Service) RematchAll(ctx context.Context) (int, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.TriggerMatching(ctx, p.UserID); err != nil {
			s.logger.Warn("rematch failed", "user_id", p.UserID, "error", err)
			continue
		}
		done++
	}
	return done, nil
}

// ClampLimit applies def to non-positive limits and caps at MaxLimit.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, MaxLimit)
}

func startSpan(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return otel.Tracer("github.com/flemzord/coffee/internal/matching").Start(ctx, name,
		trace.WithAttributes(attribute.String("user.id", userID)))
}
