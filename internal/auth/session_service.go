package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/models"
	"github.com/sportperformance/academy-api/pkg/metrics"
)

var (
	// ErrSessionNotFound indicates no session matches the provided token id.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionExpired signals that a session has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
)

// SessionService is the session registry: it records one row per issued
// access token, keyed by the token's jti.
type SessionService struct {
	db  *gorm.DB
	now func() time.Time
}

// SessionOption customises SessionService behaviour.
type SessionOption func(*SessionService)

// WithSessionClock injects a custom time source, primarily for testing.
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(s *SessionService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewSessionService constructs a session registry backed by the provided database.
func NewSessionService(db *gorm.DB, opts ...SessionOption) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}

	svc := &SessionService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create records an active session entry for the given user and token id.
func (s *SessionService) Create(ctx context.Context, userID, tokenID string, expiresAt time.Time) (*models.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("session service: user id is required")
	}
	if strings.TrimSpace(tokenID) == "" {
		return nil, errors.New("session service: token id is required")
	}

	session := &models.Session{
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	return session, nil
}

// Validate checks that a session exists for the token id and has not expired.
func (s *SessionService) Validate(ctx context.Context, tokenID string) (*models.Session, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	if session.ExpiresAt.Before(s.now()) {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// CleanupExpired removes sessions whose expiry has passed. Returns the number
// of rows deleted.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	return result.RowsAffected, nil
}
