// Package maintenance holds the out-of-band cleanup job. Expiry remains
// enforced lazily at read time; the sweeper only reclaims storage from rows
// that can never become valid again.
package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/auth"
	"github.com/sportperformance/academy-api/internal/models"
	"github.com/sportperformance/academy-api/pkg/logger"
)

// DefaultRetention is how long inert credential rows are kept for forensics
// before the sweeper deletes them.
const DefaultRetention = 24 * time.Hour

// Sweeper deletes consumed and long-expired credential rows.
type Sweeper struct {
	db        *gorm.DB
	sessions  *auth.SessionService
	retention time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// SweeperOption customises a Sweeper.
type SweeperOption func(*Sweeper)

// WithRetention overrides how long inert rows are retained.
func WithRetention(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = clock
	}
}

// NewSweeper constructs a Sweeper.
func NewSweeper(db *gorm.DB, sessions *auth.SessionService, opts ...SweeperOption) (*Sweeper, error) {
	if db == nil {
		return nil, errors.New("sweeper requires a database handle")
	}
	if sessions == nil {
		return nil, errors.New("sweeper requires a session service")
	}

	s := &Sweeper{
		db:        db,
		sessions:  sessions,
		retention: DefaultRetention,
		now:       time.Now,
		log:       logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sweep runs one cleanup pass. Failures in one step do not stop the others;
// all errors are collected and returned together.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention)
	var errs error

	res := s.db.WithContext(ctx).
		Where("consumed = ? OR expires_at < ?", true, cutoff).
		Delete(&models.OtpChallenge{})
	if res.Error != nil {
		errs = multierr.Append(errs, res.Error)
	} else if res.RowsAffected > 0 {
		s.log.Info("swept otp challenges", zap.Int64("rows", res.RowsAffected))
	}

	res = s.db.WithContext(ctx).
		Where("used_at IS NOT NULL OR expires_at < ?", cutoff).
		Delete(&models.InviteToken{})
	if res.Error != nil {
		errs = multierr.Append(errs, res.Error)
	} else if res.RowsAffected > 0 {
		s.log.Info("swept invite tokens", zap.Int64("rows", res.RowsAffected))
	}

	if removed, err := s.sessions.CleanupExpired(ctx); err != nil {
		errs = multierr.Append(errs, err)
	} else if removed > 0 {
		s.log.Info("swept sessions", zap.Int64("rows", removed))
	}

	return errs
}

// Schedule registers the sweeper on a cron scheduler and starts it. The
// returned scheduler should be stopped on shutdown.
func (s *Sweeper) Schedule(spec string) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(spec, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.log.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
