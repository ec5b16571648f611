package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/auth"
	"github.com/sportperformance/academy-api/internal/models"
	"github.com/sportperformance/academy-api/pkg/crypto"
	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/logger"
	"github.com/sportperformance/academy-api/pkg/mail"
	"github.com/sportperformance/academy-api/pkg/metrics"
)

// Terminal OTP outcomes. Each maps to exactly one client-visible code.
var (
	ErrOtpNotFound      = errs.ErrNotFound.WithMessage("No active code for this email and purpose")
	ErrOtpAlreadyUsed   = errs.ErrAlreadyUsed.WithMessage("This code has already been used")
	ErrOtpExpired       = errs.ErrExpired.WithMessage("This code has expired")
	ErrOtpInvalid       = errs.ErrInvalid.WithMessage("The code is not valid")
	ErrOtpUserNotFound  = errs.ErrNotFound.WithMessage("No account exists for this email")
	ErrOtpRequestFailed = errs.ErrInternalServer.WithMessage("Could not process the code request")
)

// OtpConfig tunes the OTP challenge lifecycle.
type OtpConfig struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}

// Defaults applied when a field is unset.
const (
	DefaultOtpCodeLength  = 6
	DefaultOtpTTL         = 10 * time.Minute
	DefaultOtpMaxAttempts = 5
)

func (c OtpConfig) withDefaults() OtpConfig {
	if c.CodeLength <= 0 {
		c.CodeLength = DefaultOtpCodeLength
	}
	if c.TTL <= 0 {
		c.TTL = DefaultOtpTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultOtpMaxAttempts
	}
	return c
}

// OtpService issues, verifies, and retires one-time codes. It holds no
// mutable state of its own; all lifecycle state lives in the store, so
// concurrent instances are safe.
type OtpService struct {
	db       *gorm.DB
	users    *UserService
	tokens   *auth.JWTService
	sessions *auth.SessionService
	mailer   mail.Mailer
	cfg      OtpConfig
	random   io.Reader
	now      func() time.Time
	log      *zap.Logger
}

// OtpOption customises an OtpService.
type OtpOption func(*OtpService)

// WithOtpRandom overrides the entropy source used for code generation.
func WithOtpRandom(random io.Reader) OtpOption {
	return func(s *OtpService) {
		s.random = random
	}
}

// WithOtpClock overrides the time source, for tests.
func WithOtpClock(clock func() time.Time) OtpOption {
	return func(s *OtpService) {
		s.now = clock
	}
}

// NewOtpService constructs the OTP engine and its collaborators.
func NewOtpService(
	db *gorm.DB,
	users *UserService,
	tokens *auth.JWTService,
	sessions *auth.SessionService,
	mailer mail.Mailer,
	cfg OtpConfig,
	opts ...OtpOption,
) (*OtpService, error) {
	if db == nil {
		return nil, errors.New("otp service requires a database handle")
	}
	if users == nil {
		return nil, errors.New("otp service requires a user service")
	}
	if tokens == nil {
		return nil, errors.New("otp service requires a token issuer")
	}
	if sessions == nil {
		return nil, errors.New("otp service requires a session service")
	}
	if mailer == nil {
		return nil, errors.New("otp service requires a mailer")
	}

	svc := &OtpService{
		db:       db,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		log:      logger.WithModule("services.otp"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestOtp issues a fresh challenge for (email, purpose) and dispatches the
// plaintext code out-of-band. Any failure collapses into one opaque error so
// the caller cannot tell which step broke.
func (s *OtpService) RequestOtp(ctx context.Context, email, purpose string) error {
	email = normaliseEmail(email)
	if email == "" || purpose == "" {
		return errs.ErrBadRequest.WithMessage("Email and purpose are required")
	}

	code, err := crypto.GenerateNumericCode(s.random, s.cfg.CodeLength)
	if err != nil {
		return s.requestFailed(email, purpose, "generate", err)
	}

	challenge := &models.OtpChallenge{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  crypto.HashCode(code),
		ExpiresAt: s.now().Add(s.cfg.TTL),
	}
	if err := s.db.WithContext(ctx).Create(challenge).Error; err != nil {
		return s.requestFailed(email, purpose, "persist", err)
	}

	msg := mail.Message{
		To:      []string{email},
		Subject: "Your verification code",
		Body: fmt.Sprintf(
			"Your verification code is %s. It expires in %d minutes.",
			code, int(s.cfg.TTL.Minutes()),
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return s.requestFailed(email, purpose, "deliver", err)
	}

	metrics.OtpRequests.WithLabelValues("success").Inc()
	s.log.Info("otp challenge issued",
		zap.String("purpose", purpose),
		zap.String("fingerprint", crypto.Fingerprint(challenge.CodeHash)),
		zap.Time("expires_at", challenge.ExpiresAt),
	)
	return nil
}

func (s *OtpService) requestFailed(email, purpose, step string, err error) error {
	metrics.OtpRequests.WithLabelValues("failure").Inc()
	s.log.Error("otp request failed",
		zap.String("purpose", purpose),
		zap.String("step", step),
		zap.Error(err),
	)
	return ErrOtpRequestFailed.WithInternal(err)
}

// VerifyOtpResult is returned on successful verification.
type VerifyOtpResult struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	UserNumber int64     `json:"user_number"`
}

// VerifyOtp checks a candidate code against the latest challenge for
// (email, purpose). The guarded read and the conditional consumption write
// run inside one transaction; two concurrent calls against the same
// challenge can never both succeed. Token and session issuance happen after
// commit: a consumed challenge stays consumed even when issuance fails.
func (s *OtpService) VerifyOtp(ctx context.Context, email, purpose, code, correlationID string) (*VerifyOtpResult, error) {
	email = normaliseEmail(email)
	candidateDigest := crypto.HashCode(code)

	var (
		user *models.User
		// Terminal outcome whose side effects (attempts counter, lockout
		// expiry) must survive the transaction commit.
		committedErr error
	)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var challenge models.OtpChallenge
		err := tx.
			Where("email = ? AND purpose = ?", email, purpose).
			Order("created_at DESC").
			First(&challenge).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return s.outcome(correlationID, candidateDigest, "not_found", ErrOtpNotFound)
			}
			return errs.Wrap(err, "Failed to load challenge")
		}

		if challenge.Consumed {
			return s.outcome(correlationID, candidateDigest, "used", ErrOtpAlreadyUsed)
		}
		if challenge.Purpose != purpose {
			return s.outcome(correlationID, candidateDigest, "invalid", ErrOtpInvalid)
		}

		now := s.now()
		if !now.Before(challenge.ExpiresAt) || challenge.Attempts >= s.cfg.MaxAttempts {
			return s.outcome(correlationID, candidateDigest, "expired", ErrOtpExpired)
		}

		if !crypto.DigestEqual(candidateDigest, challenge.CodeHash) {
			updates := map[string]any{"attempts": challenge.Attempts + 1}
			if challenge.Attempts+1 >= s.cfg.MaxAttempts {
				// Lockout: the challenge expires immediately once the
				// attempt budget is spent.
				updates["expires_at"] = now
			}
			if err := tx.Model(&models.OtpChallenge{}).
				Where("id = ?", challenge.ID).
				Updates(updates).Error; err != nil {
				return errs.Wrap(err, "Failed to record attempt")
			}
			committedErr = s.outcome(correlationID, candidateDigest, "invalid", ErrOtpInvalid)
			return nil
		}

		user, err = s.users.getByEmail(ctx, tx, email)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return s.outcome(correlationID, candidateDigest, "user_not_found", ErrOtpUserNotFound)
			}
			return err
		}

		// Conditional consumption: zero affected rows means a concurrent
		// verify won the race.
		res := tx.Model(&models.OtpChallenge{}).
			Where("id = ? AND consumed = ?", challenge.ID, false).
			Update("consumed", true)
		if res.Error != nil {
			return errs.Wrap(res.Error, "Failed to consume challenge")
		}
		if res.RowsAffected == 0 {
			return s.outcome(correlationID, candidateDigest, "used", ErrOtpAlreadyUsed)
		}

		return nil
	})
	if txErr != nil {
		if errs.FromError(txErr).Code == errs.ErrInternalServer.Code {
			metrics.OtpVerifications.WithLabelValues("error").Inc()
			s.log.Error("otp verify failed",
				zap.String("correlation_id", correlationID),
				zap.Error(txErr),
			)
		}
		return nil, txErr
	}
	if committedErr != nil {
		return nil, committedErr
	}

	issued, err := s.tokens.Issue(auth.Principal{
		UserID:        user.ID,
		UserNumber:    user.UserNumber,
		Email:         user.Email,
		AcademyNumber: user.AcademyNumber,
		Role:          user.Role,
	})
	if err != nil {
		metrics.OtpVerifications.WithLabelValues("error").Inc()
		s.log.Error("token issuance failed after consumption",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil, errs.Wrap(err, "Failed to issue access token")
	}

	if _, err := s.sessions.Create(ctx, user.ID, issued.TokenID, issued.ExpiresAt); err != nil {
		metrics.OtpVerifications.WithLabelValues("error").Inc()
		s.log.Error("session creation failed after consumption",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil, errs.Wrap(err, "Failed to record session")
	}

	metrics.OtpVerifications.WithLabelValues("success").Inc()
	s.log.Info("otp verified",
		zap.String("correlation_id", correlationID),
		zap.String("fingerprint", crypto.Fingerprint(candidateDigest)),
		zap.String("outcome", "success"),
		zap.Int64("user_number", user.UserNumber),
	)
	return &VerifyOtpResult{
		Token:      issued.Token,
		ExpiresAt:  issued.ExpiresAt,
		UserNumber: user.UserNumber,
	}, nil
}

// outcome records a terminal verification branch and returns its error.
func (s *OtpService) outcome(correlationID, digest, tag string, err *errs.AppError) error {
	metrics.OtpVerifications.WithLabelValues(tag).Inc()
	s.log.Info("otp verify outcome",
		zap.String("correlation_id", correlationID),
		zap.String("fingerprint", crypto.Fingerprint(digest)),
		zap.String("outcome", tag),
	)
	return err
}
