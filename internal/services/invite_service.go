package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/models"
	"github.com/sportperformance/academy-api/pkg/crypto"
	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/logger"
	"github.com/sportperformance/academy-api/pkg/metrics"
)

// Terminal invite outcomes.
var (
	ErrInviteAcademyNotFound = errs.ErrNotFound.WithMessage("Academy not found")
	ErrInviteInvalid         = errs.ErrInvalidInvite.WithMessage("Invalid invite token")
	ErrInviteUsed            = errs.ErrInvalidInvite.WithMessage("Invite token has already been used")
	ErrInviteExpired         = errs.ErrInvalidInvite.WithMessage("Invite token has expired")
	ErrInviteEmailMismatch   = errs.ErrInvalidInvite.WithMessage("Invite was issued for a different email")
	ErrInviteBadRole         = errs.ErrInvalidInvite.WithMessage("Unknown invite role")
	ErrInviteBadExpiry       = errs.ErrInvalidInvite.WithMessage("Invite expiry must be positive")
)

// inviteTokenBytes is the entropy fed into each bearer token before encoding.
const inviteTokenBytes = 60

// InviteConfig tunes invite issuance.
type InviteConfig struct {
	// BaseURL is prepended to generated redemption links.
	BaseURL string
}

// InviteService issues, resolves, and retires invite tokens. Like the OTP
// engine it is stateless over the store.
type InviteService struct {
	db        *gorm.DB
	academies *AcademyService
	users     *UserService
	cfg       InviteConfig
	random    io.Reader
	now       func() time.Time
	log       *zap.Logger
}

// InviteOption customises an InviteService.
type InviteOption func(*InviteService)

// WithInviteRandom overrides the entropy source used for token generation.
func WithInviteRandom(random io.Reader) InviteOption {
	return func(s *InviteService) {
		s.random = random
	}
}

// WithInviteClock overrides the time source, for tests.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		s.now = clock
	}
}

// NewInviteService constructs the invite engine and its collaborators.
func NewInviteService(
	db *gorm.DB,
	academies *AcademyService,
	users *UserService,
	cfg InviteConfig,
	opts ...InviteOption,
) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service requires a database handle")
	}
	if academies == nil {
		return nil, errors.New("invite service requires an academy service")
	}
	if users == nil {
		return nil, errors.New("invite service requires a user service")
	}

	svc := &InviteService{
		db:        db,
		academies: academies,
		users:     users,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.WithModule("services.invite"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreatedInvite is returned on successful invite issuance. The token is the
// bearer capability itself; no digest is stored because possession equals
// authorization.
type CreatedInvite struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateInvite issues an invite binding (email, role) to an academy.
func (s *InviteService) CreateInvite(ctx context.Context, academyNumber int64, email, role string, expiresInHours int) (*CreatedInvite, error) {
	if !models.ValidRole(role) {
		return nil, ErrInviteBadRole
	}
	if expiresInHours <= 0 {
		return nil, ErrInviteBadExpiry
	}
	email = normaliseEmail(email)
	if email == "" {
		return nil, errs.ErrBadRequest.WithMessage("Email is required")
	}

	if _, err := s.academies.GetByNumber(ctx, academyNumber); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, ErrInviteAcademyNotFound
		}
		return nil, err
	}

	token, err := crypto.GenerateToken(s.random, inviteTokenBytes)
	if err != nil {
		return nil, errs.Wrap(err, "Failed to generate invite token")
	}

	invite := &models.InviteToken{
		Token:         token,
		AcademyNumber: academyNumber,
		Email:         email,
		Role:          role,
		ExpiresAt:     s.now().Add(time.Duration(expiresInHours) * time.Hour),
	}
	if err := s.db.WithContext(ctx).Create(invite).Error; err != nil {
		return nil, errs.Wrap(err, "Failed to persist invite")
	}

	s.log.Info("invite created",
		zap.Int64("academy_number", academyNumber),
		zap.String("role", role),
		zap.Time("expires_at", invite.ExpiresAt),
	)
	return &CreatedInvite{
		Token:     token,
		URL:       s.redemptionURL(token),
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

func (s *InviteService) redemptionURL(token string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if base == "" {
		base = "/invites"
	}
	return fmt.Sprintf("%s/%s", base, token)
}

// ResolveInvite returns the pending invite for a token. Read-only and
// idempotent; used by both the preview and accept flows. Anything other than
// a pending, unexpired invite is reported as invalid.
func (s *InviteService) ResolveInvite(ctx context.Context, token string) (*models.InviteToken, error) {
	return s.resolve(ctx, s.db, token)
}

func (s *InviteService) resolve(ctx context.Context, db *gorm.DB, token string) (*models.InviteToken, error) {
	if token == "" {
		return nil, ErrInviteInvalid
	}

	var invite models.InviteToken
	err := db.WithContext(ctx).Where("token = ?", token).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, errs.Wrap(err, "Failed to load invite")
	}

	if invite.UsedAt != nil {
		return nil, ErrInviteUsed
	}
	if !s.now().Before(invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}
	return &invite, nil
}

// AcceptedInvite is returned on successful redemption.
type AcceptedInvite struct {
	UserNumber int64  `json:"user_number"`
	Role       string `json:"role"`
}

// AcceptInvite redeems a pending invite for the caller. The email must match
// the invited address case-insensitively. Resolution is re-run inside the
// transaction, and consumption is a conditional update; a zero-row update
// means a concurrent accept won.
func (s *InviteService) AcceptInvite(ctx context.Context, token, email string) (*AcceptedInvite, error) {
	var accepted *AcceptedInvite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.resolve(ctx, tx, token)
		if err != nil {
			return err
		}

		if normaliseEmail(email) != normaliseEmail(invite.Email) {
			return ErrInviteEmailMismatch
		}

		user, err := s.users.GetOrCreateTx(ctx, tx, CreateUserInput{
			Email:         invite.Email,
			Role:          invite.Role,
			AcademyNumber: &invite.AcademyNumber,
		})
		if err != nil {
			return err
		}

		res := tx.Model(&models.InviteToken{}).
			Where("id = ? AND used_at IS NULL", invite.ID).
			Update("used_at", s.now())
		if res.Error != nil {
			return errs.Wrap(res.Error, "Failed to consume invite")
		}
		if res.RowsAffected == 0 {
			return ErrInviteUsed
		}

		accepted = &AcceptedInvite{
			UserNumber: user.UserNumber,
			Role:       user.Role,
		}
		return nil
	})
	if err != nil {
		metrics.InviteAcceptances.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.InviteAcceptances.WithLabelValues("success").Inc()
	s.log.Info("invite accepted",
		zap.Int64("user_number", accepted.UserNumber),
		zap.String("role", accepted.Role),
	)
	return accepted, nil
}
