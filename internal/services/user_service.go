package services

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/models"
	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/logger"
)

// UserService manages platform principals.
type UserService struct {
	db     *gorm.DB
	random io.Reader
}

// UserOption customises a UserService.
type UserOption func(*UserService)

// WithUserRandom overrides the entropy source used for number generation.
func WithUserRandom(random io.Reader) UserOption {
	return func(s *UserService) {
		s.random = random
	}
}

// NewUserService constructs a UserService backed by the given database.
func NewUserService(db *gorm.DB, opts ...UserOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service requires a database handle")
	}

	svc := &UserService{db: db}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateUserInput captures the fields a caller can set on a new user.
type CreateUserInput struct {
	Email         string
	Role          string
	AcademyNumber *int64
}

// Create provisions a new user with a freshly generated public number. The
// email is stored lowercase. A duplicate email is a conflict; public number
// collisions are retried a bounded number of times.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	return s.create(ctx, s.db, input)
}

// GetByEmail loads a user by email, case-insensitively.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmail(ctx, s.db, email)
}

// GetByNumber loads a user by its public number.
func (s *UserService) GetByNumber(ctx context.Context, number int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("user_number = ?", number).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound.WithMessage("User not found")
		}
		return nil, errs.Wrap(err, "Failed to load user")
	}

	return &user, nil
}

// GetOrCreate returns the user with the given email, provisioning one when it
// does not exist yet. Existing users keep their current role and academy
// binding; the inputs only apply to a fresh row.
func (s *UserService) GetOrCreate(ctx context.Context, input CreateUserInput) (*models.User, error) {
	return s.getOrCreate(ctx, s.db, input)
}

// GetOrCreateTx behaves like GetOrCreate inside the supplied transaction.
func (s *UserService) GetOrCreateTx(ctx context.Context, tx *gorm.DB, input CreateUserInput) (*models.User, error) {
	return s.getOrCreate(ctx, tx, input)
}

func (s *UserService) getOrCreate(ctx context.Context, db *gorm.DB, input CreateUserInput) (*models.User, error) {
	user, err := s.getByEmail(ctx, db, input.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	user, err = s.create(ctx, db, input)
	if err == nil {
		return user, nil
	}

	// A concurrent provisioner may have won the insert race; fall back to
	// the row it created.
	if errors.Is(err, errs.ErrConflict) {
		return s.getByEmail(ctx, db, input.Email)
	}
	return nil, err
}

func (s *UserService) getByEmail(ctx context.Context, db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).
		Where("email = ?", normaliseEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound.WithMessage("User not found")
		}
		return nil, errs.Wrap(err, "Failed to load user")
	}

	return &user, nil
}

func (s *UserService) create(ctx context.Context, db *gorm.DB, input CreateUserInput) (*models.User, error) {
	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, errs.ErrBadRequest.WithMessage("Email is required")
	}
	if input.Role != "" && !models.ValidRole(input.Role) {
		return nil, errs.ErrBadRequest.WithMessage("Unknown role")
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := randomPublicNumber(s.random)
		if err != nil {
			return nil, errs.Wrap(err, "Failed to create user")
		}

		user := &models.User{
			UserNumber:    number,
			Email:         email,
			Role:          input.Role,
			IsActive:      true,
			AcademyNumber: input.AcademyNumber,
		}

		if err := db.WithContext(ctx).Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				var existing models.User
				lookupErr := db.WithContext(ctx).
					Where("email = ?", email).
					First(&existing).Error
				if lookupErr == nil {
					return nil, errs.ErrConflict.WithMessage("A user with this email already exists")
				}
				// Number collision: try again with a fresh one.
				continue
			}
			return nil, errs.Wrap(err, "Failed to create user")
		}

		logger.Info("user created",
			zap.Int64("user_number", user.UserNumber),
			zap.String("role", user.Role),
		)
		return user, nil
	}

	return nil, errs.ErrConflict.WithMessage("Could not allocate a unique user number")
}
