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

// AcademyService manages academy tenants.
type AcademyService struct {
	db     *gorm.DB
	random io.Reader
}

// AcademyOption customises an AcademyService.
type AcademyOption func(*AcademyService)

// WithAcademyRandom overrides the entropy source used for number generation.
func WithAcademyRandom(random io.Reader) AcademyOption {
	return func(s *AcademyService) {
		s.random = random
	}
}

// NewAcademyService constructs an AcademyService backed by the given database.
func NewAcademyService(db *gorm.DB, opts ...AcademyOption) (*AcademyService, error) {
	if db == nil {
		return nil, errors.New("academy service requires a database handle")
	}

	svc := &AcademyService{db: db}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateAcademyInput captures the fields a caller can set on a new academy.
type CreateAcademyInput struct {
	Name         string
	LogoURL      string
	PrimaryColor string
}

// Create provisions a new academy with a freshly generated public number.
// Number collisions are retried a bounded number of times; exhaustion
// surfaces as a conflict.
func (s *AcademyService) Create(ctx context.Context, input CreateAcademyInput) (*models.Academy, error) {
	if input.Name == "" {
		return nil, errs.ErrBadRequest.WithMessage("Academy name is required")
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := randomPublicNumber(s.random)
		if err != nil {
			return nil, errs.Wrap(err, "Failed to create academy")
		}

		academy := &models.Academy{
			AcademyNumber: number,
			Name:          input.Name,
			LogoURL:       input.LogoURL,
			PrimaryColor:  input.PrimaryColor,
		}

		if err := s.db.WithContext(ctx).Create(academy).Error; err != nil {
			if isUniqueConstraintError(err) {
				continue
			}
			return nil, errs.Wrap(err, "Failed to create academy")
		}

		logger.Info("academy created",
			zap.Int64("academy_number", academy.AcademyNumber),
			zap.String("name", academy.Name),
		)
		return academy, nil
	}

	return nil, errs.ErrConflict.WithMessage("Could not allocate a unique academy number")
}

// GetByNumber loads an academy by its public number.
func (s *AcademyService) GetByNumber(ctx context.Context, number int64) (*models.Academy, error) {
	var academy models.Academy
	err := s.db.WithContext(ctx).
		Where("academy_number = ?", number).
		First(&academy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound.WithMessage("Academy not found")
		}
		return nil, errs.Wrap(err, "Failed to load academy")
	}

	return &academy, nil
}
