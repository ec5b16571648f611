package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sportperformance/academy-api/internal/models"
	errs "github.com/sportperformance/academy-api/pkg/errors"
)

func TestUserCreateNormalisesEmail(t *testing.T) {
	s := newTestStack(t, OtpConfig{})

	user, err := s.users.Create(context.Background(), CreateUserInput{
		Email: "  Alice@Example.COM ",
		Role:  models.RolePlayer,
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.True(t, user.IsActive)
	require.GreaterOrEqual(t, user.UserNumber, int64(100000000))
}

func TestUserCreateDuplicateEmailIsConflict(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()

	_, err := s.users.Create(ctx, CreateUserInput{Email: "alice@example.com", Role: models.RolePlayer})
	require.NoError(t, err)

	_, err = s.users.Create(ctx, CreateUserInput{Email: "Alice@example.com", Role: models.RoleCoach})
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	s := newTestStack(t, OtpConfig{})

	_, err := s.users.Create(context.Background(), CreateUserInput{Email: "alice@example.com", Role: "WIZARD"})
	require.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestUserGetByEmailIsCaseInsensitive(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()

	created, err := s.users.Create(ctx, CreateUserInput{Email: "alice@example.com", Role: models.RolePlayer})
	require.NoError(t, err)

	found, err := s.users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
}

func TestUserGetOrCreateIsIdempotent(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()

	first, err := s.users.GetOrCreate(ctx, CreateUserInput{Email: "alice@example.com", Role: models.RolePlayer})
	require.NoError(t, err)

	second, err := s.users.GetOrCreate(ctx, CreateUserInput{Email: "Alice@example.com", Role: models.RoleCoach})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	// The existing row keeps its original role.
	require.Equal(t, models.RolePlayer, second.Role)
}

func TestUserNumberExhaustionIsConflict(t *testing.T) {
	db := newTestStack(t, OtpConfig{}).db
	svc, err := NewUserService(db, WithUserRandom(constantReader(0x42)))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{Email: "first@example.com", Role: models.RolePlayer})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{Email: "second@example.com", Role: models.RolePlayer})
	require.ErrorIs(t, err, errs.ErrConflict)
}
