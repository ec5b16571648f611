package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/sportperformance/academy-api/pkg/errors"
)

func TestAcademyCreateAndGetByNumber(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()

	academy, err := s.academies.Create(ctx, CreateAcademyInput{
		Name:         "North FC",
		PrimaryColor: "#003366",
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, academy.AcademyNumber, int64(100000000))
	require.Less(t, academy.AcademyNumber, int64(1000000000))

	found, err := s.academies.GetByNumber(ctx, academy.AcademyNumber)
	require.NoError(t, err)
	require.Equal(t, academy.ID, found.ID)
	require.Equal(t, "North FC", found.Name)
}

func TestAcademyCreateRequiresName(t *testing.T) {
	s := newTestStack(t, OtpConfig{})

	_, err := s.academies.Create(context.Background(), CreateAcademyInput{})
	require.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestAcademyGetByNumberNotFound(t *testing.T) {
	s := newTestStack(t, OtpConfig{})

	_, err := s.academies.GetByNumber(context.Background(), 123456789)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAcademyNumberExhaustionIsConflict(t *testing.T) {
	db := newTestStack(t, OtpConfig{}).db
	svc, err := NewAcademyService(db, WithAcademyRandom(constantReader(0x42)))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateAcademyInput{Name: "First"})
	require.NoError(t, err)

	// Every retry draws the same number, so allocation must give up.
	_, err = svc.Create(context.Background(), CreateAcademyInput{Name: "Second"})
	require.ErrorIs(t, err, errs.ErrConflict)
}
