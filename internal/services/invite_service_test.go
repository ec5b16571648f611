package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sportperformance/academy-api/internal/models"
)

func seedAcademy(t *testing.T, s *testStack) *models.Academy {
	t.Helper()

	academy, err := s.academies.Create(context.Background(), CreateAcademyInput{Name: "North FC"})
	require.NoError(t, err)
	return academy
}

func TestCreateInviteRejectsUnknownRole(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	academy := seedAcademy(t, s)

	_, err := s.invites.CreateInvite(context.Background(), academy.AcademyNumber, "bob@x.com", "MANAGER", 24)
	require.ErrorIs(t, err, ErrInviteBadRole)
}

func TestCreateInviteRejectsNonPositiveExpiry(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	academy := seedAcademy(t, s)

	_, err := s.invites.CreateInvite(context.Background(), academy.AcademyNumber, "bob@x.com", models.RoleCoach, 0)
	require.ErrorIs(t, err, ErrInviteBadExpiry)
}

func TestCreateInviteRequiresExistingAcademy(t *testing.T) {
	s := newTestStack(t, OtpConfig{})

	_, err := s.invites.CreateInvite(context.Background(), 999999999, "bob@x.com", models.RoleCoach, 24)
	require.ErrorIs(t, err, ErrInviteAcademyNotFound)
}

func TestCreateInviteTokenShape(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	academy := seedAcademy(t, s)

	created, err := s.invites.CreateInvite(context.Background(), academy.AcademyNumber, "bob@x.com", models.RoleCoach, 24)
	require.NoError(t, err)

	// 60 random bytes encode to 80 URL-safe characters, unpadded.
	require.Len(t, created.Token, 80)
	require.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]+$`), created.Token)
	require.Equal(t, "https://app.example.com/invites/"+created.Token, created.URL)
	require.WithinDuration(t, s.clock.Now().Add(24*time.Hour), created.ExpiresAt, time.Second)
}

func TestResolveInviteOutcomes(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	academy := seedAcademy(t, s)

	_, err := s.invites.ResolveInvite(ctx, "no-such-token")
	require.ErrorIs(t, err, ErrInviteInvalid)

	created, err := s.invites.CreateInvite(ctx, academy.AcademyNumber, "bob@x.com", models.RoleCoach, 24)
	require.NoError(t, err)

	invite, err := s.invites.ResolveInvite(ctx, created.Token)
	require.NoError(t, err)
	require.Equal(t, "bob@x.com", invite.Email)
	require.Equal(t, models.RoleCoach, invite.Role)
	require.Nil(t, invite.UsedAt)

	// Resolution is idempotent while pending.
	_, err = s.invites.ResolveInvite(ctx, created.Token)
	require.NoError(t, err)

	s.clock.Advance(25 * time.Hour)
	_, err = s.invites.ResolveInvite(ctx, created.Token)
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestAcceptInviteMatchesEmailCaseInsensitively(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	academy := seedAcademy(t, s)

	created, err := s.invites.CreateInvite(ctx, academy.AcademyNumber, "bob@x.com", models.RoleCoach, 24)
	require.NoError(t, err)

	_, err = s.invites.AcceptInvite(ctx, created.Token, "eve@x.com")
	require.ErrorIs(t, err, ErrInviteEmailMismatch)

	accepted, err := s.invites.AcceptInvite(ctx, created.Token, "Bob@X.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleCoach, accepted.Role)

	user, err := s.users.GetByNumber(ctx, accepted.UserNumber)
	require.NoError(t, err)
	require.Equal(t, "bob@x.com", user.Email)
	require.NotNil(t, user.AcademyNumber)
	require.Equal(t, academy.AcademyNumber, *user.AcademyNumber)
}

func TestAcceptInviteIsSingleUse(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	academy := seedAcademy(t, s)

	created, err := s.invites.CreateInvite(ctx, academy.AcademyNumber, "bob@x.com", models.RolePlayer, 24)
	require.NoError(t, err)

	_, err = s.invites.AcceptInvite(ctx, created.Token, "bob@x.com")
	require.NoError(t, err)

	_, err = s.invites.AcceptInvite(ctx, created.Token, "bob@x.com")
	require.ErrorIs(t, err, ErrInviteUsed)
}

func TestAcceptInviteReusesExistingUser(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	academy := seedAcademy(t, s)

	existing, err := s.users.Create(ctx, CreateUserInput{Email: "bob@x.com", Role: models.RolePlayer})
	require.NoError(t, err)

	created, err := s.invites.CreateInvite(ctx, academy.AcademyNumber, "bob@x.com", models.RoleCoach, 24)
	require.NoError(t, err)

	accepted, err := s.invites.AcceptInvite(ctx, created.Token, "bob@x.com")
	require.NoError(t, err)
	require.Equal(t, existing.UserNumber, accepted.UserNumber)
}

func TestInviteLifecycleEndToEnd(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	academy := seedAcademy(t, s)

	created, err := s.invites.CreateInvite(ctx, academy.AcademyNumber, "bob@x.com", models.RoleCoach, 24)
	require.NoError(t, err)
	require.Len(t, created.Token, 80)

	invite, err := s.invites.ResolveInvite(ctx, created.Token)
	require.NoError(t, err)
	require.Nil(t, invite.UsedAt)

	accepted, err := s.invites.AcceptInvite(ctx, created.Token, "Bob@x.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleCoach, accepted.Role)

	user, err := s.users.GetByNumber(ctx, accepted.UserNumber)
	require.NoError(t, err)
	require.Equal(t, models.RoleCoach, user.Role)
	require.Equal(t, academy.AcademyNumber, *user.AcademyNumber)

	_, err = s.invites.ResolveInvite(ctx, created.Token)
	require.ErrorIs(t, err, ErrInviteUsed)
}
