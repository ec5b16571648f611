package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sportperformance/academy-api/internal/models"
	"github.com/sportperformance/academy-api/pkg/crypto"
)

func wrongCodeFor(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func seedUser(t *testing.T, s *testStack, email string) *models.User {
	t.Helper()

	user, err := s.users.Create(context.Background(), CreateUserInput{
		Email: email,
		Role:  models.RolePlayer,
	})
	require.NoError(t, err)
	return user
}

func TestRequestOtpPersistsHashedChallenge(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()

	require.NoError(t, s.otp.RequestOtp(ctx, "Alice@Example.com", "login"))

	var challenges []models.OtpChallenge
	require.NoError(t, s.db.Find(&challenges).Error)
	require.Len(t, challenges, 1)

	challenge := challenges[0]
	require.Equal(t, "alice@example.com", challenge.Email)
	require.Equal(t, "login", challenge.Purpose)
	require.Zero(t, challenge.Attempts)
	require.False(t, challenge.Consumed)

	code := s.mailer.lastCode(t)
	require.NotEqual(t, code, challenge.CodeHash)
	require.Equal(t, crypto.HashCode(code), challenge.CodeHash)
}

func TestRequestOtpFailureIsOpaque(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	s.mailer.err = context.DeadlineExceeded

	err := s.otp.RequestOtp(context.Background(), "alice@example.com", "login")
	require.ErrorIs(t, err, ErrOtpRequestFailed)
}

func TestVerifyOtpNotFound(t *testing.T) {
	s := newTestStack(t, OtpConfig{})

	_, err := s.otp.VerifyOtp(context.Background(), "nobody@example.com", "login", "123456", "corr-1")
	require.ErrorIs(t, err, ErrOtpNotFound)
}

func TestVerifyOtpWrongCodeIncrementsAttempts(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	seedUser(t, s, "alice@example.com")

	require.NoError(t, s.otp.RequestOtp(ctx, "alice@example.com", "login"))
	code := s.mailer.lastCode(t)

	_, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", wrongCodeFor(code), "corr-1")
	require.ErrorIs(t, err, ErrOtpInvalid)

	var challenge models.OtpChallenge
	require.NoError(t, s.db.First(&challenge).Error)
	require.Equal(t, 1, challenge.Attempts)
	require.False(t, challenge.Consumed)
}

func TestVerifyOtpExpired(t *testing.T) {
	s := newTestStack(t, OtpConfig{TTL: 10 * time.Minute})
	ctx := context.Background()
	seedUser(t, s, "alice@example.com")

	require.NoError(t, s.otp.RequestOtp(ctx, "alice@example.com", "login"))
	code := s.mailer.lastCode(t)

	s.clock.Advance(11 * time.Minute)

	// Expiry wins even when the code is correct and untried.
	_, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", code, "corr-1")
	require.ErrorIs(t, err, ErrOtpExpired)
}

func TestVerifyOtpUserNotFoundLeavesChallengeIntact(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()

	require.NoError(t, s.otp.RequestOtp(ctx, "ghost@example.com", "login"))
	code := s.mailer.lastCode(t)

	_, err := s.otp.VerifyOtp(ctx, "ghost@example.com", "login", code, "corr-1")
	require.ErrorIs(t, err, ErrOtpUserNotFound)

	var challenge models.OtpChallenge
	require.NoError(t, s.db.First(&challenge).Error)
	require.False(t, challenge.Consumed)
}

func TestVerifyOtpSuccessIsSingleUse(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	user := seedUser(t, s, "alice@example.com")

	require.NoError(t, s.otp.RequestOtp(ctx, "alice@example.com", "login"))
	code := s.mailer.lastCode(t)

	result, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", code, "corr-1")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, user.UserNumber, result.UserNumber)

	claims, err := s.jwt.Validate(result.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	// The issued token is backed by a session keyed on its jti.
	session, err := s.sessions.Validate(ctx, claims.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, session.UserID)

	var challenge models.OtpChallenge
	require.NoError(t, s.db.First(&challenge).Error)
	require.True(t, challenge.Consumed)

	_, err = s.otp.VerifyOtp(ctx, "alice@example.com", "login", code, "corr-2")
	require.ErrorIs(t, err, ErrOtpAlreadyUsed)
}

func TestVerifyOtpMaxAttemptsLockout(t *testing.T) {
	s := newTestStack(t, OtpConfig{MaxAttempts: 3})
	ctx := context.Background()
	seedUser(t, s, "alice@example.com")

	require.NoError(t, s.otp.RequestOtp(ctx, "alice@example.com", "login"))
	code := s.mailer.lastCode(t)
	wrong := wrongCodeFor(code)

	for i := 0; i < 3; i++ {
		_, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", wrong, "corr-1")
		require.ErrorIs(t, err, ErrOtpInvalid)
	}

	// The attempt budget is spent; even the right code is refused.
	_, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", code, "corr-2")
	require.ErrorIs(t, err, ErrOtpExpired)
}

func TestVerifyOtpConcurrentSingleWinner(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	seedUser(t, s, "alice@example.com")

	require.NoError(t, s.otp.RequestOtp(ctx, "alice@example.com", "login"))
	code := s.mailer.lastCode(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", code, "corr-race")

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				failures++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, 1, failures)

	var challenge models.OtpChallenge
	require.NoError(t, s.db.First(&challenge).Error)
	require.True(t, challenge.Consumed)
}

func TestOtpLifecycleEndToEnd(t *testing.T) {
	s := newTestStack(t, OtpConfig{})
	ctx := context.Background()
	user := seedUser(t, s, "alice@example.com")

	require.NoError(t, s.otp.RequestOtp(ctx, "alice@example.com", "login"))

	var challenge models.OtpChallenge
	require.NoError(t, s.db.First(&challenge).Error)
	require.Zero(t, challenge.Attempts)
	require.False(t, challenge.Consumed)

	code := s.mailer.lastCode(t)
	wrong := wrongCodeFor(code)

	_, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", wrong, "corr-1")
	require.ErrorIs(t, err, ErrOtpInvalid)
	require.NoError(t, s.db.First(&challenge).Error)
	require.Equal(t, 1, challenge.Attempts)

	result, err := s.otp.VerifyOtp(ctx, "alice@example.com", "login", code, "corr-2")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, user.UserNumber, result.UserNumber)

	require.NoError(t, s.db.First(&challenge).Error)
	require.True(t, challenge.Consumed)

	_, err = s.otp.VerifyOtp(ctx, "alice@example.com", "login", code, "corr-3")
	require.ErrorIs(t, err, ErrOtpAlreadyUsed)
}
