package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sportperformance/academy-api/internal/auth"
	"github.com/sportperformance/academy-api/internal/database/testutil"
	"github.com/sportperformance/academy-api/pkg/mail"
)

// captureMailer records outbound messages instead of sending them.
type captureMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

// lastCode extracts the plaintext code from the most recent message.
func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.messages)
	code := codePattern.FindString(m.messages[len(m.messages)-1].Body)
	require.NotEmpty(t, code)
	return code
}

// testClock is a mutable time source shared across services in a test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testStack struct {
	db        *gorm.DB
	clock     *testClock
	mailer    *captureMailer
	users     *UserService
	academies *AcademyService
	sessions  *auth.SessionService
	jwt       *auth.JWTService
	otp       *OtpService
	invites   *InviteService
}

func newTestStack(t *testing.T, otpCfg OtpConfig) *testStack {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	clock := newTestClock()
	mailer := &captureMailer{}

	users, err := NewUserService(db)
	require.NoError(t, err)

	academies, err := NewAcademyService(db)
	require.NoError(t, err)

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "test-secret",
		Issuer: "academy-api-test",
		Clock:  clock.Now,
	})
	require.NoError(t, err)

	sessions, err := auth.NewSessionService(db, auth.WithSessionClock(clock.Now))
	require.NoError(t, err)

	otp, err := NewOtpService(db, users, jwtSvc, sessions, mailer, otpCfg, WithOtpClock(clock.Now))
	require.NoError(t, err)

	invites, err := NewInviteService(db, academies, users,
		InviteConfig{BaseURL: "https://app.example.com/invites"},
		WithInviteClock(clock.Now),
	)
	require.NoError(t, err)

	return &testStack{
		db:        db,
		clock:     clock,
		mailer:    mailer,
		users:     users,
		academies: academies,
		sessions:  sessions,
		jwt:       jwtSvc,
		otp:       otp,
		invites:   invites,
	}
}

// constantReader yields an endless stream of one byte value, making every
// generated number deterministic.
type constantReader byte

func (r constantReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}
