package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
const DefaultAccessTokenTTL = 15 * time.Minute

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Principal describes the authenticated subject a token is minted for.
type Principal struct {
	UserID        string
	UserNumber    int64
	Email         string
	AcademyNumber *int64
	Role          string
}

// Claims represents the custom claims embedded in issued JWTs. The registered
// ID claim (jti) doubles as the session key.
type Claims struct {
	UserID        string `json:"uid"`
	UserNumber    int64  `json:"unum"`
	Email         string `json:"email"`
	AcademyNumber *int64 `json:"anum,omitempty"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is the result of minting a signed access token.
type IssuedToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// JWTService issues and validates signed access tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService constructs a JWTService from the provided configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// Issue mints a signed JWT for the supplied principal. The returned TokenID
// is the token's unique jti and keys the corresponding session row.
func (s *JWTService) Issue(p Principal) (IssuedToken, error) {
	if p.UserID == "" {
		return IssuedToken{}, errors.New("jwt: user id is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	tokenID := uuid.NewString()

	claims := &Claims{
		UserID:        p.UserID,
		UserNumber:    p.UserNumber,
		Email:         p.Email,
		AcademyNumber: p.AcademyNumber,
		Role:          p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   p.UserID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return IssuedToken{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// Validate parses and validates a signed JWT, returning the application claims.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.UserID == "" {
		return nil, errors.New("jwt: missing user id claim")
	}
	if claims.ID == "" {
		return nil, errors.New("jwt: missing token id claim")
	}

	return &claims, nil
}
