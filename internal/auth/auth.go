package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrTokenInvalid = errors.New("token is invalid")

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claim names shared with the request verifier.
const (
	ClaimRole = "role"
	ClaimType = "typ"
)

type JWTAuth struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type Claims struct {
	jwt.RegisteredClaims
	Role string    `json:"role"`
	Type TokenType `json:"typ"`
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrTokenInvalid, c.Subject)
	}

	return id, nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func NewJWTAuth(secret []byte, opts ...Option) *JWTAuth {
	a := &JWTAuth{
		secret:     secret,
		accessTTL:  15 * time.Minute,
		refreshTTL: 24 * time.Hour,
		issuer:     "bankcards",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type Option func(a *JWTAuth)

func WithIssuer(issuer string) Option {
	return func(a *JWTAuth) {
		a.issuer = issuer
	}
}

func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(a *JWTAuth) {
		a.accessTTL = ttl
	}
}

func WithRefreshTokenTTL(ttl time.Duration) Option {
	return func(a *JWTAuth) {
		a.refreshTTL = ttl
	}
}

// CreateTokenPair mints an access and a refresh token for the user.
func (a *JWTAuth) CreateTokenPair(userID int64, role string) (TokenPair, error) {
	now := time.Now()

	access, err := a.createJWTString(userID, role, TokenTypeAccess, now, a.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := a.createJWTString(userID, role, TokenTypeRefresh, now, a.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(a.accessTTL),
	}, nil
}

func (a *JWTAuth) createJWTString(
	userID int64, role string, typ TokenType, now time.Time, ttl time.Duration,
) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    a.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
		Type: typ,
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("token.SignedString: %w", err)
	}

	return tokenString, nil
}

// ParseToken verifies the signature, expiry and token type.
func (a *JWTAuth) ParseToken(tokenString string, typ TokenType) (*Claims, error) {
	claims := new(Claims)

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrTokenInvalid, t.Header["alg"])
		}

		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrTokenInvalid, typ)
	}

	return claims, nil
}
