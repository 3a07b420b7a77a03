package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTokenPair(t *testing.T) {
	a := NewJWTAuth([]byte("secret"), WithAccessTokenTTL(time.Minute))

	pair, err := a.CreateTokenPair(42, "ADMIN")
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Minute), pair.ExpiresAt, 5*time.Second)

	claims, err := a.ParseToken(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.NotEmpty(t, claims.ID)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	refresh, err := a.ParseToken(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestParseToken_Invalid(t *testing.T) {
	a := NewJWTAuth([]byte("secret"))

	pair, err := a.CreateTokenPair(1, "USER")
	require.NoError(t, err)

	_, err = a.ParseToken(pair.RefreshToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewJWTAuth([]byte("other")).ParseToken(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = a.ParseToken("not-a-token", TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)

	expired := NewJWTAuth([]byte("secret"), WithRefreshTokenTTL(-time.Minute))

	pair, err = expired.CreateTokenPair(1, "USER")
	require.NoError(t, err)

	_, err = a.ParseToken(pair.RefreshToken, TokenTypeRefresh)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: TokenTypeAccess})

	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTAuth([]byte("secret")).ParseToken(tokenString, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
