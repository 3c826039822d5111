package tokens

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/models"
	"github.com/docgate/docgate/internal/sessions"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-32-bytes-should-be-long-enough"

	ident := &models.Identity{UID: "user-123", Email: "test@example.com"}
	tokenStr, err := GenerateAccessToken(cfg, ident, 2*time.Minute)
	require.NoError(t, err)

	// parse and validate
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWT.Secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, ident.UID, claims["sub"])
}

func TestVerifier_RoundTrip(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "another-secret-32-bytes-longgggg"
	ident := &models.Identity{UID: "u2", Email: "x@x"}

	tokenStr, err := GenerateAccessToken(cfg, ident, time.Minute)
	require.NoError(t, err)

	ver := NewVerifier(cfg.JWT.Secret)
	tok, err := ver.Verify(context.Background(), tokenStr)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "u2", claims["sub"])
}

func TestVerifier_RejectsWrongSecretAndExpired(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "secret-one-32-bytes-aaaaaaaaaaaa"
	ident := &models.Identity{UID: "u3"}

	tokenStr, err := GenerateAccessToken(cfg, ident, time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("different-secret").Verify(context.Background(), tokenStr)
	require.Error(t, err)

	expired, err := GenerateAccessToken(cfg, ident, -time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier(cfg.JWT.Secret).Verify(context.Background(), expired)
	require.Error(t, err)
}

func TestVerifier_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	cfg := &config.Config{}
	cfg.JWT.Secret = "secret-two-32-bytes-bbbbbbbbbbbb"
	ident := &models.Identity{UID: "u4"}

	tokenStr, err := GenerateAccessToken(cfg, ident, time.Minute)
	require.NoError(t, err)
	require.NoError(t, sessions.BlacklistAccessToken(context.Background(), tokenStr, time.Minute))

	_, err = NewVerifier(cfg.JWT.Secret).Verify(context.Background(), tokenStr)
	require.ErrorContains(t, err, "revoked")
}
