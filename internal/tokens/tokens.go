package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/models"
	"github.com/docgate/docgate/internal/sessions"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken creates a signed JWT access token for the identity.
// The sub claim carries the uid that ownership rules match against.
func GenerateAccessToken(cfg *config.Config, ident *models.Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   ident.UID,
		"email": ident.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// Verifier validates locally-issued access tokens. It satisfies
// middleware.Verifier, the same interface the OIDC verifier implements, so
// the two are interchangeable at wiring time.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	blacklisted, err := sessions.IsAccessTokenBlacklisted(ctx, raw)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, fmt.Errorf("token revoked")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claimsToken(claims), nil
}

// claimsToken exposes parsed claims through the middleware.Token interface.
type claimsToken jwt.MapClaims

func (t claimsToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("claims target must be *map[string]interface{}")
	}
	*m = map[string]interface{}(t)
	return nil
}
