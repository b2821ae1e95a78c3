package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghichu/ghichu/internal/config"
	"github.com/ghichu/ghichu/internal/models"
	"github.com/ghichu/ghichu/internal/sessions"
	"github.com/ghichu/ghichu/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

var ErrRevoked = errors.New("token revoked")

// GenerateAccessToken creates a signed JWT access token for the user
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.UID,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// ParseAccessToken validates signature and expiry and returns the claims.
func ParseAccessToken(secret, raw string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExpiresAt reads the exp claim without verifying the signature.
func ExpiresAt(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	return exp.Time, nil
}

type mapToken map[string]interface{}

func (t mapToken) Claims(v interface{}) error {
	mm, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("unsupported claims type %T", v)
	}
	*mm = map[string]interface{}(t)
	return nil
}

// Verifier checks access tokens issued by GenerateAccessToken and rejects revoked ones.
type Verifier struct {
	secret    string
	blacklist *sessions.Blacklist
}

func NewVerifier(cfg *config.Config, blacklist *sessions.Blacklist) *Verifier {
	return &Verifier{secret: cfg.JWT.Secret, blacklist: blacklist}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := ParseAccessToken(v.secret, raw)
	if err != nil {
		return nil, err
	}
	revoked, err := v.blacklist.IsRevoked(ctx, raw)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return mapToken(claims), nil
}
