package tokens

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/ghichu/ghichu/internal/config"
	"github.com/ghichu/ghichu/internal/models"
	"github.com/ghichu/ghichu/internal/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")
	u := &models.User{UID: "user-123", Email: "test@example.com"}

	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg.JWT.Secret, tokenStr)
	require.NoError(t, err)
	require.Equal(t, u.UID, claims["sub"])
	require.Equal(t, u.Email, claims["email"])

	exp, err := ExpiresAt(tokenStr)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(2*time.Minute), exp, 2*time.Second)
}

func TestParseAccessToken_Expired(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	u := &models.User{UID: "u2", Email: "x@x"}
	tokenStr, err := GenerateAccessToken(cfg, u, -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg.JWT.Secret, tokenStr)
	require.Error(t, err)
}

func TestParseAccessToken_WrongSecretFails(t *testing.T) {
	cfg := testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{UID: "u3"}, 2*time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("different-secret-xxxxxxxxxxxxxxxx", tokenStr)
	require.Error(t, err)
}

func TestParseAccessToken_AlgNoneRejected(t *testing.T) {
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-none","exp":9999999999}`))
	_, err := ParseAccessToken("x", headerEnc+"."+payloadEnc+".")
	require.Error(t, err)
}

func TestParseAccessToken_TamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{UID: "user-t"}, 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))
	_, err = ParseAccessToken(cfg.JWT.Secret, strings.Join(parts, "."))
	require.Error(t, err)
}

func TestVerifier_RejectsRevokedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	cfg := testConfig("verifier-secret-32-bytes-xxxxxxxxx")
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	v := NewVerifier(cfg, bl)
	ctx := context.Background()

	tokenStr, err := GenerateAccessToken(cfg, &models.User{UID: "uid-v", Email: "v@x.com"}, time.Minute)
	require.NoError(t, err)

	tok, err := v.Verify(ctx, tokenStr)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "uid-v", claims["sub"])

	require.NoError(t, bl.Revoke(ctx, tokenStr, time.Minute))
	_, err = v.Verify(ctx, tokenStr)
	require.ErrorIs(t, err, ErrRevoked)
}
