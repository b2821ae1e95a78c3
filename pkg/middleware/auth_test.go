package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct {
	accept string
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	if raw == f.accept {
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "email": "test@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serve(t *testing.T, header string, vers ...Verifier) *httptest.ResponseRecorder {
	t.Helper()
	g := gin.New()
	g.GET("/", AuthMiddleware(vers...), func(c *gin.Context) {
		resp, _ := json.Marshal(gin.H{"uid": UID(c), "token": c.GetString(TokenKey)})
		c.Writer.Write(resp)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	rw := serve(t, "", &fakeVerifier{accept: "goodtoken"})
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	rw := serve(t, "BadHeader", &fakeVerifier{accept: "goodtoken"})
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	rw = serve(t, "Bearer   ", &fakeVerifier{accept: "goodtoken"})
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serve(t, "Bearer goodtoken", &fakeVerifier{accept: "goodtoken"})
	require.Equal(t, http.StatusOK, rw.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "user1", got["uid"])
	require.Equal(t, "goodtoken", got["token"])
}

func TestAuthMiddleware_FallsThroughVerifiers(t *testing.T) {
	rw := serve(t, "Bearer second", nil, &fakeVerifier{accept: "first"}, &fakeVerifier{accept: "second"})
	require.Equal(t, http.StatusOK, rw.Code)

	rw = serve(t, "Bearer third", &fakeVerifier{accept: "first"}, &fakeVerifier{accept: "second"})
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "invalid token")
}

type subjectlessVerifier struct{}

func (subjectlessVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	return &fakeToken{data: map[string]interface{}{"email": "x@y.z"}}, nil
}

func TestAuthMiddleware_RequiresSubject(t *testing.T) {
	rw := serve(t, "Bearer anything", subjectlessVerifier{})
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}
