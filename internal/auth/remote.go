package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TokenResponse is the body returned by the sign-up, login and refresh routes.
type TokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresIn    int       `json:"expiresIn"`
	User         *Identity `json:"user,omitempty"`
}

// ErrorResponse is the body of a failed auth route.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  Code   `json:"code"`
}

// HTTPBackend talks to the auth routes of a sync service.
type HTTPBackend struct {
	base   string
	client *http.Client
}

var _ Backend = (*HTTPBackend)(nil)

func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPBackend{base: strings.TrimRight(baseURL, "/") + "/auth", client: client}
}

func (b *HTTPBackend) post(ctx context.Context, path, bearer string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return newError(CodeNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == "" {
			return newError(CodeInternal, fmt.Errorf("auth service returned %d", resp.StatusCode))
		}
		return &Error{Code: e.Code, Message: e.Error}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (b *HTTPBackend) session(ctx context.Context, path string, body any) (*Session, error) {
	var tr TokenResponse
	if err := b.post(ctx, path, "", body, &tr); err != nil {
		return nil, err
	}
	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	if tr.User != nil {
		s.Identity = *tr.User
	}
	return s, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *HTTPBackend) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return b.session(ctx, "/signup", credentials{email, password})
}

func (b *HTTPBackend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return b.session(ctx, "/login", credentials{email, password})
}

func (b *HTTPBackend) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var tr TokenResponse
	if err := b.post(ctx, "/refresh", "", map[string]string{"refresh_token": refreshToken}, &tr); err != nil {
		return nil, err
	}
	if tr.RefreshToken == "" {
		tr.RefreshToken = refreshToken
	}
	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	if tr.User != nil {
		s.Identity = *tr.User
	}
	return s, nil
}

func (b *HTTPBackend) SignOut(ctx context.Context, s *Session) error {
	return b.post(ctx, "/logout", s.AccessToken, map[string]string{"refresh_token": s.RefreshToken}, nil)
}

func (b *HTTPBackend) SendPasswordReset(ctx context.Context, email string) error {
	return b.post(ctx, "/password-reset", "", map[string]string{"email": email}, nil)
}
