package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/ghichu/ghichu/internal/config"
	"github.com/ghichu/ghichu/pkg/middleware"
)

// Verifier checks ID tokens issued by a federated identity provider. The
// token subject becomes the note owner, the same as for local accounts.
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// IssuerURL builds the realm issuer for a Keycloak deployment.
func IssuerURL(cfg config.KeycloakConfig) string {
	if cfg.URL == "" || cfg.Realm == "" {
		return ""
	}
	return strings.TrimRight(cfg.URL, "/") + "/realms/" + cfg.Realm
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// FromConfig returns nil, nil when no provider is configured.
func FromConfig(ctx context.Context, cfg config.KeycloakConfig) (*Verifier, error) {
	issuer := IssuerURL(cfg)
	if issuer == "" {
		return nil, nil
	}
	return NewVerifier(ctx, issuer, cfg.ClientID)
}

// Verify verifies the provided raw ID token and returns a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
