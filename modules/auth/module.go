package auth

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
)

// Verifier resolves an opaque bearer credential to a user identity.
type Verifier struct {
	manager *JWTManager
}

// Verify validates the credential and returns the user identity it carries.
func (v *Verifier) Verify(_ context.Context, credential string) (string, error) {
	claims, err := v.manager.ValidateToken(credential)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// AuthModule provides credential verification for the collab server.
type AuthModule struct {
	manager  *JWTManager
	verifier *Verifier
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)

// NewModule creates a new AuthModule with configuration from the environment.
func NewModule() *AuthModule {
	manager := NewJWTManager(loadJWTConfig())
	return &AuthModule{
		manager:  manager,
		verifier: &Verifier{manager: manager},
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start initializes the auth module.
func (m *AuthModule) Start(_ context.Context) error {
	log.Println("[auth] Module started")
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Verifier returns the credential verifier for the collab module to use.
func (m *AuthModule) Verifier() *Verifier {
	return m.verifier
}

// Manager returns the token manager. Used by tooling that mints tokens.
func (m *AuthModule) Manager() *JWTManager {
	return m.manager
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}

	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	if raw := os.Getenv("JWT_TOKEN_DURATION"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			config.TokenDuration = d
		}
	}

	return config
}
