// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/middleware"
)

const defaultRole = "user"

// Verifier checks access tokens minted by the identity service. The catalog
// never issues tokens, so it only holds the public half of the key.
type Verifier struct {
	publicKey jwk.Key
	algorithm jwa.SignatureAlgorithm
	issuer    string
	audience  string
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	publicKeyPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	publicKey, err := jwk.ParseKey(publicKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return NewVerifierFromKey(publicKey, cfg)
}

func NewVerifierFromKey(publicKey jwk.Key, cfg config.JWTConfig) (*Verifier, error) {
	name := cfg.Algorithm
	if name == "" {
		name = jwa.ES256().String()
	}

	alg, ok := jwa.LookupSignatureAlgorithm(name)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", name)
	}

	return &Verifier{
		publicKey: publicKey,
		algorithm: alg,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
	}, nil
}

func (v *Verifier) VerifyAccessToken(
	ctx context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(v.algorithm, v.publicKey),
		jwt.WithValidate(true),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err == nil && tokenType != "access" {
		return nil, fmt.Errorf(
			"verify token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	role := defaultRole
	var roleStr string
	if err := token.Get("role", &roleStr); err == nil && roleStr != "" {
		role = roleStr
	}

	return &middleware.AccessTokenClaims{
		UserID: subject,
		Role:   role,
	}, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
