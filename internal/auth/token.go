package auth

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	hmacMethods   = []string{"HS256", "HS384", "HS512"}
	publicMethods = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA"}
)

// KeySource resolves the verification key for a token's key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// TokenConfig describes what a valid bearer token looks like.
type TokenConfig struct {
	// Audience must appear in the aud claim.
	Audience string
	// Issuer, when set, must equal the iss claim.
	Issuer string
	// HMACSecret enables HS* signed tokens.
	HMACSecret []byte
	// PublicKeys enables asymmetric tokens; may be a StaticKey or a JWKS.
	PublicKeys KeySource
	Leeway     time.Duration
	Now        func() time.Time
}

// TokenVerifier validates JWT bearer tokens.
type TokenVerifier struct {
	cfg    TokenConfig
	parser *jwt.Parser
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
	Scp   string `json:"scp,omitempty"`
}

// NewTokenVerifier checks cfg and builds a verifier.
func NewTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("token audience is required")
	}
	var methods []string
	if len(cfg.HMACSecret) > 0 {
		methods = append(methods, hmacMethods...)
	}
	if cfg.PublicKeys != nil {
		methods = append(methods, publicMethods...)
	}
	if len(methods) == 0 {
		return nil, errors.New("token verifier needs an hmac secret or public keys")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &TokenVerifier{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses raw and returns the identity it asserts.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	var claims tokenClaims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return v.key(ctx, token)
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	subject := claims.Subject
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: sub claim is required", ErrInvalidToken)
	}
	scopes := strings.Fields(claims.Scp)
	scopes = append(scopes, strings.Fields(claims.Scope)...)
	return Identity{Subject: subject, Method: MethodJWT, Scopes: scopes}, nil
}

func (v *TokenVerifier) key(ctx context.Context, token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if len(v.cfg.HMACSecret) == 0 {
			return nil, errors.New("hmac tokens are not accepted")
		}
		return v.cfg.HMACSecret, nil
	}
	if v.cfg.PublicKeys == nil {
		return nil, errors.New("asymmetric tokens are not accepted")
	}
	kid, _ := token.Header["kid"].(string)
	return v.cfg.PublicKeys.Key(ctx, kid)
}

// StaticKey serves a single public key regardless of key id.
type StaticKey struct {
	PublicKey crypto.PublicKey
}

func (s StaticKey) Key(context.Context, string) (crypto.PublicKey, error) {
	return s.PublicKey, nil
}

// ParsePublicKeyPEM decodes an RSA, ECDSA or Ed25519 public key.
func ParsePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseEdPublicKeyFromPEM(data); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported or malformed public key pem")
}
