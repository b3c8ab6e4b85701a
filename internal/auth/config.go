package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/harrylevesque/commandapi/internal/utils"
)

// FromConfig builds the Authorizer described by cfg. With nothing
// configured it returns AllowAll.
//
// When only an authority is set, its OpenID discovery document supplies
// both the JWKS location and the issuer to enforce.
func FromConfig(ctx context.Context, cfg utils.AuthConfig, client *http.Client) (Authorizer, error) {
	if !cfg.Enabled() {
		return AllowAll{}, nil
	}

	v := &Verifier{}
	if len(cfg.APIKeyHashes) > 0 {
		keys, err := NewAPIKeyVerifier(cfg.APIKeyHashes)
		if err != nil {
			return nil, err
		}
		v.APIKeys = keys
	}

	tc := TokenConfig{
		Audience: cfg.ResourceID,
		Issuer:   cfg.Authority(),
		Leeway:   cfg.Leeway,
	}
	if cfg.HMACSecret != "" {
		tc.HMACSecret = []byte(cfg.HMACSecret)
	}
	switch {
	case cfg.PublicKeyFile != "":
		data, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		key, err := ParsePublicKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("parse public key %s: %w", cfg.PublicKeyFile, err)
		}
		tc.PublicKeys = StaticKey{PublicKey: key}
	case cfg.JWKSURL != "":
		tc.PublicKeys = NewJWKS(cfg.JWKSURL, client)
	case cfg.Authority() != "" && cfg.HMACSecret == "":
		doc, err := Discover(ctx, client, cfg.Authority())
		if err != nil {
			return nil, err
		}
		tc.PublicKeys = NewJWKS(doc.JWKSURI, client)
		if doc.Issuer != "" {
			tc.Issuer = doc.Issuer
		}
	}

	if tc.PublicKeys != nil || tc.HMACSecret != nil {
		tokens, err := NewTokenVerifier(tc)
		if err != nil {
			return nil, err
		}
		v.Tokens = tokens
	}
	return v, nil
}
