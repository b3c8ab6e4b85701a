package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/commandapi/internal/auth"
)

func TestMintedTokenVerifies(t *testing.T) {
	tokenOpts.secret = "0123456789abcdef0123456789abcdef"
	tokenOpts.audience = "api://commands"
	tokenOpts.issuer = "https://login.example.com/tenant"
	tokenOpts.subject = "dev"
	tokenOpts.scopes = []string{"commands.write"}
	tokenOpts.ttl = time.Hour

	raw, err := mintToken(time.Now())
	require.NoError(t, err)

	v, err := auth.NewTokenVerifier(auth.TokenConfig{
		Audience:   tokenOpts.audience,
		Issuer:     tokenOpts.issuer,
		HMACSecret: []byte(tokenOpts.secret),
	})
	require.NoError(t, err)
	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "dev", id.Subject)
	assert.True(t, id.HasScope("commands.write"))
}
