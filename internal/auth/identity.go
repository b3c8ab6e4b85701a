// Package auth verifies the credentials that gate mutating command
// endpoints and exposes the resulting identity through the request context.
package auth

import (
	"context"
	"slices"
)

// Method records how an identity was established.
type Method string

const (
	MethodAnonymous Method = "anonymous"
	MethodJWT       Method = "jwt"
	MethodAPIKey    Method = "api_key"
)

// Identity is the capability handed to protected handlers once a
// credential has been verified.
type Identity struct {
	Subject string
	Method  Method
	Scopes  []string
}

// HasScope reports whether the identity was granted scope.
func (i Identity) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
