package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingCredentials is returned when no Authorization header is sent.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrUnsupportedScheme is returned for schemes no verifier handles.
	ErrUnsupportedScheme = errors.New("unsupported authorization scheme")
	// ErrInvalidToken is returned when a bearer token fails verification.
	ErrInvalidToken = errors.New("invalid bearer token")
	// ErrInvalidAPIKey is returned when an API key matches no configured hash.
	ErrInvalidAPIKey = errors.New("invalid api key")
)

const (
	schemeBearer = "bearer"
	schemeAPIKey = "apikey"
)

// Authorizer turns an incoming request into a verified Identity.
type Authorizer interface {
	Authorize(r *http.Request) (Identity, error)
}

// AllowAll grants an anonymous identity to every request. It is used when
// no verifier is configured.
type AllowAll struct{}

func (AllowAll) Authorize(*http.Request) (Identity, error) {
	return Identity{Subject: "anonymous", Method: MethodAnonymous}, nil
}

// Verifier dispatches on the Authorization scheme. Either field may be nil,
// in which case that scheme is rejected.
type Verifier struct {
	Tokens  *TokenVerifier
	APIKeys *APIKeyVerifier
}

func (v *Verifier) Authorize(r *http.Request) (Identity, error) {
	scheme, credential := ExtractCredential(r)
	if credential == "" {
		return Identity{}, ErrMissingCredentials
	}
	switch scheme {
	case schemeBearer:
		if v.Tokens == nil {
			return Identity{}, ErrUnsupportedScheme
		}
		return v.Tokens.Verify(r.Context(), credential)
	case schemeAPIKey:
		if v.APIKeys == nil {
			return Identity{}, ErrUnsupportedScheme
		}
		return v.APIKeys.Verify(credential)
	default:
		return Identity{}, ErrUnsupportedScheme
	}
}

// ExtractCredential splits the Authorization header into a lower-cased
// scheme and its credential.
func ExtractCredential(r *http.Request) (scheme, credential string) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
}
