package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

// minRefreshInterval throttles refetches triggered by unknown key ids.
const minRefreshInterval = time.Minute

// JWKS serves keys from a JSON Web Key Set URL, refetching when a token
// names a key id that is not cached.
type JWKS struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	keys      map[string]crypto.PublicKey
	fetchedAt time.Time
}

// NewJWKS returns a lazily populated key set. A nil client uses
// http.DefaultClient.
func NewJWKS(url string, client *http.Client) *JWKS {
	if client == nil {
		client = http.DefaultClient
	}
	return &JWKS{url: url, client: client, now: time.Now}
}

func (j *JWKS) Key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if key, ok := j.lookupLocked(kid); ok {
		return key, nil
	}
	if !j.fetchedAt.IsZero() && j.now().Sub(j.fetchedAt) < minRefreshInterval {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	if err := j.refreshLocked(ctx); err != nil {
		return nil, err
	}
	if key, ok := j.lookupLocked(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

// lookupLocked matches kid, or the only key when the token carries none.
func (j *JWKS) lookupLocked(kid string) (crypto.PublicKey, bool) {
	if kid == "" && len(j.keys) == 1 {
		for _, key := range j.keys {
			return key, true
		}
	}
	key, ok := j.keys[kid]
	return key, ok
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (j *JWKS) refreshLocked(ctx context.Context) error {
	var set struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := getJSON(ctx, j.client, j.url, &set); err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	keys := make(map[string]crypto.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		key, err := jwk.publicKey()
		if err != nil {
			// unsupported kty or curve
			continue
		}
		keys[jwk.Kid] = key
	}
	j.keys = keys
	j.fetchedAt = j.now()
	return nil
}

func (k jsonWebKey) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		n, err := decodeSegment(k.N)
		if err != nil {
			return nil, err
		}
		e, err := decodeSegment(k.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := decodeSegment(k.X)
		if err != nil {
			return nil, err
		}
		y, err := decodeSegment(k.Y)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: curve, X: new(big.Int).SetBytes(x), Y: new(big.Int).SetBytes(y)}, nil
	case "OKP":
		if k.Crv != "Ed25519" {
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := decodeSegment(k.X)
		if err != nil {
			return nil, err
		}
		if len(x) != ed25519.PublicKeySize {
			return nil, errors.New("bad ed25519 key length")
		}
		return ed25519.PublicKey(x), nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Discovery holds the fields of an OpenID provider configuration that
// token verification needs.
type Discovery struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Discover fetches authority/.well-known/openid-configuration.
func Discover(ctx context.Context, client *http.Client, authority string) (Discovery, error) {
	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimRight(authority, "/") + "/.well-known/openid-configuration"
	var doc Discovery
	if err := getJSON(ctx, client, url, &doc); err != nil {
		return Discovery{}, fmt.Errorf("openid discovery: %w", err)
	}
	if doc.JWKSURI == "" {
		return Discovery{}, errors.New("openid discovery: jwks_uri missing")
	}
	return doc, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
