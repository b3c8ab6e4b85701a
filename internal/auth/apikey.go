package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyVerifier accepts static keys whose bcrypt hashes are configured.
type APIKeyVerifier struct {
	hashes [][]byte
}

// NewAPIKeyVerifier validates every hash up front so a typo fails at startup.
func NewAPIKeyVerifier(hashes []string) (*APIKeyVerifier, error) {
	v := &APIKeyVerifier{}
	for i, h := range hashes {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, fmt.Errorf("api key hash %d: %w", i, err)
		}
		v.hashes = append(v.hashes, []byte(h))
	}
	if len(v.hashes) == 0 {
		return nil, errors.New("no api key hashes configured")
	}
	return v, nil
}

// Verify returns an identity named after the matching key's position.
func (v *APIKeyVerifier) Verify(key string) (Identity, error) {
	for i, h := range v.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return Identity{Subject: fmt.Sprintf("api-key-%d", i), Method: MethodAPIKey}, nil
		}
	}
	return Identity{}, ErrInvalidAPIKey
}

// HashAPIKey returns the bcrypt hash to configure for key.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(hash), err
}
