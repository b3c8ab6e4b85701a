// Package certs loads the TLS key pair the server listens with.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"
)

// Manager owns the certificate and key files named in the server config.
type Manager struct {
	certFile string
	keyFile  string
	now      func() time.Time
}

// NewManager returns a manager for the given PEM files. Both empty means
// the server runs plain HTTP.
func NewManager(certFile, keyFile string) *Manager {
	return &Manager{certFile: certFile, keyFile: keyFile, now: time.Now}
}

// Enabled reports whether a key pair is configured.
func (m *Manager) Enabled() bool {
	return m.certFile != "" || m.keyFile != ""
}

// TLSConfig loads the key pair and rejects an already expired leaf.
func (m *Manager) TLSConfig() (*tls.Config, *x509.Certificate, error) {
	if m.certFile == "" || m.keyFile == "" {
		return nil, nil, errors.New("both tls cert and key files are required")
	}
	pair, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load tls key pair: %w", err)
	}
	leaf := pair.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(pair.Certificate[0])
		if err != nil {
			return nil, nil, fmt.Errorf("parse tls certificate: %w", err)
		}
	}
	if m.IsExpired(leaf) {
		return nil, nil, fmt.Errorf("tls certificate %s expired at %s", m.certFile, leaf.NotAfter.Format(time.RFC3339))
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{pair},
	}, leaf, nil
}

// IsExpired checks if a certificate is expired.
func (m *Manager) IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(m.now())
}

// ExpiresWithin reports whether cert stops being valid inside d.
func (m *Manager) ExpiresWithin(cert *x509.Certificate, d time.Duration) bool {
	return cert.NotAfter.Before(m.now().Add(d))
}
