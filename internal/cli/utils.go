// Package cli provides shared helpers for the localca commands.
package cli

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
)

// LoadCertFromPath loads a certificate from a PEM file.
func LoadCertFromPath(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return cert, nil
}

// SaveCertToPath saves a certificate to a PEM file.
func SaveCertToPath(path string, cert *x509.Certificate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return WriteCertPEM(f, cert)
}

// WriteCertPEM writes a certificate as PEM to a writer.
func WriteCertPEM(w io.Writer, cert *x509.Certificate) error {
	return pem.Encode(w, &pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	})
}

// RefuseOverwrite returns an error if any of the given paths already
// exists, unless force is set.
func RefuseOverwrite(force bool, paths ...string) error {
	if force {
		return nil
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("refusing to overwrite %s (use --force)", p)
		}
	}
	return nil
}
