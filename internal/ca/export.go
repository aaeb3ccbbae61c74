package ca

import (
	"crypto/x509"
	"fmt"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// ExportPKCS12 bundles the leaf key, leaf certificate and CA certificate
// into a password-protected PKCS#12 archive.
func ExportPKCS12(leaf *Leaf, caCert *x509.Certificate, password string) ([]byte, error) {
	if leaf == nil || leaf.Signer == nil || leaf.Certificate == nil {
		return nil, NewCAError("export", fmt.Errorf("%w: leaf key and certificate are required", ErrInvalidConfig))
	}
	if password == "" {
		return nil, NewCAError("export", fmt.Errorf("%w: export password is required", ErrInvalidConfig))
	}

	pfx, err := pkcs12.Modern.Encode(leaf.Signer.PrivateKey(), leaf.Certificate, []*x509.Certificate{caCert}, password)
	if err != nil {
		return nil, NewCAError("export", fmt.Errorf("%w: %v", ErrPersistence, err))
	}

	return pfx, nil
}
