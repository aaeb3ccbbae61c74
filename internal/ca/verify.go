package ca

import (
	"crypto/x509"
	"fmt"
	"time"
)

// VerifyLeaf verifies that the leaf certificate chains to the root at
// the given time and is usable for both server and client TLS
// authentication.
func VerifyLeaf(leaf, root *x509.Certificate, at time.Time) error {
	if leaf == nil || root == nil {
		return fmt.Errorf("%w: leaf and root certificates are required", ErrChainVerification)
	}

	roots := x509.NewCertPool()
	roots.AddCert(root)

	opts := x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: at,
		KeyUsages: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
	}

	if _, err := leaf.Verify(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrChainVerification, err)
	}

	// Containment: a leaf must not outlive its issuer.
	if leaf.NotAfter.After(root.NotAfter) {
		return fmt.Errorf("%w: leaf notAfter %s exceeds CA notAfter %s",
			ErrChainVerification,
			leaf.NotAfter.Format(time.RFC3339),
			root.NotAfter.Format(time.RFC3339))
	}

	return nil
}

// VerifySelfSigned verifies that a root certificate is validly
// self-signed.
func VerifySelfSigned(root *x509.Certificate) error {
	if root == nil {
		return fmt.Errorf("%w: root certificate is required", ErrChainVerification)
	}
	if err := root.CheckSignatureFrom(root); err != nil {
		return fmt.Errorf("%w: %v", ErrChainVerification, err)
	}
	return nil
}
