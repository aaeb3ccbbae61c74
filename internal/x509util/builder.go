// Package x509util provides helpers for building X.509 certificates.
package x509util

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

// CertificateRequest holds the parameters for creating a certificate.
type CertificateRequest struct {
	// Subject information
	Subject pkix.Name

	// Subject Alternative Names
	DNSNames       []string
	EmailAddresses []string
	IPAddresses    []net.IP

	// Validity period
	NotBefore time.Time
	NotAfter  time.Time

	// Key Usage
	KeyUsage    x509.KeyUsage
	ExtKeyUsage []x509.ExtKeyUsage

	// CA settings
	IsCA                  bool
	MaxPathLen            int
	MaxPathLenZero        bool
	BasicConstraintsValid bool

	// Serial number (if nil, a random one will be generated)
	SerialNumber *big.Int
}

// CertificateBuilder builds X.509 certificate templates.
type CertificateBuilder struct {
	request *CertificateRequest
}

// NewCertificateBuilder creates a new certificate builder.
func NewCertificateBuilder() *CertificateBuilder {
	return &CertificateBuilder{
		request: &CertificateRequest{
			NotBefore:             time.Now().UTC(),
			NotAfter:              time.Now().UTC().AddDate(1, 0, 0), // 1 year default
			BasicConstraintsValid: true,
		},
	}
}

// Subject sets the certificate subject.
func (b *CertificateBuilder) Subject(name pkix.Name) *CertificateBuilder {
	b.request.Subject = name
	return b
}

// CommonName sets the subject common name.
func (b *CertificateBuilder) CommonName(cn string) *CertificateBuilder {
	b.request.Subject.CommonName = cn
	return b
}

// DNSNames sets the DNS SANs.
func (b *CertificateBuilder) DNSNames(names ...string) *CertificateBuilder {
	b.request.DNSNames = names
	return b
}

// IPAddresses sets the IP SANs.
func (b *CertificateBuilder) IPAddresses(ips ...net.IP) *CertificateBuilder {
	b.request.IPAddresses = ips
	return b
}

// EmailAddresses sets the email SANs.
func (b *CertificateBuilder) EmailAddresses(emails ...string) *CertificateBuilder {
	b.request.EmailAddresses = emails
	return b
}

// Validity sets the certificate validity period.
func (b *CertificateBuilder) Validity(notBefore, notAfter time.Time) *CertificateBuilder {
	b.request.NotBefore = notBefore
	b.request.NotAfter = notAfter
	return b
}

// ValidForDays sets the validity in days from now.
func (b *CertificateBuilder) ValidForDays(days int) *CertificateBuilder {
	now := time.Now().UTC()
	b.request.NotBefore = now
	b.request.NotAfter = now.AddDate(0, 0, days)
	return b
}

// KeyUsage sets the key usage flags.
func (b *CertificateBuilder) KeyUsage(usage x509.KeyUsage) *CertificateBuilder {
	b.request.KeyUsage = usage
	return b
}

// ExtKeyUsage sets the extended key usage.
func (b *CertificateBuilder) ExtKeyUsage(usage ...x509.ExtKeyUsage) *CertificateBuilder {
	b.request.ExtKeyUsage = usage
	return b
}

// CA marks this as a CA certificate with the given path length constraint.
// Key usage is restricted to certificate and CRL signing.
func (b *CertificateBuilder) CA(maxPathLen int) *CertificateBuilder {
	b.request.IsCA = true
	b.request.MaxPathLen = maxPathLen
	b.request.MaxPathLenZero = (maxPathLen == 0)
	b.request.BasicConstraintsValid = true
	b.request.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	return b
}

// TLSEndEntity configures the certificate as a TLS end entity valid for
// both server and client authentication.
func (b *CertificateBuilder) TLSEndEntity() *CertificateBuilder {
	b.request.IsCA = false
	b.request.MaxPathLen = -1
	b.request.BasicConstraintsValid = true
	b.request.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
	b.request.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	return b
}

// SerialNumber sets a specific serial number.
func (b *CertificateBuilder) SerialNumber(sn *big.Int) *CertificateBuilder {
	b.request.SerialNumber = sn
	return b
}

// Build creates an x509.Certificate template from the request.
// Certificates are signed with SHA-256.
func (b *CertificateBuilder) Build() (*x509.Certificate, error) {
	serial := b.request.SerialNumber
	if serial == nil {
		var err error
		serial, err = GenerateSerialNumber()
		if err != nil {
			return nil, fmt.Errorf("failed to generate serial number: %w", err)
		}
	}

	return &x509.Certificate{
		SerialNumber:          serial,
		Subject:               b.request.Subject,
		NotBefore:             b.request.NotBefore,
		NotAfter:              b.request.NotAfter,
		KeyUsage:              b.request.KeyUsage,
		ExtKeyUsage:           b.request.ExtKeyUsage,
		IsCA:                  b.request.IsCA,
		MaxPathLen:            b.request.MaxPathLen,
		MaxPathLenZero:        b.request.MaxPathLenZero,
		BasicConstraintsValid: b.request.BasicConstraintsValid,
		DNSNames:              b.request.DNSNames,
		EmailAddresses:        b.request.EmailAddresses,
		IPAddresses:           b.request.IPAddresses,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}, nil
}

// GenerateSerialNumber generates a random 128-bit serial number.
func GenerateSerialNumber() (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, serialNumberLimit)
}

// SubjectKeyID computes the subject key identifier from a public key.
// Uses SHA-256 hash of the public key bytes, truncated to 160 bits.
func SubjectKeyID(pub crypto.PublicKey) ([]byte, error) {
	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	hash := sha256.Sum256(pubBytes)
	return hash[:20], nil
}
