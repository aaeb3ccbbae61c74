package ca

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"math/big"
	"net"
	"time"

	pkicrypto "github.com/localpki/localca/internal/crypto"
	"github.com/localpki/localca/internal/x509util"
)

// Default configuration values for leaf issuance.
const (
	DefaultLeafKeyBits      = 3072
	DefaultLeafValidityDays = 200
)

// LeafConfig holds the parameters for issuing an end-entity certificate.
type LeafConfig struct {
	// Subject distinguished name fields.
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Country            string
	Province           string
	Locality           string
	Email              string

	// Subject alternative names. If both lists are empty, the common
	// name becomes the primary DNS entry.
	DNSNames    []string
	IPAddresses []net.IP

	// KeyBits is the RSA modulus size (2048, 3072 or 4096).
	KeyBits int

	// ValidityDays is the leaf certificate validity in days. The
	// resulting notAfter must not outlive the issuing CA certificate.
	ValidityDays int

	// Passphrase encrypts the leaf private key at rest. Required.
	Passphrase string
}

// Validate checks that the LeafConfig has all required fields.
func (c *LeafConfig) Validate() error {
	if c.CommonName == "" {
		return fmt.Errorf("%w: common name is required", ErrInvalidConfig)
	}
	if _, err := pkicrypto.AlgorithmForBits(c.KeyBits); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ValidityDays <= 0 {
		return fmt.Errorf("%w: validity days must be positive", ErrInvalidConfig)
	}
	if len(pkicrypto.ResolvePassphrase(c.Passphrase)) == 0 {
		return fmt.Errorf("%w: passphrase is required (no unencrypted keys)", ErrInvalidConfig)
	}
	return nil
}

// effectiveSANs returns the SAN lists after defaulting: with no names
// given, the common name becomes the primary DNS entry.
func (c *LeafConfig) effectiveSANs() ([]string, []net.IP) {
	dns := c.DNSNames
	if len(dns) == 0 && len(c.IPAddresses) == 0 {
		dns = []string{c.CommonName}
	}
	return dns, c.IPAddresses
}

func (c *LeafConfig) subjectName() pkix.Name {
	name := pkix.Name{CommonName: c.CommonName}
	if c.Organization != "" {
		name.Organization = []string{c.Organization}
	}
	if c.OrganizationalUnit != "" {
		name.OrganizationalUnit = []string{c.OrganizationalUnit}
	}
	if c.Country != "" {
		name.Country = []string{c.Country}
	}
	if c.Province != "" {
		name.Province = []string{c.Province}
	}
	if c.Locality != "" {
		name.Locality = []string{c.Locality}
	}
	if c.Email != "" {
		name.ExtraNames = append(name.ExtraNames, emailAttribute(c.Email))
	}
	return name
}

// Leaf is the result of a successful issuance: the signed certificate and
// the signer owning the leaf private key.
type Leaf struct {
	Certificate *x509.Certificate
	Signer      *pkicrypto.SoftwareSigner
}

// SaveKey persists the leaf private key, encrypted with the config passphrase.
func (l *Leaf) SaveKey(path string, passphrase string) error {
	if err := l.Signer.SavePrivateKey(path, pkicrypto.ResolvePassphrase(passphrase)); err != nil {
		return NewCAError("issue", fmt.Errorf("%w: %v", ErrPersistence, err))
	}
	return nil
}

// IssueLeaf issues an end-entity certificate signed by the CA.
//
// The certificate request is self-checked before signing, the serial
// counter is durably advanced before the serial is embedded, and the
// produced certificate is verified against the CA before it is returned.
func (ca *CA) IssueLeaf(cfg LeafConfig) (*Leaf, error) {
	if ca.signer == nil {
		return nil, NewCAError("issue", fmt.Errorf("%w: CA signer not loaded - call LoadSigner first", ErrSigning))
	}

	if err := cfg.Validate(); err != nil {
		return nil, NewCAError("issue", err)
	}

	dnsNames, ipAddrs := cfg.effectiveSANs()

	notBefore := time.Now().UTC()
	notAfter := notBefore.AddDate(0, 0, cfg.ValidityDays)
	if notAfter.After(ca.cert.NotAfter) {
		return nil, NewCAError("issue", fmt.Errorf(
			"%w: leaf would expire %s, after the CA certificate expires %s",
			ErrInvalidConfig,
			notAfter.Format(time.RFC3339),
			ca.cert.NotAfter.Format(time.RFC3339)))
	}

	alg, _ := pkicrypto.AlgorithmForBits(cfg.KeyBits)
	signer, err := pkicrypto.GenerateSoftwareSigner(alg)
	if err != nil {
		return nil, NewCAError("issue", fmt.Errorf("%w: %v", ErrKeyGeneration, err))
	}

	csr, err := buildRequest(cfg.subjectName(), dnsNames, ipAddrs, signer)
	if err != nil {
		return nil, err
	}

	// Atomically read-and-increment the serial state. The increment is
	// durable before the serial is used, so a crash mid-issuance can
	// skip a serial but never hand it out twice.
	serialBytes, err := ca.store.NextSerial()
	if err != nil {
		return nil, NewCAError("issue", err)
	}
	serialHex := hex.EncodeToString(serialBytes)

	template, err := x509util.NewCertificateBuilder().
		Subject(csr.Subject).
		DNSNames(csr.DNSNames...).
		IPAddresses(csr.IPAddresses...).
		TLSEndEntity().
		Validity(notBefore, notAfter).
		SerialNumber(new(big.Int).SetBytes(serialBytes)).
		Build()
	if err != nil {
		return nil, NewCAErrorWithSerial("issue", serialHex, err)
	}

	skid, err := x509util.SubjectKeyID(csr.PublicKey)
	if err != nil {
		return nil, NewCAErrorWithSerial("issue", serialHex, fmt.Errorf("%w: %v", ErrSigning, err))
	}
	template.SubjectKeyId = skid
	template.AuthorityKeyId = ca.cert.SubjectKeyId

	certDER, err := x509.CreateCertificate(rand.Reader, template, ca.cert, csr.PublicKey, ca.signer)
	if err != nil {
		return nil, NewCAErrorWithSerial("issue", serialHex, fmt.Errorf("%w: %v", ErrSigning, err))
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, NewCAErrorWithSerial("issue", serialHex, fmt.Errorf("%w: %v", ErrSigning, err))
	}

	// Self-check before publishing anything.
	if err := VerifyLeaf(cert, ca.cert, time.Now()); err != nil {
		return nil, NewCAErrorWithSerial("issue", serialHex, fmt.Errorf("%w: %v", ErrChainVerification, err))
	}

	if err := ca.store.SaveCert(cert); err != nil {
		return nil, NewCAErrorWithSerial("issue", serialHex, err)
	}

	return &Leaf{
		Certificate: cert,
		Signer:      signer,
	}, nil
}

// buildRequest creates a certificate request signed by the subject key
// and checks the request signature against its own public key before it
// is submitted for CA signing.
func buildRequest(subject pkix.Name, dnsNames []string, ipAddrs []net.IP, signer pkicrypto.Signer) (*x509.CertificateRequest, error) {
	tmpl := &x509.CertificateRequest{
		Subject:            subject,
		DNSNames:           dnsNames,
		IPAddresses:        ipAddrs,
		SignatureAlgorithm: x509.SHA256WithRSA,
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, tmpl, signer)
	if err != nil {
		return nil, NewCAError("issue", fmt.Errorf("%w: %v", ErrMalformedRequest, err))
	}

	csr, err := x509.ParseCertificateRequest(csrDER)
	if err != nil {
		return nil, NewCAError("issue", fmt.Errorf("%w: %v", ErrMalformedRequest, err))
	}

	if err := csr.CheckSignature(); err != nil {
		return nil, NewCAError("issue", fmt.Errorf("%w: %v", ErrMalformedRequest, err))
	}

	return csr, nil
}
