package ca

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"

	pkicrypto "github.com/localpki/localca/internal/crypto"
	"github.com/localpki/localca/internal/x509util"
)

// Default configuration values for root CA creation.
const (
	DefaultCAKeyBits      = 4096
	DefaultCAValidityDays = 3650
	// RootPathLen permits exactly one level of delegation below the root.
	RootPathLen = 1
)

// Config holds root CA configuration options.
type Config struct {
	// Subject distinguished name fields.
	CommonName         string
	Organization       string
	OrganizationalUnit string
	Country            string
	Province           string
	Locality           string
	Email              string

	// KeyBits is the RSA modulus size (2048, 3072 or 4096).
	KeyBits int

	// ValidityDays is the root certificate validity in days.
	ValidityDays int

	// Passphrase encrypts the CA private key at rest.
	// Required; there is no unencrypted fallback. Supports "env:VAR".
	Passphrase string
}

// Validate checks that the Config has all required fields.
func (c *Config) Validate() error {
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

// subjectName builds the pkix.Name for the configured DN.
func (c *Config) subjectName() pkix.Name {
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

// Initialize creates a new root CA with a self-signed certificate.
// It refuses to touch a directory that already holds a CA, and never
// resets existing serial state.
func Initialize(store *Store, cfg Config) (*CA, error) {
	if store.Exists() {
		return nil, NewCAError("init", fmt.Errorf("%w: CA at %s", ErrAlreadyExists, store.BasePath()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, NewCAError("init", err)
	}

	if err := store.Init(); err != nil {
		return nil, NewCAError("init", err)
	}

	alg, _ := pkicrypto.AlgorithmForBits(cfg.KeyBits)
	signer, err := pkicrypto.GenerateSoftwareSigner(alg)
	if err != nil {
		return nil, NewCAError("init", fmt.Errorf("%w: %v", ErrKeyGeneration, err))
	}

	template, err := x509util.NewCertificateBuilder().
		Subject(cfg.subjectName()).
		CA(RootPathLen).
		ValidForDays(cfg.ValidityDays).
		Build()
	if err != nil {
		return nil, NewCAError("init", err)
	}

	serialBytes, err := store.NextSerial()
	if err != nil {
		return nil, NewCAError("init", err)
	}
	template.SerialNumber = new(big.Int).SetBytes(serialBytes)

	skid, err := x509util.SubjectKeyID(signer.Public())
	if err != nil {
		return nil, NewCAError("init", fmt.Errorf("%w: %v", ErrKeyGeneration, err))
	}
	template.SubjectKeyId = skid
	template.AuthorityKeyId = skid // self-referencing for a root

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, signer.Public(), signer)
	if err != nil {
		return nil, NewCAError("init", fmt.Errorf("%w: %v", ErrSigning, err))
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, NewCAError("init", fmt.Errorf("%w: %v", ErrSigning, err))
	}

	// Key first, then certificate: a half-written CA directory without
	// ca.crt still reads as "not initialized".
	if err := signer.SavePrivateKey(store.CAKeyPath(), pkicrypto.ResolvePassphrase(cfg.Passphrase)); err != nil {
		return nil, NewCAError("init", fmt.Errorf("%w: %v", ErrPersistence, err))
	}

	if err := store.SaveCACert(cert); err != nil {
		return nil, NewCAError("init", err)
	}

	return &CA{
		store:  store,
		cert:   cert,
		signer: signer,
	}, nil
}
