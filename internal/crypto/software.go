package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
)

// SoftwareSigner implements Signer using an in-memory RSA private key.
// Keys are serialized to/from PEM files, AES-256 encrypted at rest.
type SoftwareSigner struct {
	alg     AlgorithmID
	priv    *rsa.PrivateKey
	keyPath string
}

// Ensure SoftwareSigner implements Signer.
var _ Signer = (*SoftwareSigner)(nil)

// NewSoftwareSigner creates a SoftwareSigner from a key pair.
// Ownership of the private key transfers to the signer.
func NewSoftwareSigner(kp *KeyPair) (*SoftwareSigner, error) {
	if kp == nil || kp.PrivateKey == nil {
		return nil, fmt.Errorf("key pair is nil")
	}
	return &SoftwareSigner{
		alg:  kp.Algorithm,
		priv: kp.PrivateKey,
	}, nil
}

// GenerateSoftwareSigner generates a new key pair and wraps it in a signer.
func GenerateSoftwareSigner(alg AlgorithmID) (*SoftwareSigner, error) {
	kp, err := GenerateKeyPair(alg)
	if err != nil {
		return nil, err
	}
	return NewSoftwareSigner(kp)
}

// Algorithm returns the algorithm used by this signer.
func (s *SoftwareSigner) Algorithm() AlgorithmID {
	return s.alg
}

// Public returns the public key.
func (s *SoftwareSigner) Public() crypto.PublicKey {
	return &s.priv.PublicKey
}

// Sign signs the digest with the private key. PKCS#1 v1.5 with the hash
// from opts; RSA-PSS when opts is *rsa.PSSOptions.
func (s *SoftwareSigner) Sign(random io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return s.priv.Sign(random, digest, opts)
}

// KeyPath returns the path where the private key is stored, if persisted.
func (s *SoftwareSigner) KeyPath() string {
	return s.keyPath
}

// SavePrivateKey saves the private key to a PEM file (PKCS#8).
// The passphrase must be non-empty; the key is AES-256 encrypted and the
// file ends up owner-read-only.
func (s *SoftwareSigner) SavePrivateKey(path string, passphrase []byte) error {
	if len(passphrase) == 0 {
		return fmt.Errorf("refusing to save unencrypted private key: passphrase is required")
	}

	der, err := x509.MarshalPKCS8PrivateKey(s.priv)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	block, err := x509.EncryptPEMBlock(rand.Reader, "PRIVATE KEY", der, passphrase, x509.PEMCipherAES256) //nolint:staticcheck // Deprecated but still the PEM-level encryption downstream tooling expects
	if err != nil {
		return fmt.Errorf("failed to encrypt private key: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("failed to write PEM: %w", err)
	}

	// Owner-read-only once the key material is on disk.
	if err := os.Chmod(path, 0400); err != nil {
		return fmt.Errorf("failed to restrict key file permissions: %w", err)
	}

	s.keyPath = path
	return nil
}

// LoadPrivateKey loads an RSA private key from a PEM file, decrypting it
// with the passphrase if the block is encrypted.
func LoadPrivateKey(path string, passphrase []byte) (*SoftwareSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}

	keyBytes := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("private key is encrypted but no passphrase provided")
		}
		keyBytes, err = x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}

	priv, err := parseRSAKey(block.Type, keyBytes)
	if err != nil {
		return nil, err
	}

	alg, err := AlgorithmForBits(priv.N.BitLen())
	if err != nil {
		return nil, fmt.Errorf("key in %s: %w", path, err)
	}

	return &SoftwareSigner{
		alg:     alg,
		priv:    priv,
		keyPath: path,
	}, nil
}

// parseRSAKey parses an RSA private key in PKCS#8 or PKCS#1 form.
func parseRSAKey(pemType string, keyBytes []byte) (*rsa.PrivateKey, error) {
	switch pemType {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 key: %w", err)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("expected RSA key, got %T", key)
		}
		return priv, nil

	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA key: %w", err)
		}
		return priv, nil

	default:
		return nil, fmt.Errorf("unknown PEM type: %s", pemType)
	}
}

// PrivateKey returns the underlying private key.
// Use with caution - prefer using Sign() instead.
func (s *SoftwareSigner) PrivateKey() *rsa.PrivateKey {
	return s.priv
}
