package ca

import (
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"os"

	pkicrypto "github.com/localpki/localca/internal/crypto"
)

// oidEmailAddress is the PKCS#9 emailAddress attribute.
var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// emailAttribute builds an emailAddress subject attribute. RFC 5280
// requires IA5String here; marshaling a plain string would produce
// UTF8String.
func emailAttribute(email string) pkix.AttributeTypeAndValue {
	return pkix.AttributeTypeAndValue{
		Type: oidEmailAddress,
		Value: asn1.RawValue{
			Tag:   asn1.TagIA5String,
			Bytes: []byte(email),
		},
	}
}

// CA represents a loaded Certificate Authority.
type CA struct {
	store  *Store
	cert   *x509.Certificate
	signer pkicrypto.Signer
}

// Load loads an existing CA from the store.
// The signer is not loaded; call LoadSigner before issuing.
func Load(store *Store) (*CA, error) {
	cert, err := store.LoadCACert()
	if err != nil {
		return nil, NewCAError("load", err)
	}

	return &CA{
		store: store,
		cert:  cert,
	}, nil
}

// LoadSigner decrypts the CA private key with the given passphrase and
// checks it against the CA certificate's public key.
func (ca *CA) LoadSigner(passphrase string) error {
	keyPath := ca.store.CAKeyPath()
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		return NewCAError("load", fmt.Errorf("%w: no CA key at %s", ErrMissingCA, keyPath))
	}

	signer, err := pkicrypto.LoadPrivateKey(keyPath, pkicrypto.ResolvePassphrase(passphrase))
	if err != nil {
		return NewCAError("load", fmt.Errorf("%w: %v", ErrSigning, err))
	}

	certPub, ok := ca.cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return NewCAError("load", fmt.Errorf("%w: CA certificate does not hold an RSA key", ErrKeyMismatch))
	}
	keyPub := signer.Public().(*rsa.PublicKey)
	if certPub.N.Cmp(keyPub.N) != 0 || certPub.E != keyPub.E {
		return NewCAError("load", ErrKeyMismatch)
	}

	ca.signer = signer
	return nil
}

// Certificate returns the CA certificate.
func (ca *CA) Certificate() *x509.Certificate {
	return ca.cert
}

// Signer returns the CA signer, or nil if LoadSigner has not been called.
func (ca *CA) Signer() pkicrypto.Signer {
	return ca.signer
}

// Store returns the CA store.
func (ca *CA) Store() *Store {
	return ca.store
}
