package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
)

// KeyPair holds a generated RSA key pair.
// The private key has exactly one owner: whichever CA or leaf issuance
// operation generated it. It is handed off, never copied.
type KeyPair struct {
	Algorithm  AlgorithmID
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// GenerateKeyPair generates a new RSA key pair of the given algorithm.
func GenerateKeyPair(alg AlgorithmID) (*KeyPair, error) {
	if !alg.IsValid() {
		return nil, fmt.Errorf("unsupported algorithm: %s", alg)
	}

	priv, err := rsa.GenerateKey(rand.Reader, alg.KeyBits())
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", alg, err)
	}

	return &KeyPair{
		Algorithm:  alg,
		PrivateKey: priv,
		PublicKey:  &priv.PublicKey,
	}, nil
}
