// Package crypto provides RSA key generation and software-backed signing
// for the local CA. Private keys live in memory inside a SoftwareSigner
// and are persisted as (optionally encrypted) PEM files.
package crypto

import "fmt"

// AlgorithmID identifies a supported key algorithm.
type AlgorithmID string

// Supported RSA modulus sizes.
const (
	AlgRSA2048 AlgorithmID = "rsa-2048"
	AlgRSA3072 AlgorithmID = "rsa-3072"
	AlgRSA4096 AlgorithmID = "rsa-4096"
)

// IsValid reports whether the algorithm is supported.
func (a AlgorithmID) IsValid() bool {
	switch a {
	case AlgRSA2048, AlgRSA3072, AlgRSA4096:
		return true
	default:
		return false
	}
}

// KeyBits returns the RSA modulus size in bits, or 0 for unknown algorithms.
func (a AlgorithmID) KeyBits() int {
	switch a {
	case AlgRSA2048:
		return 2048
	case AlgRSA3072:
		return 3072
	case AlgRSA4096:
		return 4096
	default:
		return 0
	}
}

// Description returns a human-readable description of the algorithm.
func (a AlgorithmID) Description() string {
	if !a.IsValid() {
		return string(a)
	}
	return fmt.Sprintf("RSA %d-bit", a.KeyBits())
}

// AlgorithmForBits returns the AlgorithmID for an RSA modulus size.
func AlgorithmForBits(bits int) (AlgorithmID, error) {
	switch bits {
	case 2048:
		return AlgRSA2048, nil
	case 3072:
		return AlgRSA3072, nil
	case 4096:
		return AlgRSA4096, nil
	default:
		return "", fmt.Errorf("unsupported RSA key size: %d (supported: 2048, 3072, 4096)", bits)
	}
}
