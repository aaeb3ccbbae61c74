package crypto

import (
	"crypto"
	"os"
	"strings"
)

// Signer is a private key capable of signing, tagged with its algorithm.
type Signer interface {
	crypto.Signer

	// Algorithm returns the algorithm used by this signer.
	Algorithm() AlgorithmID
}

// ResolvePassphrase resolves a passphrase that may be "env:VAR_NAME".
// This allows passing secrets via environment variables instead of flags.
func ResolvePassphrase(passphrase string) []byte {
	if strings.HasPrefix(passphrase, "env:") {
		varName := strings.TrimPrefix(passphrase, "env:")
		return []byte(os.Getenv(varName))
	}
	return []byte(passphrase)
}
