// Command localca is a minimal local certificate authority for
// provisioning self-hosted deployments: it creates a self-signed root CA
// and issues TLS leaf certificates chained to it.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localpki/localca/internal/ca"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds to process exit codes:
// 2 configuration, 3 I/O, 4 cryptographic backend, 1 anything else.
func exitCode(err error) int {
	switch {
	case errors.Is(err, ca.ErrInvalidConfig),
		errors.Is(err, ca.ErrAlreadyExists):
		return 2
	case errors.Is(err, ca.ErrPersistence),
		errors.Is(err, ca.ErrMissingCA):
		return 3
	case errors.Is(err, ca.ErrKeyGeneration),
		errors.Is(err, ca.ErrMalformedRequest),
		errors.Is(err, ca.ErrSigning),
		errors.Is(err, ca.ErrChainVerification),
		errors.Is(err, ca.ErrKeyMismatch):
		return 4
	default:
		return 1
	}
}

var rootCmd = &cobra.Command{
	Use:   "localca",
	Short: "localca - a minimal local certificate authority",
	Long: `localca manages a single-level certificate authority for self-hosted
deployments: one self-signed root CA plus TLS end-entity certificates.

The root certificate is constrained to one level of delegation and its key
usage is limited to certificate and CRL signing. Leaf certificates carry
serverAuth and clientAuth and may optionally be bundled into a
password-protected PKCS#12 archive for downstream consumers.

Examples:
  # Create a root CA
  localca create-ca --dir ./ca --cn "Deploy Root CA" --passphrase env:CA_PASS

  # Issue a leaf certificate for a service
  localca issue-leaf --ca-dir ./ca --cn svc.internal --dns svc.internal \
      --ca-passphrase env:CA_PASS --passphrase env:LEAF_PASS

  # Bundle the leaf into a PKCS#12 archive
  localca issue-leaf --ca-dir ./ca --cn svc.internal --p12 svc.p12 \
      --p12-password env:P12_PASS --ca-passphrase env:CA_PASS --passphrase env:LEAF_PASS

  # Inspect and verify
  localca inspect svc.internal.crt
  localca verify --ca ./ca/ca.crt svc.internal.crt`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(createCACmd)
	rootCmd.AddCommand(issueLeafCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(profileCmd)
}
