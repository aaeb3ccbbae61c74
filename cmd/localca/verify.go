package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/localpki/localca/internal/ca"
	"github.com/localpki/localca/internal/cli"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <certificate.pem>",
	Short: "Verify a certificate against a CA",
	Long: `Verify that a certificate chains to a CA certificate and is currently
valid for TLS server and client authentication. Without --ca, the
certificate is checked as a self-signed root.

Examples:
  localca verify --ca ./ca/ca.crt svc.internal.crt
  localca verify ./ca/ca.crt`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var verifyCACert string

func init() {
	verifyCmd.Flags().StringVar(&verifyCACert, "ca", "", "CA certificate file (PEM)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cert, err := cli.LoadCertFromPath(args[0])
	if err != nil {
		return err
	}

	if verifyCACert == "" {
		if err := ca.VerifySelfSigned(cert); err != nil {
			return err
		}
		fmt.Printf("OK: %s is validly self-signed\n", cert.Subject.CommonName)
		return nil
	}

	caCert, err := cli.LoadCertFromPath(verifyCACert)
	if err != nil {
		return err
	}

	if err := ca.VerifyLeaf(cert, caCert, time.Now()); err != nil {
		return err
	}

	fmt.Printf("OK: %s chains to %s\n", cert.Subject.CommonName, caCert.Subject.CommonName)
	return nil
}
