package main

import (
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localpki/localca/internal/cli"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <certificate.pem>",
	Short: "Display certificate details",
	Long: `Display the details of a PEM-encoded certificate: subject, issuer,
serial, validity window, key usage and subject alternative names.

Examples:
  localca inspect ./ca/ca.crt
  localca inspect svc.internal.crt`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cert, err := cli.LoadCertFromPath(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Certificate: %s\n", args[0])
	fmt.Printf("  Subject:      %s\n", cert.Subject.String())
	fmt.Printf("  Issuer:       %s\n", cert.Issuer.String())
	fmt.Printf("  Serial:       %X\n", cert.SerialNumber.Bytes())
	fmt.Printf("  Not Before:   %s\n", cert.NotBefore.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Not After:    %s\n", cert.NotAfter.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Signature:    %s\n", cert.SignatureAlgorithm)

	if cert.BasicConstraintsValid {
		if cert.IsCA {
			pathLen := "unlimited"
			if cert.MaxPathLen > 0 || cert.MaxPathLenZero {
				pathLen = fmt.Sprintf("%d", cert.MaxPathLen)
			}
			fmt.Printf("  CA:           true (path length %s)\n", pathLen)
		} else {
			fmt.Printf("  CA:           false\n")
		}
	}

	if usages := keyUsageNames(cert.KeyUsage); len(usages) > 0 {
		fmt.Printf("  Key Usage:    %s\n", strings.Join(usages, ", "))
	}
	if usages := extKeyUsageNames(cert.ExtKeyUsage); len(usages) > 0 {
		fmt.Printf("  Ext Usage:    %s\n", strings.Join(usages, ", "))
	}

	if len(cert.DNSNames) > 0 {
		fmt.Printf("  DNS SANs:     %s\n", strings.Join(cert.DNSNames, ", "))
	}
	for _, ip := range cert.IPAddresses {
		fmt.Printf("  IP SAN:       %s\n", ip)
	}
	if len(cert.EmailAddresses) > 0 {
		fmt.Printf("  Email SANs:   %s\n", strings.Join(cert.EmailAddresses, ", "))
	}

	return nil
}

func keyUsageNames(ku x509.KeyUsage) []string {
	names := []struct {
		bit  x509.KeyUsage
		name string
	}{
		{x509.KeyUsageDigitalSignature, "digitalSignature"},
		{x509.KeyUsageContentCommitment, "contentCommitment"},
		{x509.KeyUsageKeyEncipherment, "keyEncipherment"},
		{x509.KeyUsageDataEncipherment, "dataEncipherment"},
		{x509.KeyUsageKeyAgreement, "keyAgreement"},
		{x509.KeyUsageCertSign, "keyCertSign"},
		{x509.KeyUsageCRLSign, "cRLSign"},
	}

	var out []string
	for _, n := range names {
		if ku&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func extKeyUsageNames(ekus []x509.ExtKeyUsage) []string {
	var out []string
	for _, eku := range ekus {
		switch eku {
		case x509.ExtKeyUsageServerAuth:
			out = append(out, "serverAuth")
		case x509.ExtKeyUsageClientAuth:
			out = append(out, "clientAuth")
		case x509.ExtKeyUsageCodeSigning:
			out = append(out, "codeSigning")
		case x509.ExtKeyUsageEmailProtection:
			out = append(out, "emailProtection")
		default:
			out = append(out, fmt.Sprintf("eku(%d)", eku))
		}
	}
	return out
}
