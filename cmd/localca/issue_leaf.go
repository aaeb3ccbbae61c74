package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/localpki/localca/internal/ca"
	"github.com/localpki/localca/internal/cli"
	pkicrypto "github.com/localpki/localca/internal/crypto"
	"github.com/localpki/localca/internal/profile"
)

var issueLeafCmd = &cobra.Command{
	Use:   "issue-leaf",
	Short: "Issue a TLS end-entity certificate signed by the CA",
	Long: `Issue a TLS end-entity certificate signed by the CA.

The leaf carries CA:FALSE, digitalSignature+keyEncipherment key usage and
serverAuth+clientAuth extended key usage. If no SAN is given, the common
name becomes the primary DNS entry. The requested validity must fit
inside the CA certificate's remaining validity window.

Outputs default to {cn}.key and {cn}.crt in the current directory and are
never overwritten without --force. With --p12, the key, certificate and
CA certificate are additionally bundled into a password-protected PKCS#12
archive.

Examples:
  # Issue with builtin tls-server profile defaults (200 days, RSA 3072)
  localca issue-leaf --ca-dir ./ca --cn svc.internal

  # Multiple SANs, including an IP
  localca issue-leaf --ca-dir ./ca --cn svc.internal \
      --dns svc.internal --dns svc.example.com --ip 10.0.0.12

  # Internal-service defaults (365 days) via profile
  localca issue-leaf --ca-dir ./ca --cn db.internal --profile tls-internal

  # PKCS#12 bundle for a reverse proxy
  localca issue-leaf --ca-dir ./ca --cn svc.internal --p12 svc.p12 --p12-password env:P12_PASS`,
	RunE: runIssueLeaf,
}

var (
	issueCADir        string
	issueCAPassphrase string
	issueCN           string
	issueOrg          string
	issueOU           string
	issueCountry      string
	issueProvince     string
	issueLocality     string
	issueEmail        string
	issueDNS          []string
	issueIPs          []net.IP
	issueKeyBits      int
	issueValidity     int
	issuePassphrase   string
	issueProfile      string
	issueOutCert      string
	issueOutKey       string
	issueP12          string
	issueP12Password  string
	issueForce        bool
)

func init() {
	flags := issueLeafCmd.Flags()
	flags.StringVarP(&issueCADir, "ca-dir", "d", "./ca", "CA directory")
	flags.StringVar(&issueCAPassphrase, "ca-passphrase", "", "CA private key passphrase (or env:VAR_NAME; prompted if omitted)")
	flags.StringVar(&issueCN, "cn", "", "Subject common name (prompted if omitted)")
	flags.StringVarP(&issueOrg, "org", "o", "", "Organization name")
	flags.StringVar(&issueOU, "ou", "", "Organizational unit")
	flags.StringVarP(&issueCountry, "country", "c", "", "Country code")
	flags.StringVar(&issueProvince, "province", "", "State or province")
	flags.StringVar(&issueLocality, "locality", "", "Locality (city)")
	flags.StringVar(&issueEmail, "email", "", "Contact email address")
	flags.StringArrayVar(&issueDNS, "dns", nil, "DNS subject alternative name (repeatable)")
	flags.IPSliceVar(&issueIPs, "ip", nil, "IP subject alternative name (repeatable)")
	flags.IntVar(&issueKeyBits, "key-bits", 0, "RSA key size: 2048, 3072 or 4096 (overrides profile)")
	flags.IntVar(&issueValidity, "validity", 0, "Validity period in days (overrides profile)")
	flags.StringVarP(&issuePassphrase, "passphrase", "p", "", "Passphrase for the leaf key (or env:VAR_NAME; prompted if omitted)")
	flags.StringVarP(&issueProfile, "profile", "P", "tls-server", "Issuance profile (builtin name or YAML file)")
	flags.StringVar(&issueOutCert, "out-cert", "", "Output certificate path (default {cn}.crt)")
	flags.StringVar(&issueOutKey, "out-key", "", "Output key path (default {cn}.key)")
	flags.StringVar(&issueP12, "p12", "", "Also write a PKCS#12 bundle to this path")
	flags.StringVar(&issueP12Password, "p12-password", "", "Password for the PKCS#12 bundle (or env:VAR_NAME)")
	flags.BoolVar(&issueForce, "force", false, "Overwrite existing output files")
}

func runIssueLeaf(cmd *cobra.Command, args []string) error {
	prof, err := profile.Load(issueProfile)
	if err != nil {
		return fmt.Errorf("%w: %v", ca.ErrInvalidConfig, err)
	}

	cfg := ca.LeafConfig{
		CommonName:         issueCN,
		Organization:       firstNonEmpty(issueOrg, prof.SubjectField("o")),
		OrganizationalUnit: firstNonEmpty(issueOU, prof.SubjectField("ou")),
		Country:            firstNonEmpty(issueCountry, prof.SubjectField("c")),
		Province:           firstNonEmpty(issueProvince, prof.SubjectField("st")),
		Locality:           firstNonEmpty(issueLocality, prof.SubjectField("l")),
		Email:              issueEmail,
		DNSNames:           issueDNS,
		IPAddresses:        issueIPs,
		KeyBits:            issueKeyBits,
		ValidityDays:       issueValidity,
		Passphrase:         issuePassphrase,
	}
	if cfg.KeyBits == 0 {
		cfg.KeyBits = prof.KeyBits
	}
	if cfg.KeyBits == 0 {
		cfg.KeyBits = ca.DefaultLeafKeyBits
	}
	if cfg.ValidityDays == 0 {
		cfg.ValidityDays = prof.ValidityDays
	}
	if cfg.ValidityDays == 0 {
		cfg.ValidityDays = ca.DefaultLeafValidityDays
	}

	if cfg.CommonName == "" {
		cfg.CommonName, err = cli.PromptString("Common name", "")
		if err != nil {
			return err
		}
	}
	if cfg.Passphrase == "" {
		cfg.Passphrase, err = cli.PromptPassphrase("Leaf key passphrase")
		if err != nil {
			return err
		}
	}

	outCert := issueOutCert
	if outCert == "" {
		outCert = cfg.CommonName + ".crt"
	}
	outKey := issueOutKey
	if outKey == "" {
		outKey = cfg.CommonName + ".key"
	}
	if issueP12 != "" && issueP12Password == "" {
		return fmt.Errorf("%w: --p12-password is required with --p12", ca.ErrInvalidConfig)
	}

	if err := cli.RefuseOverwrite(issueForce, outCert, outKey, issueP12); err != nil {
		return fmt.Errorf("%w: %v", ca.ErrAlreadyExists, err)
	}

	absDir, err := filepath.Abs(issueCADir)
	if err != nil {
		return fmt.Errorf("%w: invalid CA directory path: %v", ca.ErrInvalidConfig, err)
	}

	store := ca.NewStore(absDir)
	issuer, err := ca.Load(store)
	if err != nil {
		return err
	}

	caPass := issueCAPassphrase
	if caPass == "" {
		caPass, err = cli.PromptPassphrase("CA key passphrase")
		if err != nil {
			return err
		}
	}
	if err := issuer.LoadSigner(caPass); err != nil {
		return err
	}

	leaf, err := issuer.IssueLeaf(cfg)
	if err != nil {
		return err
	}
	cert := leaf.Certificate

	// Publish outputs; on failure report what already hit the disk so
	// the operator can clean up or resume. The store copy and index
	// entry are durable as soon as IssueLeaf returns, so they belong in
	// the report too.
	published := []string{
		store.CertPath(cert.SerialNumber.Bytes()),
		store.IndexPath(),
	}
	var written []string
	fail := func(err error) error {
		for _, p := range append(published, written...) {
			fmt.Fprintf(os.Stderr, "partial artifact left on disk: %s\n", p)
		}
		return err
	}

	if err := leaf.SaveKey(outKey, cfg.Passphrase); err != nil {
		return fail(err)
	}
	written = append(written, outKey)

	if err := cli.SaveCertToPath(outCert, leaf.Certificate); err != nil {
		return fail(fmt.Errorf("%w: %v", ca.ErrPersistence, err))
	}
	written = append(written, outCert)

	if issueP12 != "" {
		pfx, err := ca.ExportPKCS12(leaf, issuer.Certificate(), string(pkicrypto.ResolvePassphrase(issueP12Password)))
		if err != nil {
			return fail(err)
		}
		if err := os.WriteFile(issueP12, pfx, 0600); err != nil {
			return fail(fmt.Errorf("%w: failed to write PKCS#12 bundle: %v", ca.ErrPersistence, err))
		}
		written = append(written, issueP12)
	}

	fmt.Printf("Certificate issued successfully!\n")
	fmt.Printf("  Subject:     %s\n", cert.Subject.String())
	fmt.Printf("  Serial:      %X\n", cert.SerialNumber.Bytes())
	fmt.Printf("  Not After:   %s\n", cert.NotAfter.Format("2006-01-02 15:04:05"))
	if len(cert.DNSNames) > 0 {
		fmt.Printf("  DNS SANs:    %v\n", cert.DNSNames)
	}
	if len(cert.IPAddresses) > 0 {
		fmt.Printf("  IP SANs:     %v\n", cert.IPAddresses)
	}
	for _, p := range written {
		fmt.Printf("  Wrote:       %s\n", p)
	}

	return nil
}
