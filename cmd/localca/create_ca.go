package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/localpki/localca/internal/ca"
	"github.com/localpki/localca/internal/cli"
	"github.com/localpki/localca/internal/profile"
)

var createCACmd = &cobra.Command{
	Use:   "create-ca",
	Short: "Create a self-signed root Certificate Authority",
	Long: `Create a self-signed root Certificate Authority.

The CA is created in the given directory with the following structure:
  {dir}/
    ├── ca.crt           # CA certificate (PEM)
    ├── private/
    │   └── ca.key       # CA private key (encrypted PEM, owner-read-only)
    ├── certs/           # Issued certificates
    ├── index.txt        # Issuance database
    ├── serial           # Serial counter (random 128-bit seed)
    └── serial.lock      # Serial transaction lock

A directory that already holds a CA is never touched, and existing serial
state is never reset. The private key passphrase is mandatory; pass it
directly, via env:VAR_NAME indirection, or interactively when the flag is
omitted.

Examples:
  # Create a root CA with the builtin root-ca profile defaults
  localca create-ca --dir ./ca --cn "Deploy Root CA"

  # Override key size and validity
  localca create-ca --dir ./ca --cn "Deploy Root CA" --key-bits 2048 --validity 1825

  # Take the passphrase from the environment
  localca create-ca --dir ./ca --cn "Deploy Root CA" --passphrase env:CA_PASS`,
	RunE: runCreateCA,
}

var (
	createCADir        string
	createCACN         string
	createCAOrg        string
	createCAOU         string
	createCACountry    string
	createCAProvince   string
	createCALocality   string
	createCAEmail      string
	createCAKeyBits    int
	createCAValidity   int
	createCAPassphrase string
	createCAProfile    string
)

func init() {
	flags := createCACmd.Flags()
	flags.StringVarP(&createCADir, "dir", "d", "./ca", "Directory for the CA")
	flags.StringVar(&createCACN, "cn", "", "CA common name (prompted if omitted)")
	flags.StringVarP(&createCAOrg, "org", "o", "", "Organization name")
	flags.StringVar(&createCAOU, "ou", "", "Organizational unit")
	flags.StringVarP(&createCACountry, "country", "c", "", "Country code (e.g., US, FR)")
	flags.StringVar(&createCAProvince, "province", "", "State or province")
	flags.StringVar(&createCALocality, "locality", "", "Locality (city)")
	flags.StringVar(&createCAEmail, "email", "", "Contact email address")
	flags.IntVar(&createCAKeyBits, "key-bits", 0, "RSA key size: 2048, 3072 or 4096 (overrides profile)")
	flags.IntVar(&createCAValidity, "validity", 0, "Validity period in days (overrides profile)")
	flags.StringVarP(&createCAPassphrase, "passphrase", "p", "", "Passphrase for the private key (or env:VAR_NAME; prompted if omitted)")
	flags.StringVarP(&createCAProfile, "profile", "P", "root-ca", "Issuance profile (builtin name or YAML file)")
}

func runCreateCA(cmd *cobra.Command, args []string) error {
	prof, err := profile.Load(createCAProfile)
	if err != nil {
		return fmt.Errorf("%w: %v", ca.ErrInvalidConfig, err)
	}

	cfg := ca.Config{
		CommonName:         createCACN,
		Organization:       firstNonEmpty(createCAOrg, prof.SubjectField("o")),
		OrganizationalUnit: firstNonEmpty(createCAOU, prof.SubjectField("ou")),
		Country:            firstNonEmpty(createCACountry, prof.SubjectField("c")),
		Province:           firstNonEmpty(createCAProvince, prof.SubjectField("st")),
		Locality:           firstNonEmpty(createCALocality, prof.SubjectField("l")),
		Email:              createCAEmail,
		KeyBits:            createCAKeyBits,
		ValidityDays:       createCAValidity,
		Passphrase:         createCAPassphrase,
	}
	if cfg.KeyBits == 0 {
		cfg.KeyBits = prof.KeyBits
	}
	if cfg.KeyBits == 0 {
		cfg.KeyBits = ca.DefaultCAKeyBits
	}
	if cfg.ValidityDays == 0 {
		cfg.ValidityDays = prof.ValidityDays
	}
	if cfg.ValidityDays == 0 {
		cfg.ValidityDays = ca.DefaultCAValidityDays
	}

	// Prompt only for required fields that were not supplied.
	if cfg.CommonName == "" {
		cfg.CommonName, err = cli.PromptString("CA common name", "")
		if err != nil {
			return err
		}
	}
	if cfg.Passphrase == "" {
		cfg.Passphrase, err = cli.PromptPassphrase("CA key passphrase")
		if err != nil {
			return err
		}
	}

	absDir, err := filepath.Abs(createCADir)
	if err != nil {
		return fmt.Errorf("%w: invalid directory path: %v", ca.ErrInvalidConfig, err)
	}

	store := ca.NewStore(absDir)

	fmt.Printf("Creating CA at %s...\n", absDir)
	fmt.Printf("  Key:      RSA %d-bit\n", cfg.KeyBits)
	fmt.Printf("  Validity: %d days\n", cfg.ValidityDays)

	newCA, err := ca.Initialize(store, cfg)
	if err != nil {
		// Report what already hit the disk so the operator can clean up.
		// An AlreadyExists refusal touched nothing; the files it found
		// belong to the existing CA.
		if !errors.Is(err, ca.ErrAlreadyExists) {
			for _, p := range partialArtifacts(store) {
				fmt.Fprintf(os.Stderr, "partial artifact left on disk: %s\n", p)
			}
		}
		return err
	}

	cert := newCA.Certificate()
	fmt.Printf("\nCA created successfully!\n")
	fmt.Printf("  Subject:     %s\n", cert.Subject.String())
	fmt.Printf("  Serial:      %X\n", cert.SerialNumber.Bytes())
	fmt.Printf("  Not Before:  %s\n", cert.NotBefore.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Not After:   %s\n", cert.NotAfter.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Certificate: %s\n", store.CACertPath())
	fmt.Printf("  Private key: %s\n", store.CAKeyPath())

	return nil
}

// partialArtifacts lists the CA files a failed initialization left behind.
func partialArtifacts(store *ca.Store) []string {
	var paths []string
	for _, p := range []string{
		store.CAKeyPath(),
		store.CACertPath(),
		store.SerialPath(),
		store.IndexPath(),
	} {
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
