package ca

import (
	"bytes"
	"crypto/x509"
	"errors"
	"os"
	"testing"
)

// newTestCA creates a CA with small keys to keep tests fast.
func newTestCA(t *testing.T, validityDays int) (*CA, *Store) {
	t.Helper()

	store := NewStore(t.TempDir())
	cfg := Config{
		CommonName:   "Test Root",
		Organization: "Test Org",
		Country:      "US",
		KeyBits:      2048,
		ValidityDays: validityDays,
		Passphrase:   "test-passphrase",
	}

	testCA, err := Initialize(store, cfg)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return testCA, store
}

// =============================================================================
// Root CA Creation Tests
// =============================================================================

func TestF_Initialize(t *testing.T) {
	testCA, store := newTestCA(t, 3650)

	cert := testCA.Certificate()
	if cert.Subject.CommonName != "Test Root" {
		t.Errorf("CommonName = %q, want Test Root", cert.Subject.CommonName)
	}
	if !cert.IsCA {
		t.Error("certificate should be a CA")
	}
	if cert.MaxPathLen != 1 {
		t.Errorf("MaxPathLen = %d, want 1", cert.MaxPathLen)
	}
	if !cert.BasicConstraintsValid {
		t.Error("basic constraints should be set")
	}
	if cert.KeyUsage != x509.KeyUsageCertSign|x509.KeyUsageCRLSign {
		t.Errorf("KeyUsage = %v, want certSign|cRLSign only", cert.KeyUsage)
	}
	if len(cert.SubjectKeyId) == 0 {
		t.Error("subject key identifier should be set")
	}
	if cert.SignatureAlgorithm != x509.SHA256WithRSA {
		t.Errorf("SignatureAlgorithm = %v, want SHA256WithRSA", cert.SignatureAlgorithm)
	}

	// Self-signed root must verify against itself.
	if err := VerifySelfSigned(cert); err != nil {
		t.Errorf("VerifySelfSigned() error = %v", err)
	}

	// Artifacts must exist on disk.
	if !store.Exists() {
		t.Error("store should show CA exists")
	}
	if _, err := os.Stat(store.CAKeyPath()); err != nil {
		t.Errorf("CA key not persisted: %v", err)
	}
	if _, err := os.Stat(store.SerialPath()); err != nil {
		t.Errorf("serial state not persisted: %v", err)
	}
}

func TestF_Initialize_EmailEncodedAsIA5String(t *testing.T) {
	store := NewStore(t.TempDir())
	email := "ops@example.com"

	testCA, err := Initialize(store, Config{
		CommonName:   "Test Root",
		Email:        email,
		KeyBits:      2048,
		ValidityDays: 365,
		Passphrase:   "test-passphrase",
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// The emailAddress attribute must carry IA5String DER (tag 0x16),
	// not UTF8String.
	want := append([]byte{0x16, byte(len(email))}, []byte(email)...)
	if !bytes.Contains(testCA.Certificate().RawSubject, want) {
		t.Error("subject emailAddress should be DER-encoded as IA5String")
	}
}

func TestF_Initialize_AlreadyExists(t *testing.T) {
	_, store := newTestCA(t, 3650)

	before, err := os.ReadFile(store.SerialPath())
	if err != nil {
		t.Fatalf("failed to read serial file: %v", err)
	}

	_, err = Initialize(store, Config{
		CommonName:   "Another Root",
		KeyBits:      2048,
		ValidityDays: 3650,
		Passphrase:   "other",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Initialize() error = %v, want ErrAlreadyExists", err)
	}

	// The refused re-run must not have touched serial state.
	after, err := os.ReadFile(store.SerialPath())
	if err != nil {
		t.Fatalf("failed to read serial file: %v", err)
	}
	if string(before) != string(after) {
		t.Error("failed re-initialization reset serial state")
	}
}

func TestF_Initialize_ReloadAndSign(t *testing.T) {
	_, store := newTestCA(t, 3650)

	reloaded, err := Load(store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.Certificate().Subject.CommonName != "Test Root" {
		t.Error("reloaded certificate doesn't match")
	}

	if err := reloaded.LoadSigner("test-passphrase"); err != nil {
		t.Fatalf("LoadSigner() error = %v", err)
	}
	if reloaded.Signer() == nil {
		t.Error("signer should be loaded")
	}
}

func TestF_LoadSigner_WrongPassphrase(t *testing.T) {
	_, store := newTestCA(t, 3650)

	reloaded, err := Load(store)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := reloaded.LoadSigner("wrong"); err == nil {
		t.Error("LoadSigner() should fail with wrong passphrase")
	}
}

func TestF_Load_MissingCA(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := Load(store)
	if !errors.Is(err, ErrMissingCA) {
		t.Errorf("Load() error = %v, want ErrMissingCA", err)
	}
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestU_Config_Validate(t *testing.T) {
	valid := Config{
		CommonName:   "Test CA",
		KeyBits:      4096,
		ValidityDays: 3650,
		Passphrase:   "secret",
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("missing common name", func(t *testing.T) {
		cfg := valid
		cfg.CommonName = ""
		if !errors.Is(cfg.Validate(), ErrInvalidConfig) {
			t.Error("Validate() should fail for missing common name")
		}
	})

	t.Run("unsupported key size", func(t *testing.T) {
		cfg := valid
		cfg.KeyBits = 1024
		if !errors.Is(cfg.Validate(), ErrInvalidConfig) {
			t.Error("Validate() should fail for unsupported key size")
		}
	})

	t.Run("non-positive validity", func(t *testing.T) {
		cfg := valid
		cfg.ValidityDays = 0
		if !errors.Is(cfg.Validate(), ErrInvalidConfig) {
			t.Error("Validate() should fail for zero validity")
		}
	})

	t.Run("missing passphrase fails closed", func(t *testing.T) {
		cfg := valid
		cfg.Passphrase = ""
		if !errors.Is(cfg.Validate(), ErrInvalidConfig) {
			t.Error("Validate() should fail for empty passphrase")
		}
	})

	t.Run("env passphrase resolving to empty fails closed", func(t *testing.T) {
		t.Setenv("LOCALCA_EMPTY_PASS", "")
		cfg := valid
		cfg.Passphrase = "env:LOCALCA_EMPTY_PASS"
		if !errors.Is(cfg.Validate(), ErrInvalidConfig) {
			t.Error("Validate() should fail for env passphrase resolving to empty")
		}
	})
}
