package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestF_Load_Builtin(t *testing.T) {
	prof, err := Load("tls-server")
	if err != nil {
		t.Fatalf("Load(tls-server) error = %v", err)
	}
	if prof.Name != "tls-server" {
		t.Errorf("Name = %q, want tls-server", prof.Name)
	}
	if prof.KeyBits != 3072 {
		t.Errorf("KeyBits = %d, want 3072", prof.KeyBits)
	}
	if prof.ValidityDays != 200 {
		t.Errorf("ValidityDays = %d, want 200", prof.ValidityDays)
	}
	if prof.SubjectField("o") == "" {
		t.Error("profile should carry an organization default")
	}
}

func TestF_Load_AllBuiltins(t *testing.T) {
	names := BuiltinNames()
	if len(names) == 0 {
		t.Fatal("no builtin profiles found")
	}

	for _, name := range names {
		prof, err := Load(name)
		if err != nil {
			t.Errorf("Load(%s) error = %v", name, err)
			continue
		}
		if prof.Name != name {
			t.Errorf("profile %s declares name %q", name, prof.Name)
		}
	}
}

func TestU_Load_Unknown(t *testing.T) {
	if _, err := Load("no-such-profile"); err == nil {
		t.Error("Load() should fail for unknown builtin")
	}
}

func TestF_Load_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `name: custom
description: operator-supplied profile
key_bits: 2048
validity_days: 90
subject:
  o: Acme
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}

	prof, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", path, err)
	}
	if prof.KeyBits != 2048 || prof.ValidityDays != 90 {
		t.Errorf("profile = %+v, want key_bits 2048 validity_days 90", prof)
	}
	if prof.SubjectField("o") != "Acme" {
		t.Errorf("SubjectField(o) = %q, want Acme", prof.SubjectField("o"))
	}
}

func TestU_Profile_Validate(t *testing.T) {
	t.Run("bad key bits", func(t *testing.T) {
		p := Profile{Name: "x", KeyBits: 1024}
		if err := p.Validate(); err == nil {
			t.Error("Validate() should reject key_bits 1024")
		}
	})

	t.Run("missing name", func(t *testing.T) {
		p := Profile{KeyBits: 2048}
		if err := p.Validate(); err == nil {
			t.Error("Validate() should require a name")
		}
	})

	t.Run("negative validity", func(t *testing.T) {
		p := Profile{Name: "x", ValidityDays: -1}
		if err := p.Validate(); err == nil {
			t.Error("Validate() should reject negative validity")
		}
	})
}
