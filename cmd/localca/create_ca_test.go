package main

import (
	"os"
	"testing"

	"github.com/localpki/localca/internal/ca"
)

func TestU_PartialArtifacts(t *testing.T) {
	store := ca.NewStore(t.TempDir())

	// Nothing written yet: nothing to report.
	if got := partialArtifacts(store); len(got) != 0 {
		t.Errorf("partialArtifacts() = %v, want empty", got)
	}

	// Simulate a run that died after the serial seed and key write but
	// before the certificate landed.
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := os.WriteFile(store.CAKeyPath(), []byte("not a real key"), 0600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}

	got := partialArtifacts(store)
	want := map[string]bool{
		store.CAKeyPath():  true,
		store.SerialPath(): true,
		store.IndexPath():  true,
	}
	if len(got) != len(want) {
		t.Fatalf("partialArtifacts() = %v, want key, serial and index paths", got)
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("partialArtifacts() reported unexpected path %s", p)
		}
		if p == store.CACertPath() {
			t.Errorf("partialArtifacts() reported the never-written certificate")
		}
	}
}
