package ca

import (
	"bytes"
	"encoding/hex"
	"os"
	"strings"
	"testing"
)

// =============================================================================
// Store Initialization Tests
// =============================================================================

func TestF_Store_Init_SeedsRandomSerial(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	data, err := os.ReadFile(store.SerialPath())
	if err != nil {
		t.Fatalf("failed to read serial file: %v", err)
	}

	serialHex := strings.TrimSpace(string(data))
	serial, err := hex.DecodeString(serialHex)
	if err != nil {
		t.Fatalf("serial file is not hex: %v", err)
	}
	if len(serial) != 16 {
		t.Errorf("serial length = %d bytes, want 16 (128-bit seed)", len(serial))
	}
	if serialHex == "01" {
		t.Error("serial state must not start at a predictable value")
	}
}

func TestF_Store_Init_NeverResetsSerial(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	before, err := os.ReadFile(store.SerialPath())
	if err != nil {
		t.Fatalf("failed to read serial file: %v", err)
	}

	// Re-running Init must leave existing serial state untouched.
	if err := store.Init(); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}

	after, err := os.ReadFile(store.SerialPath())
	if err != nil {
		t.Fatalf("failed to read serial file: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("Init() reset existing serial state")
	}
}

// =============================================================================
// Serial Counter Tests
// =============================================================================

func TestF_Store_NextSerial_AdvancesDurably(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	first, err := store.NextSerial()
	if err != nil {
		t.Fatalf("NextSerial() error = %v", err)
	}

	// The persisted state must already point past the returned serial.
	data, err := os.ReadFile(store.SerialPath())
	if err != nil {
		t.Fatalf("failed to read serial file: %v", err)
	}
	persisted, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("serial file is not hex: %v", err)
	}
	if !bytes.Equal(persisted, incrementSerial(first)) {
		t.Error("persisted serial state should be one past the issued serial")
	}

	second, err := store.NextSerial()
	if err != nil {
		t.Fatalf("NextSerial() error = %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("NextSerial() returned the same serial twice")
	}
}

func TestF_Store_NextSerial_PairwiseDistinct(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		serial, err := store.NextSerial()
		if err != nil {
			t.Fatalf("NextSerial() #%d error = %v", i, err)
		}
		key := hex.EncodeToString(serial)
		if seen[key] {
			t.Fatalf("serial %s issued twice", key)
		}
		seen[key] = true
	}
}

func TestF_Store_NextSerial_RecoversFromIndex(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	highest := []byte{0x7a, 0x01, 0xff}
	entry := "V\t350101120000Z\t\t" + hex.EncodeToString(highest) + "\tunknown\tCN=svc.internal\n"
	if err := os.WriteFile(store.IndexPath(), []byte(entry), 0644); err != nil {
		t.Fatalf("failed to write index: %v", err)
	}

	// Simulate lost serial state.
	if err := os.Remove(store.SerialPath()); err != nil {
		t.Fatalf("failed to remove serial file: %v", err)
	}

	serial, err := store.NextSerial()
	if err != nil {
		t.Fatalf("NextSerial() error = %v", err)
	}
	if !bytes.Equal(serial, incrementSerial(highest)) {
		t.Errorf("recovered serial = %x, want %x", serial, incrementSerial(highest))
	}
}

func TestU_IncrementSerial(t *testing.T) {
	tests := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{0x01}, []byte{0x02}},
		{[]byte{0x00, 0xff}, []byte{0x01, 0x00}},
		{[]byte{0xff}, []byte{0x01, 0x00}}, // overflow prepends a byte
		{[]byte{0xab, 0xcd}, []byte{0xab, 0xce}},
	}

	for _, tt := range tests {
		if got := incrementSerial(tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("incrementSerial(%x) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestU_CompareSerial(t *testing.T) {
	tests := []struct {
		a, b []byte
		want int
	}{
		{[]byte{0x02}, []byte{0x01}, 1},
		{[]byte{0x01}, []byte{0x02}, -1},
		{[]byte{0x01}, []byte{0x01}, 0},
		{[]byte{0x00, 0x01}, []byte{0x01}, 0}, // leading zeros ignored
		{[]byte{0x01, 0x00}, []byte{0xff}, 1},
	}

	for _, tt := range tests {
		if got := compareSerial(tt.a, tt.b); got != tt.want {
			t.Errorf("compareSerial(%x, %x) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// =============================================================================
// Index Tests
// =============================================================================

func TestU_ParseIndexLine(t *testing.T) {
	entry, err := parseIndexLine("V\t350101120000Z\t\tdeadbeef\tunknown\tCN=svc.internal")
	if err != nil {
		t.Fatalf("parseIndexLine() error = %v", err)
	}
	if entry.Status != "V" {
		t.Errorf("Status = %q, want V", entry.Status)
	}
	if hex.EncodeToString(entry.Serial) != "deadbeef" {
		t.Errorf("Serial = %x, want deadbeef", entry.Serial)
	}
	if entry.Subject != "CN=svc.internal" {
		t.Errorf("Subject = %q", entry.Subject)
	}

	if _, err := parseIndexLine("garbage"); err == nil {
		t.Error("parseIndexLine() should reject a malformed line")
	}
}
