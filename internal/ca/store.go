package ca

import (
	"bytes"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Store manages CA state on the filesystem.
// Directory structure:
//
//	{base}/
//	  ├── ca.crt           # CA certificate
//	  ├── private/
//	  │   └── ca.key       # CA private key (encrypted PEM)
//	  ├── certs/           # Issued certificates
//	  │   └── {serial}.crt
//	  ├── index.txt        # Issuance database (OpenSSL-like)
//	  ├── serial           # Next serial number (hex, one line)
//	  └── serial.lock      # Exclusive lock for serial updates
type Store struct {
	basePath string
}

// NewStore creates a new certificate store at the given path.
func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// Init initializes the store directory structure.
// The serial counter is seeded with a random 128-bit value; an existing
// serial file is never reset, so re-running Init is safe.
func (s *Store) Init() error {
	dirs := []struct {
		path string
		mode os.FileMode
	}{
		{s.basePath, 0755},
		{filepath.Join(s.basePath, "certs"), 0755},
		{filepath.Join(s.basePath, "private"), 0700},
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir.path, dir.mode); err != nil {
			return fmt.Errorf("%w: failed to create directory %s: %v", ErrPersistence, dir.path, err)
		}
	}

	if _, err := os.Stat(s.SerialPath()); os.IsNotExist(err) {
		seed, err := randomSerial()
		if err != nil {
			return fmt.Errorf("%w: failed to seed serial state: %v", ErrKeyGeneration, err)
		}
		if err := writeFileSync(s.SerialPath(), []byte(hex.EncodeToString(seed)+"\n"), 0644); err != nil {
			return fmt.Errorf("%w: failed to create serial file: %v", ErrPersistence, err)
		}
	}

	indexPath := s.IndexPath()
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		if err := os.WriteFile(indexPath, []byte(""), 0644); err != nil {
			return fmt.Errorf("%w: failed to create index file: %v", ErrPersistence, err)
		}
	}

	return nil
}

// BasePath returns the base path of the store.
func (s *Store) BasePath() string {
	return s.basePath
}

// CACertPath returns the path to the CA certificate.
func (s *Store) CACertPath() string {
	return filepath.Join(s.basePath, "ca.crt")
}

// CAKeyPath returns the path to the CA private key.
func (s *Store) CAKeyPath() string {
	return filepath.Join(s.basePath, "private", "ca.key")
}

// SerialPath returns the path to the serial state file.
func (s *Store) SerialPath() string {
	return filepath.Join(s.basePath, "serial")
}

// IndexPath returns the path to the issuance index.
func (s *Store) IndexPath() string {
	return filepath.Join(s.basePath, "index.txt")
}

// CertPath returns the path for an issued certificate with the given serial.
func (s *Store) CertPath(serial []byte) string {
	return filepath.Join(s.basePath, "certs", hex.EncodeToString(serial)+".crt")
}

// Exists checks if the store already holds a CA.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.CACertPath())
	return err == nil
}

// SaveCACert saves the CA certificate to the store.
func (s *Store) SaveCACert(cert *x509.Certificate) error {
	return saveCertPEM(s.CACertPath(), cert)
}

// LoadCACert loads the CA certificate from the store.
func (s *Store) LoadCACert() (*x509.Certificate, error) {
	if _, err := os.Stat(s.CACertPath()); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no CA certificate at %s", ErrMissingCA, s.CACertPath())
	}
	return loadCertPEM(s.CACertPath())
}

// SaveCert saves an issued certificate and records it in the index.
func (s *Store) SaveCert(cert *x509.Certificate) error {
	path := s.CertPath(cert.SerialNumber.Bytes())
	if err := saveCertPEM(path, cert); err != nil {
		return err
	}
	return s.appendIndex(cert)
}

// LoadCert loads an issued certificate by serial number.
func (s *Store) LoadCert(serial []byte) (*x509.Certificate, error) {
	return loadCertPEM(s.CertPath(serial))
}

// NextSerial returns the next serial number and durably advances the
// counter before the serial is handed out. The read-increment-persist
// sequence runs under an exclusive lock so concurrent issuance against
// one CA can never hand out the same serial twice. A crash after the
// counter is advanced skips a serial; one is never reused.
func (s *Store) NextSerial() ([]byte, error) {
	unlock, err := s.lockSerial()
	if err != nil {
		return nil, err
	}
	defer unlock()

	serial, err := s.readSerial()
	if err != nil {
		// Serial state lost or corrupt: re-derive from the issuance
		// index rather than resetting the counter.
		serial, err = s.recoverSerial()
		if err != nil {
			return nil, err
		}
	}

	next := incrementSerial(serial)
	if err := writeFileSync(s.SerialPath(), []byte(hex.EncodeToString(next)+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("%w: failed to update serial file: %v", ErrPersistence, err)
	}

	return serial, nil
}

// lockSerial takes an exclusive flock on serial.lock.
// The returned function releases the lock.
func (s *Store) lockSerial() (func(), error) {
	lockPath := filepath.Join(s.basePath, "serial.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open lock file: %v", ErrPersistence, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: failed to acquire serial lock: %v", ErrPersistence, err)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}, nil
}

// readSerial reads and parses the serial state file.
func (s *Store) readSerial() ([]byte, error) {
	data, err := os.ReadFile(s.SerialPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read serial file: %v", ErrMissingCA, err)
	}

	serialHex := strings.TrimSpace(string(data))
	serial, err := hex.DecodeString(serialHex)
	if err != nil || len(serial) == 0 {
		return nil, fmt.Errorf("%w: corrupt serial file %s", ErrPersistence, s.SerialPath())
	}

	return serial, nil
}

// recoverSerial re-derives the next serial from the issuance index:
// one past the highest serial ever recorded. With an empty or missing
// index, a fresh random value is seeded instead.
func (s *Store) recoverSerial() ([]byte, error) {
	entries, err := s.ReadIndex()
	if err != nil || len(entries) == 0 {
		return randomSerialOrErr()
	}

	var max []byte
	for _, e := range entries {
		if compareSerial(e.Serial, max) > 0 {
			max = e.Serial
		}
	}
	if len(max) == 0 {
		return randomSerialOrErr()
	}
	return incrementSerial(max), nil
}

func randomSerialOrErr() ([]byte, error) {
	seed, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to reseed serial state: %v", ErrKeyGeneration, err)
	}
	return seed, nil
}

// randomSerial generates a random 128-bit serial value.
// Random initialization avoids serial prediction across
// independently-bootstrapped CAs.
func randomSerial() ([]byte, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	// Clear the top bit so the value stays a positive ASN.1 INTEGER.
	buf[0] &= 0x7f
	if buf[0] == 0 {
		buf[0] = 1
	}
	return buf, nil
}

// incrementSerial increments a big-endian byte slice by 1.
func incrementSerial(serial []byte) []byte {
	result := make([]byte, len(serial))
	copy(result, serial)

	for i := len(result) - 1; i >= 0; i-- {
		result[i]++
		if result[i] != 0 {
			return result
		}
	}

	// Overflow - prepend a byte
	return append([]byte{1}, result...)
}

// compareSerial compares two big-endian serials numerically.
func compareSerial(a, b []byte) int {
	a = bytes.TrimLeft(a, "\x00")
	b = bytes.TrimLeft(b, "\x00")
	if len(a) != len(b) {
		if len(a) > len(b) {
			return 1
		}
		return -1
	}
	return bytes.Compare(a, b)
}

// appendIndex appends a certificate entry to the index file.
// Format: status\texpiry\trevocation\tserial\tunknown\tsubject
func (s *Store) appendIndex(cert *x509.Certificate) error {
	f, err := os.OpenFile(s.IndexPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: failed to open index file: %v", ErrPersistence, err)
	}
	defer func() { _ = f.Close() }()

	entry := fmt.Sprintf("V\t%s\t\t%s\tunknown\t%s\n",
		cert.NotAfter.UTC().Format("060102150405Z"),
		hex.EncodeToString(cert.SerialNumber.Bytes()),
		cert.Subject.String(),
	)

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("%w: failed to write index entry: %v", ErrPersistence, err)
	}
	return f.Sync()
}

// IndexEntry represents an entry in the issuance index.
type IndexEntry struct {
	Status  string
	Expiry  time.Time
	Serial  []byte
	Subject string
}

// ReadIndex reads all entries from the index file.
func (s *Store) ReadIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(s.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read index file: %v", ErrPersistence, err)
	}

	var entries []IndexEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		entry, err := parseIndexLine(line)
		if err != nil {
			continue // Skip malformed entries
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// parseIndexLine parses a single index line.
func parseIndexLine(line string) (IndexEntry, error) {
	var entry IndexEntry
	parts := strings.Split(line, "\t")
	if len(parts) < 6 {
		return entry, fmt.Errorf("malformed index line")
	}

	entry.Status = parts[0]

	if parts[1] != "" {
		if t, err := time.Parse("060102150405Z", parts[1]); err == nil {
			entry.Expiry = t
		}
	}

	serial, err := hex.DecodeString(parts[3])
	if err != nil {
		return entry, fmt.Errorf("invalid serial: %w", err)
	}
	entry.Serial = serial
	entry.Subject = parts[5]

	return entry, nil
}

// saveCertPEM saves a certificate to a PEM file.
func saveCertPEM(path string, cert *x509.Certificate) error {
	block := &pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: failed to create certificate file: %v", ErrPersistence, err)
	}
	defer func() { _ = f.Close() }()

	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("%w: failed to write certificate: %v", ErrPersistence, err)
	}

	return nil
}

// loadCertPEM loads a certificate from a PEM file.
func loadCertPEM(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read certificate file: %v", ErrPersistence, err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: no certificate found in %s", ErrPersistence, path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse certificate: %v", ErrPersistence, err)
	}

	return cert, nil
}

// writeFileSync writes data to path durably: temp file, fsync, rename.
func writeFileSync(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}
