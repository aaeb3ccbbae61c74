// Package profile provides YAML-backed issuance profiles.
//
// A profile carries the defaults for one kind of certificate (key size,
// validity, fixed subject fields). Builtin profiles are embedded in the
// binary; operators can also point at their own YAML files.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/localpki/localca/profiles"
)

// Profile defines issuance defaults for one certificate kind.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// KeyBits is the default RSA modulus size.
	KeyBits int `yaml:"key_bits"`

	// ValidityDays is the default certificate validity.
	ValidityDays int `yaml:"validity_days"`

	// Subject holds fixed DN defaults, keyed by the usual short
	// attribute names: c, st, l, o, ou.
	Subject map[string]string `yaml:"subject,omitempty"`
}

// Validate checks the profile for obviously bad values.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	switch p.KeyBits {
	case 0, 2048, 3072, 4096:
	default:
		return fmt.Errorf("profile %s: unsupported key_bits %d", p.Name, p.KeyBits)
	}
	if p.ValidityDays < 0 {
		return fmt.Errorf("profile %s: validity_days must not be negative", p.Name)
	}
	return nil
}

// SubjectField returns a fixed subject default, or "" if unset.
func (p *Profile) SubjectField(key string) string {
	if p.Subject == nil {
		return ""
	}
	return p.Subject[key]
}

// Load loads a profile by builtin name or YAML file path.
// A name containing a path separator or ending in .yaml/.yml is treated
// as a file path; anything else resolves against the embedded builtins.
func Load(name string) (*Profile, error) {
	if strings.ContainsRune(name, os.PathSeparator) ||
		strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return loadFromFile(name)
	}

	data, err := profiles.FS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown profile %q (builtins: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return parse(data)
}

// BuiltinNames lists the embedded profile names.
func BuiltinNames() []string {
	entries, err := profiles.FS.ReadDir("builtin")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

func loadFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
