// Package profiles provides embedded issuance profile templates.
//
// These profiles define certificate defaults and are embedded in the
// binary for convenience. Users can also copy and customize them.
package profiles

import "embed"

// FS contains all embedded profile YAML files.
//
//go:embed all:builtin
var FS embed.FS
