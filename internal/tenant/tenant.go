// Package tenant implements the tenant registry: the durable mapping from
// label to tenant record and the token-based identity model built on it.
package tenant

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/s950329/qmd-bridge/internal/errors"
)

// Tenant is an isolated consumer identity bound to one directory path and one
// logical collection.
type Tenant struct {
	// Label is the unique identifier and storage key. It doubles as the
	// default collection name.
	Label string `json:"label" yaml:"label"`

	// DisplayName is the human label. No uniqueness constraint.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Path is the absolute host directory the tenant's index covers.
	Path string `json:"path" yaml:"path"`

	// Collection is the logical name passed to the external tool.
	Collection string `json:"collection" yaml:"collection"`

	// Token is the sole credential for this tenant. Excluded from JSON so
	// API responses can never leak it.
	Token string `json:"-" yaml:"token"`

	// CreatedAt is set once at creation and never mutated.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// labelPattern keeps labels safe as store keys (the store addresses records
// by dot-separated paths) and as collection names on the qmd command line.
var labelPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateLabel rejects labels that cannot serve as storage keys.
func ValidateLabel(label string) error {
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("label %q must match %s", label, labelPattern)
	}
	return nil
}

// ValidatePath checks that path is usable as a tenant root. Failures carry a
// distinct sub-reason: not-absolute, dangerous, missing, not-a-directory.
func ValidatePath(path string) error {
	if !filepath.IsAbs(path) {
		return errors.InvalidPath(errors.PathNotAbsolute)
	}

	clean := filepath.Clean(path)
	if clean == string(filepath.Separator) {
		return errors.InvalidPath(errors.PathDangerous)
	}
	if home, err := os.UserHomeDir(); err == nil && clean == filepath.Clean(home) {
		return errors.InvalidPath(errors.PathDangerous)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return errors.InvalidPath(errors.PathMissing)
	}
	if !info.IsDir() {
		return errors.InvalidPath(errors.PathNotDirectory)
	}
	return nil
}

// NewToken generates a fresh 256-bit hex credential.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
