package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultDatabasePath returns the OpenCode store location under the XDG data
// directory, which is where the harness writes it.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "opencode", "opencode.db")
}
