// ABOUTME: XDG-based data directory resolution for the inkwell CLI.
// ABOUTME: Checks XDG_DATA_HOME and falls back to ~/.local/share/inkwell.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// resolveDataDir returns the data directory to use, preferring an explicit
// override and falling back to the XDG-based default.
func resolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "inkwell"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "inkwell"), nil
}
