// SPDX-License-Identifier: MPL-2.0

package vpk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extract writes every entry below dir, creating parent directories as needed.
// Existing files at an entry's path are overwritten. Entries that would
// resolve outside dir are rejected.
func (a *Archive) Extract(dir string) error {
	for _, e := range a.entries {
		dest, err := SecureJoin(dir, e.Path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", e.Path, err)
		}
		if err := os.WriteFile(dest, e.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Path, err)
		}
	}
	return nil
}

// SecureJoin joins the slash-separated relative name onto root and verifies
// that the result stays inside root.
func SecureJoin(root, name string) (string, error) {
	cleanRoot := filepath.Clean(root)
	dest := filepath.Join(cleanRoot, filepath.FromSlash(name))
	if dest != cleanRoot && !strings.HasPrefix(dest, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidPath, name, root)
	}
	return dest, nil
}
