// SPDX-License-Identifier: MPL-2.0

// Package sanitize strips files a dedicated server never loads from a
// staged content tree.
package sanitize

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// BlockedExtensions are removed from server packages: textures, sound and
// level sources.
var BlockedExtensions = []string{".vtf", ".mp3", ".wav", ".vmf", ".vmx"}

// ShouldRemove reports whether a file with the given base name is stripped.
// Names without a dot are stripped along with the blocked extensions.
func ShouldRemove(name string) bool {
	if !strings.Contains(name, ".") {
		return true
	}
	return slices.Contains(BlockedExtensions, strings.ToLower(filepath.Ext(name)))
}

// Sanitize deletes every file below root matched by ShouldRemove and returns
// the removed paths, slash-separated and relative to root, in sorted order.
// Directories are left in place.
func Sanitize(root string) ([]string, error) {
	var doomed []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ShouldRemove(d.Name()) {
			doomed = append(doomed, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	removed := make([]string, 0, len(doomed))
	for _, p := range doomed {
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return removed, err
		}
		removed = append(removed, filepath.ToSlash(rel))
	}
	slices.Sort(removed)
	return removed, nil
}
