// SPDX-License-Identifier: MPL-2.0

package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"maptools-cli/pkg/vpk"
)

// chunkName matches the numbered data files of a multi-file container.
var chunkName = regexp.MustCompile(`(?i)^(.+)_\d{3}\.vpk$`)

// FindContainers returns every VPK container below root in lexical walk
// order. Numbered chunk files that accompany a name_dir.vpk sibling are data
// for that container and are not returned on their own.
func FindContainers(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), vpk.Ext) {
			return nil
		}
		if isChunk(p) {
			return nil
		}
		found = append(found, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s for containers: %w", root, err)
	}
	return found, nil
}

func isChunk(p string) bool {
	m := chunkName.FindStringSubmatch(filepath.Base(p))
	if m == nil {
		return false
	}
	dirFile := filepath.Join(filepath.Dir(p), m[1]+"_dir"+vpk.Ext)
	if _, err := os.Stat(dirFile); err == nil {
		return true
	}
	// Case-insensitive filesystems aside, archives built on Windows may
	// carry an upper-case extension on the directory file.
	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		return false
	}
	want := m[1] + "_dir" + vpk.Ext
	for _, e := range entries {
		if strings.EqualFold(e.Name(), want) {
			return true
		}
	}
	return false
}

// BaseName returns the stem used for output names: the file name
// without its extension and without a trailing _dir.
func BaseName(p string) string {
	name := filepath.Base(p)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if len(stem) > len("_dir") && strings.EqualFold(stem[len(stem)-len("_dir"):], "_dir") {
		stem = stem[:len(stem)-len("_dir")]
	}
	return stem
}
