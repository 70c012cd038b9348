// SPDX-License-Identifier: MPL-2.0

// Package audit classifies the levels of a staged content tree by whether
// they carry the string-table dictionary the game needs at runtime.
package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MapsDir is the subtree of the content tree that holds levels.
	MapsDir = "maps"
	// LevelExt is the extension of a compiled level.
	LevelExt = ".bsp"
)

// Marker is the dictionary path as it is embedded, followed by the zip local
// header signature, in the pakfile lump of a rebuilt level.
var Marker = []byte("stringtable_dictionary.dctPK")

type (
	// MapAsset is one level found under the maps subtree.
	MapAsset struct {
		// Path is the absolute path of the level inside the content tree.
		Path string
		// Name is the file name without its extension, as passed to +map.
		Name string
		// Size is the byte length at audit time.
		Size int64
		// HasDictionary is set when the marker was found.
		HasDictionary bool
	}

	// Report is the result of one Scan.
	Report struct {
		Root string
		// MapsDirMissing is set when the content tree has no maps subtree.
		MapsDirMissing bool
		Assets         []MapAsset
	}
)

// HasDictionary reports whether data contains the dictionary marker.
func HasDictionary(data []byte) bool {
	return bytes.Contains(data, Marker)
}

// Deficient returns the assets lacking a dictionary, in scan order.
func (r *Report) Deficient() []MapAsset {
	var out []MapAsset
	for _, a := range r.Assets {
		if !a.HasDictionary {
			out = append(out, a)
		}
	}
	return out
}

// Scan walks <root>/maps for levels and classifies each one. A missing maps
// directory is reported through MapsDirMissing rather than as an error.
func Scan(ctx context.Context, root string) (*Report, error) {
	r := &Report{Root: root}
	mapsDir := filepath.Join(root, MapsDir)

	info, err := os.Stat(mapsDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.MapsDirMissing = true
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat %s: %w", mapsDir, err)
	case !info.IsDir():
		r.MapsDirMissing = true
		return r, nil
	}

	err = filepath.WalkDir(mapsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(p), LevelExt) {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read level %s: %w", p, err)
		}
		base := filepath.Base(p)
		r.Assets = append(r.Assets, MapAsset{
			Path:          p,
			Name:          strings.TrimSuffix(base, filepath.Ext(base)),
			Size:          int64(len(data)),
			HasDictionary: HasDictionary(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to audit %s: %w", mapsDir, err)
	}
	return r, nil
}
