// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"

	"maptools-cli/pkg/vpk"
)

// DictionaryMarker is the byte sequence a rebuilt level carries.
const DictionaryMarker = "stringtable_dictionary.dctPK"

// LevelWithDictionary returns fake level bytes that contain the marker.
func LevelWithDictionary() []byte {
	return []byte("VBSP\x14\x00\x00\x00lump-data:" + DictionaryMarker + ":tail")
}

// LevelWithoutDictionary returns fake level bytes without the marker.
func LevelWithoutDictionary() []byte {
	return []byte("VBSP\x14\x00\x00\x00lump-data:no-dictionary-here")
}

// BuildVPK writes a single-file container holding files to path.
func BuildVPK(t testing.TB, path string, files map[string][]byte) string {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]vpk.Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, vpk.Entry{Path: p, Data: files[p]})
	}
	a, err := vpk.NewArchive(entries)
	if err != nil {
		t.Fatalf("failed to build archive: %v", err)
	}
	MustMkdirAll(t, filepath.Dir(path))
	if err := a.Save(path); err != nil {
		t.Fatalf("failed to save %s: %v", path, err)
	}
	return path
}

// BuildZip writes a zip archive holding files (raw bytes keyed by member
// name) to path. Members are written in sorted order.
func BuildZip(t testing.TB, path string, files map[string][]byte) string {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, n := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: n, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("failed to add %s: %v", n, err)
		}
		if _, err := w.Write(files[n]); err != nil {
			t.Fatalf("failed to write %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", path, err)
	}
	return path
}

// ReadVPK decodes the container at path into a map keyed by entry path.
func ReadVPK(t testing.TB, path string) map[string][]byte {
	t.Helper()
	a, err := vpk.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	out := make(map[string][]byte, a.Len())
	for _, e := range a.Entries() {
		out[e.Path] = e.Data
	}
	return out
}
