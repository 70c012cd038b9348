// SPDX-License-Identifier: MPL-2.0

package ingest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"maptools-cli/pkg/vpk"
)

// Kind is the closed set of inputs the ingestor understands.
type Kind int

const (
	// KindUnknown is never returned alongside a nil error.
	KindUnknown Kind = iota
	// KindRaw is a bare VPK container.
	KindRaw
	// KindZip is a zip archive.
	KindZip
	// KindSevenZip is a 7z archive.
	KindSevenZip
	// KindRar is a rar archive (v4 or v5).
	KindRar
)

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	sevenZipMagic = []byte("7z\xBC\xAF\x27\x1C")
	rarMagic      = []byte("Rar!\x1A\x07")

	extKinds = map[string]Kind{
		vpk.Ext: KindRaw,
		".zip":  KindZip,
		".7z":   KindSevenZip,
		".rar":  KindRar,
	}
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "vpk"
	case KindZip:
		return "zip"
	case KindSevenZip:
		return "7z"
	case KindRar:
		return "rar"
	default:
		return "unknown"
	}
}

// IsArchive reports whether the kind needs extracting before its containers
// can be decoded.
func (k Kind) IsArchive() bool {
	return k == KindZip || k == KindSevenZip || k == KindRar
}

// Detect determines the kind of the file at path. The leading bytes decide
// when they carry a known signature; otherwise the extension is used.
func Detect(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return KindUnknown, fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		return KindUnknown, &InputFormatError{Path: path, Reason: "input is a directory"}
	}

	head := make([]byte, 8)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return KindUnknown, fmt.Errorf("failed to read input: %w", err)
	}

	if k := sniff(head[:n]); k != KindUnknown {
		return k, nil
	}
	if k, ok := extKinds[strings.ToLower(filepath.Ext(path))]; ok {
		return k, nil
	}
	return KindUnknown, &InputFormatError{Path: path}
}

func sniff(head []byte) Kind {
	switch {
	case len(head) >= 4 && binary.LittleEndian.Uint32(head) == vpk.Signature:
		return KindRaw
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmptyMagic):
		return KindZip
	case bytes.HasPrefix(head, sevenZipMagic):
		return KindSevenZip
	case bytes.HasPrefix(head, rarMagic):
		return KindRar
	default:
		return KindUnknown
	}
}
