// SPDX-License-Identifier: MPL-2.0

// Package vpk reads and writes Valve VPK content containers.
//
// A container is modelled as an ordered set of entries, each a slash-separated
// relative path plus its raw bytes. Metadata stored alongside each entry
// (CRC, preload length, archive index) is honored while reading and produced
// while writing, but never surfaced to callers.
//
// Reading supports version 1 and version 2 directory files, with entry data
// either embedded after the directory tree or stored in numbered sibling
// chunk files (name_dir.vpk + name_000.vpk, ...). Writing always produces a
// single self-contained version 1 file.
package vpk

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// Ext is the file extension of a VPK container.
	Ext = ".vpk"

	// Signature is the magic number at offset 0 of every VPK directory file.
	Signature uint32 = 0x55AA1234

	headerSizeV1 = 12
	headerSizeV2 = 28

	// embeddedArchiveIndex marks entry data stored in the directory file itself.
	embeddedArchiveIndex uint16 = 0x7FFF
	entryTerminator      uint16 = 0xFFFF
	entryFixedSize              = 18
	emptyTreeToken              = " "
)

var (
	// ErrCorruptContainer is the sentinel error wrapped by CorruptContainerError.
	ErrCorruptContainer = errors.New("corrupt container")
	// ErrEmptyArchive is returned when an archive would hold no entries.
	ErrEmptyArchive = errors.New("archive has no entries")
	// ErrDuplicatePath is returned when two entries share a path.
	ErrDuplicatePath = errors.New("duplicate entry path")
	// ErrInvalidPath is returned for entry paths that are absolute, escape
	// the archive root or contain characters the format cannot store.
	ErrInvalidPath = errors.New("invalid entry path")
)

type (
	// Entry is one file stored in a container.
	Entry struct {
		// Path is relative, slash-separated and unique within the archive.
		Path string
		// Data is the full payload.
		Data []byte
	}

	// Archive is an ordered, immutable collection of entries.
	Archive struct {
		entries []Entry
		index   map[string]int
	}

	// CorruptContainerError is returned when a container cannot be parsed.
	CorruptContainerError struct {
		Path   string
		Reason string
		Err    error
	}
)

// Error implements the error interface.
func (e *CorruptContainerError) Error() string {
	var sb strings.Builder
	sb.WriteString("corrupt container")
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes ErrCorruptContainer and the underlying cause.
func (e *CorruptContainerError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCorruptContainer, e.Err}
	}
	return []error{ErrCorruptContainer}
}

// NewArchive builds an archive from entries, preserving their order.
// It fails when entries is empty, when a path is invalid or when two
// entries share a path.
func NewArchive(entries []Entry) (*Archive, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyArchive
	}

	a := &Archive{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if err := a.add(e); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Archive) add(e Entry) error {
	if err := ValidatePath(e.Path); err != nil {
		return err
	}
	if _, dup := a.index[e.Path]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, e.Path)
	}
	a.index[e.Path] = len(a.entries)
	a.entries = append(a.entries, e)
	return nil
}

// Len returns the number of entries.
func (a *Archive) Len() int { return len(a.entries) }

// Entries returns the entries in stored order. The returned slice is a copy;
// payloads are shared and must not be modified.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Paths returns every entry path in stored order.
func (a *Archive) Paths() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Path
	}
	return out
}

// Get looks up an entry by path.
func (a *Archive) Get(p string) (Entry, bool) {
	i, ok := a.index[p]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Size returns the sum of all payload lengths.
func (a *Archive) Size() int64 {
	var n int64
	for _, e := range a.entries {
		n += int64(len(e.Data))
	}
	return n
}

// ValidatePath reports whether p can be stored as an entry path.
func ValidatePath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	case strings.ContainsRune(p, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidPath, p)
	case strings.Contains(p, "\\"):
		return fmt.Errorf("%w: %q must use forward slashes", ErrInvalidPath, p)
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidPath, p)
	case strings.HasSuffix(p, "/"):
		return fmt.Errorf("%w: %q names a directory", ErrInvalidPath, p)
	}
	if path.Clean(p) != p {
		return fmt.Errorf("%w: %q is not clean", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%w: %q escapes the archive root", ErrInvalidPath, p)
		}
		if seg == emptyTreeToken {
			return fmt.Errorf("%w: %q has a segment that is a single space", ErrInvalidPath, p)
		}
	}
	file := path.Base(p)
	if i := strings.LastIndexByte(file, '.'); i > 0 && file[i+1:] == emptyTreeToken {
		return fmt.Errorf("%w: %q has an extension that is a single space", ErrInvalidPath, p)
	}
	return nil
}

// splitEntryPath breaks an entry path into the directory, stem and extension
// triple stored in the tree. Missing parts are stored as a single space.
func splitEntryPath(p string) (dir, name, ext string) {
	dir, file := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = emptyTreeToken
	}

	i := strings.LastIndexByte(file, '.')
	if i <= 0 || i == len(file)-1 {
		return dir, file, emptyTreeToken
	}
	return dir, file[:i], file[i+1:]
}

// joinEntryPath is the inverse of splitEntryPath.
func joinEntryPath(dir, name, ext string) string {
	file := name
	if ext != emptyTreeToken && ext != "" {
		file += "." + ext
	}
	dir = strings.Trim(dir, "/")
	if dir == emptyTreeToken || dir == "" {
		return file
	}
	return dir + "/" + file
}
