// SPDX-License-Identifier: MPL-2.0

package vpk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"

	"maptools-cli/internal/fsutil"
)

// FromDir builds an archive from every regular file below root. Entry paths
// are relative to root and always use forward slashes.
func FromDir(root string) (*Archive, error) {
	var entries []Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		entries = append(entries, Entry{Path: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrEmptyArchive)
	}
	return NewArchive(entries)
}

// Save writes the archive to dest as a single-file version 1 container.
// The file only appears at dest once it has been completely written.
func (a *Archive) Save(dest string) error {
	if err := fsutil.WriteFileAtomic(dest, 0o644, func(w io.Writer) error {
		_, err := a.WriteTo(w)
		return err
	}); err != nil {
		return fmt.Errorf("failed to save container %s: %w", dest, err)
	}
	return nil
}

// treeNode groups entry indexes by extension and directory, the order in
// which the directory tree stores them.
type treeNode map[string]map[string][]int

// WriteTo encodes the archive as a version 1 container with every payload
// embedded after the directory tree.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	if len(a.entries) == 0 {
		return 0, ErrEmptyArchive
	}

	groups := make(treeNode)
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		dir, name, ext := splitEntryPath(e.Path)
		names[i] = name
		if groups[ext] == nil {
			groups[ext] = make(map[string][]int)
		}
		groups[ext][dir] = append(groups[ext][dir], i)
	}

	var (
		tree  bytes.Buffer
		order []int
		off   uint64
		field [entryFixedSize]byte
	)
	for _, ext := range sortedKeys(groups) {
		writeCString(&tree, ext)
		dirs := groups[ext]
		for _, dir := range sortedKeys(dirs) {
			writeCString(&tree, dir)
			idxs := dirs[dir]
			sort.Slice(idxs, func(x, y int) bool { return names[idxs[x]] < names[idxs[y]] })
			for _, i := range idxs {
				data := a.entries[i].Data
				if off+uint64(len(data)) > math.MaxUint32 {
					return 0, errors.New("archive data exceeds the 4 GiB single-file limit")
				}
				writeCString(&tree, names[i])
				binary.LittleEndian.PutUint32(field[0:4], crc32.ChecksumIEEE(data))
				binary.LittleEndian.PutUint16(field[4:6], 0)
				binary.LittleEndian.PutUint16(field[6:8], embeddedArchiveIndex)
				binary.LittleEndian.PutUint32(field[8:12], uint32(off))
				binary.LittleEndian.PutUint32(field[12:16], uint32(len(data)))
				binary.LittleEndian.PutUint16(field[16:18], entryTerminator)
				tree.Write(field[:])
				off += uint64(len(data))
				order = append(order, i)
			}
			tree.WriteByte(0)
		}
		tree.WriteByte(0)
	}
	tree.WriteByte(0)

	var header [headerSizeV1]byte
	binary.LittleEndian.PutUint32(header[0:4], Signature)
	binary.LittleEndian.PutUint32(header[4:8], 1)
	binary.LittleEndian.PutUint32(header[8:12], uint32(tree.Len()))

	var total int64
	n, err := w.Write(header[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	m, err := tree.WriteTo(w)
	total += m
	if err != nil {
		return total, err
	}
	for _, i := range order {
		n, err := w.Write(a.entries[i].Data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeCString(b *bytes.Buffer, s string) {
	b.WriteString(s)
	b.WriteByte(0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
