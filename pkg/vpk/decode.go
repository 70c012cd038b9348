// SPDX-License-Identifier: MPL-2.0

package vpk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChunkOpener returns the reader and byte size of a numbered data chunk of a
// multi-file container. It is only consulted for entries not embedded in the
// directory file.
type ChunkOpener func(index uint16) (io.ReaderAt, int64, error)

// Open decodes the container at path. Entries stored in numbered chunk files
// are read from siblings named after the directory file
// (maps_dir.vpk -> maps_000.vpk, maps_001.vpk, ...).
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat container: %w", err)
	}

	chunks := newChunkSet(path)
	defer chunks.Close()

	a, err := Decode(f, info.Size(), chunks.open)
	if err != nil {
		var cce *CorruptContainerError
		if errors.As(err, &cce) && cce.Path == "" {
			cce.Path = path
		}
		return nil, err
	}
	return a, nil
}

// Decode parses a container from r, whose total length is size. Every entry
// payload is read eagerly and checked against its stored CRC32.
func Decode(r io.ReaderAt, size int64, chunks ChunkOpener) (*Archive, error) {
	hdr := make([]byte, headerSizeV2)
	if size < headerSizeV1 {
		return nil, corrupt("file is too short for a VPK header", nil)
	}
	if err := readAtFull(r, hdr[:headerSizeV1], 0); err != nil {
		return nil, corrupt("failed to read header", err)
	}

	if sig := binary.LittleEndian.Uint32(hdr[0:4]); sig != Signature {
		return nil, corrupt(fmt.Sprintf("bad signature 0x%08X", sig), nil)
	}

	version := binary.LittleEndian.Uint32(hdr[4:8])
	treeSize := int64(binary.LittleEndian.Uint32(hdr[8:12]))

	var headerSize int64
	switch version {
	case 1:
		headerSize = headerSizeV1
	case 2:
		headerSize = headerSizeV2
		if size < headerSizeV2 {
			return nil, corrupt("file is too short for a version 2 header", nil)
		}
		if err := readAtFull(r, hdr[headerSizeV1:headerSizeV2], headerSizeV1); err != nil {
			return nil, corrupt("failed to read version 2 header", err)
		}
	default:
		return nil, corrupt(fmt.Sprintf("unsupported version %d", version), nil)
	}

	if headerSize+treeSize > size {
		return nil, corrupt(fmt.Sprintf("directory tree of %d bytes exceeds file size", treeSize), nil)
	}

	tree := make([]byte, treeSize)
	if err := readAtFull(r, tree, headerSize); err != nil {
		return nil, corrupt("failed to read directory tree", err)
	}

	d := &decoder{
		tree:     treeReader{buf: tree},
		dir:      r,
		dirSize:  size,
		dataBase: headerSize + treeSize,
		chunks:   chunks,
		archive:  &Archive{index: make(map[string]int)},
	}
	if err := d.run(); err != nil {
		return nil, err
	}
	if d.archive.Len() == 0 {
		return nil, corrupt("container holds no entries", ErrEmptyArchive)
	}
	return d.archive, nil
}

func corrupt(reason string, err error) *CorruptContainerError {
	return &CorruptContainerError{Reason: reason, Err: err}
}

type decoder struct {
	tree     treeReader
	dir      io.ReaderAt
	dirSize  int64
	dataBase int64
	chunks   ChunkOpener
	archive  *Archive
}

func (d *decoder) run() error {
	for {
		ext, err := d.tree.cstring()
		if err != nil {
			return err
		}
		if ext == "" {
			return nil
		}
		for {
			dir, err := d.tree.cstring()
			if err != nil {
				return err
			}
			if dir == "" {
				break
			}
			for {
				name, err := d.tree.cstring()
				if err != nil {
					return err
				}
				if name == "" {
					break
				}
				if err := d.entry(joinEntryPath(dir, name, ext)); err != nil {
					return err
				}
			}
		}
	}
}

func (d *decoder) entry(p string) error {
	fixed, err := d.tree.bytes(entryFixedSize)
	if err != nil {
		return err
	}
	crc := binary.LittleEndian.Uint32(fixed[0:4])
	preloadLen := int(binary.LittleEndian.Uint16(fixed[4:6]))
	archiveIndex := binary.LittleEndian.Uint16(fixed[6:8])
	offset := int64(binary.LittleEndian.Uint32(fixed[8:12]))
	length := int64(binary.LittleEndian.Uint32(fixed[12:16]))
	if term := binary.LittleEndian.Uint16(fixed[16:18]); term != entryTerminator {
		return corrupt(fmt.Sprintf("entry %s: bad terminator 0x%04X", p, term), nil)
	}

	preload, err := d.tree.bytes(preloadLen)
	if err != nil {
		return err
	}

	// Check the data range before the payload is allocated.
	var (
		src io.ReaderAt
		at  int64
	)
	if length > 0 {
		src, at, err = d.locate(archiveIndex, offset, length)
		if err != nil {
			return corrupt(fmt.Sprintf("entry %s", p), err)
		}
	}

	data := make([]byte, preloadLen+int(length))
	copy(data, preload)

	if length > 0 {
		if err := readAtFull(src, data[preloadLen:], at); err != nil {
			return corrupt(fmt.Sprintf("entry %s: failed to read %d bytes", p, length), err)
		}
	}

	if got := crc32.ChecksumIEEE(data); got != crc {
		return corrupt(fmt.Sprintf("entry %s: CRC mismatch (stored 0x%08X, computed 0x%08X)", p, crc, got), nil)
	}

	if err := d.archive.add(Entry{Path: p, Data: data}); err != nil {
		return corrupt("invalid directory tree", err)
	}
	return nil
}

func (d *decoder) locate(archiveIndex uint16, offset, length int64) (io.ReaderAt, int64, error) {
	if archiveIndex == embeddedArchiveIndex {
		at := d.dataBase + offset
		if at+length > d.dirSize {
			return nil, 0, fmt.Errorf("data range %d+%d exceeds file size %d", at, length, d.dirSize)
		}
		return d.dir, at, nil
	}
	if d.chunks == nil {
		return nil, 0, fmt.Errorf("data stored in chunk %03d but no chunk files are available", archiveIndex)
	}
	src, chunkSize, err := d.chunks(archiveIndex)
	if err != nil {
		return nil, 0, err
	}
	if offset+length > chunkSize {
		return nil, 0, fmt.Errorf("data range %d+%d exceeds chunk %03d size %d", offset, length, archiveIndex, chunkSize)
	}
	return src, offset, nil
}

// readAtFull fills buf from r at off. An io.EOF that accompanies a complete
// read is not an error.
func readAtFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

type treeReader struct {
	buf []byte
	pos int
}

func (t *treeReader) cstring() (string, error) {
	i := bytes.IndexByte(t.buf[t.pos:], 0)
	if i < 0 {
		return "", corrupt("unterminated string in directory tree", io.ErrUnexpectedEOF)
	}
	s := string(t.buf[t.pos : t.pos+i])
	t.pos += i + 1
	return s, nil
}

func (t *treeReader) bytes(n int) ([]byte, error) {
	if t.pos+n > len(t.buf) {
		return nil, corrupt("directory tree truncated", io.ErrUnexpectedEOF)
	}
	b := t.buf[t.pos : t.pos+n]
	t.pos += n
	return b, nil
}

// chunkSet lazily opens the numbered data files that accompany a
// multi-file container.
type chunkSet struct {
	base  string
	files map[uint16]*os.File
	sizes map[uint16]int64
}

func newChunkSet(dirPath string) *chunkSet {
	dir := filepath.Dir(dirPath)
	stem := strings.TrimSuffix(filepath.Base(dirPath), filepath.Ext(dirPath))
	stem = strings.TrimSuffix(stem, "_dir")
	return &chunkSet{base: filepath.Join(dir, stem), files: make(map[uint16]*os.File), sizes: make(map[uint16]int64)}
}

func (c *chunkSet) open(index uint16) (io.ReaderAt, int64, error) {
	if f, ok := c.files[index]; ok {
		return f, c.sizes[index], nil
	}
	name := fmt.Sprintf("%s_%03d%s", c.base, index, Ext)
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open data chunk: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("failed to stat data chunk: %w", err)
	}
	c.files[index] = f
	c.sizes[index] = info.Size()
	return f, info.Size(), nil
}

func (c *chunkSet) Close() {
	for _, f := range c.files {
		_ = f.Close()
	}
}
