// SPDX-License-Identifier: MPL-2.0

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/nwaples/rardecode/v2"

	"maptools-cli/pkg/vpk"
)

// extractArchive unpacks the archive at src into dest according to kind.
func extractArchive(ctx context.Context, kind Kind, src, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	switch kind {
	case KindZip:
		return extractZip(ctx, src, dest)
	case KindSevenZip:
		return extractSevenZip(ctx, src, dest)
	case KindRar:
		return extractRar(ctx, src, dest)
	default:
		return &InputFormatError{Path: src, Reason: fmt.Sprintf("%s is not an archive", kind)}
	}
}

func extractZip(ctx context.Context, src, dest string) (err error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeMember(dest, f.Name, f.FileInfo().IsDir(), f.Open); err != nil {
			return err
		}
	}
	return nil
}

func extractSevenZip(ctx context.Context, src, dest string) (err error) {
	zr, err := sevenzip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeMember(dest, f.Name, f.FileInfo().IsDir(), f.Open); err != nil {
			return err
		}
	}
	return nil
}

func extractRar(ctx context.Context, src, dest string) (err error) {
	rr, err := rardecode.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open rar archive: %w", err)
	}
	defer func() {
		if closeErr := rr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, nextErr := rr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("failed to read rar archive: %w", nextErr)
		}
		open := func() (io.ReadCloser, error) { return io.NopCloser(rr), nil }
		if err := writeMember(dest, h.Name, h.IsDir, open); err != nil {
			return err
		}
	}
}

// writeMember materializes one archive member below dest. Member names that
// would land outside dest are rejected.
func writeMember(dest, name string, isDir bool, open func() (io.ReadCloser, error)) (err error) {
	name = strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if name == "" {
		return nil
	}
	target, err := vpk.SecureJoin(dest, name)
	if err != nil {
		return fmt.Errorf("invalid path in archive: %w", err)
	}

	if isDir {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	rc, err := open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archives come from the local user; size is bounded by the filesystem
	if _, err = io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", name, err)
	}
	return nil
}
