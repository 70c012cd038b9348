// SPDX-License-Identifier: MPL-2.0

// Package packager wraps a finished VPK container into its distribution
// format. Zip archives are written in-process; 7z and rar archives are
// produced by the external 7-Zip and WinRAR command-line tools, since no Go
// writer exists for either format.
package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"maptools-cli/internal/fsutil"
	"maptools-cli/pkg/platform"
	"maptools-cli/pkg/types"
)

// ErrToolNotFound is returned when the archiver for a format is not on PATH.
var ErrToolNotFound = errors.New("archiver not found")

var (
	sevenZipTools = []string{"7z", "7zz", "7za"}
	rarTools      = []string{"rar"}
)

type (
	// Option configures a Packager.
	Option func(*Packager)

	// Packager compresses containers.
	Packager struct {
		logger   *log.Logger
		remover  *fsutil.Remover
		lookPath func(string) (string, error)
		run      func(ctx context.Context, dir string, argv []string) ([]byte, error)
	}
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Packager) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRemover sets the remover used to delete the source container.
func WithRemover(r *fsutil.Remover) Option {
	return func(p *Packager) {
		if r != nil {
			p.remover = r
		}
	}
}

// New creates a Packager.
func New(opts ...Option) *Packager {
	p := &Packager{
		logger:   log.New(io.Discard),
		remover:  fsutil.NewRemover(0, 0),
		lookPath: exec.LookPath,
		run:      runTool,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// WrapperPath returns the path of the wrapper Compress produces for
// container in format.
func WrapperPath(container string, format types.OutputFormat) string {
	if !format.IsArchive() {
		return container
	}
	return strings.TrimSuffix(container, filepath.Ext(container)) + format.Ext()
}

// Compress wraps container in format and removes the container once the
// wrapper is complete. For types.FormatVPK the container path is returned
// unchanged. On failure no wrapper is left behind and the container is kept.
func (p *Packager) Compress(ctx context.Context, container string, format types.OutputFormat) (string, error) {
	if err := format.Validate(); err != nil {
		return "", err
	}
	if !format.IsArchive() {
		return container, nil
	}

	dest := WrapperPath(container, format)
	var err error
	switch format {
	case types.FormatZip:
		err = writeZip(container, dest)
	case types.FormatSevenZip:
		err = p.external(ctx, sevenZipTools, container, dest, func(out, in string) []string {
			return []string{"a", "-t7z", "-y", out, in}
		})
	case types.FormatRar:
		err = p.external(ctx, rarTools, container, dest, func(out, in string) []string {
			return []string{"a", "-ep", "-y", "-idq", out, in}
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Base(dest), err)
	}

	if err := p.remover.Remove(container); err != nil {
		p.logger.Warn("failed to remove uncompressed container", "path", container, "error", err)
	}
	p.logger.Debug("container compressed", "path", dest, "format", format)
	return dest, nil
}

func writeZip(container, dest string) error {
	info, err := os.Stat(container)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(dest, 0o644, func(w io.Writer) error {
		in, err := os.Open(container)
		if err != nil {
			return err
		}
		defer in.Close()

		zw := zip.NewWriter(w)
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.Base(container)
		header.Method = zip.Deflate

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if _, err := io.Copy(fw, in); err != nil {
			return err
		}
		return zw.Close()
	})
}

// external runs the first available tool of candidates. The tool writes to a
// .partial sibling which is renamed over dest only after a clean exit.
func (p *Packager) external(ctx context.Context, candidates []string, container, dest string, args func(out, in string) []string) error {
	tool, err := p.findTool(candidates)
	if err != nil {
		return err
	}

	partial := dest + ".partial"
	_ = os.Remove(partial)
	argv := append([]string{tool}, args(filepath.Base(partial), filepath.Base(container))...)

	out, err := p.run(ctx, filepath.Dir(container), argv)
	if err != nil {
		_ = os.Remove(partial)
		if len(out) > 0 {
			p.logger.Debug("archiver output", "tool", tool, "output", string(out))
		}
		return fmt.Errorf("%s: %w", filepath.Base(tool), err)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return err
	}
	return nil
}

func (p *Packager) findTool(candidates []string) (string, error) {
	for _, c := range candidates {
		if path, err := p.lookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: install one of %s", ErrToolNotFound, strings.Join(candidates, ", "))
}

func runTool(ctx context.Context, dir string, argv []string) ([]byte, error) {
	argv = platform.HostCommand(argv)
	//nolint:gosec // G204: archiver resolved from PATH
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}
