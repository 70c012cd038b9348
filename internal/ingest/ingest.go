// SPDX-License-Identifier: MPL-2.0

package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"maptools-cli/pkg/vpk"
)

const (
	extractDirName = "extract"
	contentDirName = "content"
)

type (
	// Result describes a completed ingestion.
	Result struct {
		// Kind is the detected kind of the original input.
		Kind Kind
		// ContentDir holds the decoded (and merged) container entries.
		ContentDir string
		// ExtractDir is the archive extraction scratch directory. Empty for
		// raw containers.
		ExtractDir string
		// Containers lists every decoded container in decode order.
		Containers []string
		// EffectiveInput is the single container when exactly one was found,
		// otherwise the original input.
		EffectiveInput string
		// BaseName is the stem used to name output packages.
		BaseName string
		// Overwritten lists entry paths replaced by a later container while merging.
		Overwritten []string
	}

	// Ingester stages inputs. It is stateless apart from its logger and may
	// be shared between jobs.
	Ingester struct {
		logger *log.Logger
	}
)

// New creates an Ingester. A nil logger discards all output.
func New(logger *log.Logger) *Ingester {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Ingester{logger: logger}
}

// Ingest stages input below stagingRoot. Archives are extracted into
// <stagingRoot>/extract and all containers are decoded into
// <stagingRoot>/content, one after the other.
func (i *Ingester) Ingest(ctx context.Context, input, stagingRoot string) (*Result, error) {
	kind, err := Detect(input)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Kind:           kind,
		ContentDir:     filepath.Join(stagingRoot, contentDirName),
		EffectiveInput: input,
	}

	if kind.IsArchive() {
		res.ExtractDir = filepath.Join(stagingRoot, extractDirName)
		i.logger.Info("extracting archive", "input", input, "kind", kind)
		if err := extractArchive(ctx, kind, input, res.ExtractDir); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", input, err)
		}
		res.Containers, err = FindContainers(res.ExtractDir)
		if err != nil {
			return nil, err
		}
		if len(res.Containers) == 0 {
			return nil, &NoContainerFoundError{Archive: input}
		}
	} else {
		res.Containers = []string{input}
	}

	if len(res.Containers) == 1 {
		res.EffectiveInput = res.Containers[0]
		res.BaseName = BaseName(res.EffectiveInput)
	} else {
		res.BaseName = BaseName(input)
		i.logger.Info("merging containers", "count", len(res.Containers))
	}

	if err := os.MkdirAll(res.ContentDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}
	res.Overwritten, err = i.merge(ctx, res.Containers, res.ContentDir)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// merge decodes containers into dest strictly in the given order, so a path
// present in several containers ends up with the bytes of the last one.
func (i *Ingester) merge(ctx context.Context, containers []string, dest string) ([]string, error) {
	seen := make(map[string]string)
	var overwritten []string

	for _, c := range containers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a, err := vpk.Open(c)
		if err != nil {
			return nil, err
		}
		for _, p := range a.Paths() {
			if prev, ok := seen[p]; ok {
				i.logger.Debug("entry overwritten while merging", "path", p, "previous", prev, "by", c)
				overwritten = append(overwritten, p)
			}
			seen[p] = c
		}
		if err := a.Extract(dest); err != nil {
			return nil, fmt.Errorf("failed to unpack %s: %w", c, err)
		}
		i.logger.Debug("container decoded", "path", c, "entries", a.Len())
	}
	return overwritten, nil
}
