// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// StubEngine stands in for the game executable. When run it locates the
// working copy named by "+map" under <dir(exe)>/<GameDir>/maps and rewrites
// it, growing it by Grow bytes. A zero Grow rewrites the file at its
// original length, which the builder must treat as a failed rebuild.
type StubEngine struct {
	GameDir string
	Grow    int
	// Err, when set, is returned instead of touching the working copy.
	Err error

	mu    sync.Mutex
	calls [][]string
}

// Run implements the engine runner contract.
func (s *StubEngine) Run(ctx context.Context, argv []string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, slices.Clone(argv))
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	i := slices.Index(argv, "+map")
	if i < 0 || i+1 >= len(argv) || len(argv) == 0 {
		return nil, errors.New("stub engine: no +map argument")
	}
	gameDir := s.GameDir
	if gameDir == "" {
		gameDir = "left4dead2"
	}
	working := filepath.Join(filepath.Dir(argv[0]), gameDir, "maps", argv[i+1]+".bsp")

	data, err := os.ReadFile(working)
	if err != nil {
		return nil, err
	}
	rebuilt := make([]byte, len(data)+s.Grow)
	copy(rebuilt, data)
	for j := len(data); j < len(rebuilt); j++ {
		rebuilt[j] = 'R'
	}
	if err := os.WriteFile(working, rebuilt, 0o644); err != nil {
		return nil, err
	}
	return []byte("stub engine: rebuilt " + argv[i+1] + "\n"), nil
}

// Calls returns a copy of every argv the stub was run with.
func (s *StubEngine) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = slices.Clone(c)
	}
	return out
}
