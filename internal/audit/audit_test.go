// SPDX-License-Identifier: MPL-2.0

package audit

import (
	"path/filepath"
	"testing"

	"maptools-cli/internal/testutil"
)

func TestHasDictionary(t *testing.T) {
	t.Parallel()

	padding := []byte("VBSP\x00\x01binary-lump-data")

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "marker at offset 0", data: append(append([]byte{}, Marker...), padding...), want: true},
		{name: "marker ends at final byte", data: append(append([]byte{}, padding...), Marker...), want: true},
		{name: "marker absent", data: padding, want: false},
		{name: "truncated marker", data: append(append([]byte{}, padding...), Marker[:len(Marker)-1]...), want: false},
		{name: "empty", data: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := HasDictionary(tt.data); got != tt.want {
				t.Errorf("HasDictionary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"maps/c1m1_good.bsp":    testutil.LevelWithDictionary(),
		"maps/sub/c1m2_bad.BSP": testutil.LevelWithoutDictionary(),
		"maps/c1m1_good.nav":    []byte("not a level"),
		"materials/fake.bsp":    testutil.LevelWithoutDictionary(),
	})

	r, err := Scan(t.Context(), root)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	if r.MapsDirMissing {
		t.Error("MapsDirMissing = true, want false")
	}
	if len(r.Assets) != 2 {
		t.Fatalf("found %d assets, want 2: %+v", len(r.Assets), r.Assets)
	}

	deficient := r.Deficient()
	if len(deficient) != 1 {
		t.Fatalf("Deficient() = %+v, want exactly one", deficient)
	}
	d := deficient[0]
	if d.Name != "c1m2_bad" {
		t.Errorf("Name = %q, want c1m2_bad", d.Name)
	}
	if d.Path != filepath.Join(root, "maps", "sub", "c1m2_bad.BSP") {
		t.Errorf("Path = %q", d.Path)
	}
	if d.Size != int64(len(testutil.LevelWithoutDictionary())) {
		t.Errorf("Size = %d", d.Size)
	}
}

func TestScan_MissingMapsDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "materials/x.vmt", []byte("vmt"))

	r, err := Scan(t.Context(), root)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	if !r.MapsDirMissing {
		t.Error("MapsDirMissing = false, want true")
	}
	if len(r.Assets) != 0 {
		t.Errorf("Assets = %+v, want none", r.Assets)
	}
}
