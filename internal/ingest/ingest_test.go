// SPDX-License-Identifier: MPL-2.0

package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"maptools-cli/internal/testutil"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := testutil.BuildVPK(t, filepath.Join(dir, "raw.bin"), map[string][]byte{"a.txt": []byte("a")})
	zipped := testutil.BuildZip(t, filepath.Join(dir, "misnamed.rar"), map[string][]byte{"a.txt": []byte("a")})
	seven := testutil.WriteFile(t, dir, "sig.dat", []byte("7z\xBC\xAF\x27\x1C\x00\x04rest"))
	rar := testutil.WriteFile(t, dir, "sig2.dat", []byte("Rar!\x1A\x07\x01\x00"))
	byExt := testutil.WriteFile(t, dir, "empty.7Z", nil)
	unknown := testutil.WriteFile(t, dir, "notes.txt", []byte("hello"))

	tests := []struct {
		name    string
		path    string
		want    Kind
		wantErr bool
	}{
		{name: "vpk signature wins over extension", path: raw, want: KindRaw},
		{name: "zip signature wins over extension", path: zipped, want: KindZip},
		{name: "7z signature", path: seven, want: KindSevenZip},
		{name: "rar signature", path: rar, want: KindRar},
		{name: "extension fallback is case-insensitive", path: byExt, want: KindSevenZip},
		{name: "unknown input", path: unknown, wantErr: true},
		{name: "directory", path: dir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Detect(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInputFormat) {
					t.Fatalf("Detect() error = %v, want ErrInputFormat", err)
				}
				var ife *InputFormatError
				if !errors.As(err, &ife) {
					t.Fatalf("Detect() error is %T, want *InputFormatError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect() = %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIngest_RawContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := testutil.BuildVPK(t, filepath.Join(dir, "campaign_dir.vpk"), map[string][]byte{
		"maps/c1m1.bsp": testutil.LevelWithDictionary(),
		"addoninfo.txt": []byte("info"),
	})

	res, err := New(nil).Ingest(t.Context(), input, filepath.Join(dir, "stage"))
	if err != nil {
		t.Fatalf("Ingest() = %v", err)
	}
	if res.Kind != KindRaw {
		t.Errorf("Kind = %v, want vpk", res.Kind)
	}
	if res.BaseName != "campaign" {
		t.Errorf("BaseName = %q, want %q", res.BaseName, "campaign")
	}
	if res.EffectiveInput != input {
		t.Errorf("EffectiveInput = %q, want %q", res.EffectiveInput, input)
	}
	got := testutil.ReadTree(t, res.ContentDir)
	if string(got["addoninfo.txt"]) != "info" || len(got) != 2 {
		t.Errorf("content tree = %v", got)
	}
}

func TestIngest_ZipSingleContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inner := testutil.BuildVPK(t, filepath.Join(dir, "src", "mymap.vpk"), map[string][]byte{
		"maps/mymap.bsp": testutil.LevelWithoutDictionary(),
	})
	data, err := os.ReadFile(inner)
	if err != nil {
		t.Fatal(err)
	}
	archive := testutil.BuildZip(t, filepath.Join(dir, "download.zip"), map[string][]byte{
		"nested/mymap.vpk": data,
		"readme.txt":       []byte("install me"),
	})

	stage := filepath.Join(dir, "stage")
	res, err := New(nil).Ingest(t.Context(), archive, stage)
	if err != nil {
		t.Fatalf("Ingest() = %v", err)
	}
	if res.Kind != KindZip {
		t.Errorf("Kind = %v, want zip", res.Kind)
	}
	if len(res.Containers) != 1 {
		t.Fatalf("Containers = %v, want 1", res.Containers)
	}
	if want := filepath.Join(stage, "extract", "nested", "mymap.vpk"); res.EffectiveInput != want {
		t.Errorf("EffectiveInput = %q, want %q", res.EffectiveInput, want)
	}
	if res.BaseName != "mymap" {
		t.Errorf("BaseName = %q, want mymap", res.BaseName)
	}
	if _, ok := testutil.ReadTree(t, res.ContentDir)["maps/mymap.bsp"]; !ok {
		t.Error("maps/mymap.bsp missing from content tree")
	}
}

func TestIngest_MergeLastWriterWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c1 := testutil.BuildVPK(t, filepath.Join(dir, "src", "c1.vpk"), map[string][]byte{
		"shared/p.txt": []byte("from c1"),
		"only/c1.txt":  []byte("one"),
	})
	c2 := testutil.BuildVPK(t, filepath.Join(dir, "src", "c2.vpk"), map[string][]byte{
		"shared/p.txt": []byte("from c2"),
		"only/c2.txt":  []byte("two"),
	})
	b1, _ := os.ReadFile(c1)
	b2, _ := os.ReadFile(c2)
	archive := testutil.BuildZip(t, filepath.Join(dir, "bundle.zip"), map[string][]byte{
		"a/c1.vpk": b1,
		"b/c2.vpk": b2,
	})

	res, err := New(nil).Ingest(t.Context(), archive, filepath.Join(dir, "stage"))
	if err != nil {
		t.Fatalf("Ingest() = %v", err)
	}
	if len(res.Containers) != 2 {
		t.Fatalf("Containers = %v, want 2", res.Containers)
	}
	if res.BaseName != "bundle" {
		t.Errorf("BaseName = %q, want bundle", res.BaseName)
	}
	if res.EffectiveInput != archive {
		t.Errorf("EffectiveInput = %q, want the archive", res.EffectiveInput)
	}

	got := testutil.ReadTree(t, res.ContentDir)
	if string(got["shared/p.txt"]) != "from c2" {
		t.Errorf("shared/p.txt = %q, want bytes of the later container", got["shared/p.txt"])
	}
	if len(got) != 3 {
		t.Errorf("merged tree has %d files, want 3", len(got))
	}
	if len(res.Overwritten) != 1 || res.Overwritten[0] != "shared/p.txt" {
		t.Errorf("Overwritten = %v, want [shared/p.txt]", res.Overwritten)
	}
}

func TestIngest_NoContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := testutil.BuildZip(t, filepath.Join(dir, "empty.zip"), map[string][]byte{
		"readme.txt": []byte("nothing to see"),
	})

	_, err := New(nil).Ingest(t.Context(), archive, filepath.Join(dir, "stage"))
	if !errors.Is(err, ErrNoContainerFound) || !errors.Is(err, ErrInputFormat) {
		t.Fatalf("Ingest() = %v, want ErrNoContainerFound and ErrInputFormat", err)
	}
}

func TestIngest_ZipSlipRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := testutil.BuildZip(t, filepath.Join(dir, "evil.zip"), map[string][]byte{
		"../../escape.vpk": []byte("x"),
	})

	if _, err := New(nil).Ingest(t.Context(), archive, filepath.Join(dir, "stage")); err == nil {
		t.Fatal("Ingest() accepted a member escaping the extraction directory")
	}
	if testutil.Exists(filepath.Join(dir, "escape.vpk")) {
		t.Error("escaping member was written")
	}
}

func TestFindContainers_SkipsChunks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string][]byte{
		"pak01_dir.vpk": nil,
		"pak01_000.vpk": nil,
		"pak01_001.vpk": nil,
		"other_000.vpk": nil,
		"sub/UPPER.VPK": nil,
		"sub/notes.txt": nil,
	})

	got, err := FindContainers(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "other_000.vpk"),
		filepath.Join(root, "pak01_dir.vpk"),
		filepath.Join(root, "sub", "UPPER.VPK"),
	}
	if len(got) != len(want) {
		t.Fatalf("FindContainers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindContainers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBaseName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/x/mymap.vpk":     "mymap",
		"/x/pak01_dir.vpk": "pak01",
		"/x/_dir.vpk":      "_dir",
		"/x/bundle.zip":    "bundle",
		"/x/My Map.VPK":    "My Map",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}
