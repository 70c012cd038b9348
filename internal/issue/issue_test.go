// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_OrderedAndComplete(t *testing.T) {
	t.Parallel()

	vals := Values()
	if len(vals) != int(PermissionDeniedId) {
		t.Fatalf("Values() has %d issues, want %d", len(vals), PermissionDeniedId)
	}
	for i, v := range vals {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
		if strings.TrimSpace(string(v.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", v.Id())
		}
		if Get(v.Id()) != v {
			t.Errorf("Get(%d) mismatch", v.Id())
		}
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	i := Get(ArchiverNotFoundId)
	links := i.ExtLinks()
	if len(links) == 0 {
		t.Fatal("ExtLinks() is empty")
	}
	links[0] = "mutated"
	if i.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks() exposes internal state")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(MissingEngineId).Render("notty")
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if !strings.Contains(out, "Game executable not configured") {
		t.Errorf("Render() = %q", out)
	}

	out, err = Get(ArchiverNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if !strings.Contains(out, "See also") || !strings.Contains(out, "7-zip.org") {
		t.Errorf("Render() lacks the links section: %q", out)
	}
}
