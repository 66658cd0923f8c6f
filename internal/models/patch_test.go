package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPatchSetKeepsEnumerationOrder(t *testing.T) {
	set := NewPatchSet()
	for _, name := range []string{"c.png", "a.png", "b.png"} {
		set.Add(&Patch{Name: name, Side: 4})
	}

	if diff := cmp.Diff([]string{"c.png", "a.png", "b.png"}, set.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if set.Len() != 3 {
		t.Errorf("Expected 3 patches, got %d", set.Len())
	}
}

func TestPatchSetDuplicateNameLastWriteWins(t *testing.T) {
	set := NewPatchSet()
	set.Add(&Patch{Name: "a.png", Path: "/one/a.png"})
	set.Add(&Patch{Name: "b.png", Path: "/one/b.png"})

	if replaced := set.Add(&Patch{Name: "a.png", Path: "/two/a.png"}); !replaced {
		t.Error("Expected duplicate name to report a replacement")
	}

	if set.Len() != 2 {
		t.Errorf("Expected 2 patches after duplicate, got %d", set.Len())
	}
	if got := set.Get("a.png").Path; got != "/two/a.png" {
		t.Errorf("Expected last write to win, got %s", got)
	}
	if diff := cmp.Diff([]string{"a.png", "b.png"}, set.Names()); diff != "" {
		t.Errorf("Duplicate changed order (-want +got):\n%s", diff)
	}
}

func TestPatchSetNamesIsACopy(t *testing.T) {
	set := NewPatchSet()
	set.Add(&Patch{Name: "a.png"})

	names := set.Names()
	names[0] = "mutated"

	if set.Get("a.png") == nil || set.Names()[0] != "a.png" {
		t.Error("Mutating Names() result must not affect the set")
	}
}
