package report

import (
	"bytes"
	"testing"

	"github.com/MetaArchive/bag-diff/internal/changeset"
)

func TestChangesReport(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{W: &buf}
	p.Changes(changeset.Changes{
		Added:     []string{"c.txt"},
		Modified:  []string{"b.txt", "sub/d.txt"},
		Unchanged: 3,
	})
	want := "Added: 1 file(s)\n" +
		"  c.txt\n" +
		"Modified: 2 file(s)\n" +
		"  b.txt\n" +
		"  sub/d.txt\n" +
		"Deleted: 0 file(s)\n" +
		"  (none)\n" +
		"Unchanged: 3 file(s)\n"
	if buf.String() != want {
		t.Fatalf("report mismatch:\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestTagChangesReport(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{W: &buf}

	p.TagChanges(nil, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected silence when no tag changed, got %q", buf.String())
	}

	p.TagChanges([]string{"bag-info.txt"}, []string{"bagit.txt"})
	want := "Tag files changed:\n" +
		"  bag-info.txt (modified)\n" +
		"  bagit.txt (missing)\n"
	if buf.String() != want {
		t.Fatalf("tag report mismatch:\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestManifestDiff(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{W: &buf}

	p.ManifestDiff("")
	if buf.Len() != 0 {
		t.Fatalf("empty diff should print nothing, got %q", buf.String())
	}

	p.ManifestDiff("--- a\n+++ b\n@@ -1 +1 @@\n-x\n+y\n")
	if buf.String() != "--- a\n+++ b\n@@ -1 +1 @@\n-x\n+y\n" {
		t.Fatalf("diff body altered: %q", buf.String())
	}

	buf.Reset()
	p.ManifestDiff("no trailing newline")
	if buf.String() != "no trailing newline\n" {
		t.Fatalf("missing newline not repaired: %q", buf.String())
	}
}
