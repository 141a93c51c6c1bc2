package bagwalk

import (
	"errors"
	"testing"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/checksum"
)

func mustAlgo(t *testing.T, name string) checksum.Algorithm {
	t.Helper()
	a, err := checksum.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", name, err)
	}
	return a
}

func TestPayloadWalksAndDigests(t *testing.T) {
	fsys := bagfs.NewMemory()
	if err := fsys.WriteFile("data/a.txt", []byte("alpha")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := fsys.WriteFile("data/sub/b.txt", []byte("beta")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := fsys.WriteFile("bagit.txt", []byte("BagIt-Version: 0.97\n")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	algo := mustAlgo(t, "md5")

	sums, oxum, err := Payload(fsys, algo)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("expected 2 payload files, got %d: %#v", len(sums), sums)
	}
	if sums["a.txt"] != algo.SumBytes([]byte("alpha")) {
		t.Fatalf("a.txt digest mismatch: %q", sums["a.txt"])
	}
	if sums["sub/b.txt"] != algo.SumBytes([]byte("beta")) {
		t.Fatalf("sub/b.txt digest mismatch: %q", sums["sub/b.txt"])
	}
	if oxum.Bytes != 9 || oxum.Count != 2 {
		t.Fatalf("unexpected oxum %s", oxum)
	}
}

func TestPayloadWithoutDataDirIsEmpty(t *testing.T) {
	sums, oxum, err := Payload(bagfs.NewMemory(), mustAlgo(t, "md5"))
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if len(sums) != 0 || oxum.Bytes != 0 || oxum.Count != 0 {
		t.Fatalf("expected empty result, got %#v / %s", sums, oxum)
	}
}

func TestPayloadRejectsDataFile(t *testing.T) {
	fsys := bagfs.NewMemory()
	if err := fsys.WriteFile("data", []byte("not a directory")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, _, err := Payload(fsys, mustAlgo(t, "md5"))
	var ae *AccessError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AccessError, got %v", err)
	}
	if ae.Path != "data" {
		t.Fatalf("unexpected error path %q", ae.Path)
	}
}

func TestOxumString(t *testing.T) {
	o := Oxum{Bytes: 42, Count: 3}
	if o.String() != "42.3" {
		t.Fatalf("oxum rendered as %q", o.String())
	}
}

func TestTagSumsSkipsMissingFiles(t *testing.T) {
	fsys := bagfs.NewMemory()
	if err := fsys.WriteFile("bagit.txt", []byte("BagIt-Version: 0.97\n")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	algo := mustAlgo(t, "md5")
	want := map[string]string{"bagit.txt": "stale", "bag-info.txt": "stale"}

	sums, err := TagSums(fsys, algo, want)
	if err != nil {
		t.Fatalf("TagSums: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("expected only existing tag files, got %#v", sums)
	}
	if sums["bagit.txt"] != algo.SumBytes([]byte("BagIt-Version: 0.97\n")) {
		t.Fatalf("bagit.txt digest mismatch: %q", sums["bagit.txt"])
	}
}
