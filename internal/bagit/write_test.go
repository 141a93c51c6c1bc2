package bagit

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/checksum"
	"github.com/MetaArchive/bag-diff/internal/manifest"
)

func TestWriteBagProducesValidLayout(t *testing.T) {
	fsys := bagfs.NewMemory()
	if err := fsys.WriteFile("data/a.txt", []byte("alpha")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := fsys.WriteFile("data/sub/b.txt", []byte("beta")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := fsys.WriteFile("source-manifests/manifest-md5.txt", []byte("aabb  data/old.txt\n")); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	algo, err := checksum.Lookup("md5")
	if err != nil {
		t.Fatalf("Lookup md5: %v", err)
	}
	now := time.Date(2026, 3, 14, 15, 9, 2, 0, time.UTC)
	info := Info{Fields: []Field{{Label: "Source-Organization", Value: "Example Org"}}}

	if err := WriteBag(fsys, algo, info, now); err != nil {
		t.Fatalf("WriteBag: %v", err)
	}

	man, err := fsys.ReadFile("manifest-md5.txt")
	if err != nil {
		t.Fatalf("read payload manifest: %v", err)
	}
	wantMan := algo.SumBytes([]byte("alpha")) + "  data/a.txt\n" +
		algo.SumBytes([]byte("beta")) + "  data/sub/b.txt\n"
	if string(man) != wantMan {
		t.Fatalf("payload manifest mismatch:\n got: %q\nwant: %q", man, wantMan)
	}

	decl, err := fsys.ReadFile("bagit.txt")
	if err != nil {
		t.Fatalf("read declaration: %v", err)
	}
	if string(decl) != "BagIt-Version: 0.97\nTag-File-Character-Encoding: UTF-8\n" {
		t.Fatalf("declaration mismatch: %q", decl)
	}

	infoBody, err := fsys.ReadFile("bag-info.txt")
	if err != nil {
		t.Fatalf("read bag-info: %v", err)
	}
	wantInfo := "Source-Organization: Example Org\n" +
		"Bagging-Date: 2026-03-14\n" +
		"Payload-Oxum: 9.2\n" +
		"Bag-Software-Agent: " + SoftwareAgent + "\n"
	if string(infoBody) != wantInfo {
		t.Fatalf("bag-info mismatch:\n got: %q\nwant: %q", infoBody, wantInfo)
	}

	tagBody, err := fsys.ReadFile("tagmanifest-md5.txt")
	if err != nil {
		t.Fatalf("read tagmanifest: %v", err)
	}
	entries, err := manifest.Parse(manifest.Tag, "tagmanifest-md5.txt", bytes.NewReader(tagBody))
	if err != nil {
		t.Fatalf("parse tagmanifest: %v", err)
	}
	want := []string{"bag-info.txt", "bagit.txt", "manifest-md5.txt", "source-manifests/manifest-md5.txt"}
	if len(entries) != len(want) {
		t.Fatalf("tagmanifest coverage: %#v", entries)
	}
	for _, p := range want {
		if _, ok := entries[p]; !ok {
			t.Fatalf("tagmanifest missing %s: %#v", p, entries)
		}
	}
	if entries["bagit.txt"] != algo.SumBytes(decl) {
		t.Fatalf("declaration digest mismatch: %q", entries["bagit.txt"])
	}
}

func TestWriteBagEmptyPayload(t *testing.T) {
	fsys := bagfs.NewMemory()
	algo, err := checksum.Lookup("md5")
	if err != nil {
		t.Fatalf("Lookup md5: %v", err)
	}
	if err := WriteBag(fsys, algo, Info{}, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteBag: %v", err)
	}
	man, err := fsys.ReadFile("manifest-md5.txt")
	if err != nil {
		t.Fatalf("read payload manifest: %v", err)
	}
	if len(man) != 0 {
		t.Fatalf("empty payload should render an empty manifest, got %q", man)
	}
	infoBody, err := fsys.ReadFile("bag-info.txt")
	if err != nil {
		t.Fatalf("read bag-info: %v", err)
	}
	if !strings.Contains(string(infoBody), "Payload-Oxum: 0.0\n") {
		t.Fatalf("oxum of empty payload: %q", infoBody)
	}
	tagBody, err := fsys.ReadFile("tagmanifest-md5.txt")
	if err != nil {
		t.Fatalf("read tagmanifest: %v", err)
	}
	entries, err := manifest.Parse(manifest.Tag, "tagmanifest-md5.txt", bytes.NewReader(tagBody))
	if err != nil {
		t.Fatalf("parse tagmanifest: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("tagmanifest should cover the three tag files, got %#v", entries)
	}
}

func TestWriteFoldedWrapsLongValues(t *testing.T) {
	var b bytes.Buffer
	value := strings.TrimSpace(strings.Repeat("word ", 40))
	writeFolded(&b, "External-Description", value)
	out := b.String()

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected folding: %q", out)
	}
	for _, ln := range lines {
		if len(ln) > 79 {
			t.Fatalf("line exceeds 79 columns: %q", ln)
		}
	}
	for _, ln := range lines[1:] {
		if !strings.HasPrefix(ln, "    ") || strings.HasPrefix(ln, "     ") {
			t.Fatalf("continuation indent: %q", ln)
		}
	}
	unfolded := strings.ReplaceAll(out, "\n    ", " ")
	if unfolded != "External-Description: "+value+"\n" {
		t.Fatalf("unfolded mismatch: %q", unfolded)
	}
}

func TestWriteFoldedShortValue(t *testing.T) {
	var b bytes.Buffer
	writeFolded(&b, "Contact-Name", "Jane Doe")
	if b.String() != "Contact-Name: Jane Doe\n" {
		t.Fatalf("short value folded: %q", b.String())
	}
}
