// Package main provides the bag-diff CLI that compares an older bag's
// checksum manifests against the bag as it exists on disk today, prints
// an Added/Modified/Deleted report, and cuts a Change Bag: a new, valid
// bag whose payload holds exactly the added and modified files.
//
// Usage:
//
//	bag-diff -m <old-manifest-dir> [-o <output-path>] [-info <file>] [-diff] <bag_dir>
//
// The Change Bag can be ingested alongside the previously ingested bag
// to avoid duplicating unchanged content. Deleted files are report-only;
// they are not recorded in the Change Bag.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/bagit"
	"github.com/MetaArchive/bag-diff/internal/bagwalk"
	"github.com/MetaArchive/bag-diff/internal/changebag"
	"github.com/MetaArchive/bag-diff/internal/changeset"
	"github.com/MetaArchive/bag-diff/internal/checksum"
	"github.com/MetaArchive/bag-diff/internal/diff"
	"github.com/MetaArchive/bag-diff/internal/manifest"
	"github.com/MetaArchive/bag-diff/internal/report"
)

func main() {
	// ----- Flags & usage ------------------------------------------------------
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s -m <old-manifest-dir> [-o <output-path>] [-info <file>] [-diff] <bag_dir>\n",
			filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	manifestFlag := flag.String("m", "", "directory holding the old bag's manifest file(s) (required)")
	outFlag := flag.String("o", "", "output path for the change bag (default: <bag_dir>_changes<N>)")
	infoFlag := flag.String("info", "", "YAML file of extra bag-info fields for the change bag")
	diffFlag := flag.Bool("diff", false, "print a unified diff of the old and regenerated payload manifests")
	flag.Parse()

	if *manifestFlag == "" || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	bagPath, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	manifestDir, err := filepath.Abs(*manifestFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	if st, err := os.Stat(bagPath); err != nil || !st.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		fmt.Fprintln(os.Stderr, "ERROR:", &bagwalk.AccessError{Path: bagPath, Err: err})
		os.Exit(1)
	}
	if st, err := os.Stat(manifestDir); err != nil || !st.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		fmt.Fprintln(os.Stderr, "ERROR:", &manifest.ParseError{Path: manifestDir, Issues: []string{err.Error()}})
		os.Exit(1)
	}

	var info bagit.Info
	if *infoFlag != "" {
		info, err = bagit.LoadInfo(*infoFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(1)
		}
	}

	// ----- Old manifests ------------------------------------------------------
	oldSet, err := manifest.LoadDir(bagfs.NewOS(manifestDir), ".")
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	oldMan, ok := oldSet.PreferredPayload()
	if !ok {
		fmt.Fprintf(os.Stderr, "ERROR: no payload manifest (manifest-<algo>.txt) found in %s\n", manifestDir)
		os.Exit(1)
	}
	algo, err := checksum.Lookup(oldMan.Algorithm)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	// ----- Walk the bag as it is today ----------------------------------------
	bag := bagfs.NewOS(bagPath)
	facts, err := bagit.Probe(bag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	if !facts.Declared {
		fmt.Fprintf(os.Stderr, "WARNING: %s has no %s declaration; proceeding anyway.\n", bagPath, bagit.Declaration)
	}
	cur, _, err := bagwalk.Payload(bag, algo)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	// ----- Classify & report --------------------------------------------------
	ch := changeset.Build(oldMan.Entries, cur)
	p := &report.Printer{W: os.Stdout}
	p.Changes(ch)
	reportTagChanges(p, oldSet, bag, manifestDir)

	if *diffFlag {
		name := manifest.FileName(manifest.Payload, oldMan.Algorithm)
		body, err := diff.Unified(
			"old/"+name, "new/"+name,
			manifest.Render(manifest.Payload, oldMan.Entries),
			manifest.Render(manifest.Payload, cur),
			diff.Options{},
		)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR:", err)
			os.Exit(1)
		}
		p.ManifestDiff(body)
	}

	// ----- Cut the change bag -------------------------------------------------
	outPath, err := changebag.DeriveOutputPath(bagPath, *outFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	fmt.Println("Using output path:", outPath)

	if err := os.MkdirAll(outPath, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", &changebag.WriteError{Op: "create output directory", Path: outPath, Err: err})
		os.Exit(1)
	}
	outgoing := ch.Outgoing()
	err = changebag.Build(bag, bagfs.NewOS(outPath), outgoing, changebag.Options{
		Algorithm: algo,
		Info:      info,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote change bag %s (files=%d)\n", outPath, len(outgoing))
}

// reportTagChanges compares the bag's tag files against the old
// tagmanifest and prints informational notes. Tag files never enter the
// change classification or the change-bag payload.
func reportTagChanges(p *report.Printer, oldSet *manifest.Set, bag *bagfs.FS, manifestDir string) {
	tagMan, ok := oldSet.PreferredTag()
	if !ok {
		fmt.Fprintf(os.Stderr, "WARNING: no tagmanifest found in %s; tag files are not compared.\n", manifestDir)
		return
	}
	algo, err := checksum.Lookup(tagMan.Algorithm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v; tag files are not compared.\n", err)
		return
	}
	sums, err := bagwalk.TagSums(bag, algo, tagMan.Entries)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	tagCh := changeset.Build(tagMan.Entries, sums)
	p.TagChanges(tagCh.Modified, tagCh.Deleted)
}
