// Package bagit holds the bag layout knowledge: the declaration and
// tag-file formats, bag-info metadata, and the finalizer that turns a
// payload directory into a valid bag.
package bagit

import (
	"sort"
	"strings"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/manifest"
)

const (
	// Declaration is the bag declaration file every bag starts with.
	Declaration = "bagit.txt"
	// InfoFile carries the bag's descriptive metadata.
	InfoFile = "bag-info.txt"

	// Version and Encoding are written into new declarations.
	Version  = "0.97"
	Encoding = "UTF-8"

	// SoftwareAgent identifies the producer in bag-info.txt.
	SoftwareAgent = "bag-diff <https://github.com/MetaArchive/bag-diff>"
)

// Facts describes what a probe found in an existing bag directory.
type Facts struct {
	Declared     bool
	Version      string
	Encoding     string
	PayloadAlgos []string
	TagAlgos     []string
}

// Probe inspects the bag rooted at fsys without validating it. It
// reports the declaration, if any, and the manifest and tagmanifest
// algorithms present at the bag root.
func Probe(fsys *bagfs.FS) (Facts, error) {
	var f Facts
	if data, err := fsys.ReadFile(Declaration); err == nil {
		f.Declared = true
		f.Version, f.Encoding = parseDeclaration(data)
	}
	infos, err := fsys.ReadDir(".")
	if err != nil {
		return Facts{}, err
	}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		kind, algo, ok := manifest.ParseName(info.Name())
		if !ok {
			continue
		}
		if kind == manifest.Tag {
			f.TagAlgos = append(f.TagAlgos, algo)
		} else {
			f.PayloadAlgos = append(f.PayloadAlgos, algo)
		}
	}
	sort.Strings(f.PayloadAlgos)
	sort.Strings(f.TagAlgos)
	return f, nil
}

func parseDeclaration(data []byte) (version, encoding string) {
	for _, ln := range strings.Split(string(data), "\n") {
		label, value, ok := strings.Cut(ln, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(label) {
		case "BagIt-Version":
			version = strings.TrimSpace(value)
		case "Tag-File-Character-Encoding":
			encoding = strings.TrimSpace(value)
		}
	}
	return version, encoding
}

func declaration() []byte {
	return []byte("BagIt-Version: " + Version + "\nTag-File-Character-Encoding: " + Encoding + "\n")
}
