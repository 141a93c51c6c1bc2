package bagit

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/bagwalk"
	"github.com/MetaArchive/bag-diff/internal/checksum"
	"github.com/MetaArchive/bag-diff/internal/manifest"
)

// WriteBag finalizes the directory rooted at fsys into a valid bag. The
// directory holds the data/ payload (possibly empty) and any extra tag
// entries; WriteBag digests the payload, writes the payload manifest,
// the declaration and bag-info.txt, then a tagmanifest covering every
// tag file. Tag files are written atomically. An empty payload is
// valid: the manifest comes out empty and Payload-Oxum is 0.0.
func WriteBag(fsys *bagfs.FS, algo checksum.Algorithm, info Info, now time.Time) error {
	payload, oxum, err := bagwalk.Payload(fsys, algo)
	if err != nil {
		return fmt.Errorf("digest payload: %w", err)
	}
	manifestName := manifest.FileName(manifest.Payload, algo.Name)
	if err := fsys.WriteFileAtomic(manifestName, manifest.Render(manifest.Payload, payload)); err != nil {
		return fmt.Errorf("write %s: %w", manifestName, err)
	}
	if err := fsys.WriteFileAtomic(Declaration, declaration()); err != nil {
		return fmt.Errorf("write %s: %w", Declaration, err)
	}
	if err := fsys.WriteFileAtomic(InfoFile, renderInfo(info, oxum, now)); err != nil {
		return fmt.Errorf("write %s: %w", InfoFile, err)
	}
	tags, err := digestTags(fsys, algo)
	if err != nil {
		return fmt.Errorf("digest tag files: %w", err)
	}
	tagName := manifest.FileName(manifest.Tag, algo.Name)
	if err := fsys.WriteFileAtomic(tagName, manifest.Render(manifest.Tag, tags)); err != nil {
		return fmt.Errorf("write %s: %w", tagName, err)
	}
	return nil
}

// digestTags hashes every file outside data/, including nested tag
// directories. Tagmanifests at the bag root are excluded: they cannot
// cover themselves.
func digestTags(fsys *bagfs.FS, algo checksum.Algorithm) (map[string]string, error) {
	tags := make(map[string]string)
	var walk func(dir string) error
	walk = func(dir string) error {
		infos, err := fsys.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, info := range infos {
			rel := path.Join(dir, info.Name())
			if info.IsDir() {
				if rel == manifest.PayloadDir {
					continue
				}
				if err := walk(rel); err != nil {
					return err
				}
				continue
			}
			if kind, _, ok := manifest.ParseName(info.Name()); ok && kind == manifest.Tag && dir == "." {
				continue
			}
			sum, err := algo.SumFile(fsys, rel)
			if err != nil {
				return fmt.Errorf("digest %s: %w", rel, err)
			}
			tags[rel] = sum
		}
		return nil
	}
	if err := walk("."); err != nil {
		return nil, err
	}
	return tags, nil
}

func renderInfo(info Info, oxum bagwalk.Oxum, now time.Time) []byte {
	fields := append([]Field(nil), info.Fields...)
	fields = append(fields,
		Field{Label: "Bagging-Date", Value: now.UTC().Format("2006-01-02")},
		Field{Label: "Payload-Oxum", Value: oxum.String()},
		Field{Label: "Bag-Software-Agent", Value: SoftwareAgent},
	)
	var b bytes.Buffer
	for _, f := range fields {
		writeFolded(&b, f.Label, f.Value)
	}
	return b.Bytes()
}

// writeFolded writes "Label: value", folding long values onto
// space-indented continuation lines per the bag tag-file rules.
func writeFolded(b *bytes.Buffer, label, value string) {
	const width = 79
	head := label + ": "
	words := strings.Fields(value)
	if len(words) == 0 {
		b.WriteString(head + "\n")
		return
	}
	b.WriteString(head)
	col := len(head)
	for i, w := range words {
		if i > 0 {
			if col+1+len(w) > width {
				b.WriteString("\n    ")
				col = 4
			} else {
				b.WriteByte(' ')
				col++
			}
		}
		b.WriteString(w)
		col += len(w)
	}
	b.WriteByte('\n')
}
