// Package manifest reads and renders BagIt checksum manifests. A
// manifest line is "<checksum><whitespace><relative-path>"; payload
// manifests name files under data/, tagmanifests name the bag's tag
// files. Parsed payload entries are rekeyed relative to data/ so they
// compare directly against walked payload paths.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/checksum"
	"github.com/MetaArchive/bag-diff/internal/sortutil"
)

// PayloadDir is the directory payload manifest entries point into.
const PayloadDir = "data"

// Kind distinguishes payload manifests from tagmanifests.
type Kind string

const (
	Payload Kind = "manifest"
	Tag     Kind = "tagmanifest"
)

// Manifest holds the parsed entries of one manifest file. Payload
// manifests are keyed by payload-relative path, tagmanifests by
// bag-relative path.
type Manifest struct {
	Kind      Kind
	Algorithm string
	Path      string
	Entries   map[string]string
}

// Set groups the manifests found in one directory by kind and algorithm.
type Set struct {
	Dir      string
	Payloads map[string]*Manifest
	Tags     map[string]*Manifest
}

var reName = regexp.MustCompile(`^(tag)?manifest-([a-z0-9]+)\.txt$`)

// ParseName splits a manifest filename into kind and algorithm.
func ParseName(name string) (Kind, string, bool) {
	m := reName.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	if m[1] == "tag" {
		return Tag, m[2], true
	}
	return Payload, m[2], true
}

// FileName renders the manifest filename for a kind and algorithm.
func FileName(kind Kind, algo string) string {
	return string(kind) + "-" + algo + ".txt"
}

// ParseError reports the malformed lines of a manifest file.
type ParseError struct {
	Path   string
	Issues []string
}

func (e *ParseError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("parse %s: %s", e.Path, e.Issues[0])
	}
	return fmt.Sprintf("parse %s:\n  %s", e.Path, strings.Join(e.Issues, "\n  "))
}

// Parse reads manifest lines from r. Blank lines and '#' comments are
// skipped; every other line must be a checksum and a path separated by
// whitespace. A leading '*' on the path (the binary-mode marker some
// checksum tools emit) is dropped. All malformed lines are collected
// into a single ParseError.
func Parse(kind Kind, name string, r io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	entries := make(map[string]string)
	var errs errlist
	for i, line := range strings.Split(string(normalizeLF(data)), "\n") {
		lineNo := i + 1
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sum, rel, ok := splitEntry(line)
		if !ok {
			errs.add("line %d: want \"<checksum> <path>\", got %q", lineNo, line)
			continue
		}
		sum = strings.ToLower(sum)
		if !isHex(sum) {
			errs.add("line %d: malformed checksum %q", lineNo, sum)
			continue
		}
		rel, err := bagfs.CleanRel(strings.TrimLeft(rel, "*"))
		if err != nil {
			errs.add("line %d: %v", lineNo, err)
			continue
		}
		if kind == Payload {
			inner, ok := strings.CutPrefix(rel, PayloadDir+"/")
			if !ok {
				errs.add("line %d: payload entry %q is outside %s/", lineNo, rel, PayloadDir)
				continue
			}
			rel = inner
		}
		if prev, dup := entries[rel]; dup {
			errs.add("line %d: duplicate entry for %q (checksums %s and %s)", lineNo, rel, prev, sum)
			continue
		}
		entries[rel] = sum
	}
	if err := errs.err(name); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadDir parses every manifest-*.txt and tagmanifest-*.txt in dir.
// Filenames that do not match the manifest grammar are ignored.
func LoadDir(fsys *bagfs.FS, dir string) (*Set, error) {
	infos, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, &ParseError{Path: dir, Issues: []string{err.Error()}}
	}
	set := &Set{Dir: dir, Payloads: map[string]*Manifest{}, Tags: map[string]*Manifest{}}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		kind, algo, ok := ParseName(info.Name())
		if !ok {
			continue
		}
		full := path.Join(dir, info.Name())
		f, err := fsys.Open(full)
		if err != nil {
			return nil, fmt.Errorf("open manifest %s: %w", full, err)
		}
		entries, perr := Parse(kind, full, f)
		_ = f.Close()
		if perr != nil {
			return nil, perr
		}
		m := &Manifest{Kind: kind, Algorithm: algo, Path: full, Entries: entries}
		if kind == Tag {
			set.Tags[algo] = m
		} else {
			set.Payloads[algo] = m
		}
	}
	return set, nil
}

// PreferredPayload picks the payload manifest whose algorithm ranks
// highest in checksum preference order.
func (s *Set) PreferredPayload() (*Manifest, bool) {
	name, ok := checksum.Preferred(sortutil.SortedKeys(s.Payloads))
	if !ok {
		return nil, false
	}
	return s.Payloads[name], true
}

// PreferredTag picks the tagmanifest the same way.
func (s *Set) PreferredTag() (*Manifest, bool) {
	name, ok := checksum.Preferred(sortutil.SortedKeys(s.Tags))
	if !ok {
		return nil, false
	}
	return s.Tags[name], true
}

// Render produces canonical manifest text: one LF-terminated line per
// entry, sorted by path, checksum and path separated by two spaces.
// Payload entries get the data/ prefix back.
func Render(kind Kind, entries map[string]string) []byte {
	var b bytes.Buffer
	for _, p := range sortutil.SortedKeys(entries) {
		b.WriteString(entries[p])
		b.WriteString("  ")
		if kind == Payload {
			b.WriteString(PayloadDir + "/")
		}
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// splitEntry cuts a manifest line at the first whitespace run, like the
// classic tools do, so paths containing spaces survive.
func splitEntry(line string) (sum, rel string, ok bool) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return "", "", false
	}
	sum = line[:i]
	rel = strings.TrimSpace(line[i:])
	if sum == "" || rel == "" {
		return "", "", false
	}
	return sum, rel, true
}

// normalizeLF converts CRLF/CR line endings to LF and replaces invalid
// UTF-8 sequences so line numbers stay meaningful in errors.
func normalizeLF(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	return bytes.ToValidUTF8(b, []byte("\uFFFD"))
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// errlist aggregates per-line issues into a single ParseError.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err(path string) error {
	if len(e.msgs) == 0 {
		return nil
	}
	return &ParseError{Path: path, Issues: e.msgs}
}
