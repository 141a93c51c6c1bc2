// Package checksum names the hashing algorithms that BagIt manifests use
// and digests payload bytes with them. The algorithm is always chosen by
// the manifest being compared against, never by the tool itself.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
)

// Algorithm is a named checksum algorithm as it appears in manifest
// filenames (manifest-<name>.txt).
type Algorithm struct {
	Name string
	New  func() hash.Hash
}

// registry maps manifest algorithm names to hash constructors. xxh3 is
// not part of the BagIt standard set but some producers use it for
// large payloads; it is accepted when the source manifests name it.
var registry = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
	"xxh3":   func() hash.Hash { return xxh3.New() },
}

// preference ranks algorithms for bags that carry several payload
// manifests. Strongest standard algorithm wins.
var preference = []string{"sha512", "sha256", "sha1", "md5", "xxh3"}

// Lookup resolves a manifest algorithm name.
func Lookup(name string) (Algorithm, error) {
	ctor, ok := registry[name]
	if !ok {
		return Algorithm{}, fmt.Errorf("unsupported checksum algorithm %q (supported: %s)", name, supportedList())
	}
	return Algorithm{Name: name, New: ctor}, nil
}

// Preferred picks one algorithm name out of names. Unknown names rank
// last, in lexicographic order, so bags using unsupported algorithms
// still get a deterministic pick (and a clear Lookup error later).
func Preferred(names []string) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	for _, want := range preference {
		if have[want] {
			return want, true
		}
	}
	rest := append([]string(nil), names...)
	sort.Strings(rest)
	return rest[0], true
}

// SumReader digests r and returns the lowercase hex checksum.
func (a Algorithm) SumReader(r io.Reader) (string, error) {
	h := a.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumBytes digests b and returns the lowercase hex checksum.
func (a Algorithm) SumBytes(b []byte) string {
	h := a.New()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// mmapThreshold is the size at or above which OS-backed files are
// digested through a memory map instead of buffered reads.
const mmapThreshold = 4 << 20

// SumFile digests the file at path inside fsys. Large files on an
// OS-backed filesystem are read through a memory map, with a streaming
// fallback on any mmap failure.
func (a Algorithm) SumFile(fsys *bagfs.FS, path string) (string, error) {
	if root := fsys.Root(); root != "" {
		st, err := fsys.Stat(path)
		if err != nil {
			return "", err
		}
		if st.Size() >= mmapThreshold {
			if sum, err := a.sumMapped(filepath.Join(root, filepath.FromSlash(path))); err == nil {
				return sum, nil
			}
		}
	}
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return a.SumReader(f)
}

// sumMapped hashes an OS file through a memory map in fixed-size chunks
// so very large payloads never need a contiguous buffer.
func (a Algorithm) sumMapped(osPath string) (string, error) {
	const chunk = 8 << 20
	r, err := mmap.Open(osPath)
	if err != nil {
		return "", err
	}
	defer r.Close()
	h := a.New()
	buf := make([]byte, chunk)
	size := int64(r.Len())
	for off := int64(0); off < size; off += chunk {
		n := size - off
		if n > chunk {
			n = chunk
		}
		if _, err := r.ReadAt(buf[:n], off); err != nil {
			return "", err
		}
		h.Write(buf[:n])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func supportedList() string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
