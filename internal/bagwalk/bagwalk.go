// Package bagwalk enumerates a bag's payload and digests every file
// with the manifest's checksum algorithm. Results are deterministic:
// the walk is lexical and independent of directory iteration order.
package bagwalk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/checksum"
	"github.com/MetaArchive/bag-diff/internal/manifest"
)

// AccessError reports a bag path or payload file that could not be read.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string { return fmt.Sprintf("access %s: %v", e.Path, e.Err) }
func (e *AccessError) Unwrap() error { return e.Err }

// Oxum is the Payload-Oxum statistic: total octet count and file count.
type Oxum struct {
	Bytes int64
	Count int
}

func (o Oxum) String() string { return fmt.Sprintf("%d.%d", o.Bytes, o.Count) }

type walkState struct {
	fsys *bagfs.FS
	algo checksum.Algorithm
	sums map[string]string
	oxum Oxum
}

// Payload walks the data/ directory of the bag rooted at fsys and
// returns payload-relative path to checksum, plus the Payload-Oxum of
// the walked files. A bag without a data/ directory yields an empty
// mapping; unreadable entries fail with an AccessError naming the file.
// Only regular files are digested.
func Payload(fsys *bagfs.FS, algo checksum.Algorithm) (map[string]string, Oxum, error) {
	ws := &walkState{fsys: fsys, algo: algo, sums: make(map[string]string)}
	st, err := fsys.Stat(manifest.PayloadDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ws.sums, ws.oxum, nil
		}
		return nil, Oxum{}, &AccessError{Path: manifest.PayloadDir, Err: err}
	}
	if !st.IsDir() {
		return nil, Oxum{}, &AccessError{Path: manifest.PayloadDir, Err: errors.New("not a directory")}
	}
	if err := fsys.Walk(manifest.PayloadDir, ws.visit); err != nil {
		var ae *AccessError
		if errors.As(err, &ae) {
			return nil, Oxum{}, ae
		}
		return nil, Oxum{}, &AccessError{Path: manifest.PayloadDir, Err: err}
	}
	return ws.sums, ws.oxum, nil
}

func (ws *walkState) visit(p string, info os.FileInfo, err error) error {
	if err != nil {
		return &AccessError{Path: filepath.ToSlash(p), Err: err}
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return nil
	}
	rel := filepath.ToSlash(p)
	sum, err := ws.algo.SumFile(ws.fsys, rel)
	if err != nil {
		return &AccessError{Path: rel, Err: err}
	}
	ws.sums[strings.TrimPrefix(rel, manifest.PayloadDir+"/")] = sum
	ws.oxum.Bytes += info.Size()
	ws.oxum.Count++
	return nil
}

// TagSums digests the bag's tag files named by the keys of want
// (bag-relative paths). Tag files that no longer exist are simply
// absent from the result; the caller classifies them.
func TagSums(fsys *bagfs.FS, algo checksum.Algorithm, want map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(want))
	for rel := range want {
		ok, err := fsys.Exists(rel)
		if err != nil {
			return nil, &AccessError{Path: rel, Err: err}
		}
		if !ok {
			continue
		}
		sum, err := algo.SumFile(fsys, rel)
		if err != nil {
			return nil, &AccessError{Path: rel, Err: err}
		}
		out[rel] = sum
	}
	return out, nil
}
