// Package bagfs is a small filesystem façade over go-billy so bag
// traversal and change-bag assembly run the same way on disk and in
// memory. Paths are slash-separated and relative to the root.
package bagfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FS wraps a billy.Filesystem rooted at a bag or output directory.
type FS struct {
	fs   billy.Filesystem
	root string // OS path of the root, "" for in-memory filesystems
}

// NewOS returns an FS rooted at an OS directory path.
func NewOS(root string) *FS {
	return &FS{fs: osfs.New(root), root: root}
}

// NewMemory returns an in-memory FS.
func NewMemory() *FS {
	return &FS{fs: memfs.New()}
}

// Root returns the OS path the FS is rooted at, or "" when in memory.
func (f *FS) Root() string { return f.root }

// Exists reports whether path exists.
func (f *FS) Exists(path string) (bool, error) {
	_, err := f.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("bagfs: stat %q: %w", path, err)
	}
}

// Stat returns file info for path.
func (f *FS) Stat(path string) (os.FileInfo, error) {
	st, err := f.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("bagfs: stat %q: %w", path, err)
	}
	return st, nil
}

// Open opens path for reading.
func (f *FS) Open(path string) (billy.File, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bagfs: open %q: %w", path, err)
	}
	return file, nil
}

// ReadDir lists the entries of dir sorted by name.
func (f *FS) ReadDir(dir string) ([]os.FileInfo, error) {
	list, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("bagfs: readdir %q: %w", dir, err)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list, nil
}

// ReadFile returns the contents of path.
func (f *FS) ReadFile(path string) ([]byte, error) {
	b, err := util.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("bagfs: readfile %q: %w", path, err)
	}
	return b, nil
}

// WriteFile writes data to path, creating parent directories as needed.
func (f *FS) WriteFile(path string, data []byte) error {
	if err := util.WriteFile(f.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("bagfs: writefile %q: %w", path, err)
	}
	return nil
}

// MkdirAll creates dir and any missing parents.
func (f *FS) MkdirAll(dir string) error {
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bagfs: mkdirall %q: %w", dir, err)
	}
	return nil
}

// Walk visits root and everything below it in lexical order. Errors
// returned by fn propagate unchanged.
func (f *FS) Walk(root string, fn filepath.WalkFunc) error {
	return util.Walk(f.fs, root, fn)
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory, then renames it into place so readers never observe a
// partially-written file.
func (f *FS) WriteFileAtomic(p string, data []byte) error {
	dir := path.Dir(p)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bagfs: mkdirall %q: %w", dir, err)
	}
	tmp, err := f.fs.TempFile(dir, ".tmp-"+path.Base(p)+"-")
	if err != nil {
		return fmt.Errorf("bagfs: tempfile for %q: %w", p, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = f.fs.Remove(name)
		return fmt.Errorf("bagfs: write %q: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		_ = f.fs.Remove(name)
		return fmt.Errorf("bagfs: close %q: %w", p, err)
	}
	if err := f.fs.Rename(name, p); err != nil {
		// Only the in-memory backend refuses to clobber an existing
		// target; the OS backend replaces it in place, so its targets
		// must survive a failed rename untouched.
		if f.root == "" {
			if ok, _ := f.Exists(p); ok {
				_ = f.fs.Remove(p)
				err = f.fs.Rename(name, p)
			}
		}
		if err != nil {
			_ = f.fs.Remove(name)
			return fmt.Errorf("bagfs: rename %q: %w", p, err)
		}
	}
	return nil
}

// Copy streams src inside from to dst inside to, creating parent
// directories as needed.
func Copy(from *FS, src string, to *FS, dst string) error {
	in, err := from.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := to.fs.Create(dst)
	if err != nil {
		return fmt.Errorf("bagfs: create %q: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("bagfs: copy %q to %q: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("bagfs: close %q: %w", dst, err)
	}
	return nil
}

// CleanRel normalizes a manifest-style relative path to slash-separated,
// cleaned form. Absolute paths and paths escaping the root are rejected.
func CleanRel(p string) (string, error) {
	s := filepath.ToSlash(strings.TrimSpace(p))
	if s == "" {
		return "", errors.New("empty path")
	}
	if strings.HasPrefix(s, "/") || (len(s) > 1 && s[1] == ':') {
		return "", fmt.Errorf("absolute path %q", p)
	}
	s = path.Clean(s)
	if s == "." || s == ".." || strings.HasPrefix(s, "../") {
		return "", fmt.Errorf("path %q escapes the bag root", p)
	}
	return s, nil
}
