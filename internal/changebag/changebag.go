// Package changebag assembles and finalizes the output bag holding the
// added and modified payload files of a diff run.
package changebag

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/MetaArchive/bag-diff/internal/bagfs"
	"github.com/MetaArchive/bag-diff/internal/bagit"
	"github.com/MetaArchive/bag-diff/internal/checksum"
	"github.com/MetaArchive/bag-diff/internal/manifest"
)

// SafekeepingDir is the tag directory that receives copies of the
// source bag's own manifest files, so the change bag carries a snapshot
// of the full manifest state it was cut from.
const SafekeepingDir = "source-manifests"

// WriteError reports a failure creating or filling the output bag.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// DeriveOutputPath returns explicit when non-empty, otherwise the first
// free "<bagPath>_changes<N>", N counting up from 0 past existing paths.
func DeriveOutputPath(bagPath, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for n := 0; ; n++ {
		cand := fmt.Sprintf("%s_changes%d", bagPath, n)
		if _, err := os.Stat(cand); err != nil {
			if os.IsNotExist(err) {
				return cand, nil
			}
			return "", &WriteError{Op: "probe output path", Path: cand, Err: err}
		}
	}
}

// Options configures a change-bag build.
type Options struct {
	Algorithm checksum.Algorithm
	Info      bagit.Info
	Now       time.Time
}

// Build copies the outgoing payload files from the bag rooted at src
// into the output rooted at dst, stores safekeeping copies of the
// source bag's manifest files, and finalizes dst into a valid bag. An
// empty outgoing set still produces a valid, empty-payload bag.
func Build(src, dst *bagfs.FS, outgoing []string, opt Options) error {
	// A bag carries data/ even when the outgoing set is empty.
	if err := dst.MkdirAll(manifest.PayloadDir); err != nil {
		return &WriteError{Op: "create payload directory", Path: manifest.PayloadDir, Err: err}
	}
	if err := copyPayload(src, dst, outgoing); err != nil {
		return err
	}
	if err := copySafekeeping(src, dst); err != nil {
		return err
	}
	if opt.Now.IsZero() {
		opt.Now = time.Now()
	}
	if err := bagit.WriteBag(dst, opt.Algorithm, opt.Info, opt.Now); err != nil {
		return &WriteError{Op: "finalize bag", Path: dst.Root(), Err: err}
	}
	return nil
}

func copyPayload(src, dst *bagfs.FS, outgoing []string) error {
	for _, rel := range outgoing {
		from := path.Join(manifest.PayloadDir, rel)
		if err := bagfs.Copy(src, from, dst, from); err != nil {
			return &WriteError{Op: "copy payload file", Path: from, Err: err}
		}
	}
	return nil
}

// copySafekeeping copies every manifest-*.txt and tagmanifest-*.txt at
// the source bag root into the safekeeping tag directory, byte for
// byte. They land outside data/ so the change payload stays exactly the
// outgoing set.
func copySafekeeping(src, dst *bagfs.FS) error {
	infos, err := src.ReadDir(".")
	if err != nil {
		return &WriteError{Op: "list source manifests", Path: ".", Err: err}
	}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if _, _, ok := manifest.ParseName(info.Name()); !ok {
			continue
		}
		if err := bagfs.Copy(src, info.Name(), dst, path.Join(SafekeepingDir, info.Name())); err != nil {
			return &WriteError{Op: "copy source manifest", Path: info.Name(), Err: err}
		}
	}
	return nil
}
