// Package report prints the human-readable outcome of a diff run.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/MetaArchive/bag-diff/internal/changeset"
	"github.com/MetaArchive/bag-diff/internal/sortutil"
)

// Printer writes the run report to W.
type Printer struct {
	W io.Writer
}

// Changes prints the three classified lists with counts, one path per
// line, and a closing unchanged-file summary.
func (p *Printer) Changes(ch changeset.Changes) {
	p.list("Added", ch.Added)
	p.list("Modified", ch.Modified)
	p.list("Deleted", ch.Deleted)
	fmt.Fprintf(p.W, "Unchanged: %d file(s)\n", ch.Unchanged)
}

func (p *Printer) list(label string, paths []string) {
	fmt.Fprintf(p.W, "%s: %d file(s)\n", label, len(paths))
	if len(paths) == 0 {
		fmt.Fprintln(p.W, "  (none)")
		return
	}
	for _, path := range paths {
		fmt.Fprintf(p.W, "  %s\n", path)
	}
}

// TagChanges prints notes for tag files whose on-disk digests no longer
// match the old tagmanifest. Nothing is printed when both lists are
// empty.
func (p *Printer) TagChanges(changed, missing []string) {
	if len(changed) == 0 && len(missing) == 0 {
		return
	}
	notes := make([]string, 0, len(changed)+len(missing))
	for _, path := range changed {
		notes = append(notes, path+" (modified)")
	}
	for _, path := range missing {
		notes = append(notes, path+" (missing)")
	}
	fmt.Fprintln(p.W, "Tag files changed:")
	for _, note := range sortutil.StablePathSort(notes) {
		fmt.Fprintf(p.W, "  %s\n", note)
	}
}

// ManifestDiff prints a unified diff body verbatim. An empty body,
// meaning the manifests are identical, prints nothing.
func (p *Printer) ManifestDiff(body string) {
	if body == "" {
		return
	}
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	fmt.Fprint(p.W, body)
}
