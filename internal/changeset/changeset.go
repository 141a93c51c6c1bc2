// Package changeset classifies paths by comparing an old checksum
// mapping against a freshly computed one. Every path in the union of
// both mappings lands in exactly one class.
package changeset

import (
	"sort"

	"github.com/MetaArchive/bag-diff/internal/sortutil"
)

// Changes partitions the compared paths. The lists are sorted
// lexicographically; unchanged paths are kept only as a count.
type Changes struct {
	Added     []string
	Modified  []string
	Deleted   []string
	Unchanged int
}

// Build compares the old and current path-to-checksum mappings.
func Build(old, cur map[string]string) Changes {
	if ch, ok := trivial(old, cur); ok {
		return ch
	}
	ch := Changes{Added: classifyAdded(old, cur)}
	ch.Deleted, ch.Modified, ch.Unchanged = classifyDeletedAndModified(old, cur)
	sortChanges(&ch)
	return ch
}

// Empty reports whether nothing was added, modified, or deleted.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// Outgoing returns the sorted Added ∪ Modified set, which becomes the
// change bag's payload.
func (c Changes) Outgoing() []string {
	out := make([]string, 0, len(c.Added)+len(c.Modified))
	out = append(out, c.Added...)
	out = append(out, c.Modified...)
	sort.Strings(out)
	return out
}

func trivial(old, cur map[string]string) (Changes, bool) {
	switch {
	case len(cur) == 0:
		return Changes{Deleted: sortutil.SortedKeys(old)}, true
	case len(old) == 0:
		return Changes{Added: sortutil.SortedKeys(cur)}, true
	default:
		return Changes{}, false
	}
}

func classifyDeletedAndModified(old, cur map[string]string) (deleted, modified []string, unchanged int) {
	for p, oldSum := range old {
		curSum, ok := cur[p]
		switch {
		case !ok:
			deleted = append(deleted, p)
		case oldSum != curSum:
			modified = append(modified, p)
		default:
			unchanged++
		}
	}
	return deleted, modified, unchanged
}

func classifyAdded(old, cur map[string]string) []string {
	var added []string
	for p := range cur {
		if _, ok := old[p]; !ok {
			added = append(added, p)
		}
	}
	return added
}

func sortChanges(ch *Changes) {
	sort.Strings(ch.Added)
	sort.Strings(ch.Modified)
	sort.Strings(ch.Deleted)
}
