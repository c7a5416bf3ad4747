package sccs

import (
	"sort"
	"time"
)

// DeltaRef is a non-owning back-reference from a Delta to the FileDescriptor
// that owns it. The Aggregator and StreamEmitter only ever hold DeltaRefs,
// never mutate through them -- an arena-plus-index scheme collapses to a
// plain pointer pair once ownership is GC-managed, since nothing here needs
// to outlive the FileDescriptor slice built by the caller.
type DeltaRef struct {
	File  *FileDescriptor
	Delta *Delta
}

// CommitGroup is an ordered, non-empty list of DeltaRefs sharing one emitted
// commit. Its first member's committer/comment/MRs equal every other
// member's (enforced by SameFuzzyCommit below).
type CommitGroup struct {
	Members []*DeltaRef
}

// Aggregate flattens every FileDescriptor's delta list, sorts it stably by
// timestamp, and walks it applying the fuzzy-match rule below to produce
// an ordered sequence of CommitGroups. Ties are broken by the incoming
// order -- file list order, then each file's own delta order -- because
// sort.SliceStable preserves the relative order of the flattened input for
// equal keys.
func Aggregate(files []*FileDescriptor, fuzzyWindow time.Duration) []*CommitGroup {
	var flat []*DeltaRef
	for _, f := range files {
		for _, d := range f.Deltas {
			flat = append(flat, &DeltaRef{File: f, Delta: d})
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].Delta.Timestamp.Before(flat[j].Delta.Timestamp)
	})

	var groups []*CommitGroup
	var cur *CommitGroup
	for _, dr := range flat {
		if cur == nil {
			cur = &CommitGroup{Members: []*DeltaRef{dr}}
			continue
		}
		if sameFuzzyCommit(cur.Members[0], dr, fuzzyWindow) {
			cur.Members = append(cur.Members, dr)
			continue
		}
		groups = append(groups, cur)
		cur = &CommitGroup{Members: []*DeltaRef{dr}}
	}
	if cur != nil {
		groups = append(groups, cur)
	}
	return groups
}

// sameFuzzyCommit implements SameFuzzyCommit rule: equal non-empty
// comments, equal committer, equal MR lists, and a timestamp span within
// fuzzyWindow. An empty comment on either side always breaks coalescing.
func sameFuzzyCommit(f, d *DeltaRef, fuzzyWindow time.Duration) bool {
	if f.Delta.Comment == "" || d.Delta.Comment == "" {
		return false
	}
	if f.Delta.Comment != d.Delta.Comment {
		return false
	}
	if f.Delta.CommitterLogin != d.Delta.CommitterLogin {
		return false
	}
	if !mrsEqual(f.Delta.Mrs, d.Delta.Mrs) {
		return false
	}
	span := d.Delta.Timestamp.Sub(f.Delta.Timestamp)
	if span < 0 {
		span = -span
	}
	return span <= fuzzyWindow
}
