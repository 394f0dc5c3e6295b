// Package equivalence implements the two-pass derivation of duplicate sets
// and directory sizes (C5): Pass 1 computes candidate duplicate sets
// bottom-up from the DigestIndex and parent-intersection; Pass 2 filters
// each Dir's candidate set down to mutually-duplicated handles and computes
// sizes. The two passes are kept fully separate (rather than interleaved)
// so every Dir has its Pass 1 result before any Pass 2 check runs. Pass 2
// filters in place, so a later Dir may read an earlier Dir's already-filtered
// set; because the filter is symmetric, that read gives the same answer as
// the Pass 1 set would, and traversal order does not change the result.
package equivalence

import (
	"github.com/arjunr/dupfind/internal/digestindex"
	"github.com/arjunr/dupfind/internal/progress"
	"github.com/arjunr/dupfind/internal/treestore"
	"github.com/arjunr/dupfind/internal/types"
)

// Run executes Pass 1 then Pass 2 over every root in store, reading from
// idx and writing duplicate sets and sizes back into store. idx must
// already be finalized.
func Run(store *treestore.Store, idx *digestindex.Index, sp progress.SimpleProgress) {
	if sp == nil {
		sp = progress.NoopSimple
	}
	total := int64(store.Count())
	sp.Create("deriving equivalence", 2*total)
	var done int64

	for _, root := range store.Roots() {
		store.PostOrderRoot(root, func(h types.Handle) {
			pass1(store, idx, h)
			done++
			sp.Update(done)
		})
	}

	for _, root := range store.Roots() {
		store.PostOrderRoot(root, func(h types.Handle) {
			pass2(store, h)
			done++
			sp.Update(done)
		})
	}

	sp.Finalize()
}

// pass1 derives h's candidate duplicate set: from the DigestIndex for a
// File, by parent-intersection for a Dir, and not at all for Symlink or
// Inaccessible nodes.
func pass1(store *treestore.Store, idx *digestindex.Index, h types.Handle) {
	n := store.Get(h)
	switch n.Kind {
	case types.KindFile:
		f := n.File
		regs := idx.DuplicatesOf(f.PartialDigest, digestindex.Registration{Path: f.Path, Handle: h})
		for _, r := range regs {
			f.Duplicates[r.Handle] = struct{}{}
		}
	case types.KindDir:
		n.DirData.Duplicates = candidateDirDuplicates(store, h)
	}
}

// candidateDirDuplicates computes h's Pass-1 candidate set: the
// intersection, over every child c, of the set of parent-handles of c's
// duplicates (excluding the synthetic root), with h's own handle removed.
//
// An empty directory (no children) yields an empty candidate set: there is
// no child to intersect over, and treating the vacuous intersection as
// "every other node" would make every empty directory a candidate
// duplicate of every other node in the tree, which Pass 2's mutual filter
// cannot meaningfully disambiguate. The spec does not name this case
// explicitly; this is the safe reading.
func candidateDirDuplicates(store *treestore.Store, h types.Handle) map[types.Handle]struct{} {
	children := store.Children(h)
	if len(children) == 0 {
		return nil
	}

	var result map[types.Handle]struct{}
	for _, c := range children {
		cn := store.Get(c)
		if cn.Kind == types.KindSymlink || cn.Kind == types.KindInaccessible {
			return nil
		}

		dupSet := nodeDuplicates(cn)
		if len(dupSet) == 0 {
			return nil
		}

		parents := make(map[types.Handle]struct{}, len(dupSet))
		for d := range dupSet {
			p := store.Parent(d)
			if p == treestore.RootHandle {
				continue
			}
			parents[p] = struct{}{}
		}

		if result == nil {
			result = parents
		} else {
			result = intersect(result, parents)
		}
		if len(result) == 0 {
			return nil
		}
	}

	delete(result, h)
	return result
}

// pass2 filters h's candidate duplicate set to mutually-duplicated handles
// and computes its size. No-op for non-Dir nodes.
func pass2(store *treestore.Store, h types.Handle) {
	n := store.Get(h)
	if n.Kind != types.KindDir {
		return
	}
	filterMutual(store, h, n.DirData)
	computeSize(store, h, n.DirData)
}

// filterMutual retains only handles D in d.Duplicates such that h is
// itself present in D's duplicate set, removing asymmetric containments
// where one directory is a strict subset of another.
func filterMutual(store *treestore.Store, h types.Handle, d *treestore.Dir) {
	filtered := make(map[types.Handle]struct{}, len(d.Duplicates))
	for other := range d.Duplicates {
		on := store.Get(other)
		otherDup := nodeDuplicates(on)
		if _, ok := otherDup[h]; ok {
			filtered[other] = struct{}{}
		}
	}
	d.Duplicates = filtered
}

// computeSize sums the sizes of h's children plus the fixed directory
// overhead. Leaves d.Size as nil (unknown) if any child is Inaccessible or
// an unknown-size Dir.
func computeSize(store *treestore.Store, h types.Handle, d *treestore.Dir) {
	var total int64 = treestore.DirOverheadBytes
	for _, c := range store.Children(h) {
		cn := store.Get(c)
		switch cn.Kind {
		case types.KindFile:
			total += cn.File.Size
		case types.KindDir:
			if cn.DirData.Size == nil {
				d.Size = nil
				return
			}
			total += *cn.DirData.Size
		case types.KindInaccessible:
			d.Size = nil
			return
		case types.KindSymlink:
			// Symlinks contribute zero bytes to a directory's size.
		}
	}
	d.Size = &total
}

// nodeDuplicates returns the duplicate set stored on a File or Dir node,
// or nil for Symlink/Inaccessible nodes (which never have one).
func nodeDuplicates(n *treestore.Node) map[types.Handle]struct{} {
	switch n.Kind {
	case types.KindFile:
		return n.File.Duplicates
	case types.KindDir:
		return n.DirData.Duplicates
	default:
		return nil
	}
}

// intersect returns the set intersection of a and b.
func intersect(a, b map[types.Handle]struct{}) map[types.Handle]struct{} {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(map[types.Handle]struct{})
	for h := range a {
		if _, ok := b[h]; ok {
			out[h] = struct{}{}
		}
	}
	return out
}
