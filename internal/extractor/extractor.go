// Package extractor implements the depth-first rewrite that emits maximal
// ("topmost") duplicate groups from an annotated TreeStore (C6). It
// enforces two invariants purely through per-node containment tags: no
// emitted group is a descendant of another, and no emitted group is
// superseded without the superseding group displacing it.
package extractor

import (
	"github.com/arjunr/dupfind/internal/progress"
	"github.com/arjunr/dupfind/internal/treestore"
	"github.com/arjunr/dupfind/internal/types"
)

// group is the extractor's internal representation of an emitted
// DuplicateGroup, tracked by member handle so it can be located and evicted
// later if a containing ancestor group is discovered.
type group struct {
	members []types.Handle
	size    uint64
}

// extractor holds traversal state for a single Run.
type extractor struct {
	store   *treestore.Store
	minSize int64
	sp      progress.SimpleProgress
	done    int64

	groups []*group // nil entries mark evicted groups

	// emittedMembers records every handle that is currently a member of an
	// emitted group, so step 1's "already present in an emitted group"
	// eligibility check is O(1).
	emittedMembers map[types.Handle]struct{}

	// groupIndex maps a currently-emitted member handle to its group's
	// index in groups, for eviction lookups.
	groupIndex map[types.Handle]int
}

// Run extracts the maximal duplicate groups from store, honoring minSize,
// and returns them sorted by per-member size descending.
func Run(store *treestore.Store, minSize int64, sp progress.SimpleProgress) []types.DuplicateGroup {
	if sp == nil {
		sp = progress.NoopSimple
	}
	e := &extractor{
		store:          store,
		minSize:        minSize,
		sp:             sp,
		emittedMembers: make(map[types.Handle]struct{}),
		groupIndex:     make(map[types.Handle]int),
	}

	total := int64(store.Count())
	sp.Create("extracting duplicate groups", total)
	for _, root := range store.Roots() {
		e.visit(root)
	}
	sp.Finalize()

	unsorted := make([]types.DuplicateGroup, 0, len(e.groups))
	for _, g := range e.groups {
		if g == nil {
			continue
		}
		paths := make([]string, 0, len(g.members))
		for _, m := range g.members {
			paths = append(paths, store.Path(m))
		}
		unsorted = append(unsorted, types.DuplicateGroup{Paths: paths, Size: g.size})
	}

	// Sort by size descending: types.Sorted orders ascending by key, so the
	// key is the negated size.
	sorted := types.NewSorted(unsorted, func(g types.DuplicateGroup) int64 { return -int64(g.Size) })
	return sorted.Items()
}

// visit determines whether h qualifies for emission; if not, it descends
// into h's children. If h does qualify, it hands off to emit, which
// enforces the topmost invariant and decides whether to actually emit.
func (e *extractor) visit(h types.Handle) {
	n := e.store.Get(h)
	e.done++
	e.sp.Update(e.done)

	dupSet := nodeDuplicates(n)
	size, sizeKnown := nodeSize(n)
	_, already := e.emittedMembers[h]

	eligible := len(dupSet) > 0 && !already && sizeKnown && size > e.minSize
	if !eligible {
		for _, c := range e.store.Children(h) {
			e.visit(c)
		}
		return
	}

	e.emit(h, dupSet, size)
}

// emit builds the candidate group G = {h} ∪ duplicates(h) and enforces the
// topmost invariant before appending it to the output:
//
//   - if any member of G is already ChildOfDuplicate, G is dominated by an
//     already-emitted ancestor group: suppress emission, tag G and its
//     descendants ChildOfDuplicate, and return without descending.
//   - if any member of G is ParentOfDuplicate, G supersedes one or more
//     already-emitted descendant groups: evict them (retagging their
//     members ChildOfDuplicate), then emit G.
//   - otherwise emit G directly.
//
// After emission, h's subtree is not descended into by the caller (visit
// does not recurse past emit).
func (e *extractor) emit(h types.Handle, dupSet map[types.Handle]struct{}, size int64) {
	members := make([]types.Handle, 0, len(dupSet)+1)
	members = append(members, h)
	for d := range dupSet {
		members = append(members, d)
	}

	childOfAny := false
	var parentMembers []types.Handle
	for _, m := range members {
		switch getContainment(e.store.Get(m)) {
		case types.TagChildOfDuplicate:
			childOfAny = true
		case types.TagParentOfDuplicate:
			parentMembers = append(parentMembers, m)
		}
	}

	if childOfAny {
		for _, m := range members {
			setContainment(e.store.Get(m), types.TagChildOfDuplicate)
			e.tagDescendants(m, types.TagChildOfDuplicate)
		}
		return
	}

	for _, m := range parentMembers {
		e.evictBeneath(m)
	}

	idx := len(e.groups)
	e.groups = append(e.groups, &group{members: members, size: uint64(size)})

	for _, m := range members {
		e.groupIndex[m] = idx
		e.emittedMembers[m] = struct{}{}
		setContainment(e.store.Get(m), types.TagDuplicate)
		e.tagDescendants(m, types.TagChildOfDuplicate)
	}
	for _, m := range members {
		e.tagAncestors(m)
	}
}

// evictBeneath removes every already-emitted group lying beneath m,
// retagging their members ChildOfDuplicate. It walks down from m through
// nodes tagged ParentOfDuplicate (intermediate ancestors of a displaced
// group) until it reaches a Duplicate-tagged member, at which point it
// evicts that member's group. Emission never descends past an emitted
// node's subtree, so no nested emitted group can live beneath an evicted
// one — one level of eviction per branch suffices.
func (e *extractor) evictBeneath(m types.Handle) {
	for _, c := range e.store.Children(m) {
		e.evictWalk(c)
	}
}

func (e *extractor) evictWalk(h types.Handle) {
	switch getContainment(e.store.Get(h)) {
	case types.TagDuplicate:
		e.evictGroup(h)
	case types.TagParentOfDuplicate:
		for _, c := range e.store.Children(h) {
			e.evictWalk(c)
		}
	}
}

func (e *extractor) evictGroup(h types.Handle) {
	idx, ok := e.groupIndex[h]
	if !ok {
		return
	}
	g := e.groups[idx]
	e.groups[idx] = nil
	for _, m := range g.members {
		delete(e.groupIndex, m)
		delete(e.emittedMembers, m)
		setContainment(e.store.Get(m), types.TagChildOfDuplicate)
		e.tagDescendants(m, types.TagChildOfDuplicate)
	}
}

// tagDescendants tags every descendant of m (not m itself) with tag.
func (e *extractor) tagDescendants(m types.Handle, tag types.ContainmentTag) {
	for _, c := range e.store.Children(m) {
		e.store.PreOrderRoot(c, func(h types.Handle) {
			setContainment(e.store.Get(h), tag)
		})
	}
}

// tagAncestors tags m's ancestors ParentOfDuplicate, nearest first, until
// reaching an ancestor that is already ParentOfDuplicate.
func (e *extractor) tagAncestors(m types.Handle) {
	for _, a := range e.store.Ancestors(m) {
		an := e.store.Get(a)
		if getContainment(an) == types.TagParentOfDuplicate {
			break
		}
		setContainment(an, types.TagParentOfDuplicate)
	}
}

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

func nodeSize(n *treestore.Node) (int64, bool) {
	switch n.Kind {
	case types.KindFile:
		return n.File.Size, true
	case types.KindDir:
		if n.DirData.Size == nil {
			return 0, false
		}
		return *n.DirData.Size, true
	default:
		return 0, false
	}
}

func getContainment(n *treestore.Node) types.ContainmentTag {
	switch n.Kind {
	case types.KindFile:
		return n.File.Containment
	case types.KindDir:
		return n.DirData.Containment
	case types.KindSymlink:
		return n.SymlinkData.Containment
	case types.KindInaccessible:
		return n.Inaccessible.Containment
	default:
		return types.TagNone
	}
}

func setContainment(n *treestore.Node, tag types.ContainmentTag) {
	switch n.Kind {
	case types.KindFile:
		n.File.Containment = tag
	case types.KindDir:
		n.DirData.Containment = tag
	case types.KindSymlink:
		n.SymlinkData.Containment = tag
	case types.KindInaccessible:
		n.Inaccessible.Containment = tag
	}
}
