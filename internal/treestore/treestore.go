// Package treestore implements the tagged forest of File, Dir, Symlink, and
// Inaccessible nodes that the rest of the engine operates on (C3).
//
// A TreeStore is driver-owned: it is built once during Ingest, read and
// annotated during Equivalence, and read during Extractor. It is never
// shared across goroutines — the spec's single-driver-thread model means
// no synchronization is required here.
package treestore

import (
	"fmt"

	"github.com/arjunr/dupfind/internal/types"
)

// DirOverheadBytes is the fixed directory-listing overhead added to a Dir's
// computed size. It is a named constant, not queried per filesystem, per
// the spec's open question on this value.
const DirOverheadBytes = 4096

// File holds the metadata for a regular file node.
type File struct {
	Path           string
	Size           int64
	PartialDigest  string
	Duplicates     map[types.Handle]struct{}
	Containment    types.ContainmentTag
}

// Dir holds the metadata for a directory node. Size is known only once
// Equivalence Pass 2 has run; nil means unknown.
type Dir struct {
	Path        string
	Size        *int64
	Duplicates  map[types.Handle]struct{}
	Containment types.ContainmentTag
}

// Symlink holds the metadata for a symlink node. Symlinks are never
// duplicates and are never followed.
type Symlink struct {
	Path        string
	Containment types.ContainmentTag
}

// Inaccessible holds the metadata for a node whose filesystem entry could
// not be opened or classified. Inaccessible nodes are never duplicates.
type Inaccessible struct {
	Path        string
	Err         error
	Containment types.ContainmentTag
}

// Node is a tagged union over the four node variants, addressed by Handle.
// Exactly one of File/DirData/SymlinkData/Inaccessible is meaningful,
// selected by Kind.
type Node struct {
	Kind   types.NodeKind
	Parent types.Handle

	File         *File
	DirData      *Dir
	SymlinkData  *Symlink
	Inaccessible *Inaccessible
}

// Store is a rooted forest with a synthetic root owning one top-level Dir
// per input root. Handles are stable, hashable, and never reused.
type Store struct {
	nodes    []Node
	children map[types.Handle][]types.Handle
}

// RootHandle identifies the synthetic root. It owns no metadata of its own
// and is never emitted as part of a duplicate group.
const RootHandle types.Handle = 0

// New creates an empty Store containing only the synthetic root.
func New() *Store {
	s := &Store{
		nodes:    make([]Node, 1),
		children: make(map[types.Handle][]types.Handle),
	}
	s.nodes[0] = Node{Kind: types.KindDir, Parent: types.NoHandle, DirData: &Dir{Path: "<root>"}}
	return s
}

func (s *Store) nextHandle() types.Handle {
	return types.Handle(len(s.nodes))
}

// InsertDir creates a Dir node under parent and returns its handle.
func (s *Store) InsertDir(parent types.Handle, path string) types.Handle {
	h := s.nextHandle()
	s.nodes = append(s.nodes, Node{
		Kind:    types.KindDir,
		Parent:  parent,
		DirData: &Dir{Path: path, Duplicates: make(map[types.Handle]struct{})},
	})
	s.children[parent] = append(s.children[parent], h)
	return h
}

// InsertFile creates a File node under parent and returns its handle.
func (s *Store) InsertFile(parent types.Handle, path string, size int64, partialDigest string) types.Handle {
	h := s.nextHandle()
	s.nodes = append(s.nodes, Node{
		Kind:   types.KindFile,
		Parent: parent,
		File: &File{
			Path:          path,
			Size:          size,
			PartialDigest: partialDigest,
			Duplicates:    make(map[types.Handle]struct{}),
		},
	})
	s.children[parent] = append(s.children[parent], h)
	return h
}

// InsertSymlink creates a Symlink node under parent and returns its handle.
func (s *Store) InsertSymlink(parent types.Handle, path string) types.Handle {
	h := s.nextHandle()
	s.nodes = append(s.nodes, Node{
		Kind:        types.KindSymlink,
		Parent:      parent,
		SymlinkData: &Symlink{Path: path},
	})
	s.children[parent] = append(s.children[parent], h)
	return h
}

// InsertInaccessible creates an Inaccessible node under parent and returns
// its handle.
func (s *Store) InsertInaccessible(parent types.Handle, path string, err error) types.Handle {
	h := s.nextHandle()
	s.nodes = append(s.nodes, Node{
		Kind:         types.KindInaccessible,
		Parent:       parent,
		Inaccessible: &Inaccessible{Path: path, Err: err},
	})
	s.children[parent] = append(s.children[parent], h)
	return h
}

// Get returns the node at handle. Panics if the handle is out of range --
// an out-of-range handle indicates a programming error, never user input.
func (s *Store) Get(h types.Handle) *Node {
	if int(h) < 0 || int(h) >= len(s.nodes) {
		panic(fmt.Sprintf("treestore: handle %d out of range", h))
	}
	return &s.nodes[h]
}

// Children returns the handles inserted under parent, in insertion order.
func (s *Store) Children(parent types.Handle) []types.Handle {
	return s.children[parent]
}

// Parent returns h's parent handle, or NoHandle if h is the synthetic root.
func (s *Store) Parent(h types.Handle) types.Handle {
	return s.Get(h).Parent
}

// Ancestors returns h's ancestor chain, nearest first, stopping before the
// synthetic root.
func (s *Store) Ancestors(h types.Handle) []types.Handle {
	var out []types.Handle
	for p := s.Parent(h); p != RootHandle && p != types.NoHandle; p = s.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Roots returns the top-level node handles owned by the synthetic root, in
// the order their input paths were added. A top-level node is usually a Dir,
// but an input path that is missing or unreadable yields an Inaccessible one.
func (s *Store) Roots() []types.Handle {
	return s.children[RootHandle]
}

// Path returns the node's absolute path, regardless of kind.
func (s *Store) Path(h types.Handle) string {
	n := s.Get(h)
	switch n.Kind {
	case types.KindDir:
		return n.DirData.Path
	case types.KindFile:
		return n.File.Path
	case types.KindSymlink:
		return n.SymlinkData.Path
	case types.KindInaccessible:
		return n.Inaccessible.Path
	default:
		return ""
	}
}

// PostOrderRoot visits every node in the subtree rooted at h (h included)
// in post-order: children before parent. Descendants are visited in
// insertion order among siblings.
func (s *Store) PostOrderRoot(h types.Handle, visit func(types.Handle)) {
	for _, c := range s.children[h] {
		s.PostOrderRoot(c, visit)
	}
	visit(h)
}

// PreOrderRoot visits every node in the subtree rooted at h (h included) in
// pre-order: parent before children.
func (s *Store) PreOrderRoot(h types.Handle, visit func(types.Handle)) {
	visit(h)
	for _, c := range s.children[h] {
		s.PreOrderRoot(c, visit)
	}
}

// Count returns the total number of nodes in the store, excluding the
// synthetic root.
func (s *Store) Count() int {
	return len(s.nodes) - 1
}
