// Package ingest walks the input roots and populates a TreeStore and a
// DigestIndex (C4). The walk runs entirely on the driver goroutine: the
// TreeStore it builds is not thread-safe, and per spec §5 the only
// concurrency in this engine lives in the DigestIndex's full-hash worker
// pool, not in directory traversal.
package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/arjunr/dupfind/internal/digestindex"
	"github.com/arjunr/dupfind/internal/hasher"
	"github.com/arjunr/dupfind/internal/progress"
	"github.com/arjunr/dupfind/internal/treestore"
	"github.com/arjunr/dupfind/internal/types"
)

// Walker ingests a set of input roots into a TreeStore, registering every
// regular file's partial digest into a DigestIndex as it goes.
//
// Walker is designed for single use: construct with New, call Run once.
type Walker struct {
	store   *treestore.Store
	idx     *digestindex.Index
	hasher  *hasher.Hasher
	mp      progress.MultilineProgress
	logger  *log.Logger
	scanned int64
}

// New creates a Walker writing into store and idx using h for partial
// digests. mp may be progress.NoopMultiline. logger defaults to the
// standard logger writing to os.Stderr when nil.
func New(store *treestore.Store, idx *digestindex.Index, h *hasher.Hasher, mp progress.MultilineProgress, logger *log.Logger) *Walker {
	if mp == nil {
		mp = progress.NoopMultiline
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Walker{store: store, idx: idx, hasher: h, mp: mp, logger: logger}
}

// Run walks every path in paths, inserting one top-level node per path
// under the TreeStore's synthetic root.
func (w *Walker) Run(paths []string) error {
	sink := w.mp.Create("scanning", -1)
	defer w.mp.Finalize()
	defer sink.Finalize()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.store.InsertInaccessible(treestore.RootHandle, p, err)
			continue
		}
		w.mp.UpdateCurrentDir(abs)
		before := len(w.store.Children(treestore.RootHandle))
		w.ingest(treestore.RootHandle, abs, sink)
		w.logInaccessibleTopLevel(before)
	}
	return nil
}

// logInaccessibleTopLevel logs, once, the top-level node just added for one
// input root if it turned out to be Inaccessible.
func (w *Walker) logInaccessibleTopLevel(before int) {
	children := w.store.Children(treestore.RootHandle)
	if len(children) <= before {
		return
	}
	h := children[len(children)-1]
	n := w.store.Get(h)
	if n.Kind == types.KindInaccessible {
		w.logger.Printf("error: could not access %s: %v", n.Inaccessible.Path, n.Inaccessible.Err)
	}
}

// ingest classifies path and inserts the corresponding node under parent,
// recursing into directories.
func (w *Walker) ingest(parent types.Handle, path string, sink progress.SimpleProgress) {
	info, err := os.Lstat(path)
	if err != nil {
		w.store.InsertInaccessible(parent, path, err)
		return
	}

	if info.Mode()&os.ModeSymlink != 0 {
		w.store.InsertSymlink(parent, path)
		return
	}

	if info.IsDir() {
		entries, err := readDirSorted(path)
		if err != nil {
			w.logger.Printf("info: could not access directory %s: %v", path, err)
			w.store.InsertInaccessible(parent, path, err)
			return
		}
		dirHandle := w.store.InsertDir(parent, path)
		w.mp.UpdateCurrentDir(path)
		for _, name := range entries {
			w.ingest(dirHandle, filepath.Join(path, name), sink)
		}
		return
	}

	if info.Mode().IsRegular() {
		digest, err := w.hasher.Partial(path)
		if err != nil {
			w.logger.Printf("info: could not hash %s: %v", path, err)
			w.store.InsertInaccessible(parent, path, err)
			return
		}
		handle := w.store.InsertFile(parent, path, info.Size(), digest)
		w.idx.Register(digest, digestindex.Registration{Path: path, Handle: handle})
		w.scanned++
		sink.Update(w.scanned)
		return
	}

	// Named pipe, socket, device, or anything else not handled above.
	w.store.InsertInaccessible(parent, path, fmt.Errorf("unsupported file type %v", info.Mode()))
}

// readDirSorted lists a directory's entry names in a stable order. Using
// os.ReadDir (which already sorts by filename) makes Ingest's output, and
// therefore the whole engine's output, deterministic across runs on an
// unchanging filesystem.
func readDirSorted(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
