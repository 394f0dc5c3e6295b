// Package digestindex implements the two-stage content-addressed table
// (C2): files are registered by partial digest, and on a second
// registration under the same partial digest both entries are scheduled
// for full-digest hashing on a bounded worker pool. The index is owned and
// mutated exclusively by a single driver goroutine; workers touch nothing
// but their own input path and an outbound result channel.
package digestindex

import (
	"fmt"

	"github.com/arjunr/dupfind/internal/hasher"
	"github.com/arjunr/dupfind/internal/types"
)

// Registration is the (path, node-handle) pair inserted into the index.
type Registration struct {
	Path   string
	Handle types.Handle
}

// slot is the value stored per partial digest: either a single unconfirmed
// registration, or a confirmed multi-registration keyed by full digest.
type slot struct {
	single *Registration
	multi  map[string][]Registration // full digest -> registrations sharing it
}

// fullJob is a unit of full-digest work sent to the worker pool.
type fullJob struct {
	partialDigest string
	reg           Registration
}

// fullResult is what a worker sends back after computing a full digest.
type fullResult struct {
	partialDigest string
	fullDigest    string
	reg           Registration
	err           error
}

// Index is the two-stage content-addressed table.
//
// Index is not safe for concurrent use by multiple goroutines other than
// the worker pool it owns internally: Register, Finalize, and DuplicatesOf
// must all be called from the single driver goroutine.
type Index struct {
	h       *hasher.Hasher
	workers int

	slots map[string]*slot

	jobCh    chan fullJob
	resultCh chan fullResult
	pending  int // jobs scheduled but not yet merged
	jobCount int
	mergedCount int

	closed bool
}

// New creates an Index that computes full digests with h, using up to
// workers concurrent goroutines. workers <= 0 means synchronous inline
// hashing on the driver (no pool is started).
func New(h *hasher.Hasher, workers int) *Index {
	idx := &Index{
		h:       h,
		workers: workers,
		slots:   make(map[string]*slot),
	}
	if workers > 0 {
		idx.jobCh = make(chan fullJob, 1024)
		idx.resultCh = make(chan fullResult, 1024)
		for i := 0; i < workers; i++ {
			go idx.worker()
		}
	}
	return idx
}

func (idx *Index) worker() {
	for j := range idx.jobCh {
		digest, err := idx.h.Full(j.reg.Path)
		idx.resultCh <- fullResult{
			partialDigest: j.partialDigest,
			fullDigest:    digest,
			reg:           j.reg,
			err:           err,
		}
	}
}

// Register records a (partialDigest, registration) pair.
//
//   - empty slot: inserted as Single.
//   - existing Single: upgraded to Multi; both the previous and the new
//     registration are scheduled for full hashing.
//   - existing Multi: the new registration is scheduled for full hashing.
//
// Register drains any already-completed worker results opportunistically
// so the pending count doesn't grow unbounded across a long Ingest walk.
func (idx *Index) Register(partialDigest string, reg Registration) {
	idx.drainNonBlocking()

	s, ok := idx.slots[partialDigest]
	if !ok {
		idx.slots[partialDigest] = &slot{single: &reg}
		return
	}

	if s.single != nil {
		prev := *s.single
		s.single = nil
		s.multi = make(map[string][]Registration)
		idx.schedule(partialDigest, prev)
		idx.schedule(partialDigest, reg)
		return
	}

	idx.schedule(partialDigest, reg)
}

func (idx *Index) schedule(partialDigest string, reg Registration) {
	idx.jobCount++
	idx.pending++
	if idx.workers > 0 {
		idx.jobCh <- fullJob{partialDigest: partialDigest, reg: reg}
		return
	}
	// Synchronous inline hashing: compute and merge immediately.
	digest, err := idx.h.Full(reg.Path)
	idx.merge(fullResult{partialDigest: partialDigest, fullDigest: digest, reg: reg, err: err})
}

// drainNonBlocking merges any worker results that are already available
// without blocking the driver.
func (idx *Index) drainNonBlocking() {
	if idx.workers <= 0 {
		return
	}
	for {
		select {
		case r := <-idx.resultCh:
			idx.merge(r)
		default:
			return
		}
	}
}

func (idx *Index) merge(r fullResult) {
	idx.pending--
	idx.mergedCount++
	if r.err != nil {
		panic(fmt.Sprintf("digestindex: full hash failed for %s: %v", r.reg.Path, r.err))
	}
	s, ok := idx.slots[r.partialDigest]
	if !ok || s.multi == nil {
		panic(fmt.Sprintf("digestindex: merge target missing multi bucket for partial digest %q", r.partialDigest))
	}
	s.multi[r.fullDigest] = append(s.multi[r.fullDigest], r.reg)
}

// Finalize blocks until every scheduled full-hash job has delivered its
// result and been merged. It panics if a job failed (surfaced by merge) or
// if a job-count mismatch is detected once draining completes.
func (idx *Index) Finalize() {
	if idx.closed {
		return
	}
	if idx.workers > 0 {
		for idx.pending > 0 {
			idx.merge(<-idx.resultCh)
		}
		close(idx.jobCh)
	}
	if idx.mergedCount != idx.jobCount {
		panic(fmt.Sprintf("digestindex: job count mismatch, scheduled %d merged %d", idx.jobCount, idx.mergedCount))
	}
	idx.closed = true
}

// DuplicatesOf returns the set of registrations sharing the same full
// digest as reg, minus reg itself. Must be called only after Finalize has
// returned.
//
// Failure cases are fatal (IndexInconsistency): unknown partial digest,
// inconsistent slot, or reg not present in any bucket.
func (idx *Index) DuplicatesOf(partialDigest string, reg Registration) []Registration {
	s, ok := idx.slots[partialDigest]
	if !ok {
		panic(fmt.Sprintf("digestindex: unknown partial digest %q", partialDigest))
	}

	if s.single != nil {
		if *s.single == reg {
			return nil
		}
		panic(fmt.Sprintf("digestindex: registration %+v not present under partial digest %q", reg, partialDigest))
	}

	for _, bucket := range s.multi {
		found := false
		for _, r := range bucket {
			if r == reg {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		out := make([]Registration, 0, len(bucket)-1)
		for _, r := range bucket {
			if r != reg {
				out = append(out, r)
			}
		}
		return out
	}

	panic(fmt.Sprintf("digestindex: registration %+v not present in any bucket under partial digest %q", reg, partialDigest))
}
