// Package hasher computes the partial and full content digests used to
// populate the digest index (C1). Both operations are streaming and
// fallible; failures are surfaced as plain I/O errors. Ingest turns a
// Partial failure into an Inaccessible node; the digest index treats a Full
// failure as fatal.
package hasher

import (
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/arjunr/dupfind/internal/digestcache"
	"github.com/arjunr/dupfind/internal/types"
)

// PartialLength is the fixed prefix length, in bytes, read for a partial
// digest. It is a compile-time constant, equal for every file, and does not
// change across a process run.
const PartialLength = 1024

// blockSize is the read buffer size used when streaming a full digest.
// Implementation-defined per spec, within [1 KiB, 64 KiB].
const blockSize = 64 * 1024

// Hasher computes digests using a single algorithm fixed at construction.
// Mixing algorithms within one run is forbidden by the spec; callers should
// construct exactly one Hasher per run from Config.HashAlgorithm.
type Hasher struct {
	algo    types.HashAlgorithm
	newHash func() hash.Hash
	cache   *digestcache.Cache
}

// New creates a Hasher for the given algorithm.
func New(algo types.HashAlgorithm) (*Hasher, error) {
	newHash, err := newHashFunc(algo)
	if err != nil {
		return nil, err
	}
	return &Hasher{algo: algo, newHash: newHash}, nil
}

// NewWithCache creates a Hasher that consults cache before recomputing a
// digest and stores every digest it computes back into cache. A nil cache
// (or one opened from an empty path) behaves exactly like New.
func NewWithCache(algo types.HashAlgorithm, cache *digestcache.Cache) (*Hasher, error) {
	h, err := New(algo)
	if err != nil {
		return nil, err
	}
	h.cache = cache
	return h, nil
}

func newHashFunc(algo types.HashAlgorithm) (func() hash.Hash, error) {
	switch algo {
	case types.Blake2b512:
		return func() hash.Hash {
			h, _ := blake2b.New512(nil)
			return h
		}, nil
	case types.SHA3_256:
		return sha3.New256, nil
	case types.SHA3_512:
		return sha3.New512, nil
	default:
		return nil, fmt.Errorf("hasher: unknown algorithm %v", algo)
	}
}

// Algorithm returns the algorithm this Hasher was constructed with.
func (h *Hasher) Algorithm() types.HashAlgorithm { return h.algo }

// Partial reads up to PartialLength bytes from the start of path and
// returns the hex-encoded digest of exactly the bytes read. Files shorter
// than PartialLength are hashed in full.
func (h *Hasher) Partial(path string) (string, error) {
	info, statErr := os.Stat(path)
	if statErr == nil && h.cache != nil {
		if digest, ok := h.cache.LookupPartial(h.algo, path, info.Size(), info.ModTime()); ok {
			return digest, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, PartialLength)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	hasher := h.newHash()
	hasher.Write(buf[:n])
	digest := fmt.Sprintf("%x", hasher.Sum(nil))

	if statErr == nil && h.cache != nil {
		_ = h.cache.StorePartial(h.algo, path, info.Size(), info.ModTime(), digest)
	}
	return digest, nil
}

// Full streams the whole file in fixed-size blocks and returns the
// hex-encoded digest of its entire byte content.
func (h *Hasher) Full(path string) (string, error) {
	info, statErr := os.Stat(path)
	if statErr == nil && h.cache != nil {
		if digest, ok := h.cache.LookupFull(h.algo, path, info.Size(), info.ModTime()); ok {
			return digest, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hasher := h.newHash()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", err
	}
	digest := fmt.Sprintf("%x", hasher.Sum(nil))

	if statErr == nil && h.cache != nil {
		_ = h.cache.StoreFull(h.algo, path, info.Size(), info.ModTime(), digest)
	}
	return digest, nil
}
