// Package dupfind wires together Ingest, DigestIndex, Equivalence, and
// Extractor into the engine's single entry point, GetDuplicates.
package dupfind

import (
	"fmt"
	"log"

	"github.com/arjunr/dupfind/internal/digestcache"
	"github.com/arjunr/dupfind/internal/digestindex"
	"github.com/arjunr/dupfind/internal/equivalence"
	"github.com/arjunr/dupfind/internal/extractor"
	"github.com/arjunr/dupfind/internal/hasher"
	"github.com/arjunr/dupfind/internal/ingest"
	"github.com/arjunr/dupfind/internal/progress"
	"github.com/arjunr/dupfind/internal/treestore"
	"github.com/arjunr/dupfind/internal/types"
)

// Config holds the options for one GetDuplicates run. The zero value is
// usable: it selects Blake2b512, synchronous full-hash computation, no
// minimum size, no progress reporting, and no persistent digest cache.
type Config struct {
	// MinimumSize excludes any file or directory whose computed size is
	// at or below this many bytes from the output.
	MinimumSize int64

	// NumWorkers bounds the DigestIndex's full-hash worker pool. <= 0 means
	// synchronous (no worker pool).
	NumWorkers int

	// HashAlgorithm selects the digest function used for the whole run.
	HashAlgorithm types.HashAlgorithm

	// CacheFile, if non-empty, enables a persistent digest cache at this
	// path across runs.
	CacheFile string

	// ProgressIndicator reports per-phase progress for Equivalence and
	// Extractor. Defaults to a no-op.
	ProgressIndicator progress.SimpleProgress

	// MultilineProgress reports per-directory progress during Ingest.
	// Defaults to a no-op.
	MultilineProgress progress.MultilineProgress

	// Logger receives the non-fatal, per-path diagnostics Ingest produces
	// for inaccessible files and directories. Defaults to the standard
	// logger writing to stderr.
	Logger *log.Logger
}

// GetDuplicates walks every path in directories, derives duplicate file and
// directory groups, and returns them sorted by size descending.
//
// Fatal inconsistencies (a hash that cannot be computed after a file passed
// Ingest, or a DigestIndex bookkeeping mismatch) are not returned as errors:
// per the engine's fatal/non-fatal error split, they panic, since they
// indicate a broken invariant rather than a condition the caller can
// meaningfully recover from. GetDuplicates only returns an error for
// conditions detectable before any work starts.
func GetDuplicates(directories []string, cfg Config) ([]types.DuplicateGroup, error) {
	if len(directories) == 0 {
		return nil, fmt.Errorf("dupfind: no directories given")
	}

	cache, err := digestcache.Open(cfg.CacheFile)
	if err != nil {
		return nil, fmt.Errorf("dupfind: open digest cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	h, err := hasher.NewWithCache(cfg.HashAlgorithm, cache)
	if err != nil {
		return nil, fmt.Errorf("dupfind: %w", err)
	}

	store := treestore.New()
	idx := digestindex.New(h, cfg.NumWorkers)

	walker := ingest.New(store, idx, h, cfg.MultilineProgress, cfg.Logger)
	if err := walker.Run(directories); err != nil {
		return nil, fmt.Errorf("dupfind: ingest: %w", err)
	}

	idx.Finalize()

	equivalence.Run(store, idx, cfg.ProgressIndicator)

	groups := extractor.Run(store, cfg.MinimumSize, cfg.ProgressIndicator)
	return groups, nil
}
