// Package digestcache provides a persistent, self-cleaning cache of partial
// and full digests, keyed on (path, size, mtime, algorithm) so any change to
// the underlying file invalidates its entries automatically.
package digestcache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/arjunr/dupfind/internal/types"
)

const bucketName = "digests"

// Cache is a BoltDB-backed digest cache. Each run opens the existing
// database read-only and writes into a fresh ".new" database; only entries
// actually looked up during the run are copied forward, so the cache never
// accumulates stale entries for files that have since vanished or changed.
// On Close, the new database atomically replaces the old one.
type Cache struct {
	readDB  *bolt.DB
	writeDB *bolt.DB
	path    string
	enabled bool
}

// Open opens path for reading (if it exists) and creates path+".new" for
// writing. An empty path returns a disabled cache whose Lookup/Store calls
// are no-ops, for runs with no --cache-file configured.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}

	if _, err := os.Stat(path); err == nil {
		readDB, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: 1 * time.Second})
		if err == nil {
			c.readDB = readDB
		}
	}

	writeDB, err := bolt.Open(path+".new", 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new digest cache (locked by another instance?): %w", err)
	}
	c.writeDB = writeDB

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and, if the write database closed cleanly,
// atomically renames it over the old cache file.
func (c *Cache) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.readDB != nil {
		record(c.readDB.Close())
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			record(err)
		} else {
			record(os.Rename(c.path+".new", c.path))
		}
	}
	return firstErr
}

const keyVersion byte = 1

type kind byte

const (
	kindPartial kind = 0
	kindFull    kind = 1
)

// makeKey builds a deterministic key: ver(1) + algo(1) + kind(1) + path +
// NUL + size(8) + mtime-nanos(8). Any change to the file's size or mtime,
// or a different algorithm, produces a different key and so a cache miss.
func makeKey(algo types.HashAlgorithm, k kind, path string, size int64, mtime time.Time) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteByte(byte(algo))
	buf.WriteByte(byte(k))
	buf.WriteString(path)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, size)
	_ = binary.Write(buf, binary.BigEndian, mtime.UnixNano())
	return buf.Bytes()
}

// lookup checks the previous run's database first, then the entries stored
// so far in this run.
func (c *Cache) lookup(k []byte) (string, bool) {
	if !c.enabled {
		return "", false
	}
	var digest string
	get := func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if v := b.Get(k); v != nil {
			digest = string(v)
		}
		return nil
	}
	if c.readDB != nil {
		_ = c.readDB.View(get)
	}
	if digest == "" && c.writeDB != nil {
		_ = c.writeDB.View(get)
	}
	if digest == "" {
		return "", false
	}
	_ = c.store(k, digest)
	return digest, true
}

func (c *Cache) store(k []byte, digest string) error {
	if !c.enabled || c.writeDB == nil {
		return nil
	}
	return c.writeDB.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(k, []byte(digest))
	})
}

// LookupPartial returns a cached partial digest for path, if present.
func (c *Cache) LookupPartial(algo types.HashAlgorithm, path string, size int64, mtime time.Time) (string, bool) {
	return c.lookup(makeKey(algo, kindPartial, path, size, mtime))
}

// StorePartial saves a partial digest for path.
func (c *Cache) StorePartial(algo types.HashAlgorithm, path string, size int64, mtime time.Time, digest string) error {
	return c.store(makeKey(algo, kindPartial, path, size, mtime), digest)
}

// LookupFull returns a cached full digest for path, if present.
func (c *Cache) LookupFull(algo types.HashAlgorithm, path string, size int64, mtime time.Time) (string, bool) {
	return c.lookup(makeKey(algo, kindFull, path, size, mtime))
}

// StoreFull saves a full digest for path.
func (c *Cache) StoreFull(algo types.HashAlgorithm, path string, size int64, mtime time.Time, digest string) error {
	return c.store(makeKey(algo, kindFull, path, size, mtime), digest)
}
