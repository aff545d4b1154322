// Package indexcache keeps recently loaded indexes in memory.
//
// Indexes are keyed by the digest of their uncompressed bytes, so two files holding the same
// index (say, a gzip and a zstd copy) share one cache entry.  A second, smaller table remembers
// which digest each file had when it was last loaded; a file whose size or modification time has
// changed since then is loaded again.
package indexcache

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/indexfile"
	"github.com/pachyderm/csi/src/internal/log"
)

type fileKey struct {
	path    string
	size    int64
	modTime time.Time
}

type entry struct {
	idx  *csi.Index
	size int64
}

// Stats describes cache usage.
type Stats struct {
	Hits, Misses uint64
	Entries      int
	Bytes        int64
}

// Cache is an LRU cache of indexes with a limit on both the number of entries and their total
// encoded size.  It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	indexes  *lru.Cache[indexfile.Digest, *entry]
	files    *lru.Cache[fileKey, indexfile.Digest]
	bytes    int64
	maxBytes int64

	loads        singleflight.Group
	hits, misses atomic.Uint64
}

// New returns a cache holding at most entries indexes totalling at most maxBytes encoded
// bytes.  maxBytes <= 0 means no size limit.
func New(entries int, maxBytes int64) (*Cache, error) {
	c := &Cache{maxBytes: maxBytes}
	indexes, err := lru.NewWithEvict[indexfile.Digest, *entry](entries, func(_ indexfile.Digest, e *entry) {
		// Called with c.mu held.
		c.bytes -= e.size
	})
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	files, err := lru.New[fileKey, indexfile.Digest](4 * entries)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	c.indexes, c.files = indexes, files
	return c, nil
}

// Get returns the cached index with the given digest.
func (c *Cache) Get(digest indexfile.Digest) (*csi.Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.indexes.Get(digest)
	if !ok {
		return nil, false
	}
	return e.idx, true
}

// Add caches idx under digest and returns the cached index for digest, which is idx unless
// an index with the same digest was already cached.  An index larger than the size limit is not
// cached.
func (c *Cache) Add(digest indexfile.Digest, idx *csi.Index) *csi.Index {
	cached, _ := c.add(digest, idx)
	return cached
}

func (c *Cache) add(digest indexfile.Digest, idx *csi.Index) (*csi.Index, bool) {
	size := idx.EncodedSize()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.indexes.Get(digest); ok {
		return e.idx, true
	}
	if c.maxBytes > 0 && size > c.maxBytes {
		return idx, false
	}
	c.indexes.Add(digest, &entry{idx: idx, size: size})
	c.bytes += size
	for c.maxBytes > 0 && c.bytes > c.maxBytes {
		if _, _, ok := c.indexes.RemoveOldest(); !ok {
			break
		}
	}
	return idx, false
}

// Load returns the index at path, from the cache if the file has not changed since it was
// cached.  Concurrent loads of the same file share one read.
func (c *Cache) Load(ctx context.Context, path string, opts ...indexfile.Option) (*csi.Index, indexfile.Digest, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, indexfile.Digest{}, errors.EnsureStack(err)
	}
	key := fileKey{path: path, size: fi.Size(), modTime: fi.ModTime()}
	c.mu.Lock()
	digest, ok := c.files.Get(key)
	var e *entry
	if ok {
		e, ok = c.indexes.Get(digest)
	}
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
		log.Debug(ctx, "index cache hit", zap.String("path", path))
		return e.idx, digest, nil
	}
	type result struct {
		idx    *csi.Index
		digest indexfile.Digest
	}
	v, err, _ := c.loads.Do(path, func() (any, error) {
		idx, digest, err := indexfile.Load(ctx, path, opts...)
		if err != nil {
			return nil, err
		}
		return result{idx: idx, digest: digest}, nil
	})
	if err != nil {
		return nil, indexfile.Digest{}, errors.EnsureStack(err)
	}
	r := v.(result)
	c.mu.Lock()
	c.files.Add(key, r.digest)
	c.mu.Unlock()
	// A different file with the same contents may already be cached; keep that copy.
	idx, existed := c.add(r.digest, r.idx)
	if existed {
		c.hits.Add(1)
		log.Debug(ctx, "index cache hit by content", zap.String("path", path))
	} else {
		c.misses.Add(1)
	}
	return idx, r.digest, nil
}

// Stats returns the current cache usage.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.indexes.Len(),
		Bytes:   c.bytes,
	}
}
