// Package cache implements ff's persistent attribute cache (spec §4.D): a
// durable (path, mtime-ns, size, attribute) -> Value store that survives
// across invocations. The storage engine is go.etcd.io/bbolt; the
// Stats/CacheInfo reporting idiom (atomic counters, a health-status
// bucketing function) is adapted from the teacher's in-process
// sync.Map-based metrics cache, generalized to a durable store.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/valtype"
)

var bucketName = []byte("attrs")

// Cache is the process-shared, internally-atomic store spec §4.D
// describes ("The Cache is owned by the process and shared by all
// workers"). A nil *bbolt.DB means --no-cache: every operation is a
// silent no-op and the file is never opened (spec §4.D).
type Cache struct {
	db   *bbolt.DB
	path string

	hits      int64
	misses    int64
	puts      int64
	evictions int64

	createdAt  time.Time
	lastVacuum int64
}

// Open opens (creating if absent) the durable cache file at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errkit.WithPath(errkit.KindPlugin, "cache.Open", "cannot create cache directory", path, err)
	}
	db, err := bbolt.Open(path, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errkit.WithPath(errkit.KindPlugin, "cache.Open", "cannot open cache file", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errkit.WithPath(errkit.KindPlugin, "cache.Open", "cannot initialize cache bucket", path, err)
	}
	return &Cache{db: db, path: path, createdAt: time.Now(), lastVacuum: time.Now().UnixNano()}, nil
}

// Disabled returns a Cache that performs no I/O (--no-cache, spec §4.D:
// "disables reads and writes without opening the store").
func Disabled() *Cache {
	return &Cache{createdAt: time.Now()}
}

func (c *Cache) Enabled() bool { return c.db != nil }

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached Value for attr on the entry at path with the
// given live (mtimeNs, size), reporting whether there was a usable hit.
// A record whose own stored (mtime, size) don't match is treated as a
// miss, not returned stale (spec §4.D policy).
func (c *Cache) Get(path string, mtimeNs, size int64, attr string) (v valtype.Value, computeErr error, ok bool) {
	if c.db == nil {
		return valtype.Value{}, nil, false
	}
	key := encodeKey(path, mtimeNs, size, attr)
	var raw []byte
	_ = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if v := b.Get(key); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if raw == nil {
		atomic.AddInt64(&c.misses, 1)
		return valtype.Value{}, nil, false
	}
	r, err := decodeRecord(raw)
	if err != nil || r.path != path || r.mtimeNs != mtimeNs || r.size != size {
		atomic.AddInt64(&c.misses, 1)
		return valtype.Value{}, nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	if r.failed {
		return valtype.Value{}, fmt.Errorf("%s", r.errMsg), true
	}
	return r.value, nil, true
}

// Put stores a successful computation. PutError stores an error marker so
// repeated runs don't retry a provider known to fail for this entry
// (spec §4.E, "memoize ... error markers").
func (c *Cache) Put(path string, mtimeNs, size int64, attr string, v valtype.Value) error {
	return c.store(path, mtimeNs, size, attr, record{path: path, mtimeNs: mtimeNs, size: size, value: v})
}

func (c *Cache) PutError(path string, mtimeNs, size int64, attr string, computeErr error) error {
	return c.store(path, mtimeNs, size, attr, record{path: path, mtimeNs: mtimeNs, size: size, failed: true, errMsg: computeErr.Error()})
}

func (c *Cache) store(path string, mtimeNs, size int64, attr string, r record) error {
	if c.db == nil {
		return nil
	}
	key := encodeKey(path, mtimeNs, size, attr)
	data := encodeRecord(r)
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, data)
	})
	if err != nil {
		return errkit.WithPath(errkit.KindPlugin, "cache.Put", "write failed", path, err)
	}
	atomic.AddInt64(&c.puts, 1)
	return nil
}

// Delete removes one attribute's cached record for path.
func (c *Cache) Delete(path string, mtimeNs, size int64, attr string) error {
	if c.db == nil {
		return nil
	}
	key := encodeKey(path, mtimeNs, size, attr)
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
	if err != nil {
		return errkit.WithPath(errkit.KindPlugin, "cache.Delete", "delete failed", path, err)
	}
	atomic.AddInt64(&c.evictions, 1)
	return nil
}

// StatFunc mirrors os.Stat's (mtime-ns, size) for a path; CleanCache uses
// it instead of importing os directly so callers (and tests) can fake
// "file no longer exists" without touching the real filesystem.
type StatFunc func(path string) (mtimeNs, size int64, exists bool, err error)

// CleanCache implements --clean-cache (spec §4.D): "scans and removes
// records whose path no longer exists or whose stat differs", then
// reclaims the freed space via Vacuum.
func (c *Cache) CleanCache(stat StatFunc) (removed int, err error) {
	if c.db == nil {
		return 0, nil
	}
	statCache := make(map[string]struct {
		mtimeNs, size int64
		exists        bool
	})
	var staleKeys [][]byte

	err = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			r, derr := decodeRecord(v)
			if derr != nil {
				staleKeys = append(staleKeys, append([]byte(nil), k...))
				return nil
			}
			st, known := statCache[r.path]
			if !known {
				mtimeNs, size, exists, serr := stat(r.path)
				if serr != nil {
					exists = false
				}
				st = struct {
					mtimeNs, size int64
					exists        bool
				}{mtimeNs, size, exists}
				statCache[r.path] = st
			}
			if !st.exists || st.mtimeNs != r.mtimeNs || st.size != r.size {
				staleKeys = append(staleKeys, append([]byte(nil), k...))
			}
			return nil
		})
	})
	if err != nil {
		return 0, errkit.Wrap(errkit.KindPlugin, "cache.CleanCache", "scan failed", err)
	}

	if len(staleKeys) > 0 {
		err = c.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketName)
			for _, k := range staleKeys {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, errkit.Wrap(errkit.KindPlugin, "cache.CleanCache", "delete failed", err)
		}
		atomic.AddInt64(&c.evictions, int64(len(staleKeys)))
	}

	if err := c.Vacuum(); err != nil {
		return len(staleKeys), err
	}
	return len(staleKeys), nil
}

// Vacuum rebuilds the cache file to reclaim space from deleted records.
// bbolt has no in-place compaction, so this copies every live key into a
// fresh file named with a random uuid in the same directory, then
// atomically renames it over the original (spec §4.D "vacuum()").
func (c *Cache) Vacuum() error {
	if c.db == nil {
		return nil
	}
	dir := filepath.Dir(c.path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".ff-cache-%s.tmp", uuid.NewString()))

	tmp, err := bbolt.Open(tmpPath, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return errkit.WithPath(errkit.KindPlugin, "cache.Vacuum", "cannot create compaction file", tmpPath, err)
	}

	err = c.db.View(func(srcTx *bbolt.Tx) error {
		return tmp.Update(func(dstTx *bbolt.Tx) error {
			dst, err := dstTx.CreateBucketIfNotExists(bucketName)
			if err != nil {
				return err
			}
			src := srcTx.Bucket(bucketName)
			return src.ForEach(func(k, v []byte) error {
				return dst.Put(append([]byte(nil), k...), append([]byte(nil), v...))
			})
		})
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return errkit.Wrap(errkit.KindPlugin, "cache.Vacuum", "compaction copy failed", err)
	}

	if err := c.db.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errkit.Wrap(errkit.KindPlugin, "cache.Vacuum", "cannot close original cache for swap", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return errkit.Wrap(errkit.KindPlugin, "cache.Vacuum", "atomic swap failed", err)
	}

	db, err := bbolt.Open(c.path, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return errkit.WithPath(errkit.KindPlugin, "cache.Vacuum", "cannot reopen compacted cache", c.path, err)
	}
	c.db = db
	atomic.StoreInt64(&c.lastVacuum, time.Now().UnixNano())
	return nil
}

// Stats reports running counters, in the shape the teacher's
// MetricsCache.Stats()/CacheInfo() pair reports them.
type Stats struct {
	Hits       int64
	Misses     int64
	Puts       int64
	Evictions  int64
	HitRate    float64
	CreatedAt  time.Time
	LastVacuum time.Time
	Uptime     time.Duration
	Status     string
}

func (c *Cache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:       hits,
		Misses:     misses,
		Puts:       atomic.LoadInt64(&c.puts),
		Evictions:  atomic.LoadInt64(&c.evictions),
		HitRate:    hitRate,
		CreatedAt:  c.createdAt,
		LastVacuum: time.Unix(0, atomic.LoadInt64(&c.lastVacuum)),
		Uptime:     time.Since(c.createdAt),
		Status:     healthStatus(hitRate),
	}
}

func healthStatus(hitRate float64) string {
	switch {
	case hitRate >= 0.95:
		return "excellent"
	case hitRate >= 0.85:
		return "good"
	case hitRate >= 0.70:
		return "fair"
	default:
		return "poor"
	}
}
