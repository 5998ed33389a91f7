package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/samvad-graph/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	publishedBucket  = "published"
	expiryValueBytes = 8
)

var errBucketMissing = errors.New("published bucket missing")

// boltLedger implements a Ledger backed by BoltDB. Each value is an 8 byte
// big-endian expiry followed by the JSON encoded operation.
type boltLedger struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	entryTTL        time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Ledger.
func openBolt(path string, opts Options) (Ledger, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(publishedBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	l := &boltLedger{
		db:              db,
		entryTTL:        opts.EntryTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	l.lastCleanup.Store(l.now().Unix())
	return l, nil
}

// Close closes the BoltDB ledger.
func (b *boltLedger) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Record stores op under its ResultID, replacing any earlier entry.
func (b *boltLedger) Record(op domain.Operation) error {
	id := strings.TrimSpace(op.ResultID)
	if id == "" {
		return fmt.Errorf("operation has no result id")
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encode operation: %w", err)
	}
	buf := make([]byte, expiryValueBytes, expiryValueBytes+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(now.Add(b.entryTTL).Unix()))
	buf = append(buf, payload...)

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(id), buf)
	})
}

// Lookup returns the live entry for id. Expired entries are deleted and reported missing.
func (b *boltLedger) Lookup(id string) (domain.Operation, bool, error) {
	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return domain.Operation{}, false, err
	}

	var (
		op    domain.Operation
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}

		key := []byte(id)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		decoded, ok := decodeEntry(value, now)
		if !ok {
			return bucket.Delete(key)
		}
		op, found = decoded, true
		return nil
	})
	return op, found, err
}

// Forget removes id from the ledger; missing ids are not an error.
func (b *boltLedger) Forget(id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Delete([]byte(id))
	})
}

// List returns live entries ordered by time recorded.
func (b *boltLedger) List() ([]domain.Operation, error) {
	now := b.now()
	var ops []domain.Operation
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.ForEach(func(_, v []byte) error {
			if op, ok := decodeEntry(v, now); ok {
				ops = append(ops, op)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].At.Before(ops[j].At) })
	return ops, nil
}

// maybeCleanupExpired removes expired entries on a fixed cadence to avoid unbounded growth.
func (b *boltLedger) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(publishedBucket))
		if bucket == nil {
			return errBucketMissing
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if _, ok := decodeEntry(v, now); !ok {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeEntry returns the stored operation if value is well formed and not expired at now.
func decodeEntry(value []byte, now time.Time) (domain.Operation, bool) {
	if len(value) <= expiryValueBytes {
		return domain.Operation{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 || !time.Unix(unix, 0).After(now) {
		return domain.Operation{}, false
	}

	var op domain.Operation
	if err := json.Unmarshal(value[expiryValueBytes:], &op); err != nil {
		return domain.Operation{}, false
	}
	return op, true
}
