// Package ledger keeps a BoltDB record of stored objects, bucket
// memberships and the index entries already written, so that repeated
// appends are answered without scanning index files.
package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
)

// Ledger wraps the BoltDB file.
type Ledger struct {
	db   *bolt.DB
	path string
}

// Open opens or creates the ledger at path.
func Open(path string, timeout time.Duration) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := &bolt.Options{
		Timeout:      timeout,
		FreelistType: bolt.FreelistArrayType,
	}
	db, err := bolt.Open(path, 0644, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	l := &Ledger{db: db, path: path}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return l, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// Path returns the database file path.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) initSchema() error {
	return l.db.Update(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets() {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		info := tx.Bucket([]byte(BucketInfo))
		current := info.Get([]byte(KeySchemaVersion))
		if len(current) == 4 && binary.BigEndian.Uint32(current) == SchemaVersion {
			return nil
		}
		// Version 1 kept seen entries in one flat set; they are only a
		// cache of index contents, so they are rebuilt from scratch.
		if current != nil {
			if err := tx.DeleteBucket([]byte(BucketSeen)); err != nil {
				return err
			}
			if _, err := tx.CreateBucket([]byte(BucketSeen)); err != nil {
				return err
			}
		}
		v := make([]byte, 4)
		binary.BigEndian.PutUint32(v, SchemaVersion)
		return info.Put([]byte(KeySchemaVersion), v)
	})
}

// RecordObject stores rec unless the digest is already recorded. It
// reports whether a new record was written.
func (l *Ledger) RecordObject(rec ObjectRecord) (bool, error) {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	data, err := Encode(&rec)
	if err != nil {
		return false, err
	}

	created := false
	err = l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketObjects))
		if b.Get([]byte(rec.Digest)) != nil {
			return nil
		}
		created = true
		return b.Put([]byte(rec.Digest), data)
	})
	return created, err
}

// Object returns the record for d, or nil when none exists.
func (l *Ledger) Object(d digest.Digest) (*ObjectRecord, error) {
	return getItem[ObjectRecord](l.db, BucketObjects, []byte(d))
}

// ForEachObject calls fn for every recorded object.
func (l *Ledger) ForEachObject(fn func(*ObjectRecord) error) error {
	return l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketObjects)).ForEach(func(k, v []byte) error {
			var rec ObjectRecord
			if err := Decode(v, &rec); err != nil {
				return fmt.Errorf("corrupt object record %s: %w", k, err)
			}
			return fn(&rec)
		})
	})
}

// PutMeta stores submitter metadata for d once; later calls are ignored.
func (l *Ledger) PutMeta(d digest.Digest, meta models.Meta) (bool, error) {
	if meta.IsZero() {
		return false, nil
	}
	data, err := Encode(&meta)
	if err != nil {
		return false, err
	}
	created := false
	err = l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketMeta))
		if b.Get([]byte(d)) != nil {
			return nil
		}
		created = true
		return b.Put([]byte(d), data)
	})
	return created, err
}

// Meta returns the metadata for d, or nil.
func (l *Ledger) Meta(d digest.Digest) (*models.Meta, error) {
	return getItem[models.Meta](l.db, BucketMeta, []byte(d))
}

func memberKey(bucket, d digest.Digest) []byte {
	return []byte(string(bucket) + "/" + string(d))
}

// AddMember records that d is linked into bucket.
func (l *Ledger) AddMember(bucket, d digest.Digest, kind models.BucketKind) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketMembers)).Put(memberKey(bucket, d), []byte(kind))
	})
}

// Members returns every digest linked into bucket, in key order.
func (l *Ledger) Members(bucket digest.Digest) ([]Membership, error) {
	prefix := []byte(string(bucket) + "/")
	var out []Membership
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(BucketMembers)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			out = append(out, Membership{
				Bucket: string(bucket),
				Digest: string(k[len(prefix):]),
				Kind:   models.BucketKind(v),
			})
		}
		return nil
	})
	return out, err
}

// Seen reports whether entry was already appended to file. file is
// expected to be an absolute path so that trees sharing one ledger do not
// answer for each other.
func (l *Ledger) Seen(file, entry string) (bool, error) {
	key := []byte(Fingerprint(entry))
	found := false
	err := l.db.View(func(tx *bolt.Tx) error {
		set := tx.Bucket([]byte(BucketSeen)).Bucket([]byte(file))
		found = set != nil && set.Get(key) != nil
		return nil
	})
	return found, err
}

// MarkSeen records that entry is present in file.
func (l *Ledger) MarkSeen(file, entry string) error {
	key := []byte(Fingerprint(entry))
	return l.db.Update(func(tx *bolt.Tx) error {
		set, err := tx.Bucket([]byte(BucketSeen)).CreateBucketIfNotExists([]byte(file))
		if err != nil {
			return err
		}
		return set.Put(key, []byte{})
	})
}

// ResetSeen forgets every entry recorded for file. It is called when the
// file is created, so a listing removed by hand starts from nothing.
func (l *Ledger) ResetSeen(file string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(BucketSeen)).DeleteBucket([]byte(file))
		if errors.Is(err, bolterrors.ErrBucketNotFound) {
			return nil
		}
		return err
	})
}

// Stats counts ledger records.
func (l *Ledger) Stats() (*Stats, error) {
	stats := &Stats{}
	err := l.db.View(func(tx *bolt.Tx) error {
		objects := tx.Bucket([]byte(BucketObjects))
		if err := objects.ForEach(func(_, v []byte) error {
			var rec ObjectRecord
			if err := Decode(v, &rec); err != nil {
				return nil // Skip corrupt entries
			}
			if rec.TargetURL != "" {
				stats.Links++
			} else {
				stats.Objects++
			}
			return nil
		}); err != nil {
			return err
		}

		stats.Members = tx.Bucket([]byte(BucketMembers)).Stats().KeyN
		seen := tx.Bucket([]byte(BucketSeen))
		if err := seen.ForEachBucket(func(k []byte) error {
			stats.SeenEntries += seen.Bucket(k).Stats().KeyN
			return nil
		}); err != nil {
			return err
		}
		stats.WithMeta = tx.Bucket([]byte(BucketMeta)).Stats().KeyN

		if v := tx.Bucket([]byte(BucketInfo)).Get([]byte(KeySchemaVersion)); len(v) == 4 {
			stats.SchemaVersion = int(binary.BigEndian.Uint32(v))
		}
		return nil
	})
	return stats, err
}

// getItem retrieves a msgpack item from a bucket, nil when absent.
func getItem[T any](db *bolt.DB, bucketName string, key []byte) (*T, error) {
	var result *T
	err := db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		data := bucket.Get(key)
		if data == nil {
			return nil
		}
		var item T
		if err := Decode(data, &item); err != nil {
			return err
		}
		result = &item
		return nil
	})
	return result, err
}
