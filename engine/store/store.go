// Package store persists content bytes under their digest exactly once.
//
// Layout: <base>/<bucket>/<digest>.<ext>. A content object lives in the
// bucket named by its own digest; the same name inside any other bucket
// is a zero-byte membership marker.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/lock"
	"github.com/Kush-Singh-26/hashdrop/engine/metrics"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/paths"
	"github.com/Kush-Singh-26/hashdrop/engine/utils"
)

// Store is a content-addressed object store on an afero filesystem.
type Store struct {
	fs      afero.Fs
	base    string
	locks   *lock.Table
	metrics *metrics.Counters
}

// Option configures a Store.
type Option func(*Store)

// WithLocks shares a lock table with other components writing to the
// same tree.
func WithLocks(t *lock.Table) Option {
	return func(s *Store) { s.locks = t }
}

// WithMetrics records store activity.
func WithMetrics(m *metrics.Counters) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a Store rooted at base. Bucket directories are created on
// first write.
func New(fsys afero.Fs, base string, opts ...Option) *Store {
	s := &Store{fs: fsys, base: base}
	for _, opt := range opts {
		opt(s)
	}
	if s.locks == nil {
		s.locks = lock.NewTable("")
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// BucketDir returns the directory of bucket.
func (s *Store) BucketDir(bucket digest.Digest) string {
	return paths.BucketDir(s.base, bucket)
}

// Put writes data as bucket/obj.ext unless it already exists. Existing
// files are never rewritten; policy decides whether that is an error.
func (s *Store) Put(bucket, obj digest.Digest, ext string, data []byte, policy models.DuplicatePolicy) (models.StoreResult, error) {
	dir := s.BucketDir(bucket)
	dest, err := paths.ObjectPath(dir, obj, ext)
	if err != nil {
		return models.StoreResult{}, err
	}
	result := models.StoreResult{Digest: obj, Path: dest}

	release, err := s.locks.Lock(string(bucket))
	if err != nil {
		return models.StoreResult{}, err
	}
	defer release()

	exists, err := afero.Exists(s.fs, dest)
	if err != nil {
		return models.StoreResult{}, fmt.Errorf("object stat %s: %w", dest, err)
	}
	if exists {
		if policy == models.DuplicateError {
			return result, fmt.Errorf("%w: %s", models.ErrDuplicateContent, filepath.Base(dest))
		}
		return result, nil
	}

	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return models.StoreResult{}, fmt.Errorf("object write mkdir: %w", err)
	}
	if err := utils.WriteFileAtomic(s.fs, dest, data, 0644); err != nil {
		return models.StoreResult{}, err
	}

	result.IsFirst = true
	return result, nil
}

// PutContent stores data in the bucket named by its own digest.
func (s *Store) PutContent(data []byte, ext string, policy models.DuplicatePolicy) (models.StoreResult, error) {
	return s.PutObject(digest.Sum(data), ext, data, policy)
}

// PutObject is PutContent for callers that already hashed data.
func (s *Store) PutObject(d digest.Digest, ext string, data []byte, policy models.DuplicatePolicy) (models.StoreResult, error) {
	res, err := s.Put(d, d, ext, data, policy)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateContent) {
			s.metrics.Duplicate()
		}
		return res, err
	}
	if res.IsFirst {
		s.metrics.ObjectStored(len(data))
	} else {
		s.metrics.Duplicate()
	}
	return res, nil
}

// PutMarker places the zero-byte membership marker obj.ext in bucket.
func (s *Store) PutMarker(bucket, obj digest.Digest, ext string) (models.StoreResult, error) {
	res, err := s.Put(bucket, obj, ext, nil, models.DuplicateIgnore)
	if err == nil && res.IsFirst {
		s.metrics.MarkerWritten()
	}
	return res, err
}

// Get reads bucket/obj.ext.
func (s *Store) Get(bucket, obj digest.Digest, ext string) ([]byte, error) {
	p, err := paths.ObjectPath(s.BucketDir(bucket), obj, ext)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, filepath.Base(p))
		}
		return nil, fmt.Errorf("object read %s: %w", p, err)
	}
	return data, nil
}

// GetContent reads a content object from its own bucket.
func (s *Store) GetContent(d digest.Digest, ext string) ([]byte, error) {
	return s.Get(d, d, ext)
}

// Open returns a reader over bucket/obj.ext. The caller closes it.
func (s *Store) Open(bucket, obj digest.Digest, ext string) (io.ReadCloser, error) {
	p, err := paths.ObjectPath(s.BucketDir(bucket), obj, ext)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, filepath.Base(p))
		}
		return nil, err
	}
	return f, nil
}

// Exists reports whether bucket/obj.ext is present.
func (s *Store) Exists(bucket, obj digest.Digest, ext string) bool {
	p, err := paths.ObjectPath(s.BucketDir(bucket), obj, ext)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(s.fs, p)
	return err == nil && ok
}

// BucketExists reports whether the bucket directory exists.
func (s *Store) BucketExists(bucket digest.Digest) bool {
	ok, err := afero.DirExists(s.fs, s.BucketDir(bucket))
	return err == nil && ok
}

// Entry is one object or marker inside a bucket.
type Entry struct {
	Digest    digest.Digest
	Extension string
	Size      int64
	Marker    bool // stored in a bucket other than its own
}

// Name returns the on-disk file name.
func (e Entry) Name() string { return paths.ObjectName(e.Digest, e.Extension) }

// List returns the objects and markers of bucket sorted by name. Index
// files, temp files and unrelated names are skipped.
func (s *Store) List(bucket digest.Digest) ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.BucketDir(bucket))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bucket %s: %w", bucket, err)
	}

	var entries []Entry
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		d, ext, ok := paths.ParseObjectName(info.Name())
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Digest:    d,
			Extension: ext,
			Size:      info.Size(),
			Marker:    d != bucket,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// Buckets returns every bucket digest under base.
func (s *Store) Buckets() ([]digest.Digest, error) {
	infos, err := afero.ReadDir(s.fs, s.base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	var out []digest.Digest
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		if d, err := digest.Parse(info.Name()); err == nil && string(d) == info.Name() {
			out = append(out, d)
		}
	}
	return out, nil
}
