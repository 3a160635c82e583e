// Package index maintains the append-only index.html listing of each
// bucket.
//
// An entry is written at most once per index file: before appending, the
// current file is searched for the exact entry text. Once a file grows
// past MaxBytes it is left untouched and appends move to a dated
// rollover file (index_YYYYMMDD.html, then index_YYYYMMDD_N.html).
package index

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/lock"
	"github.com/Kush-Singh-26/hashdrop/engine/metrics"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/paths"
	"github.com/Kush-Singh-26/hashdrop/engine/utils"
)

const (
	DefaultMaxBytes         = 100 * 1024
	DefaultRolloverAttempts = 100
)

// Seen is an optional fast-path set of entries already written. Files are
// named by absolute path. ResetSeen is called whenever a file is created.
type Seen interface {
	Seen(file, entry string) (bool, error)
	MarkSeen(file, entry string) error
	ResetSeen(file string) error
}

// Options configures an Appender. Zero values select the defaults.
type Options struct {
	MaxBytes         int64
	RolloverAttempts int
	Now              func() time.Time
	Locks            *lock.Table
	Seen             Seen
	Metrics          *metrics.Counters
}

// Appender appends link entries to bucket index files.
type Appender struct {
	fs       afero.Fs
	base     string
	absBase  string
	maxBytes int64
	attempts int
	now      func() time.Time
	locks    *lock.Table
	seen     Seen
	metrics  *metrics.Counters
}

// New creates an Appender for the tree rooted at base.
func New(fsys afero.Fs, base string, opts Options) *Appender {
	a := &Appender{
		fs:       fsys,
		base:     base,
		maxBytes: opts.MaxBytes,
		attempts: opts.RolloverAttempts,
		now:      opts.Now,
		locks:    opts.Locks,
		seen:     opts.Seen,
		metrics:  opts.Metrics,
	}
	a.absBase = base
	if abs, err := filepath.Abs(base); err == nil {
		a.absBase = abs
	}
	if a.maxBytes <= 0 {
		a.maxBytes = DefaultMaxBytes
	}
	if a.attempts <= 0 {
		a.attempts = DefaultRolloverAttempts
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.locks == nil {
		a.locks = lock.NewTable("")
	}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	return a
}

// Append writes entry to the bucket's current index file unless it is
// already there. A new file starts with header.
func (a *Appender) Append(bucket digest.Digest, header, entry string) (models.AppendResult, error) {
	if entry == "" {
		return models.AppendResult{}, fmt.Errorf("%w: empty index entry", models.ErrInvalidInput)
	}
	dir := paths.BucketDir(a.base, bucket)

	release, err := a.locks.Lock(string(bucket))
	if err != nil {
		return models.AppendResult{}, err
	}
	defer release()

	target, size, err := a.target(dir)
	if err != nil {
		return models.AppendResult{}, err
	}
	name := filepath.Base(target)
	result := models.AppendResult{
		File:       target,
		Created:    size < 0,
		RolledOver: name != paths.IndexName,
	}
	seenKey := filepath.Join(a.absBase, string(bucket), name)

	if a.seen != nil {
		if size < 0 {
			if err := a.seen.ResetSeen(seenKey); err != nil {
				return models.AppendResult{}, fmt.Errorf("seen reset: %w", err)
			}
		} else {
			ok, err := a.seen.Seen(seenKey, entry)
			if err != nil {
				return models.AppendResult{}, fmt.Errorf("seen lookup: %w", err)
			}
			if ok {
				a.metrics.EntrySkipped()
				return result, nil
			}
		}
	}

	var content []byte
	if size < 0 {
		if err := a.fs.MkdirAll(dir, 0755); err != nil {
			return models.AppendResult{}, fmt.Errorf("index mkdir: %w", err)
		}
		content = make([]byte, 0, len(header)+len(entry))
		content = append(content, header...)
	} else {
		content, err = afero.ReadFile(a.fs, target)
		if err != nil {
			return models.AppendResult{}, fmt.Errorf("index read %s: %w", target, err)
		}
		if bytes.Contains(content, []byte(entry)) {
			a.markSeen(seenKey, entry)
			a.metrics.EntrySkipped()
			return result, nil
		}
	}

	content = append(content, entry...)
	if err := utils.WriteFileAtomic(a.fs, target, content, 0644); err != nil {
		return models.AppendResult{}, err
	}
	a.markSeen(seenKey, entry)

	if result.Created {
		a.metrics.IndexCreated()
		if result.RolledOver {
			a.metrics.RolledOver()
		}
	}
	a.metrics.EntryAppended()
	result.Appended = true
	return result, nil
}

// markSeen is best effort: the file already holds the entry and the
// containment check still catches repeats when the ledger lags behind.
func (a *Appender) markSeen(key, entry string) {
	if a.seen != nil {
		_ = a.seen.MarkSeen(key, entry)
	}
}

// Current returns the file the next append to bucket would write.
func (a *Appender) Current(bucket digest.Digest) (string, error) {
	target, _, err := a.target(paths.BucketDir(a.base, bucket))
	return target, err
}

// target picks the first candidate that is missing or not over the
// ceiling. size is -1 when the file does not exist yet.
func (a *Appender) target(dir string) (string, int64, error) {
	primary := filepath.Join(dir, paths.IndexName)
	size, err := a.size(primary)
	if err != nil {
		return "", 0, err
	}
	if size <= a.maxBytes {
		return primary, size, nil
	}

	day := a.now()
	for n := 0; n < a.attempts; n++ {
		candidate := filepath.Join(dir, paths.RolloverName(day, n))
		size, err := a.size(candidate)
		if err != nil {
			return "", 0, err
		}
		if size <= a.maxBytes {
			return candidate, size, nil
		}
	}
	return "", 0, fmt.Errorf("%w: %s", models.ErrIndexFull, dir)
}

func (a *Appender) size(path string) (int64, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return -1, nil
		}
		return 0, fmt.Errorf("index stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Files lists the bucket's index files: index.html first, rollovers in
// name order.
func (a *Appender) Files(bucket digest.Digest) ([]string, error) {
	dir := paths.BucketDir(a.base, bucket)
	infos, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list index files: %w", err)
	}
	var names []string
	for _, info := range infos {
		if !info.IsDir() && paths.IsIndexName(info.Name()) {
			names = append(names, info.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == paths.IndexName || names[j] == paths.IndexName {
			return names[i] == paths.IndexName
		}
		return rolloverLess(names[i], names[j])
	})
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out, nil
}
