// Package clean removes temporary files left in bucket directories by
// interrupted writes.
package clean

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// tempPrefix matches the names used by utils.WriteFileAtomic.
const tempPrefix = ".tmp-"

// DefaultMinAge leaves alone temp files that may belong to a write in
// progress.
const DefaultMinAge = 10 * time.Minute

// Options controls a cleaning pass.
type Options struct {
	MinAge time.Duration
	DryRun bool
	Now    func() time.Time
}

// Report lists the files removed (or, in a dry run, that would be).
type Report struct {
	Removed []string
	Bytes   int64
}

// Run deletes stale temp files one level below base.
func Run(fsys afero.Fs, base string, opts Options) (*Report, error) {
	if opts.MinAge <= 0 {
		opts.MinAge = DefaultMinAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cutoff := opts.Now().Add(-opts.MinAge)

	buckets, err := afero.ReadDir(fsys, base)
	if err != nil {
		if os.IsNotExist(err) {
			return &Report{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", base, err)
	}

	report := &Report{}
	for _, b := range buckets {
		if !b.IsDir() {
			continue
		}
		dir := filepath.Join(base, b.Name())
		files, err := afero.ReadDir(fsys, dir)
		if err != nil {
			return report, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasPrefix(f.Name(), tempPrefix) || f.ModTime().After(cutoff) {
				continue
			}
			p := filepath.Join(dir, f.Name())
			if !opts.DryRun {
				if err := fsys.Remove(p); err != nil && !os.IsNotExist(err) {
					return report, fmt.Errorf("remove %s: %w", p, err)
				}
			}
			report.Removed = append(report.Removed, p)
			report.Bytes += f.Size()
		}
	}
	return report, nil
}
