package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/utils"
)

// Verify re-hashes every content object and checks that every marker
// is empty and points at stored content. It returns one message per
// problem found.
func (s *Store) Verify(ctx context.Context, workers int) ([]string, error) {
	buckets, err := s.Buckets()
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		issues []string
	)
	report := func(format string, args ...any) {
		mu.Lock()
		issues = append(issues, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	err = utils.ForEach(ctx, workers, buckets, func(_ context.Context, bucket digest.Digest) error {
		entries, err := s.List(bucket)
		if err != nil {
			report("unreadable bucket %s: %v", bucket, err)
			return nil
		}
		for _, e := range entries {
			if e.Marker {
				if e.Size != 0 {
					report("marker %s in %s is not empty (%d bytes)", e.Name(), bucket, e.Size)
				}
				if !s.Exists(e.Digest, e.Digest, e.Extension) {
					report("marker %s in %s points at missing content", e.Name(), bucket)
				}
				continue
			}
			f, err := s.Open(bucket, e.Digest, e.Extension)
			if err != nil {
				report("unreadable object %s: %v", e.Name(), err)
				continue
			}
			got, _, err := digest.SumReader(f)
			_ = f.Close()
			if err != nil {
				report("unreadable object %s: %v", e.Name(), err)
				continue
			}
			if got != e.Digest {
				report("digest mismatch for %s: content hashes to %s", e.Name(), got)
			}
		}
		return nil
	})
	sort.Strings(issues)
	return issues, err
}
