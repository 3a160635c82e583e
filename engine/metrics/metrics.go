// Package metrics tracks engine activity counters.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Counters are safe for concurrent use.
type Counters struct {
	StartTime time.Time

	objectsStored   atomic.Int64
	duplicates      atomic.Int64
	markersWritten  atomic.Int64
	entriesAppended atomic.Int64
	entriesSkipped  atomic.Int64
	indexesCreated  atomic.Int64
	rollovers       atomic.Int64
	pageBuckets     atomic.Int64
	bytesStored     atomic.Int64
}

// New creates a zeroed counter set.
func New() *Counters {
	return &Counters{StartTime: time.Now()}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ObjectsStored   int64
	Duplicates      int64
	MarkersWritten  int64
	EntriesAppended int64
	EntriesSkipped  int64
	IndexesCreated  int64
	Rollovers       int64
	PageBuckets     int64
	BytesStored     int64
	Uptime          time.Duration
}

func (c *Counters) ObjectStored(size int) {
	c.objectsStored.Add(1)
	c.bytesStored.Add(int64(size))
}

func (c *Counters) Duplicate()     { c.duplicates.Add(1) }
func (c *Counters) MarkerWritten() { c.markersWritten.Add(1) }
func (c *Counters) EntryAppended() { c.entriesAppended.Add(1) }
func (c *Counters) EntrySkipped()  { c.entriesSkipped.Add(1) }
func (c *Counters) IndexCreated()  { c.indexesCreated.Add(1) }
func (c *Counters) RolledOver()    { c.rollovers.Add(1) }
func (c *Counters) PageBucket()    { c.pageBuckets.Add(1) }

// Snapshot copies the current values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		ObjectsStored:   c.objectsStored.Load(),
		Duplicates:      c.duplicates.Load(),
		MarkersWritten:  c.markersWritten.Load(),
		EntriesAppended: c.entriesAppended.Load(),
		EntriesSkipped:  c.entriesSkipped.Load(),
		IndexesCreated:  c.indexesCreated.Load(),
		Rollovers:       c.rollovers.Load(),
		PageBuckets:     c.pageBuckets.Load(),
		BytesStored:     c.bytesStored.Load(),
		Uptime:          time.Since(c.StartTime),
	}
}

// DedupRate returns the share of store calls that hit existing content,
// as a percentage.
func (s Snapshot) DedupRate() float64 {
	total := s.ObjectsStored + s.Duplicates
	if total == 0 {
		return 0
	}
	return float64(s.Duplicates) / float64(total) * 100
}

// String returns a single-line summary.
func (s Snapshot) String() string {
	return fmt.Sprintf("stored %d objects (%d bytes), %d duplicates (%.0f%%), %d entries appended, %d skipped, %d rollovers, %d page buckets",
		s.ObjectsStored,
		s.BytesStored,
		s.Duplicates,
		s.DedupRate(),
		s.EntriesAppended,
		s.EntriesSkipped,
		s.Rollovers,
		s.PageBuckets,
	)
}
