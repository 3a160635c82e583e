package services

import (
	"context"
	"io"

	"github.com/Kush-Singh-26/hashdrop/engine/archive"
	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/ledger"
	"github.com/Kush-Singh-26/hashdrop/engine/metrics"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/store"
)

// PutRequest submits bytes or text. Exactly one of Content and Text is
// set. Category and ReplyTo accept a label or a 64-hex digest.
type PutRequest struct {
	Content     []byte
	Text        string
	Extension   string // ignored for Text, which is always txt
	Category    string
	ReplyTo     string
	DisplayName string
	OnDuplicate string // empty selects the configured policy
	Meta        models.Meta
}

// LinkRequest indexes an external URL.
type LinkRequest struct {
	URL         string
	Category    string
	ReplyTo     string
	DisplayName string
	OnDuplicate string
}

// LookupResult locates the listing of a label or digest.
type LookupResult struct {
	Bucket digest.Digest
	Latest string   // newest index file
	Files  []string // every index file, oldest first
}

// ShowResult describes one bucket.
type ShowResult struct {
	Bucket     digest.Digest
	Entries    []store.Entry
	IndexFiles []string
	Members    []ledger.Membership  // nil without a ledger
	Object     *ledger.ObjectRecord // set when the bucket is a recorded object
	Meta       *models.Meta
}

// StatsReport aggregates counters for the current process and, when a
// ledger is configured, persisted totals.
type StatsReport struct {
	Counters metrics.Snapshot
	Buckets  int
	Ledger   *ledger.Stats
}

// ShareService is the entry point used by the CLI and the inbox watcher.
type ShareService interface {
	Put(ctx context.Context, req PutRequest) (*models.AssociateResult, error)
	Link(ctx context.Context, req LinkRequest) (*models.AssociateResult, error)
	Lookup(label string) (*LookupResult, error)
	Show(key string) (*ShowResult, error)
	Verify(ctx context.Context) ([]string, error)
	Snapshot(w io.Writer) (archive.Summary, error)
	Restore(r io.Reader) (archive.Summary, error)
	Stats() (*StatsReport, error)
	Close() error
}
