// Package graph links stored content into its own bucket, category and
// reply buckets, and any buckets contributed by hooks.
//
// Association is not transactional. A failure part way leaves earlier
// files in place; repeating the same call is safe because the object
// store and the index appender both skip what already exists.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/index"
	"github.com/Kush-Singh-26/hashdrop/engine/ledger"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/paths"
	"github.com/Kush-Singh-26/hashdrop/engine/render"
	"github.com/Kush-Singh-26/hashdrop/engine/store"
)

// Recorder receives association records. *ledger.Ledger implements it.
type Recorder interface {
	RecordObject(rec ledger.ObjectRecord) (bool, error)
	AddMember(bucket, d digest.Digest, kind models.BucketKind) error
}

// Linker appends an entry to a bucket index with the graph's header.
type Linker interface {
	LinkEntry(bucket digest.Digest, kind models.BucketKind, entry string) (models.BucketLink, error)
}

// Event is passed to hooks after the core association succeeded.
type Event struct {
	Request  *models.AssociateRequest
	Result   *models.AssociateResult
	Category digest.Digest // zero when the request named no category
	Entry    string        // the entry written into association buckets
}

// Hook runs after a successful association and may link the content
// into further buckets.
type Hook interface {
	AfterAssociate(ctx context.Context, ev *Event, l Linker) ([]models.BucketLink, error)
}

// Graph wires the store, the index appender and the renderer together.
type Graph struct {
	store    *store.Store
	index    *index.Appender
	render   *render.Renderer
	recorder Recorder
	hooks    []Hook
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Graph.
type Option func(*Graph)

// WithRecorder records objects and memberships, typically in the ledger.
func WithRecorder(r Recorder) Option {
	return func(g *Graph) { g.recorder = r }
}

// WithHooks appends post-association hooks, run in order.
func WithHooks(h ...Hook) Option {
	return func(g *Graph) { g.hooks = append(g.hooks, h...) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) { g.now = now }
}

// New creates a Graph.
func New(st *store.Store, idx *index.Appender, rnd *render.Renderer, logger *slog.Logger, opts ...Option) *Graph {
	g := &Graph{
		store:  st,
		index:  idx,
		render: rnd,
		logger: logger,
		now:    time.Now,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type association struct {
	bucket digest.Digest
	kind   models.BucketKind
}

// Associate stores the request content (if any) and links it into every
// bucket it belongs to. With DuplicateError a repeated upload fails
// before any index is touched. When a hook fails, the result of the core
// association is returned together with the error.
func (g *Graph) Associate(ctx context.Context, req models.AssociateRequest) (*models.AssociateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	isLink := req.IsLink()
	switch {
	case req.TargetURL != "" && len(req.Content) > 0:
		return nil, fmt.Errorf("%w: content and target URL are mutually exclusive", models.ErrInvalidInput)
	case !isLink && len(req.Content) == 0:
		return nil, fmt.Errorf("%w: no content to process", models.ErrInvalidInput)
	}

	ext, err := paths.NormalizeExtension(req.Extension)
	if err != nil {
		return nil, err
	}

	var d digest.Digest
	if isLink {
		d = digest.SumString(req.TargetURL)
		ext = ""
	} else {
		d = digest.Sum(req.Content)
	}

	assocs, err := associations(d, req)
	if err != nil {
		return nil, err
	}

	display := strings.TrimSpace(req.DisplayName)
	if display == "" {
		if isLink {
			display = req.TargetURL
		} else {
			display = paths.ObjectName(d, ext)
		}
	}

	result := &models.AssociateResult{
		Digest:      d,
		Extension:   ext,
		DisplayName: display,
		StoredAt:    g.now(),
	}

	if isLink {
		if err := g.checkLinkDuplicate(d, req.Policy, result); err != nil {
			return nil, err
		}
	} else {
		res, err := g.store.PutObject(d, ext, req.Content, req.Policy)
		if err != nil {
			return nil, err
		}
		result.IsFirst = res.IsFirst
		result.ObjectPath = res.Path
	}

	ownEntry, assocEntry, err := g.entries(d, ext, display, req.TargetURL, isLink)
	if err != nil {
		return nil, err
	}

	link, err := g.LinkEntry(d, models.KindContent, ownEntry)
	if err != nil {
		return nil, err
	}
	result.Links = append(result.Links, link)

	for _, a := range assocs {
		if !isLink {
			if _, err := g.store.PutMarker(a.bucket, d, ext); err != nil {
				return nil, err
			}
		}
		link, err := g.LinkEntry(a.bucket, a.kind, assocEntry)
		if err != nil {
			return nil, err
		}
		result.Links = append(result.Links, link)
	}

	if err := g.record(d, ext, display, req, assocs); err != nil {
		return nil, err
	}

	g.logger.Debug("associated content",
		"digest", d.Short(),
		"first", result.IsFirst,
		"buckets", len(result.Links),
	)

	if len(g.hooks) == 0 {
		return result, nil
	}
	ev := &Event{Request: &req, Result: result, Entry: assocEntry}
	if len(assocs) > 0 && assocs[0].kind == models.KindCategory {
		ev.Category = assocs[0].bucket
	}
	for _, h := range g.hooks {
		links, err := h.AfterAssociate(ctx, ev, g)
		result.Links = append(result.Links, links...)
		if err != nil {
			return result, fmt.Errorf("post-association hook: %w", err)
		}
	}
	return result, nil
}

// LinkEntry implements Linker.
func (g *Graph) LinkEntry(bucket digest.Digest, kind models.BucketKind, entry string) (models.BucketLink, error) {
	res, err := g.index.Append(bucket, g.render.Header(), entry)
	if err != nil {
		return models.BucketLink{}, fmt.Errorf("link into %s bucket %s: %w", kind, bucket.Short(), err)
	}
	return models.BucketLink{Bucket: bucket, Kind: kind, AppendResult: res}, nil
}

func associations(d digest.Digest, req models.AssociateRequest) ([]association, error) {
	var out []association
	add := func(key digest.BucketKey, kind models.BucketKind) error {
		if key.IsZero() {
			return nil
		}
		b := key.Resolve()
		if b == d {
			return fmt.Errorf("%w: %s can't be the same as the contents", models.ErrInvalidInput, kind)
		}
		for _, a := range out {
			if a.bucket == b {
				return nil
			}
		}
		out = append(out, association{bucket: b, kind: kind})
		return nil
	}
	if err := add(req.Category, models.KindCategory); err != nil {
		return nil, err
	}
	if err := add(req.ReplyTo, models.KindReply); err != nil {
		return nil, err
	}
	return out, nil
}

// checkLinkDuplicate treats an existing bucket for the URL digest as a
// previous submission of the same link.
func (g *Graph) checkLinkDuplicate(d digest.Digest, policy models.DuplicatePolicy, result *models.AssociateResult) error {
	if !g.store.BucketExists(d) {
		result.IsFirst = true
		return nil
	}
	if policy == models.DuplicateError {
		return fmt.Errorf("%w: link %s", models.ErrDuplicateContent, d.Short())
	}
	return nil
}

func (g *Graph) entries(d digest.Digest, ext, display, url string, isLink bool) (string, string, error) {
	if isLink {
		e, err := g.render.LinkEntry(d, url, display)
		return e, e, err
	}
	own, err := g.render.ContentEntry(d, ext, display)
	if err != nil {
		return "", "", err
	}
	assoc, err := g.render.CategoryEntry(d, ext, display)
	if err != nil {
		return "", "", err
	}
	return own, assoc, nil
}

func (g *Graph) record(d digest.Digest, ext, display string, req models.AssociateRequest, assocs []association) error {
	if g.recorder == nil {
		return nil
	}
	rec := ledger.ObjectRecord{
		Digest:      string(d),
		Extension:   ext,
		Size:        int64(len(req.Content)),
		DisplayName: display,
		TargetURL:   req.TargetURL,
		CreatedAt:   g.now().Unix(),
	}
	if _, err := g.recorder.RecordObject(rec); err != nil {
		return fmt.Errorf("record object: %w", err)
	}
	for _, a := range assocs {
		if err := g.recorder.AddMember(a.bucket, d, a.kind); err != nil {
			return fmt.Errorf("record membership: %w", err)
		}
	}
	return nil
}
