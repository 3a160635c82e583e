package pages

import (
	"context"
	"log/slog"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/graph"
	"github.com/Kush-Singh-26/hashdrop/engine/metrics"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
)

// Hook appends the association entry to one bucket per display-name
// token.
type Hook struct {
	opts    Options
	metrics *metrics.Counters
	logger  *slog.Logger
}

// NewHook creates a page hook. m and logger may be nil.
func NewHook(opts Options, m *metrics.Counters, logger *slog.Logger) *Hook {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{opts: opts, metrics: m, logger: logger}
}

// AfterAssociate implements graph.Hook. Only a caller supplied display
// name is tokenized. Buckets equal to the content or category digest are
// skipped; those already carry the entry.
func (h *Hook) AfterAssociate(ctx context.Context, ev *graph.Event, l graph.Linker) ([]models.BucketLink, error) {
	var links []models.BucketLink
	for _, tok := range h.opts.Tokens(ev.Request.DisplayName) {
		if err := ctx.Err(); err != nil {
			return links, err
		}
		bucket := digest.NormalizeOrHash(tok)
		if bucket == ev.Category || bucket == ev.Result.Digest {
			continue
		}
		link, err := l.LinkEntry(bucket, models.KindPage, ev.Entry)
		if err != nil {
			return links, err
		}
		if link.Appended {
			h.metrics.PageBucket()
		}
		links = append(links, link)
	}
	if len(links) > 0 {
		h.logger.Debug("linked page buckets", "digest", ev.Result.Digest.Short(), "pages", len(links))
	}
	return links, nil
}

var _ graph.Hook = (*Hook)(nil)
