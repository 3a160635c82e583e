// Package services assembles the storage engine from configuration and
// exposes it as a ShareService.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/archive"
	"github.com/Kush-Singh-26/hashdrop/engine/config"
	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/graph"
	"github.com/Kush-Singh-26/hashdrop/engine/index"
	"github.com/Kush-Singh-26/hashdrop/engine/ledger"
	"github.com/Kush-Singh-26/hashdrop/engine/lock"
	"github.com/Kush-Singh-26/hashdrop/engine/metrics"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/pages"
	"github.com/Kush-Singh-26/hashdrop/engine/render"
	"github.com/Kush-Singh-26/hashdrop/engine/store"
)

const (
	textExtension  = "txt"
	textNameLength = 50
	textDateLayout = "2006.01.02 15:04:05"
)

// shareServiceImpl implements ShareService
type shareServiceImpl struct {
	cfg     *config.Config
	fs      afero.Fs
	store   *store.Store
	index   *index.Appender
	graph   *graph.Graph
	ledger  *ledger.Ledger
	metrics *metrics.Counters
	logger  *slog.Logger
	now     func() time.Time
}

// Option adjusts a service under construction.
type Option func(*shareServiceImpl)

// WithClock overrides time.Now for stored timestamps and rollover dates.
func WithClock(now func() time.Time) Option {
	return func(s *shareServiceImpl) { s.now = now }
}

// NewShareService builds the engine described by cfg on fsys. File
// locks are only taken on the OS filesystem.
func NewShareService(cfg *config.Config, fsys afero.Fs, logger *slog.Logger, opts ...Option) (ShareService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &shareServiceImpl{
		cfg:     cfg,
		fs:      fsys,
		metrics: metrics.New(),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	locksDir := ""
	if _, isOS := fsys.(*afero.OsFs); isOS && cfg.FileLocks {
		locksDir = cfg.LocksDir()
	}
	locks := lock.NewTable(locksDir)

	var seen index.Seen
	var recorder graph.Recorder
	if cfg.Ledger {
		l, err := ledger.Open(cfg.LedgerPath(), cfg.LedgerTimeout)
		if err != nil {
			return nil, err
		}
		s.ledger = l
		seen = l
		recorder = l
	}

	rnd, err := render.New(cfg.Header, cfg.MinifyHeader)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.store = store.New(fsys, cfg.BaseDir, store.WithLocks(locks), store.WithMetrics(s.metrics))
	s.index = index.New(fsys, cfg.BaseDir, index.Options{
		MaxBytes:         cfg.IndexMaxBytes,
		RolloverAttempts: cfg.RolloverAttempts,
		Now:              s.now,
		Locks:            locks,
		Seen:             seen,
		Metrics:          s.metrics,
	})

	graphOpts := []graph.Option{graph.WithClock(s.now)}
	if recorder != nil {
		graphOpts = append(graphOpts, graph.WithRecorder(recorder))
	}
	if cfg.Pages.Enabled {
		hook := pages.NewHook(pages.Options{
			MinTokenLength: cfg.Pages.MinTokenLength,
			SkipDigits:     cfg.Pages.SkipDigits,
			SkipStopWords:  cfg.Pages.SkipStopWords,
			MaxTokens:      cfg.Pages.MaxTokens,
		}, s.metrics, logger)
		graphOpts = append(graphOpts, graph.WithHooks(hook))
	}
	s.graph = graph.New(s.store, s.index, rnd, logger, graphOpts...)

	logger.Debug("share service ready",
		"base", cfg.BaseDir,
		"ledger", cfg.Ledger,
		"fileLocks", locks.FileLocks(),
		"pages", cfg.Pages.Enabled,
	)
	return s, nil
}

func (s *shareServiceImpl) policy(v string) (models.DuplicatePolicy, error) {
	if v == "" {
		return s.cfg.DuplicatePolicy(), nil
	}
	return models.ParseDuplicatePolicy(v)
}

func (s *shareServiceImpl) Put(ctx context.Context, req PutRequest) (*models.AssociateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	policy, err := s.policy(req.OnDuplicate)
	if err != nil {
		return nil, err
	}

	content, ext, display := req.Content, req.Extension, req.DisplayName
	if req.Text != "" {
		if len(content) > 0 {
			return nil, fmt.Errorf("%w: both content and text given", models.ErrInvalidInput)
		}
		content = []byte(req.Text)
		ext = textExtension
		if display == "" {
			display = textDisplayName(req.Text, s.now())
		}
	}

	res, err := s.graph.Associate(ctx, models.AssociateRequest{
		Content:     content,
		Extension:   ext,
		Category:    key(req.Category),
		ReplyTo:     key(req.ReplyTo),
		DisplayName: display,
		Policy:      policy,
	})
	if res == nil {
		return nil, err
	}
	s.logResult("stored content", res)

	if s.ledger != nil && !req.Meta.IsZero() {
		if _, merr := s.ledger.PutMeta(res.Digest, req.Meta); merr != nil {
			return res, errors.Join(err, fmt.Errorf("store metadata: %w", merr))
		}
	}
	return res, err
}

func (s *shareServiceImpl) Link(ctx context.Context, req LinkRequest) (*models.AssociateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL", models.ErrInvalidInput)
	}
	policy, err := s.policy(req.OnDuplicate)
	if err != nil {
		return nil, err
	}
	res, err := s.graph.Associate(ctx, models.AssociateRequest{
		TargetURL:   url,
		Category:    key(req.Category),
		ReplyTo:     key(req.ReplyTo),
		DisplayName: req.DisplayName,
		Policy:      policy,
	})
	if res != nil {
		s.logResult("indexed link", res)
	}
	return res, err
}

func (s *shareServiceImpl) Lookup(label string) (*LookupResult, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: empty label", models.ErrInvalidInput)
	}
	bucket := digest.NormalizeOrHash(label)
	files, err := s.index.Files(bucket)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no listing for %q", models.ErrNotFound, label)
	}
	return &LookupResult{Bucket: bucket, Latest: files[len(files)-1], Files: files}, nil
}

func (s *shareServiceImpl) Show(k string) (*ShowResult, error) {
	bk := digest.ParseKey(k)
	if bk.IsZero() {
		return nil, fmt.Errorf("%w: empty key", models.ErrInvalidInput)
	}
	bucket := bk.Resolve()
	if !s.store.BucketExists(bucket) {
		return nil, fmt.Errorf("%w: bucket %s", models.ErrNotFound, bk)
	}

	out := &ShowResult{Bucket: bucket}
	var err error
	if out.Entries, err = s.store.List(bucket); err != nil {
		return nil, err
	}
	if out.IndexFiles, err = s.index.Files(bucket); err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return out, nil
	}
	if out.Members, err = s.ledger.Members(bucket); err != nil {
		return nil, err
	}
	if out.Object, err = s.ledger.Object(bucket); err != nil {
		return nil, err
	}
	if out.Meta, err = s.ledger.Meta(bucket); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify checks stored objects and, with a ledger, that every recorded
// object is still present.
func (s *shareServiceImpl) Verify(ctx context.Context) ([]string, error) {
	issues, err := s.store.Verify(ctx, s.cfg.VerifyWorkers)
	if err != nil {
		return issues, err
	}
	if s.ledger == nil {
		return issues, nil
	}
	err = s.ledger.ForEachObject(func(rec *ledger.ObjectRecord) error {
		if rec.TargetURL != "" {
			return nil
		}
		d := digest.Digest(rec.Digest)
		if !s.store.Exists(d, d, rec.Extension) {
			issues = append(issues, fmt.Sprintf("recorded object %s is missing from the tree", rec.Digest))
		}
		return nil
	})
	s.logger.Info("verify finished", "issues", len(issues))
	return issues, err
}

func (s *shareServiceImpl) Snapshot(w io.Writer) (archive.Summary, error) {
	sum, err := archive.Snapshot(s.fs, s.cfg.BaseDir, w)
	if err == nil {
		s.logger.Info("snapshot written", "files", sum.Files, "bytes", sum.Bytes)
	}
	return sum, err
}

func (s *shareServiceImpl) Restore(r io.Reader) (archive.Summary, error) {
	sum, err := archive.Restore(r, s.fs, s.cfg.BaseDir)
	s.logger.Info("restore finished", "files", sum.Files, "skipped", sum.Skipped, "error", err)
	return sum, err
}

func (s *shareServiceImpl) Stats() (*StatsReport, error) {
	buckets, err := s.store.Buckets()
	if err != nil {
		return nil, err
	}
	report := &StatsReport{Counters: s.metrics.Snapshot(), Buckets: len(buckets)}
	if s.ledger != nil {
		if report.Ledger, err = s.ledger.Stats(); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (s *shareServiceImpl) Close() error {
	if s.ledger == nil {
		return nil
	}
	return s.ledger.Close()
}

func (s *shareServiceImpl) logResult(msg string, res *models.AssociateResult) {
	s.logger.Info(msg,
		"digest", res.Digest,
		"first", res.IsFirst,
		"buckets", len(res.Links),
	)
}

func key(s string) digest.BucketKey {
	return digest.ParseKey(strings.TrimSpace(s))
}

// textDisplayName labels a text submission by its opening characters
// and the submission time.
func textDisplayName(text string, at time.Time) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > textNameLength {
		text = string([]rune(text)[:textNameLength])
	}
	return text + " (" + at.Format(textDateLayout) + ")"
}
