// Package watch ingests files dropped into an inbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/config"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/services"
)

// RejectedDir is the inbox subdirectory that holds files the service
// refused. Its leading dot keeps Scan and Ingest away from it.
const RejectedDir = ".rejected"

// Putter stores one submission. services.ShareService implements it.
type Putter interface {
	Put(ctx context.Context, req services.PutRequest) (*models.AssociateResult, error)
}

// Watcher stores every file that settles in the inbox directory.
type Watcher struct {
	fs        afero.Fs
	dir       string
	category  string
	debounce  time.Duration
	keepFiles bool
	svc       Putter
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// New creates an inbox watcher. Files are read through fsys, which is
// the OS filesystem outside tests.
func New(cfg config.InboxConfig, fsys afero.Fs, svc Putter, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fs:        fsys,
		dir:       cfg.Dir,
		category:  cfg.Category,
		debounce:  cfg.Debounce,
		keepFiles: cfg.KeepFiles,
		svc:       svc,
		logger:    logger,
		timers:    make(map[string]*time.Timer),
	}
}

// Run ingests files already in the inbox, then watches it until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if err := w.Scan(ctx); err != nil {
		return err
	}
	w.logger.Info("watching inbox", "dir", w.dir, "category", w.category)

	defer w.wg.Wait()
	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Scan ingests every file currently in the inbox.
func (w *Watcher) Scan(ctx context.Context) error {
	infos, err := afero.ReadDir(w.fs, w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			continue
		}
		if err := w.Ingest(ctx, filepath.Join(w.dir, info.Name())); err != nil {
			w.logger.Warn("ingest failed", "file", info.Name(), "error", err)
		}
	}
	return nil
}

// schedule restarts the settle timer of path. Writers usually produce
// several events per file.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if old, ok := w.timers[path]; ok && old.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		if err := w.Ingest(ctx, path); err != nil {
			w.logger.Warn("ingest failed", "file", filepath.Base(path), "error", err)
		}
	})
	w.timers[path] = t
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
}

// Ingest stores one inbox file under the configured category and, unless
// files are kept, removes it. A file whose content is already stored
// counts as ingested.
func (w *Watcher) Ingest(ctx context.Context, path string) error {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return nil
	}
	info, err := w.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	data, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}

	res, err := w.svc.Put(ctx, services.PutRequest{
		Content:     data,
		Extension:   strings.TrimPrefix(filepath.Ext(name), "."),
		Category:    w.category,
		DisplayName: name,
	})
	switch {
	case errors.Is(err, models.ErrDuplicateContent):
		w.logger.Info("inbox file already stored", "file", name)
	case errors.Is(err, models.ErrInvalidInput):
		return errors.Join(err, w.reject(path))
	case err != nil:
		return err
	default:
		w.logger.Info("ingested inbox file", "file", name, "digest", res.Digest, "first", res.IsFirst)
	}

	if w.keepFiles {
		return nil
	}
	if err := w.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// reject moves path out of the inbox so that later scans skip it.
func (w *Watcher) reject(path string) error {
	dir := filepath.Join(w.dir, RejectedDir)
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", RejectedDir, err)
	}
	target := filepath.Join(dir, filepath.Base(path))
	if err := w.fs.Rename(path, target); err != nil {
		return fmt.Errorf("move rejected file: %w", err)
	}
	w.logger.Warn("inbox file rejected", "file", filepath.Base(path), "moved_to", target)
	return nil
}
