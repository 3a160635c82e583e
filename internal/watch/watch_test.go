package watch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/config"
	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/services"
	"github.com/Kush-Singh-26/hashdrop/engine/testutil"
)

type recordingPutter struct {
	mu   sync.Mutex
	reqs []services.PutRequest
	err  error
}

func (p *recordingPutter) Put(_ context.Context, req services.PutRequest) (*models.AssociateResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &models.AssociateResult{Digest: digest.Sum(req.Content), IsFirst: true}, nil
}

func (p *recordingPutter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reqs)
}

func inboxConfig(dir string) config.InboxConfig {
	return config.InboxConfig{Dir: dir, Category: "inbox", Debounce: 20 * time.Millisecond}
}

func TestIngest_StoresAndRemoves(t *testing.T) {
	fsys := testutil.CreateTestFilesystemWithContent(map[string]string{
		"drop/Report.PDF": "%PDF",
	})
	p := &recordingPutter{}
	w := New(inboxConfig("drop"), fsys, p, nil)

	if err := w.Ingest(context.Background(), "drop/Report.PDF"); err != nil {
		t.Fatalf("Ingest() failed: %v", err)
	}
	if len(p.reqs) != 1 {
		t.Fatalf("Put called %d times", len(p.reqs))
	}
	req := p.reqs[0]
	if string(req.Content) != "%PDF" || req.Extension != "PDF" || req.Category != "inbox" || req.DisplayName != "Report.PDF" {
		t.Errorf("request = %+v", req)
	}
	testutil.AssertFileNotExists(t, fsys, "drop/Report.PDF")
}

func TestIngest_KeepFiles(t *testing.T) {
	fsys := testutil.CreateTestFilesystemWithContent(map[string]string{"drop/a.txt": "a"})
	cfg := inboxConfig("drop")
	cfg.KeepFiles = true
	w := New(cfg, fsys, &recordingPutter{}, nil)

	if err := w.Ingest(context.Background(), "drop/a.txt"); err != nil {
		t.Fatalf("Ingest() failed: %v", err)
	}
	testutil.AssertFileExists(t, fsys, "drop/a.txt")
}

func TestIngest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantErr  bool
		wantKept bool
	}{
		{"duplicate counts as stored", models.ErrDuplicateContent, false, false},
		{"rejected file leaves the inbox", models.ErrInvalidInput, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := testutil.CreateTestFilesystemWithContent(map[string]string{"drop/x.bin": "x"})
			w := New(inboxConfig("drop"), fsys, &recordingPutter{err: tt.err}, nil)

			err := w.Ingest(context.Background(), "drop/x.bin")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if ok, _ := afero.Exists(fsys, "drop/x.bin"); ok != tt.wantKept {
				t.Errorf("file kept = %v, want %v", ok, tt.wantKept)
			}
		})
	}
}

func TestScan_RejectedFileTriedOnce(t *testing.T) {
	fsys := testutil.CreateTestFilesystemWithContent(map[string]string{"drop/x.php": "<?php"})
	p := &recordingPutter{err: models.ErrInvalidInput}
	w := New(inboxConfig("drop"), fsys, p, nil)

	for i := 0; i < 3; i++ {
		if err := w.Scan(context.Background()); err != nil {
			t.Fatalf("Scan() failed: %v", err)
		}
	}
	if p.count() != 1 {
		t.Errorf("Put called %d times, want 1", p.count())
	}
	testutil.AssertFileNotExists(t, fsys, "drop/x.php")
	testutil.AssertFileContent(t, fsys, filepath.Join("drop", RejectedDir, "x.php"), []byte("<?php"))
}

func TestIngest_Skips(t *testing.T) {
	fsys := testutil.CreateTestFilesystemWithContent(map[string]string{
		"drop/.partial": "x",
		"drop/empty":    "",
		"drop/sub/f":    "x",
	})
	p := &recordingPutter{}
	w := New(inboxConfig("drop"), fsys, p, nil)
	for _, path := range []string{"drop/.partial", "drop/empty", "drop/sub", "drop/missing"} {
		if err := w.Ingest(context.Background(), path); err != nil {
			t.Errorf("Ingest(%s) failed: %v", path, err)
		}
	}
	if len(p.reqs) != 0 {
		t.Errorf("Put called for skipped files: %+v", p.reqs)
	}
}

func TestScan(t *testing.T) {
	fsys := testutil.CreateTestFilesystemWithContent(map[string]string{
		"drop/a.txt": "a",
		"drop/b.txt": "b",
	})
	p := &recordingPutter{}
	w := New(inboxConfig("drop"), fsys, p, nil)
	if err := w.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(p.reqs) != 2 {
		t.Errorf("Put called %d times, want 2", len(p.reqs))
	}
}

func TestRun_IngestsNewFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	fsys := afero.NewOsFs()
	p := &recordingPutter{}
	w := New(inboxConfig(dir), fsys, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "late.txt")
	deadline := time.Now().Add(5 * time.Second)
	for p.count() == 0 && time.Now().Before(deadline) {
		// The directory may not be watched yet on the first attempts.
		_ = afero.WriteFile(fsys, path, []byte("late"), 0644)
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if p.count() == 0 {
		t.Fatal("file was never ingested")
	}
}
