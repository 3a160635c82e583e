package graph

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/index"
	"github.com/Kush-Singh-26/hashdrop/engine/ledger"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/render"
	"github.com/Kush-Singh-26/hashdrop/engine/store"
)

const base = "data"

type memRecorder struct {
	mu      sync.Mutex
	objects map[string]ledger.ObjectRecord
	members map[string]models.BucketKind
}

func newMemRecorder() *memRecorder {
	return &memRecorder{
		objects: make(map[string]ledger.ObjectRecord),
		members: make(map[string]models.BucketKind),
	}
}

func (r *memRecorder) RecordObject(rec ledger.ObjectRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[rec.Digest]; ok {
		return false, nil
	}
	r.objects[rec.Digest] = rec
	return true, nil
}

func (r *memRecorder) AddMember(bucket, d digest.Digest, kind models.BucketKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[string(bucket)+"/"+string(d)] = kind
	return nil
}

func newTestGraph(t *testing.T, opts ...Option) (*Graph, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	rnd, err := render.New("", false)
	if err != nil {
		t.Fatalf("render.New() failed: %v", err)
	}
	g := New(
		store.New(fsys, base),
		index.New(fsys, base, index.Options{}),
		rnd,
		nil,
		opts...,
	)
	return g, fsys
}

func readFile(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func helloRequest() models.AssociateRequest {
	return models.AssociateRequest{
		Content:     []byte("hello"),
		Extension:   "txt",
		Category:    digest.LabelKey("notes"),
		DisplayName: "hello world",
	}
}

func TestAssociate_HelloNotes(t *testing.T) {
	g, fsys := newTestGraph(t)

	res, err := g.Associate(context.Background(), helloRequest())
	if err != nil {
		t.Fatalf("Associate() failed: %v", err)
	}
	if !res.IsFirst {
		t.Error("first upload should report IsFirst")
	}

	d := digest.SumString("hello")
	if res.Digest != d {
		t.Fatalf("Digest = %s, want %s", res.Digest, d)
	}
	name := string(d) + ".txt"

	contentDir := filepath.Join(base, string(d))
	if got := readFile(t, fsys, filepath.Join(contentDir, name)); got != "hello" {
		t.Errorf("object content = %q", got)
	}
	contentIndex := readFile(t, fsys, filepath.Join(contentDir, "index.html"))
	if !strings.HasPrefix(contentIndex, render.DefaultHeader) {
		t.Error("content index does not start with the header")
	}
	if !strings.Contains(contentIndex, `<a href="`+name+`">hello world</a><br>`) {
		t.Errorf("content index lacks object link: %q", contentIndex)
	}

	catDir := filepath.Join(base, string(digest.SumString("notes")))
	info, err := fsys.Stat(filepath.Join(catDir, name))
	if err != nil {
		t.Fatalf("marker missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("marker size = %d, want 0", info.Size())
	}
	catIndex := readFile(t, fsys, filepath.Join(catDir, "index.html"))
	if !strings.Contains(catIndex, `<a href="../`+string(d)+`/`+name+`">hello world</a><br>`) {
		t.Errorf("category index lacks link: %q", catIndex)
	}

	if _, ok := res.Link(models.KindCategory); !ok {
		t.Error("result has no category link")
	}
}

func TestAssociate_DuplicateRepeat(t *testing.T) {
	g, fsys := newTestGraph(t)
	ctx := context.Background()

	first, err := g.Associate(ctx, helloRequest())
	if err != nil {
		t.Fatalf("first Associate() failed: %v", err)
	}
	objPath := first.ObjectPath
	before, _ := fsys.Stat(objPath)

	second, err := g.Associate(ctx, helloRequest())
	if err != nil {
		t.Fatalf("second Associate() failed: %v", err)
	}
	if second.IsFirst {
		t.Error("repeat should report IsFirst=false")
	}
	after, _ := fsys.Stat(objPath)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("object was rewritten")
	}

	d := digest.SumString("hello")
	catIndex := readFile(t, fsys, filepath.Join(base, string(digest.SumString("notes")), "index.html"))
	needle := `href="../` + string(d) + `/` + string(d) + `.txt"`
	if n := strings.Count(catIndex, needle); n != 1 {
		t.Errorf("category index holds %d entries, want 1", n)
	}
	for _, l := range second.Links {
		if l.Appended {
			t.Errorf("repeat appended into %s bucket", l.Kind)
		}
	}
}

func TestAssociate_DuplicateErrorTouchesNoIndex(t *testing.T) {
	g, fsys := newTestGraph(t)
	ctx := context.Background()

	req := models.AssociateRequest{Content: []byte("hello"), Extension: "txt"}
	if _, err := g.Associate(ctx, req); err != nil {
		t.Fatalf("Associate() failed: %v", err)
	}

	req.Category = digest.LabelKey("fresh")
	req.Policy = models.DuplicateError
	_, err := g.Associate(ctx, req)
	if !errors.Is(err, models.ErrDuplicateContent) {
		t.Fatalf("err = %v, want ErrDuplicateContent", err)
	}
	if ok, _ := afero.DirExists(fsys, filepath.Join(base, string(digest.SumString("fresh")))); ok {
		t.Error("category bucket created despite duplicate error")
	}
}

func TestAssociate_Validation(t *testing.T) {
	hello := digest.SumString("hello")
	tests := []struct {
		name string
		req  models.AssociateRequest
	}{
		{"empty", models.AssociateRequest{Extension: "txt"}},
		{"php", models.AssociateRequest{Content: []byte("x"), Extension: "PHP"}},
		{"category is content", models.AssociateRequest{
			Content: []byte("hello"), Extension: "txt", Category: digest.HashKey(hello),
		}},
		{"reply to self", models.AssociateRequest{
			Content: []byte("hello"), Extension: "txt", ReplyTo: digest.HashKey(hello),
		}},
		{"content and url", models.AssociateRequest{
			Content: []byte("x"), Extension: "txt", TargetURL: "https://example.com",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, fsys := newTestGraph(t)
			_, err := g.Associate(context.Background(), tt.req)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if ok, _ := afero.DirExists(fsys, base); ok {
				t.Error("rejected request wrote to the filesystem")
			}
		})
	}
}

func TestAssociate_Reply(t *testing.T) {
	g, fsys := newTestGraph(t)
	ctx := context.Background()

	parent, err := g.Associate(ctx, models.AssociateRequest{Content: []byte("question"), Extension: "txt"})
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	child, err := g.Associate(ctx, models.AssociateRequest{
		Content:   []byte("answer"),
		Extension: "txt",
		ReplyTo:   digest.HashKey(parent.Digest),
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	link, ok := child.Link(models.KindReply)
	if !ok || link.Bucket != parent.Digest {
		t.Fatalf("reply link = %+v, %v", link, ok)
	}
	marker := filepath.Join(base, string(parent.Digest), string(child.Digest)+".txt")
	if ok, _ := afero.Exists(fsys, marker); !ok {
		t.Error("reply marker missing from parent bucket")
	}
	idx := readFile(t, fsys, filepath.Join(base, string(parent.Digest), "index.html"))
	if !strings.Contains(idx, "../"+string(child.Digest)+"/") {
		t.Errorf("parent index lacks reply: %q", idx)
	}
}

func TestAssociate_ExternalLink(t *testing.T) {
	g, fsys := newTestGraph(t)
	ctx := context.Background()
	url := "https://example.com/paper.pdf"

	req := models.AssociateRequest{TargetURL: url, Category: digest.LabelKey("papers")}
	res, err := g.Associate(ctx, req)
	if err != nil {
		t.Fatalf("Associate() failed: %v", err)
	}
	if res.Digest != digest.SumString(url) || !res.IsFirst || res.ObjectPath != "" {
		t.Errorf("result = %+v", res)
	}
	if res.DisplayName != url {
		t.Errorf("DisplayName = %q, want the URL", res.DisplayName)
	}

	catDir := filepath.Join(base, string(digest.SumString("papers")))
	entries, err := afero.ReadDir(fsys, catDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "index.html" {
		t.Errorf("category bucket holds %d entries, want only index.html", len(entries))
	}
	if idx := readFile(t, fsys, filepath.Join(catDir, "index.html")); !strings.Contains(idx, `href="`+url+`"`) {
		t.Errorf("category index lacks URL: %q", idx)
	}

	again, err := g.Associate(ctx, req)
	if err != nil || again.IsFirst {
		t.Errorf("repeat link: IsFirst=%v err=%v", again != nil && again.IsFirst, err)
	}
	req.Policy = models.DuplicateError
	if _, err := g.Associate(ctx, req); !errors.Is(err, models.ErrDuplicateContent) {
		t.Errorf("err = %v, want ErrDuplicateContent", err)
	}
}

func TestAssociate_Recorder(t *testing.T) {
	rec := newMemRecorder()
	stamp := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	g, _ := newTestGraph(t, WithRecorder(rec), WithClock(func() time.Time { return stamp }))

	res, err := g.Associate(context.Background(), helloRequest())
	if err != nil {
		t.Fatalf("Associate() failed: %v", err)
	}
	obj, ok := rec.objects[string(res.Digest)]
	if !ok {
		t.Fatal("object not recorded")
	}
	if obj.Extension != "txt" || obj.Size != 5 || obj.CreatedAt != stamp.Unix() {
		t.Errorf("record = %+v", obj)
	}
	key := string(digest.SumString("notes")) + "/" + string(res.Digest)
	if rec.members[key] != models.KindCategory {
		t.Errorf("membership = %q", rec.members[key])
	}
}

type stubHook struct {
	bucket digest.Digest
	err    error
	events []*Event
}

func (h *stubHook) AfterAssociate(_ context.Context, ev *Event, l Linker) ([]models.BucketLink, error) {
	h.events = append(h.events, ev)
	if h.err != nil {
		return nil, h.err
	}
	link, err := l.LinkEntry(h.bucket, models.KindPage, ev.Entry)
	if err != nil {
		return nil, err
	}
	return []models.BucketLink{link}, nil
}

func TestAssociate_Hooks(t *testing.T) {
	extra := digest.SumString("extra")
	hook := &stubHook{bucket: extra}
	g, fsys := newTestGraph(t, WithHooks(hook))

	res, err := g.Associate(context.Background(), helloRequest())
	if err != nil {
		t.Fatalf("Associate() failed: %v", err)
	}
	if len(hook.events) != 1 {
		t.Fatalf("hook ran %d times", len(hook.events))
	}
	if hook.events[0].Category != digest.SumString("notes") {
		t.Errorf("event category = %s", hook.events[0].Category)
	}
	if _, ok := res.Link(models.KindPage); !ok {
		t.Error("hook link missing from result")
	}
	idx := readFile(t, fsys, filepath.Join(base, string(extra), "index.html"))
	if !strings.Contains(idx, hook.events[0].Entry) {
		t.Error("hook bucket lacks the association entry")
	}
}

func TestAssociate_HookErrorKeepsResult(t *testing.T) {
	boom := errors.New("boom")
	g, _ := newTestGraph(t, WithHooks(&stubHook{err: boom}))

	res, err := g.Associate(context.Background(), helloRequest())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want hook error", err)
	}
	if res == nil || !res.IsFirst {
		t.Errorf("core result lost: %+v", res)
	}
}

func TestAssociate_CancelledContext(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Associate(ctx, helloRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
