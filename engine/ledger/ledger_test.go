package ledger

import (
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"), time.Second)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordObject_FirstWriteWins(t *testing.T) {
	l := openTestLedger(t)
	d := digest.Sum([]byte("hello"))

	created, err := l.RecordObject(ObjectRecord{Digest: string(d), Extension: "txt", Size: 5, DisplayName: "first"})
	if err != nil || !created {
		t.Fatalf("RecordObject() = %v, %v; want true, nil", created, err)
	}
	created, err = l.RecordObject(ObjectRecord{Digest: string(d), Extension: "txt", Size: 5, DisplayName: "second"})
	if err != nil || created {
		t.Fatalf("repeat RecordObject() = %v, %v; want false, nil", created, err)
	}

	rec, err := l.Object(d)
	if err != nil {
		t.Fatalf("Object() failed: %v", err)
	}
	if rec == nil || rec.DisplayName != "first" {
		t.Errorf("Object() = %+v, want display name %q", rec, "first")
	}
	if rec.CreatedAt == 0 {
		t.Error("CreatedAt should be filled in")
	}

	missing, err := l.Object(digest.Sum([]byte("other")))
	if err != nil || missing != nil {
		t.Errorf("Object(missing) = %+v, %v", missing, err)
	}
}

func TestMeta(t *testing.T) {
	l := openTestLedger(t)
	d := digest.Sum([]byte("x"))

	if created, _ := l.PutMeta(d, models.Meta{}); created {
		t.Error("empty meta should not be stored")
	}
	if created, err := l.PutMeta(d, models.Meta{User: "ana", Title: "t"}); err != nil || !created {
		t.Fatalf("PutMeta() = %v, %v", created, err)
	}
	if created, _ := l.PutMeta(d, models.Meta{User: "bob"}); created {
		t.Error("second PutMeta should be ignored")
	}
	m, err := l.Meta(d)
	if err != nil || m == nil || m.User != "ana" {
		t.Errorf("Meta() = %+v, %v", m, err)
	}
}

func TestMembers(t *testing.T) {
	l := openTestLedger(t)
	cat := digest.SumString("notes")
	a := digest.Sum([]byte("a"))
	b := digest.Sum([]byte("b"))

	for _, d := range []digest.Digest{a, b, a} {
		if err := l.AddMember(cat, d, models.KindCategory); err != nil {
			t.Fatalf("AddMember() failed: %v", err)
		}
	}
	if err := l.AddMember(digest.SumString("other"), a, models.KindPage); err != nil {
		t.Fatal(err)
	}

	members, err := l.Members(cat)
	if err != nil {
		t.Fatalf("Members() failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Members() = %+v, want 2", members)
	}
	for _, m := range members {
		if m.Kind != models.KindCategory || m.Bucket != string(cat) {
			t.Errorf("unexpected membership %+v", m)
		}
	}
}

func TestSeen(t *testing.T) {
	l := openTestLedger(t)

	seen, err := l.Seen("b/index.html", "<a>x</a>")
	if err != nil || seen {
		t.Fatalf("Seen() before mark = %v, %v", seen, err)
	}
	if err := l.MarkSeen("b/index.html", "<a>x</a>"); err != nil {
		t.Fatalf("MarkSeen() failed: %v", err)
	}
	if seen, _ := l.Seen("b/index.html", "<a>x</a>"); !seen {
		t.Error("Seen() after mark = false")
	}
	// Same entry in a rollover file is a different key
	if seen, _ := l.Seen("b/index_20260101.html", "<a>x</a>"); seen {
		t.Error("Seen() must be scoped to the file")
	}
}

func TestResetSeen(t *testing.T) {
	l := openTestLedger(t)
	const file = "/srv/a/b/index.html"

	if err := l.ResetSeen(file); err != nil {
		t.Fatalf("ResetSeen() on unknown file failed: %v", err)
	}
	_ = l.MarkSeen(file, "<a>x</a>")
	_ = l.MarkSeen("/srv/other/b/index.html", "<a>x</a>")

	if err := l.ResetSeen(file); err != nil {
		t.Fatalf("ResetSeen() failed: %v", err)
	}
	if seen, _ := l.Seen(file, "<a>x</a>"); seen {
		t.Error("entry still seen after reset")
	}
	if seen, _ := l.Seen("/srv/other/b/index.html", "<a>x</a>"); !seen {
		t.Error("reset must not touch other files")
	}
	stats, err := l.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.SeenEntries != 1 {
		t.Errorf("SeenEntries = %d, want 1", stats.SeenEntries)
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("<a>x</a>") != Fingerprint("<a>x</a>") {
		t.Error("fingerprint must be deterministic")
	}
	if Fingerprint("a") == Fingerprint("b") {
		t.Error("distinct entries share a fingerprint")
	}
	if len(Fingerprint("e")) != 64 {
		t.Errorf("fingerprint length = %d", len(Fingerprint("e")))
	}
}

func TestStats(t *testing.T) {
	l := openTestLedger(t)
	_, _ = l.RecordObject(ObjectRecord{Digest: string(digest.Sum([]byte("a")))})
	_, _ = l.RecordObject(ObjectRecord{Digest: string(digest.SumString("https://example.com")), TargetURL: "https://example.com"})
	_ = l.AddMember(digest.SumString("c"), digest.Sum([]byte("a")), models.KindCategory)
	_ = l.MarkSeen("f", "e")

	stats, err := l.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Objects != 1 || stats.Links != 1 || stats.Members != 1 || stats.SeenEntries != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d", stats.SchemaVersion)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_ = l.MarkSeen("f", "e")
	_ = l.Close()

	l, err = Open(path, time.Second)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = l.Close() }()
	if seen, _ := l.Seen("f", "e"); !seen {
		t.Error("seen entry lost across reopen")
	}
}

func TestOpenDropsFlatSeenSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		info, err := tx.CreateBucket([]byte(BucketInfo))
		if err != nil {
			return err
		}
		v := make([]byte, 4)
		binary.BigEndian.PutUint32(v, 1)
		if err := info.Put([]byte(KeySchemaVersion), v); err != nil {
			return err
		}
		seen, err := tx.CreateBucket([]byte(BucketSeen))
		if err != nil {
			return err
		}
		return seen.Put([]byte("flat-key"), []byte{})
	})
	_ = db.Close()
	if err != nil {
		t.Fatal(err)
	}

	l, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = l.Close() }()
	stats, err := l.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.SchemaVersion != SchemaVersion || stats.SeenEntries != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	if err := l.MarkSeen("/srv/b/index.html", "<a>x</a>"); err != nil {
		t.Fatalf("MarkSeen() after upgrade failed: %v", err)
	}
}
