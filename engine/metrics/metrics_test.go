package metrics

import (
	"strings"
	"sync"
	"testing"
)

func TestCounters_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ObjectStored(10)
			c.Duplicate()
			c.EntryAppended()
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.ObjectsStored != 50 || s.Duplicates != 50 || s.EntriesAppended != 50 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
	if s.BytesStored != 500 {
		t.Errorf("BytesStored = %d, want 500", s.BytesStored)
	}
}

func TestSnapshot_DedupRate(t *testing.T) {
	tests := []struct {
		stored, dup int64
		want        float64
	}{
		{0, 0, 0},
		{1, 1, 50},
		{3, 1, 25},
		{0, 4, 100},
	}
	for _, tt := range tests {
		s := Snapshot{ObjectsStored: tt.stored, Duplicates: tt.dup}
		if got := s.DedupRate(); got != tt.want {
			t.Errorf("DedupRate(%d,%d) = %v, want %v", tt.stored, tt.dup, got, tt.want)
		}
	}
}

func TestSnapshot_String(t *testing.T) {
	c := New()
	c.ObjectStored(5)
	c.RolledOver()
	out := c.Snapshot().String()
	if !strings.Contains(out, "stored 1 objects (5 bytes)") {
		t.Errorf("String() = %q", out)
	}
	if !strings.Contains(out, "1 rollovers") {
		t.Errorf("String() missing rollovers: %q", out)
	}
}
