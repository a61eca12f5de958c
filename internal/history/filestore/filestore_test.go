package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/assess"
	"github.com/linnemanlabs/argus/internal/history"
)

func testRecord(id string) *history.Record {
	return &history.Record{
		ID:         id,
		Alert:      alert.Alert{Description: "desc " + id, SourceIP: "1.2.3.4"},
		Assessment: assess.Fallback(),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestStore_MissingFileReadsAsEmpty(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "history.json"))

	records, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len = %d, want 0", len(records))
	}
}

func TestStore_AppendPreservesOrderAcrossReloads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		// Fresh store each iteration: reload-then-append must not duplicate
		// or reorder anything.
		s := New(path)
		if err := s.Append(ctx, testRecord(fmt.Sprintf("rec-%d", i))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}

		records, err := New(path).List(ctx)
		if err != nil {
			t.Fatalf("List after append %d: %v", i, err)
		}
		if len(records) != i+1 {
			t.Fatalf("len = %d, want %d", len(records), i+1)
		}
		for j, rec := range records {
			if want := fmt.Sprintf("rec-%d", j); rec.ID != want {
				t.Errorf("records[%d].ID = %q, want %q", j, rec.ID, want)
			}
		}
	}
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "history.json"))
	ctx := context.Background()

	if err := s.Append(ctx, testRecord("rec-a")); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := s.Get(ctx, "rec-a")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if rec.Alert.Description != "desc rec-a" {
		t.Errorf("description = %q", rec.Alert.Description)
	}

	if _, ok, err := s.Get(ctx, "rec-missing"); err != nil || ok {
		t.Errorf("missing id: ok=%v err=%v, want false/nil", ok, err)
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "history.json"))
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Append(ctx, testRecord(fmt.Sprintf("rec-%d", i))); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	records, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != n {
		t.Errorf("len = %d, want %d (no lost appends)", len(records), n)
	}
}
