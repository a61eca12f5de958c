package memstore

import (
	"context"
	"testing"

	"github.com/linnemanlabs/argus/internal/history"
)

func TestStore_AppendGetList(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Append(ctx, &history.Record{ID: id}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	rec, ok, err := s.Get(ctx, "b")
	if err != nil || !ok || rec.ID != "b" {
		t.Fatalf("Get = %v/%v/%v", rec, ok, err)
	}

	// Mutating the returned copy must not affect the store.
	rec.ID = "mutated"
	again, _, _ := s.Get(ctx, "b")
	if again.ID != "b" {
		t.Error("Get must return a copy")
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0].ID != "a" || records[2].ID != "c" {
		t.Errorf("List = %v, want append order", records)
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	if _, ok, err := New().Get(context.Background(), "nope"); ok || err != nil {
		t.Errorf("ok=%v err=%v, want false/nil", ok, err)
	}
}
