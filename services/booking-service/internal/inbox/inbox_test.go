package inbox

import (
	"context"
	"testing"
)

func TestMemoryRecordDedupes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	first, err := m.Record(ctx, "e1", "catalog.store.updated.v1")
	if err != nil || !first {
		t.Fatalf("first Record = %v, %v", first, err)
	}
	again, err := m.Record(ctx, "e1", "catalog.store.updated.v1")
	if err != nil || again {
		t.Fatalf("duplicate Record = %v, %v", again, err)
	}
	other, _ := m.Record(ctx, "e2", "catalog.store.updated.v1")
	if !other {
		t.Fatalf("distinct id should be recorded")
	}
}

func TestMemorySeen(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if seen, _ := m.Seen(ctx, "e1"); seen {
		t.Fatal("unrecorded id reported as seen")
	}
	_, _ = m.Record(ctx, "e1", "catalog.store.updated.v1")
	if seen, _ := m.Seen(ctx, "e1"); !seen {
		t.Fatal("recorded id not reported as seen")
	}
}
