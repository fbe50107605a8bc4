package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"video-gen-pipeline/types"
)

func testSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          id,
		UserID:      "tester",
		Request:     types.GenerationRequest{Prompt: "deep sea creatures"},
		Stage:       StageInitializing,
		RetryCounts: map[string]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := testSession("sess-1")
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	exists, err := store.Exists(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false after create, want true")
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil after create")
	}
	if got.UserID != "tester" || got.Stage != StageInitializing {
		t.Errorf("Get() = %+v, want user tester in initializing", got)
	}

	got.Stage = StageResearching
	got.Progress = 0.1
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	again, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if again.Stage != StageResearching || again.Progress != 0.1 {
		t.Errorf("Get() after update = stage %s progress %v, want researching 0.1", again.Stage, again.Progress)
	}

	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	gone, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if gone != nil {
		t.Errorf("Get() after delete = %+v, want nil", gone)
	}
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, testSession("dup")); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if err := store.Create(ctx, testSession("dup")); err == nil {
		t.Error("second Create() error = nil, want duplicate error")
	}
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Update(ctx, testSession("ghost"))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Update() error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, "ghost")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil for missing session", got)
	}
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := testSession("iso")
	s.RetryCounts["scripting"] = 1
	s.IntermediateFiles = []string{"/tmp/a.mp4"}
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := store.Get(ctx, "iso")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	first.RetryCounts["scripting"] = 99
	first.IntermediateFiles[0] = "/tmp/mutated.mp4"

	second, err := store.Get(ctx, "iso")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if second.RetryCounts["scripting"] != 1 {
		t.Errorf("RetryCounts leaked through copy: got %d, want 1", second.RetryCounts["scripting"])
	}
	if second.IntermediateFiles[0] != "/tmp/a.mp4" {
		t.Errorf("IntermediateFiles leaked through copy: got %s, want /tmp/a.mp4", second.IntermediateFiles[0])
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, id := range []string{"one", "two", "three"} {
		if err := store.Create(ctx, testSession(id)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d sessions, want 3", len(all))
	}
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete() on missing session error = %v, want nil", err)
	}
}
