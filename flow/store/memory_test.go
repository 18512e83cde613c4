package store

import (
	"context"
	"errors"
	"testing"
)

type memTestState struct {
	Value string   `json:"value"`
	Log   []string `json:"log,omitempty"`
}

func TestMemStore_LoadSave(t *testing.T) {
	st := NewMemStore[memTestState]()
	ctx := context.Background()

	t.Run("load missing thread", func(t *testing.T) {
		_, err := st.Load(ctx, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save and load", func(t *testing.T) {
		cp := Checkpoint[memTestState]{
			ThreadID: "t1",
			State:    memTestState{Value: "hello"},
			NextStep: "dispatch",
		}
		if err := st.Save(ctx, cp, 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := st.Load(ctx, "t1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.State.Value != "hello" || loaded.NextStep != "dispatch" {
			t.Errorf("unexpected checkpoint %+v", loaded)
		}
		if loaded.Version != 1 {
			t.Errorf("expected version 1, got %d", loaded.Version)
		}
		if loaded.UpdatedAt.IsZero() {
			t.Error("expected UpdatedAt to be set")
		}
	})
}

func TestMemStore_VersionCAS(t *testing.T) {
	st := NewMemStore[memTestState]()
	ctx := context.Background()

	cp := Checkpoint[memTestState]{ThreadID: "t1", NextStep: "a"}
	if err := st.Save(ctx, cp, 0); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	t.Run("stale version rejected", func(t *testing.T) {
		if err := st.Save(ctx, cp, 0); !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict for stale version, got %v", err)
		}
	})

	t.Run("matching version accepted", func(t *testing.T) {
		if err := st.Save(ctx, cp, 1); err != nil {
			t.Fatalf("Save with matching version failed: %v", err)
		}
		loaded, _ := st.Load(ctx, "t1")
		if loaded.Version != 2 {
			t.Errorf("expected version 2, got %d", loaded.Version)
		}
	})

	t.Run("future version rejected", func(t *testing.T) {
		if err := st.Save(ctx, cp, 7); !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict for future version, got %v", err)
		}
	})
}

func TestMemStore_Isolation(t *testing.T) {
	st := NewMemStore[memTestState]()
	ctx := context.Background()

	state := memTestState{Value: "original", Log: []string{"a"}}
	cp := Checkpoint[memTestState]{ThreadID: "t1", State: state, NextStep: "x"}
	if err := st.Save(ctx, cp, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's copy must not affect the stored state.
	state.Log[0] = "mutated"

	loaded, err := st.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.State.Log[0] != "a" {
		t.Error("store shared state with the caller on Save")
	}

	// Mutating a loaded copy must not affect later loads.
	loaded.State.Log[0] = "mutated"
	again, _ := st.Load(ctx, "t1")
	if again.State.Log[0] != "a" {
		t.Error("store shared state between Load calls")
	}
}

func TestMemStore_Delete(t *testing.T) {
	st := NewMemStore[memTestState]()
	ctx := context.Background()

	cp := Checkpoint[memTestState]{ThreadID: "t1", NextStep: "a"}
	if err := st.Save(ctx, cp, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	st.Delete(ctx, "t1")
	if _, err := st.Load(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// A deleted thread starts over at version 0.
	if err := st.Save(ctx, cp, 0); err != nil {
		t.Errorf("expected fresh save after delete, got %v", err)
	}
}
