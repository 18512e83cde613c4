package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore[memTestState] {
	t.Helper()
	st, err := NewSQLiteStore[memTestState](filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStore_LoadSave(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	t.Run("load missing thread", func(t *testing.T) {
		_, err := st.Load(ctx, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		cp := Checkpoint[memTestState]{
			ThreadID: "t1",
			State:    memTestState{Value: "hello", Log: []string{"a", "b"}},
			NextStep: "await-otp",
		}
		if err := st.Save(ctx, cp, 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := st.Load(ctx, "t1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.State.Value != "hello" || len(loaded.State.Log) != 2 {
			t.Errorf("unexpected state %+v", loaded.State)
		}
		if loaded.NextStep != "await-otp" || loaded.Version != 1 {
			t.Errorf("unexpected checkpoint %+v", loaded)
		}
	})

	t.Run("update advances version", func(t *testing.T) {
		cp := Checkpoint[memTestState]{
			ThreadID: "t1",
			State:    memTestState{Value: "updated"},
			NextStep: "validate-otp",
		}
		if err := st.Save(ctx, cp, 1); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, _ := st.Load(ctx, "t1")
		if loaded.Version != 2 || loaded.State.Value != "updated" {
			t.Errorf("unexpected checkpoint %+v", loaded)
		}
	})
}

func TestSQLiteStore_VersionCAS(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cp := Checkpoint[memTestState]{ThreadID: "t1", NextStep: "a"}
	if err := st.Save(ctx, cp, 0); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	t.Run("duplicate insert rejected", func(t *testing.T) {
		if err := st.Save(ctx, cp, 0); !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("stale update rejected", func(t *testing.T) {
		if err := st.Save(ctx, cp, 5); !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("update of missing thread rejected", func(t *testing.T) {
		missing := Checkpoint[memTestState]{ThreadID: "ghost", NextStep: "a"}
		if err := st.Save(ctx, missing, 3); !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})
}

func TestSQLiteStore_Close(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	if _, err := st.Load(ctx, "t1"); err == nil {
		t.Error("expected error loading from closed store")
	}
	if err := st.Save(ctx, Checkpoint[memTestState]{ThreadID: "t1"}, 0); err == nil {
		t.Error("expected error saving to closed store")
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	first, err := NewSQLiteStore[memTestState](path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	cp := Checkpoint[memTestState]{
		ThreadID: "t1",
		State:    memTestState{Value: "survives"},
		NextStep: "await-card-data",
	}
	if err := first.Save(ctx, cp, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A new store over the same file sees the checkpoint.
	second, err := NewSQLiteStore[memTestState](path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	loaded, err := second.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if loaded.State.Value != "survives" || loaded.NextStep != "await-card-data" {
		t.Errorf("unexpected checkpoint after reopen %+v", loaded)
	}
}
