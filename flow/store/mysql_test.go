package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
)

// MySQL tests require a reachable server; set MYSQL_TEST_DSN to run
// them, e.g.:
//
//	MYSQL_TEST_DSN="user:pass@tcp(localhost:3306)/test?parseTime=true" go test ./flow/store/
func newTestMySQLStore(t *testing.T) *MySQLStore[memTestState] {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	st, err := NewMySQLStore[memTestState](dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMySQLStore_RoundTrip(t *testing.T) {
	st := newTestMySQLStore(t)
	ctx := context.Background()
	threadID := "test-" + uuid.NewString()

	cp := Checkpoint[memTestState]{
		ThreadID: threadID,
		State:    memTestState{Value: "hello", Log: []string{"a"}},
		NextStep: "await-otp",
	}
	if err := st.Save(ctx, cp, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := st.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.State.Value != "hello" || loaded.NextStep != "await-otp" || loaded.Version != 1 {
		t.Errorf("unexpected checkpoint %+v", loaded)
	}
}

func TestMySQLStore_VersionCAS(t *testing.T) {
	st := newTestMySQLStore(t)
	ctx := context.Background()
	threadID := "test-" + uuid.NewString()

	cp := Checkpoint[memTestState]{ThreadID: threadID, NextStep: "a"}
	if err := st.Save(ctx, cp, 0); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	if err := st.Save(ctx, cp, 0); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate insert, got %v", err)
	}
	if err := st.Save(ctx, cp, 5); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for stale version, got %v", err)
	}
	if err := st.Save(ctx, cp, 1); err != nil {
		t.Errorf("Save with matching version failed: %v", err)
	}
}

func TestMySQLStore_LoadMissing(t *testing.T) {
	st := newTestMySQLStore(t)

	_, err := st.Load(context.Background(), "ghost-"+uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
