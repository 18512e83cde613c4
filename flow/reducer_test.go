package flow

import "testing"

func TestReplaceIfSet(t *testing.T) {
	t.Run("delta set replaces", func(t *testing.T) {
		if got := ReplaceIfSet("old", "new"); got != "new" {
			t.Errorf("expected new, got %q", got)
		}
	})

	t.Run("zero delta keeps existing", func(t *testing.T) {
		if got := ReplaceIfSet("old", ""); got != "old" {
			t.Errorf("expected old, got %q", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		once := ReplaceIfSet("old", "new")
		twice := ReplaceIfSet(once, "new")
		if once != twice {
			t.Errorf("expected idempotent merge, got %q then %q", once, twice)
		}
	})
}

func TestKeepExisting(t *testing.T) {
	a, b := 1, 2

	t.Run("nil delta keeps existing", func(t *testing.T) {
		if got := KeepExisting(&a, nil); got != &a {
			t.Error("expected existing pointer")
		}
	})

	t.Run("non-nil delta replaces", func(t *testing.T) {
		if got := KeepExisting(&a, &b); got != &b {
			t.Error("expected delta pointer")
		}
	})

	t.Run("both nil", func(t *testing.T) {
		if got := KeepExisting[int](nil, nil); got != nil {
			t.Error("expected nil")
		}
	})
}

func TestAppend(t *testing.T) {
	t.Run("concatenates in order", func(t *testing.T) {
		got := Append([]string{"a", "b"}, []string{"c"})
		want := []string{"a", "b", "c"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("empty delta returns prev unchanged", func(t *testing.T) {
		prev := []string{"a"}
		got := Append(prev, nil)
		if len(got) != 1 || got[0] != "a" {
			t.Errorf("expected prev unchanged, got %v", got)
		}
	})

	t.Run("does not alias prev backing array", func(t *testing.T) {
		prev := make([]string, 1, 4)
		prev[0] = "a"
		got := Append(prev, []string{"b"})
		got[0] = "mutated"
		if prev[0] != "a" {
			t.Error("Append aliased the previous slice")
		}
	})
}

func TestMax(t *testing.T) {
	t.Run("takes larger", func(t *testing.T) {
		if got := Max(2, 5); got != 5 {
			t.Errorf("expected 5, got %d", got)
		}
		if got := Max(5, 2); got != 5 {
			t.Errorf("expected 5, got %d", got)
		}
	})

	t.Run("re-delivery cannot double count", func(t *testing.T) {
		counter := Max(0, 1)
		counter = Max(counter, 1)
		if counter != 1 {
			t.Errorf("expected 1 after re-delivery, got %d", counter)
		}
	})
}
