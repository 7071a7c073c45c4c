package imagegen_test

import (
	"errors"
	"testing"

	"github.com/chengmaomao/sendblessings/internal/imagegen"
)

func TestNewKeyPoolRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := imagegen.NewKeyPool(nil); !errors.Is(err, imagegen.ErrNoKeys) {
		t.Fatalf("NewKeyPool(nil) error = %v, want ErrNoKeys", err)
	}
}

func TestKeyPoolRotationWraps(t *testing.T) {
	t.Parallel()

	pool, err := imagegen.NewKeyPool([]string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b", "c", "a", "b"}
	for i, expected := range want {
		_, key := pool.Current()
		if key != expected {
			t.Errorf("step %d: Current() = %q, want %q", i, key, expected)
		}
		pool.Rotate()
	}
}

func TestKeyPoolSingleKeyStaysPut(t *testing.T) {
	t.Parallel()

	pool, err := imagegen.NewKeyPool([]string{"only"})
	if err != nil {
		t.Fatal(err)
	}

	pool.Rotate()
	pool.Rotate()

	idx, key := pool.Current()
	if idx != 0 || key != "only" {
		t.Errorf("Current() = (%d, %q), want (0, only)", idx, key)
	}
}

func TestKeyPoolCursorSurvivesCopies(t *testing.T) {
	t.Parallel()

	keys := []string{"a", "b"}
	pool, err := imagegen.NewKeyPool(keys)
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's slice must not affect the pool.
	keys[0] = "mutated"
	_, key := pool.Current()
	if key != "a" {
		t.Errorf("Current() = %q after caller mutation, want %q", key, "a")
	}
}
