package embed

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	key := Key("VAR_1 = NUM_1")
	vec := []float32{0.25, -0.5, 0.75}

	if err := c.Put(ctx, key, "VAR_1 = NUM_1", vec); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("vector length = %d", len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], vec[i])
		}
	}

	text, err := c.Normalized(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if text != "VAR_1 = NUM_1" {
		t.Errorf("normalized = %q", text)
	}
}

func TestCacheMiss(t *testing.T) {
	c := openTestCache(t)

	vec, err := c.Get(context.Background(), Key("never stored"))
	if err != nil || vec != nil {
		t.Errorf("miss should be (nil, nil), got %v, %v", vec, err)
	}
	text, err := c.Normalized(context.Background(), Key("never stored"))
	if err != nil || text != "" {
		t.Errorf("miss should be empty, got %q, %v", text, err)
	}
}

func TestCacheReplace(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	key := Key("code")

	c.Put(ctx, key, "code", []float32{1})
	c.Put(ctx, key, "code", []float32{2})

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("got %v, want [2]", got)
	}
}

func TestKeyStable(t *testing.T) {
	if Key("a") != Key("a") {
		t.Error("key must be deterministic")
	}
	if Key("a") == Key("b") {
		t.Error("distinct inputs must not collide")
	}
}
