package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/causalhub/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get() = %q, %v, %v, want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

// exercise runs the behavior every backend shares.
func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "fit:missing"); err != nil || hit {
		t.Fatalf("Get(missing) = %v, %v, want miss", hit, err)
	}
	if err := c.Set(ctx, "fit:a", []byte("graph"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, hit, err := c.Get(ctx, "fit:a")
	if err != nil || !hit || string(data) != "graph" {
		t.Errorf("Get() = %q, %v, %v, want graph hit", data, hit, err)
	}
	if err := c.Set(ctx, "fit:a", []byte("graph2"), 0); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if data, _, _ := c.Get(ctx, "fit:a"); string(data) != "graph2" {
		t.Errorf("Get() after overwrite = %q, want graph2", data)
	}
	if err := c.Delete(ctx, "fit:a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, hit, _ := c.Get(ctx, "fit:a"); hit {
		t.Error("Get() after Delete() hit, want miss")
	}
	if err := c.Delete(ctx, "fit:a"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, c)
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Fatal("Get() before expiry missed")
	}
	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("Get() after expiry hit")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Errorf("expired entry still on disk: %v", err)
	}
}

func TestFileCacheCorrupt(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("k")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte("{not json"), 0o644)
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get(corrupt) = %v, %v, want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Errorf("Clear() = %d, %v, want 3", n, err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get() after Clear() hit")
	}
}

func TestBadgerCache(t *testing.T) {
	c, err := NewBadgerCache(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, c)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, _, err := c.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close() error = %v, want ErrClosed", err)
	}
}

func TestBadgerCachePersistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	c, err := NewBadgerCache(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	_ = c.Set(ctx, "fit:x", []byte("kept"), 0)
	_ = c.Close()

	c, err = NewBadgerCache(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if data, hit, _ := c.Get(ctx, "fit:x"); !hit || string(data) != "kept" {
		t.Errorf("Get() after reopen = %q, %v", data, hit)
	}
}

func TestBadgerCacheRequiresPath(t *testing.T) {
	if _, err := NewBadgerCache(BadgerConfig{}); err == nil {
		t.Error("NewBadgerCache() without path succeeded")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash() is not deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Hash() collides on different inputs")
	}
	if len(h1) != 64 {
		t.Errorf("len(Hash()) = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := FitKeyOpts{Algorithm: "hc", Score: "bic", Family: "categorical", Seed: 1}

	tests := []struct {
		name string
		a, b FitKeyOpts
		same bool
	}{
		{"identical", base, base, true},
		{"score", base, FitKeyOpts{Algorithm: "hc", Score: "aic", Family: "categorical", Seed: 1}, false},
		{"seed", base, FitKeyOpts{Algorithm: "hc", Score: "bic", Family: "categorical", Seed: 2}, false},
		{"prior", base, FitKeyOpts{Algorithm: "hc", Score: "bic", Family: "categorical", Seed: 1, PriorHash: "p"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := k.FitKey("data", tt.a) == k.FitKey("data", tt.b)
			if got != tt.same {
				t.Errorf("keys equal = %v, want %v", got, tt.same)
			}
		})
	}
	if k.FitKey("d1", base) == k.FitKey("d2", base) {
		t.Error("FitKey() ignores the data hash")
	}
	if got := k.RenderKey("g", RenderKeyOpts{Format: "svg"}); got[:7] != "render:" {
		t.Errorf("RenderKey() = %q, want render: prefix", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	plain := NewDefaultKeyer()
	opts := FitKeyOpts{Score: "bic"}
	for _, prefix := range []string{"team", "team/"} {
		k := NewScopedKeyer(nil, prefix)
		if got, want := k.FitKey("d", opts), "team/"+plain.FitKey("d", opts); got != want {
			t.Errorf("NewScopedKeyer(%q).FitKey() = %q, want %q", prefix, got, want)
		}
	}
}

func TestConfigKeyer(t *testing.T) {
	if k := (Config{}).Keyer(); k != nil {
		t.Errorf("Config{}.Keyer() = %T, want nil", k)
	}
	k := (Config{Prefix: "staging"}).Keyer()
	if k == nil {
		t.Fatal("Config{Prefix}.Keyer() = nil")
	}
	if got := k.RenderKey("g", RenderKeyOpts{Format: "svg"}); !strings.HasPrefix(got, "staging/render:v2:") {
		t.Errorf("RenderKey() = %q, want staging/render:v2: prefix", got)
	}
}

func TestKeyType(t *testing.T) {
	plain := NewDefaultKeyer()
	scoped := NewScopedKeyer(nil, "team")
	tests := []struct{ key, want string }{
		{plain.FitKey("d", FitKeyOpts{}), "fit"},
		{plain.RenderKey("g", RenderKeyOpts{Format: "png"}), "render"},
		{scoped.FitKey("d", FitKeyOpts{}), "fit"},
		{scoped.RenderKey("g", RenderKeyOpts{}), "render"},
		{"plain", "other"},
		{":abc", "other"},
	}
	for _, tt := range tests {
		if got := keyType(tt.key); got != tt.want {
			t.Errorf("keyType(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
	types              []string
}

func (h *countingHooks) OnCacheHit(_ context.Context, kt string) {
	h.hits++
	h.types = append(h.types, kt)
}

func (h *countingHooks) OnCacheMiss(_ context.Context, kt string) {
	h.misses++
	h.types = append(h.types, kt)
}

func (h *countingHooks) OnCacheSet(_ context.Context, kt string, _ int) {
	h.sets++
	h.types = append(h.types, kt)
}

func TestInstrument(t *testing.T) {
	h := &countingHooks{}
	observability.SetCacheHooks(h)
	defer observability.Reset()

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := Instrument(fc)
	if Instrument(c) != c {
		t.Error("Instrument() wraps twice")
	}
	key := NewScopedKeyer(nil, "team").FitKey("d", FitKeyOpts{Score: "bic"})
	_, _, _ = c.Get(ctx, key)
	_ = c.Set(ctx, key, []byte("x"), 0)
	_, _, _ = c.Get(ctx, key)
	if h.hits != 1 || h.misses != 1 || h.sets != 1 {
		t.Errorf("hooks = %d hits, %d misses, %d sets, want 1 each", h.hits, h.misses, h.sets)
	}
	for _, kt := range h.types {
		if kt != "fit" {
			t.Errorf("hook key type = %q, want fit", kt)
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{"", "file", "none", "badger"} {
		t.Run(backend, func(t *testing.T) {
			c, err := Open(ctx, Config{Backend: backend, Dir: t.TempDir()}, nil)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer c.Close()
			if err := c.Set(ctx, "fit:a", []byte("x"), 0); err != nil {
				t.Errorf("Set() error = %v", err)
			}
		})
	}
	if _, err := Open(ctx, Config{Backend: "memcached"}, nil); err == nil {
		t.Error("Open(memcached) succeeded")
	}
	if _, err := Open(ctx, Config{Backend: "redis"}, nil); err == nil {
		t.Error("Open(redis) without address succeeded")
	}
	if _, err := Open(ctx, Config{Backend: "mongo"}, nil); err == nil {
		t.Error("Open(mongo) without uri succeeded")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	b := Backoff{Attempts: 3, Delay: time.Millisecond}

	calls := 0
	err := RetryWithBackoff(ctx, b, func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("flaky"))
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("RetryWithBackoff() = %v after %d calls, want nil after 3", err, calls)
	}

	calls = 0
	permanent := errors.New("permanent")
	err = RetryWithBackoff(ctx, b, func() error { calls++; return permanent })
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("RetryWithBackoff() = %v after %d calls, want permanent after 1", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, b, func() error { calls++; return Retryable(ErrBackend) })
	if !errors.Is(err, ErrBackend) || !IsRetryable(err) || calls != 3 {
		t.Errorf("RetryWithBackoff() = %v after %d calls, want ErrBackend after 3", err, calls)
	}
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) != nil")
	}
}

func TestKeyFormat(t *testing.T) {
	k := NewDefaultKeyer()
	for _, tt := range []struct{ key, prefix string }{
		{k.FitKey("d", FitKeyOpts{}), "fit:v2:"},
		{k.RenderKey("g", RenderKeyOpts{Format: "svg"}), "render:v2:"},
	} {
		if !strings.HasPrefix(tt.key, tt.prefix) || len(tt.key) != len(tt.prefix)+64 {
			t.Errorf("key %q, want %s<64 hex digits>", tt.key, tt.prefix)
		}
	}
}
