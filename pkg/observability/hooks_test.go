package observability

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recorder counts search events.
type recorder struct {
	NoopSearchHooks
	mu     sync.Mutex
	moves  map[string]int
	status []string
}

func (r *recorder) OnMove(_ context.Context, _, kind string, _ float64, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.moves == nil {
		r.moves = map[string]int{}
	}
	r.moves[kind]++
}

func (r *recorder) OnSearchComplete(_ context.Context, algorithm string, _ int, _ float64, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := algorithm + ":ok"
	if err != nil {
		status = algorithm + ":error"
	}
	r.status = append(r.status, status)
}

func TestNoopHooks(t *testing.T) {
	ctx := context.Background()
	var s SearchHooks = NoopSearchHooks{}
	s.OnSearchStart(ctx, "hc", 5)
	s.OnMove(ctx, "hc", "add", 12.5, 20)
	s.OnSearchComplete(ctx, "hc", 3, -104.2, time.Second, nil)

	var c CacheHooks = NoopCacheHooks{}
	c.OnCacheHit(ctx, "fit")
	c.OnCacheMiss(ctx, "render")
	c.OnCacheSet(ctx, "fit", 1024)

	var h HTTPHooks = NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/fit")
	h.OnResponse(ctx, "POST", "/v1/fit", 200, time.Second)
	h.OnError(ctx, "POST", "/v1/fit", nil)
}

func TestRegistry(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	if _, ok := Search().(NoopSearchHooks); !ok {
		t.Errorf("Search() = %T, want NoopSearchHooks", Search())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T, want NoopHTTPHooks", HTTP())
	}

	rec := &recorder{}
	SetSearchHooks(rec)
	SetSearchHooks(nil)
	if Search() != rec {
		t.Error("SetSearchHooks(nil) replaced the registered hooks")
	}

	ctx := context.Background()
	Search().OnMove(ctx, "hc", "add", 1, 4)
	Search().OnMove(ctx, "hc", "add", 1, 4)
	Search().OnMove(ctx, "hc", "reverse", 0.5, 4)
	Search().OnSearchComplete(ctx, "hc", 3, -10, time.Millisecond, nil)
	if rec.moves["add"] != 2 || rec.moves["reverse"] != 1 {
		t.Errorf("moves = %v, want add:2 reverse:1", rec.moves)
	}
	if len(rec.status) != 1 || rec.status[0] != "hc:ok" {
		t.Errorf("status = %v, want [hc:ok]", rec.status)
	}

	Reset()
	if _, ok := Search().(NoopSearchHooks); !ok {
		t.Error("Reset() did not restore NoopSearchHooks")
	}
}

func TestRegistryConcurrent(t *testing.T) {
	t.Cleanup(Reset)
	rec := &recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetSearchHooks(rec)
		}()
		go func() {
			defer wg.Done()
			Search().OnMove(context.Background(), "hc", "remove", 1, 1)
		}()
	}
	wg.Wait()
}
