package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/store"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	in := store.Payload{
		"count": float64(1),
		"user":  map[string]any{"name": "alice", "roles": []any{"admin"}},
	}

	if err := s.Set(ctx, "tok", in); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := s.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: got %#v want %#v", out, in)
	}
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Set(ctx, "tok", store.Payload{"n": float64(1)})

	first, _ := s.Get(ctx, "tok")
	first["n"] = float64(99)

	second, _ := s.Get(ctx, "tok")
	if second["n"] != float64(1) {
		t.Fatalf("stored value mutated through returned payload: %v", second["n"])
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDestroyThenGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Destroy(ctx, "never-set"); err != nil {
		t.Fatalf("destroy missing: %v", err)
	}

	_ = s.Set(ctx, "tok", store.Payload{"a": "b"})
	if err := s.Destroy(ctx, "tok"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := s.Get(ctx, "tok"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after destroy, got %v", err)
	}
}

func TestSetOverwritesLastWriteWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Set(ctx, "tok", store.Payload{"v": "first", "extra": true})
	_ = s.Set(ctx, "tok", store.Payload{"v": "second"})

	got, _ := s.Get(ctx, "tok")
	if !reflect.DeepEqual(got, store.Payload{"v": "second"}) {
		t.Fatalf("expected second write only, got %#v", got)
	}
}

func TestIntrospection(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = s.Set(ctx, fmt.Sprintf("tok-%d", i), store.Payload{"i": float64(i)})
	}

	n, err := s.Len(ctx)
	if err != nil || n != 3 {
		t.Fatalf("len = %d, %v; want 3", n, err)
	}

	raw, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("all returned %d entries", len(raw))
	}
	seen := map[float64]bool{}
	for _, data := range raw {
		p, err := s.Codec().Unmarshal(data)
		if err != nil {
			t.Fatalf("decode raw entry: %v", err)
		}
		seen[p["i"].(float64)] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected three distinct payloads, got %v", seen)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := s.Len(ctx); n != 0 {
		t.Fatalf("len after clear = %d", n)
	}
}

func TestCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Set(ctx, "tok", store.Payload{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("set: expected context.Canceled, got %v", err)
	}
	if _, err := s.Get(ctx, "tok"); !errors.Is(err, context.Canceled) {
		t.Fatalf("get: expected context.Canceled, got %v", err)
	}
	if err := s.Clear(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("clear: expected context.Canceled, got %v", err)
	}
}

func TestCBORCodecOption(t *testing.T) {
	s := New(WithCodec(store.CBORCodec{}))
	ctx := context.Background()
	_ = s.Set(ctx, "tok", store.Payload{"count": uint64(2)})

	got, err := s.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["count"] != uint64(2) {
		t.Fatalf("expected uint64 2, got %#v", got["count"])
	}
}

func TestConcurrentIndependentTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := fmt.Sprintf("tok-%d", i)
			for j := 0; j < 50; j++ {
				if err := s.Set(ctx, tok, store.Payload{"j": float64(j), "owner": tok}); err != nil {
					t.Errorf("set: %v", err)
					return
				}
				p, err := s.Get(ctx, tok)
				if err != nil {
					t.Errorf("get: %v", err)
					return
				}
				if p["owner"] != tok {
					t.Errorf("token %s read payload of %v", tok, p["owner"])
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if n, _ := s.Len(ctx); n != 32 {
		t.Fatalf("expected 32 entries, got %d", n)
	}
}

func TestEmitReachesSubscribers(t *testing.T) {
	s := New()
	var got store.Event
	unsubscribe := s.Subscribe(func(e store.Event) { got = e })
	defer unsubscribe()

	s.Emit(store.EventDisconnect)
	if got != store.EventDisconnect {
		t.Fatalf("expected disconnect event, got %v", got)
	}
}
