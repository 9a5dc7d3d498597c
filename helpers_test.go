package goSession

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/memory"
)

func newTestManager(t *testing.T, opts ...func(*Builder)) (*Manager, *memory.Store) {
	t.Helper()

	mem := memory.New()
	cfg := DefaultConfig()
	cfg.Environment = EnvTest

	b := New().WithConfig(cfg).WithStore(mem)
	for _, opt := range opts {
		opt(b)
	}

	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(m.Close)
	return m, mem
}

func seedSession(t *testing.T, st store.Store, token string, p store.Payload) {
	t.Helper()
	if err := st.Set(context.Background(), token, p); err != nil {
		t.Fatalf("seed %q: %v", token, err)
	}
}

func postJSON(h http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// faultyStore wraps a store and injects errors.
type faultyStore struct {
	store.Store
	getErr error
	setErr error
}

func (f *faultyStore) Get(ctx context.Context, token string) (store.Payload, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, token)
}

func (f *faultyStore) Set(ctx context.Context, token string, p store.Payload) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, token, p)
}

// nilStore answers every lookup with (nil, nil).
type nilStore struct{ store.Store }

func (nilStore) Get(context.Context, string) (store.Payload, error) { return nil, nil }

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
