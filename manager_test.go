package goSession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/memory"
)

const scenarioToken = "thisIsMyToken__"

func counterApp(m *Manager) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		s, err := Generate(r, scenarioToken)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(s.ID()))
	})
	mux.HandleFunc("/count", func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromRequest(r)
		if !ok {
			_, _ = w.Write([]byte("No session found"))
			return
		}
		v, _ := s.Get("count")
		n, _ := v.(float64)
		n++
		s.Set("count", n)
		_, _ = w.Write([]byte(strconv.Itoa(int(n))))
	})
	mux.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromRequest(r)
		if !ok {
			_, _ = w.Write([]byte("No session found"))
			return
		}
		v, _ := s.Get("count")
		n, _ := v.(float64)
		n++
		s.Set("count", n)
		if n <= 2 {
			_, _ = w.Write([]byte(strconv.Itoa(int(n))))
			return
		}
		if err := s.Destroy(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, still := FromRequest(r); still {
			http.Error(w, "session still attached", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("session destroyed"))
	})
	return m.Middleware(mux)
}

func TestCounterPersistsAcrossRequests(t *testing.T) {
	m, _ := newTestManager(t)
	h := counterApp(m)

	if got := postJSON(h, "/login", "{}").Body.String(); got != scenarioToken {
		t.Fatalf("login = %q", got)
	}

	body := `{"token":"` + scenarioToken + `"}`
	for i, want := range []string{"1", "2", "3"} {
		if got := postJSON(h, "/count", body).Body.String(); got != want {
			t.Fatalf("count #%d = %q, want %q", i+1, got, want)
		}
	}
}

func TestTokenFromQueryString(t *testing.T) {
	m, _ := newTestManager(t)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			s, err := Generate(r, scenarioToken)
			if err != nil {
				t.Errorf("Generate: %v", err)
				return
			}
			s.Set("value", "Wouahouuuu")
			_, _ = w.Write([]byte(s.ID()))
			return
		}
		s, ok := FromRequest(r)
		if !ok {
			http.Error(w, "no session", http.StatusNotFound)
			return
		}
		v, _ := s.Get("value")
		_, _ = fmt.Fprint(w, v)
	}))

	postJSON(h, "/login", "")
	if got := get(h, "/my/route?token="+scenarioToken).Body.String(); got != "Wouahouuuu" {
		t.Fatalf("got %q", got)
	}
}

func TestDestroyRemovesSession(t *testing.T) {
	m, mem := newTestManager(t)
	h := counterApp(m)

	postJSON(h, "/login", "")
	body := `{"token":"` + scenarioToken + `"}`
	for i, want := range []string{"1", "2", "session destroyed"} {
		if got := postJSON(h, "/test", body).Body.String(); got != want {
			t.Fatalf("test #%d = %q, want %q", i+1, got, want)
		}
	}

	if _, err := mem.Get(context.Background(), scenarioToken); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected destroyed session to stay gone, got %v", err)
	}
	if got := postJSON(h, "/count", body).Body.String(); got != "No session found" {
		t.Fatalf("after destroy = %q", got)
	}
}

func TestSimulatedDisconnect(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	m, mem := newTestManager(t, func(b *Builder) { b.WithLogger(logger) })
	h := counterApp(m)

	postJSON(h, "/login", "")
	body := `{"token":"` + scenarioToken + `"}`
	if got := postJSON(h, "/count", body).Body.String(); got != "1" {
		t.Fatalf("count = %q", got)
	}

	mem.Emit(store.EventDisconnect)
	if m.StoreReady() {
		t.Fatal("expected store to be flagged down")
	}
	if got := postJSON(h, "/count", body).Body.String(); got != "No session found" {
		t.Fatalf("count while down = %q", got)
	}
	if rec := postJSON(h, "/login", ""); rec.Code != http.StatusServiceUnavailable ||
		!strings.Contains(rec.Body.String(), ErrStoreUnavailable.Error()) {
		t.Fatalf("login while down = %d %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(logs.String(), "session store is disconnected") {
		t.Fatalf("expected disconnect log, got %q", logs.String())
	}

	mem.Emit(store.EventConnect)
	if got := postJSON(h, "/count", body).Body.String(); got != "2" {
		t.Fatalf("count after reconnect = %q", got)
	}

	snap := m.MetricsSnapshot()
	if snap.Counters[MetricStoreDisconnect] != 1 || snap.Counters[MetricStoreReconnect] != 1 {
		t.Fatalf("transition counters = %+v", snap.Counters)
	}
	if snap.Counters[MetricStoreUnavailable] != 2 {
		t.Fatalf("unavailable = %d", snap.Counters[MetricStoreUnavailable])
	}
}

func TestRequestsWithoutSession(t *testing.T) {
	m, mem := newTestManager(t)
	seedSession(t, mem, "known", map[string]any{"user": "ann"})

	var seen []bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := FromRequest(r)
		seen = append(seen, ok)
		if _, ok := StoreFromRequest(r); !ok {
			t.Error("store must be exposed on every processed request")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, target := range []string{"/", "/?token=", "/?token=unknown", "/?token=known"} {
		if rec := get(h, target); rec.Code != http.StatusNoContent {
			t.Fatalf("%s: status %d", target, rec.Code)
		}
	}

	want := []bool{false, false, false, true}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("request %d: session=%v want %v", i, seen[i], want[i])
		}
	}

	if n, _ := mem.Len(context.Background()); n != 1 {
		t.Fatalf("misses must not create entries, len=%d", n)
	}
}

func TestNilPayloadIsMiss(t *testing.T) {
	m, _ := newTestManager(t, func(b *Builder) { b.WithStore(nilStore{Store: memory.New()}) })

	rec := get(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromRequest(r); ok {
			t.Error("nil payload must not materialize a session")
		}
	})), "/?token=abc")

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHardStoreErrorGoesToErrorHandler(t *testing.T) {
	boom := errors.New("boom")
	fs := &faultyStore{Store: memory.New(), getErr: boom}
	m, _ := newTestManager(t, func(b *Builder) { b.WithStore(fs) })

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := get(h, "/?token=abc")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	if called {
		t.Fatal("handler must not run after a hard store error")
	}

	var gotErr error
	m2, _ := newTestManager(t, func(b *Builder) {
		b.WithStore(fs).WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			gotErr = err
			w.WriteHeader(http.StatusBadGateway)
		})
	})
	if rec := get(m2.Middleware(http.NotFoundHandler()), "/?token=abc"); rec.Code != http.StatusBadGateway {
		t.Fatalf("custom handler status %d", rec.Code)
	}
	if !errors.Is(gotErr, ErrStoreFailure) || !errors.Is(gotErr, boom) {
		t.Fatalf("unexpected error %v", gotErr)
	}
}

func TestFailedSaveStillResponds(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	fs := &faultyStore{Store: memory.New(), setErr: errors.New("disk full")}
	m, _ := newTestManager(t, func(b *Builder) { b.WithStore(fs).WithLogger(logger) })

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := Generate(r, ""); err != nil {
			t.Errorf("Generate: %v", err)
		}
		w.Header().Set("X-Test", "1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))

	rec := get(h, "/")
	if rec.Code != http.StatusCreated || rec.Body.String() != "created" || rec.Header().Get("X-Test") != "1" {
		t.Fatalf("response altered: %d %q %v", rec.Code, rec.Body.String(), rec.Header())
	}
	if !strings.Contains(logs.String(), "session save failed") {
		t.Fatalf("expected save failure log, got %q", logs.String())
	}
	if got := m.MetricsSnapshot().Counters[MetricSaveFailure]; got != 1 {
		t.Fatalf("save failures = %d", got)
	}
}

func TestGeneratedTokenIsPersisted(t *testing.T) {
	m, mem := newTestManager(t)

	var token string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := Generate(r, "")
		if err != nil {
			t.Errorf("Generate: %v", err)
			return
		}
		s.Set("n", 1)
		token, _ = TokenFromRequest(r)
	}))
	get(h, "/")

	if len(token) != 40 {
		t.Fatalf("token %q has length %d", token, len(token))
	}
	p, err := mem.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p["n"] != float64(1) {
		t.Fatalf("payload = %v", p)
	}
}

func TestCustomTokenGenerator(t *testing.T) {
	m, mem := newTestManager(t, func(b *Builder) { b.WithTokenGenerator(UUIDGenerator) })

	var id string
	get(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := Generate(r, "")
		if err != nil {
			t.Errorf("Generate: %v", err)
			return
		}
		id = s.ID()
	})), "/")

	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("expected uuid, got %q", id)
	}
	if n, _ := mem.Len(context.Background()); n != 1 {
		t.Fatalf("len = %d", n)
	}
}

func TestGenerateOutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := Generate(req, "x"); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
	if _, ok := FromRequest(req); ok {
		t.Fatal("unexpected session")
	}
	if _, ok := StoreFromRequest(req); ok {
		t.Fatal("unexpected store")
	}
}

func TestGenerateRejectsInvalidToken(t *testing.T) {
	m, _ := newTestManager(t)
	get(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := Generate(r, "has space"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})), "/")
}

func TestSelfAwarenessSkipsSecondManager(t *testing.T) {
	m, mem := newTestManager(t)
	seedSession(t, mem, "known", map[string]any{"a": "b"})

	inner := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromRequest(r)
		if !ok {
			t.Error("outer session must be visible")
			return
		}
		s.Set("a", "c")
	}))
	get(m.Middleware(inner), "/?token=known")

	snap := m.MetricsSnapshot()
	if snap.Counters[MetricSessionLoaded] != 1 {
		t.Fatalf("loaded = %d", snap.Counters[MetricSessionLoaded])
	}
	if snap.Counters[MetricSessionSaved] != 1 {
		t.Fatalf("saved = %d", snap.Counters[MetricSessionSaved])
	}
	p, _ := mem.Get(context.Background(), "known")
	if p["a"] != "c" {
		t.Fatalf("payload = %v", p)
	}
}

func TestFlushCommitsOnce(t *testing.T) {
	m, mem := newTestManager(t)
	seedSession(t, mem, "known", map[string]any{"step": "start"})

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := FromRequest(r)
		s.Set("step", "flushed")
		_, _ = w.Write([]byte("a"))
		w.(http.Flusher).Flush()

		s.Set("step", "after")
		_, _ = w.Write([]byte("b"))
	}))

	rec := get(h, "/?token=known")
	if rec.Body.String() != "ab" || !rec.Flushed {
		t.Fatalf("body %q flushed=%v", rec.Body.String(), rec.Flushed)
	}

	p, _ := mem.Get(context.Background(), "known")
	if p["step"] != "flushed" {
		t.Fatalf("expected single commit at flush, got %v", p)
	}
	if got := m.MetricsSnapshot().Counters[MetricSessionSaved]; got != 1 {
		t.Fatalf("saved = %d", got)
	}
}

func TestInformationalStatusKeepsFinalStatus(t *testing.T) {
	m, mem := newTestManager(t)
	seedSession(t, mem, "known", map[string]any{})

	srv := httptest.NewServer(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := FromRequest(r)
		s.Set("k", "v")
		w.Header().Set("Link", "</style.css>; rel=preload")
		w.WriteHeader(http.StatusEarlyHints)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/?token=known")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if got := readBody(t, resp); got != "ok" {
		t.Fatalf("body = %q", got)
	}

	p, _ := mem.Get(context.Background(), "known")
	if p["k"] != "v" {
		t.Fatalf("session not committed: %v", p)
	}
}

func TestPanickingHandlerStillCommits(t *testing.T) {
	m, mem := newTestManager(t)
	seedSession(t, mem, "known", map[string]any{})

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := FromRequest(r)
		s.Set("k", "v")
		_, _ = w.Write([]byte("partial"))
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?token=known", nil))
	}()

	if rec.Body.String() != "partial" {
		t.Fatalf("buffered body lost: %q", rec.Body.String())
	}
	p, _ := mem.Get(context.Background(), "known")
	if p["k"] != "v" {
		t.Fatalf("session not committed: %v", p)
	}
}

func TestCommitSurvivesCancelledRequest(t *testing.T) {
	m, mem := newTestManager(t)
	seedSession(t, mem, "known", map[string]any{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := FromRequest(r)
		s.Set("k", "v")
		cancel()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?token=known", nil).WithContext(ctx))

	p, err := mem.Get(context.Background(), "known")
	if err != nil || p["k"] != "v" {
		t.Fatalf("commit lost after client went away: %v %v", p, err)
	}
}

func TestConfigValidationAtBuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = EnvTest
	cfg.TokenKey = ""
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected validation error")
	}

	b := New().WithConfig(DefaultConfig()).WithStore(memory.New())
	b.config.Environment = EnvTest
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestProductionMemoryStoreWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Warn})

	cfg := DefaultConfig()
	cfg.Environment = EnvProduction
	m, err := New().WithConfig(cfg).WithLogger(logger).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer m.Close()

	if !strings.Contains(buf.String(), "not designed for a production environment") {
		t.Fatalf("expected warning, got %q", buf.String())
	}

	buf.Reset()
	cfg.Environment = EnvDevelopment
	if _, err := New().WithConfig(cfg).WithLogger(logger).Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestCloseStopsEvents(t *testing.T) {
	m, mem := newTestManager(t)
	m.Close()
	mem.Emit(store.EventDisconnect)
	if !m.StoreReady() {
		t.Fatal("closed manager must ignore events")
	}
	m.Close()
}
