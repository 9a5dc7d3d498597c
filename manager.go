package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/store"
)

// ErrorHandler writes the response for a request whose session lookup failed with a
// store error. err wraps ErrStoreFailure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Manager is the session middleware. Create it with New().Build(); it is safe for
// concurrent use by any number of requests.
type Manager struct {
	config Config
	store  store.Store
	logger Logger

	extractor    TokenExtractor
	generator    TokenGenerator
	errorHandler ErrorHandler

	metrics *Metrics

	storeReady  atomic.Bool
	unsubscribe func()
	closeOnce   sync.Once
}

// Middleware wraps next so every request sees the session named by its token. The
// session is saved when next returns or panics, before the buffered response is
// written out.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromRequest(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		if !m.storeReady.Load() {
			m.logger.Error("session store is disconnected")
			m.metrics.Inc(MetricStoreUnavailable)
			next.ServeHTTP(w, withStoreDown(r))
			return
		}

		st := &requestState{mgr: m, store: m.store}
		r = withRequestState(r, st)

		commitCtx := context.WithoutCancel(r.Context())
		cw := newCommitWriter(w, func() { m.commit(commitCtx, st) })

		token := m.extractor(r)
		if token == "" {
			m.metrics.Inc(MetricNoToken)
			defer cw.finalize()
			next.ServeHTTP(cw, r)
			return
		}

		start := time.Now()
		payload, err := m.store.Get(r.Context(), token)
		m.metrics.Observe(MetricLoadLatency, time.Since(start))

		switch {
		case errors.Is(err, store.ErrNotFound), err == nil && payload == nil:
			m.metrics.Inc(MetricSessionMiss)
		case err != nil:
			m.metrics.Inc(MetricStoreError)
			m.logger.Error("session lookup failed", "error", err)
			m.errorHandler(w, r, fmt.Errorf("%w: %w", ErrStoreFailure, err))
			return
		default:
			st.attach(token, newSession(st, token, payload))
			m.metrics.Inc(MetricSessionLoaded)
		}

		defer cw.finalize()
		next.ServeHTTP(cw, r)
	})
}

// commit saves the attached session. A failed save is logged and the response is
// released anyway.
func (m *Manager) commit(ctx context.Context, st *requestState) {
	sess, token := st.current()
	if sess == nil || token == "" {
		return
	}

	start := time.Now()
	err := sess.Save(ctx)
	m.metrics.Observe(MetricCommitLatency, time.Since(start))
	if err != nil {
		m.logger.Error("session save failed", "error", err)
	}
}

func (m *Manager) handleEvent(ev store.Event) {
	switch ev {
	case store.EventDisconnect:
		if m.storeReady.Swap(false) {
			m.metrics.Inc(MetricStoreDisconnect)
			m.logger.Warn("session store disconnected")
		}
	case store.EventConnect:
		if !m.storeReady.Swap(true) {
			m.metrics.Inc(MetricStoreReconnect)
			m.logger.Warn("session store reconnected")
		}
	}
}

// StoreReady reports whether the last store event was a connect (or none was seen).
func (m *Manager) StoreReady() bool {
	return m.storeReady.Load()
}

// Store returns the backend the Manager reads and writes.
func (m *Manager) Store() store.Store {
	return m.store
}

// Config returns the validated configuration.
func (m *Manager) Config() Config {
	return m.config
}

// MetricsSnapshot copies the current counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// Close stops listening for store events. It does not close the store.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
	})
}
