package goSession

import (
	"context"
	"net/http"
	"sync"

	"github.com/MrEthical07/goSession/store"
)

type requestStateKey struct{}
type storeDownKey struct{}

// requestState is shared by the middleware and everything downstream of it for one
// request. The handler may derive new requests with WithContext; they all point at the
// same state.
type requestState struct {
	mgr   *Manager
	store store.Store

	mu      sync.Mutex
	token   string
	session *Session
}

func (st *requestState) attach(token string, s *Session) {
	st.mu.Lock()
	st.token = token
	st.session = s
	st.mu.Unlock()
}

// detach clears the session slot if it still holds s.
func (st *requestState) detach(s *Session) {
	st.mu.Lock()
	if st.session == s {
		st.session = nil
	}
	st.mu.Unlock()
}

func (st *requestState) current() (*Session, string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session, st.token
}

func withRequestState(r *http.Request, st *requestState) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), requestStateKey{}, st))
}

func withStoreDown(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), storeDownKey{}, true))
}

func stateFromContext(ctx context.Context) *requestState {
	if ctx == nil {
		return nil
	}
	st, _ := ctx.Value(requestStateKey{}).(*requestState)
	return st
}

func storeDown(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	down, _ := ctx.Value(storeDownKey{}).(bool)
	return down
}

// FromContext returns the session attached to ctx by the Manager middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	st := stateFromContext(ctx)
	if st == nil {
		return nil, false
	}
	s, _ := st.current()
	return s, s != nil
}

// FromRequest returns the session attached to r, if any.
func FromRequest(r *http.Request) (*Session, bool) {
	if r == nil {
		return nil, false
	}
	return FromContext(r.Context())
}

// TokenFromRequest returns the token the current session is keyed by.
func TokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	st := stateFromContext(r.Context())
	if st == nil {
		return "", false
	}
	_, token := st.current()
	return token, token != ""
}

// StoreFromRequest returns the store handle the middleware exposed on r. It is absent
// when the middleware did not run or the store was disconnected.
func StoreFromRequest(r *http.Request) (store.Store, bool) {
	if r == nil {
		return nil, false
	}
	st := stateFromContext(r.Context())
	if st == nil {
		return nil, false
	}
	return st.store, true
}

func (st *requestState) metrics() *Metrics {
	if st == nil || st.mgr == nil {
		return nil
	}
	return st.mgr.metrics
}
