package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/store"
)

var (
	// ErrNotFound is the store's "no entry for this token" code. It never reaches the
	// HTTP pipeline; the middleware treats it as a request without a session.
	ErrNotFound = store.ErrNotFound
	// ErrStoreUnavailable is returned when the store has reported a disconnect.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrStoreFailure wraps any store error other than ErrNotFound.
	ErrStoreFailure = errors.New("session store failure")
	// ErrLoadFailure is returned by Reload when the store no longer holds the session.
	ErrLoadFailure = errors.New("failed to load session")
	// ErrSaveFailure wraps errors returned while persisting a session.
	ErrSaveFailure = errors.New("failed to save session")
	// ErrNoStore is returned by request helpers when the middleware did not process the request.
	ErrNoStore = errors.New("session store not attached to request")
	// ErrInvalidToken is returned when a token cannot be used as a store key.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrBuilderUsed is returned by Build on a second call.
	ErrBuilderUsed = errors.New("builder already used")
)
