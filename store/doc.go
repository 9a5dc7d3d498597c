// Package store defines the persistence contract for goSession payloads and the
// shared helpers that concrete backends build on.
//
// # Contract
//
// Every backend implements [Store] (Get, Set, Destroy). Backends that can enumerate
// their contents also implement [Introspector]; backends that can observe their own
// availability implement [Watcher] and emit [EventConnect] / [EventDisconnect].
//
// Get reports a missing token with [ErrNotFound]. Any other error is a hard failure and
// is propagated by the middleware.
//
// # Architecture boundaries
//
// This package owns the contract, the [Codec] implementations and the [Notifier]
// event helper. It does NOT know about HTTP requests, sessions, or the middleware.
//
// # What this package must NOT do
//
//   - Import goSession or any backend sub-package (no upward imports).
//   - Retry, expire, or evict entries. Those belong to concrete backends.
package store
