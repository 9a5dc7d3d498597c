// Package internal contains helpers private to goSession, currently the random token
// source used by Generate.
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
