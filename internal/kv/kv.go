// Package kv is the durable key-value contract the snapshot store and the
// sync queue persist through, plus its backends.
//
// Values are opaque strings (JSON documents in practice). Every call is
// fallible: callers above this package degrade to false/nil results rather
// than propagating storage failures into session progress.
//
// Backends:
//   - SQLite: single-file durable store (WAL mode), the default.
//   - Redis: shared store for hosted deployments.
//   - Memory: process-local store for tests and the scenario harness.
package kv

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable is returned when the backend cannot serve the request.
	ErrUnavailable = errors.New("store unavailable")
)

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends holding external resources.
type Closer interface {
	Close() error
}

// Close closes s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
