// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream defines the boundary to the underlying stream store:
// blocking bounded readers, asynchronous writers, and the backends that
// create them. Backends register themselves by URI scheme, so callers open
// one with an endpoint string such as "memory://" or "badger:///var/data".
package stream

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

var (
	// ErrReinitializationRequired signals that a reader's group state is
	// stale and the reader cannot continue. It is fatal for the read loop
	// that hits it; the owner must resubscribe.
	ErrReinitializationRequired = errors.New("reader reinitialization required")

	// ErrBackendClosed is returned by operations on a closed backend.
	ErrBackendClosed = errors.New("stream backend is closed")

	// ErrUnknownScheme is returned by Open for an unregistered URI scheme.
	ErrUnknownScheme = errors.New("unknown stream backend scheme")
)

// Reader reads events from one stream on behalf of a reader group.
type Reader interface {
	// ReadNextEvent blocks up to timeout for the next event. A (nil, nil)
	// return means no event is currently available.
	ReadNextEvent(timeout time.Duration) ([]byte, error)

	// Close releases the reader. Best-effort; callers log failures.
	Close() error
}

// Writer appends events to one stream.
type Writer interface {
	// WriteEvent issues an asynchronous append. The returned channel
	// delivers exactly one value once the write settles.
	WriteEvent(event []byte) <-chan error

	// Flush blocks until previously issued writes are durable.
	Flush() error

	// Close releases the writer. Best-effort; callers log failures.
	Close() error
}

// Backend creates readers and writers for streams within a scope.
type Backend interface {
	CreateReader(scope, stream, readerGroup, readerID string) (Reader, error)
	CreateWriter(scope, stream string) (Writer, error)
	Close() error
}

// Driver opens a backend from a parsed endpoint URI.
type Driver func(u *url.URL) (Backend, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a backend driver available under the given URI scheme.
// It panics if the scheme is already taken.
func Register(scheme string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[scheme]; dup {
		panic(fmt.Sprintf("stream: driver %q registered twice", scheme))
	}
	drivers[scheme] = d
}

// Open connects to the backend identified by the endpoint URI.
func Open(endpoint string) (Backend, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}

	driversMu.RLock()
	d, ok := drivers[u.Scheme]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
	}
	return d(u)
}
