// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-process stream backend. Streams are
// append-only event logs; readers in the same reader group share a cursor.
// Registered under the "memory" scheme.
package memory

import (
	"net/url"
	"sync"
	"time"

	"github.com/rohan-flutterint/kafka-adapter/stream"
)

func init() {
	stream.Register("memory", func(_ *url.URL) (stream.Backend, error) {
		return New(), nil
	})
}

// Backend is an in-memory stream store.
type Backend struct {
	mu      sync.Mutex
	streams map[string]*streamLog
	cursors map[string]*cursor
	closed  bool
}

// streamLog is one append-only event log. notify is closed and replaced on
// every append so blocked readers wake up.
type streamLog struct {
	mu     sync.Mutex
	events [][]byte
	notify chan struct{}
}

// cursor is a reader group's position within a log, guarded by the log's mu.
type cursor struct {
	pos int
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		streams: make(map[string]*streamLog),
		cursors: make(map[string]*cursor),
	}
}

func (b *Backend) log(scope, name string) (*streamLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, stream.ErrBackendClosed
	}

	key := scope + "/" + name
	l, ok := b.streams[key]
	if !ok {
		l = &streamLog{notify: make(chan struct{})}
		b.streams[key] = l
	}
	return l, nil
}

// CreateReader returns a reader for the stream bound to the given reader
// group. Readers of the same group share a position.
func (b *Backend) CreateReader(scope, name, readerGroup, readerID string) (stream.Reader, error) {
	l, err := b.log(scope, name)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	key := scope + "/" + name + "#" + readerGroup
	cur, ok := b.cursors[key]
	if !ok {
		cur = &cursor{}
		b.cursors[key] = cur
	}
	b.mu.Unlock()

	return &reader{log: l, cur: cur}, nil
}

// CreateWriter returns a writer appending to the stream.
func (b *Backend) CreateWriter(scope, name string) (stream.Writer, error) {
	l, err := b.log(scope, name)
	if err != nil {
		return nil, err
	}
	return &writer{backend: b, log: l}, nil
}

// Close discards all streams and cursors.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.streams = make(map[string]*streamLog)
	b.cursors = make(map[string]*cursor)
	return nil
}

type reader struct {
	log *streamLog
	cur *cursor
}

func (r *reader) ReadNextEvent(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)

	for {
		r.log.mu.Lock()
		if r.cur.pos < len(r.log.events) {
			ev := r.log.events[r.cur.pos]
			r.cur.pos++
			r.log.mu.Unlock()
			return ev, nil
		}
		notify := r.log.notify
		r.log.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		select {
		case <-notify:
		case <-time.After(remaining):
			return nil, nil
		}
	}
}

func (r *reader) Close() error {
	// Group positions live in the backend, nothing to release.
	return nil
}

type writer struct {
	backend *Backend
	log     *streamLog
}

func (w *writer) WriteEvent(event []byte) <-chan error {
	ch := make(chan error, 1)

	w.backend.mu.Lock()
	closed := w.backend.closed
	w.backend.mu.Unlock()
	if closed {
		ch <- stream.ErrBackendClosed
		return ch
	}

	buf := make([]byte, len(event))
	copy(buf, event)

	w.log.mu.Lock()
	w.log.events = append(w.log.events, buf)
	close(w.log.notify)
	w.log.notify = make(chan struct{})
	w.log.mu.Unlock()

	ch <- nil
	return ch
}

func (w *writer) Flush() error {
	return nil
}

func (w *writer) Close() error {
	return nil
}
