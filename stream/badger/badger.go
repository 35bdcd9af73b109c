// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package badger provides a durable stream backend on BadgerDB. Events are
// stored under s/{scope}/{stream}/{seq} and reader-group positions under
// g/{scope}/{stream}/{group}, so consumption resumes across restarts.
// Registered under the "badger" scheme; the URI path is the data directory.
package badger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sony/gobreaker"

	"github.com/rohan-flutterint/kafka-adapter/stream"
)

// readPollInterval bounds how often a blocked reader re-checks the log.
const readPollInterval = 10 * time.Millisecond

func init() {
	stream.Register("badger", func(u *url.URL) (stream.Backend, error) {
		dir := u.Path
		if u.Host != "" {
			dir = u.Host + u.Path
		}
		if dir == "" {
			return nil, errors.New("badger endpoint is missing a data directory")
		}
		return Open(Config{Dir: dir})
	})
}

// Config holds BadgerDB backend configuration.
type Config struct {
	Dir        string // Directory for BadgerDB data
	SyncWrites bool   // Fsync every write; slower but durable per event
	Logger     *slog.Logger
}

// Backend is a BadgerDB-backed stream store.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger

	mu       sync.Mutex
	counters map[string]*seqCounter
	closed   bool
}

// seqCounter allocates gapless append positions for one stream. Event keys
// must be contiguous because readers advance position by position.
type seqCounter struct {
	mu   sync.Mutex
	next uint64
}

// Open opens (or creates) the backend at cfg.Dir.
func Open(cfg Config) (*Backend, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = nil // Disable BadgerDB's internal logging
	opts.SyncWrites = cfg.SyncWrites
	opts.NumVersionsToKeep = 1

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", cfg.Dir, err)
	}

	return &Backend{
		db:       db,
		logger:   cfg.Logger,
		counters: make(map[string]*seqCounter),
	}, nil
}

func eventPrefix(scope, name string) []byte {
	return []byte("s/" + scope + "/" + name + "/")
}

func eventKey(scope, name string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(eventPrefix(scope, name), seq)
}

func cursorKey(scope, name, group string) []byte {
	return []byte("g/" + scope + "/" + name + "/" + group)
}

// CreateReader returns a reader resuming from the group's persisted position.
func (b *Backend) CreateReader(scope, name, readerGroup, readerID string) (stream.Reader, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, stream.ErrBackendClosed
	}

	r := &reader{
		backend: b,
		scope:   scope,
		stream:  name,
		group:   readerGroup,
	}

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey(scope, name, readerGroup))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 8 {
				r.pos = binary.BigEndian.Uint64(val)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading position for group %q: %w", readerGroup, err)
	}
	return r, nil
}

// CreateWriter returns a writer appending to the stream. Writes go through a
// circuit breaker so a failing store fast-fails instead of piling up.
func (b *Backend) CreateWriter(scope, name string) (stream.Writer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, stream.ErrBackendClosed
	}

	key := scope + "/" + name
	counter, ok := b.counters[key]
	if !ok {
		next, err := b.nextSeq(scope, name)
		if err != nil {
			return nil, err
		}
		counter = &seqCounter{next: next}
		b.counters[key] = counter
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: key,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			b.logger.Warn("stream writer circuit breaker state changed",
				slog.String("stream", cbName),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &writer{backend: b, scope: scope, stream: name, counter: counter, breaker: breaker}, nil
}

// nextSeq finds the position one past the last stored event.
func (b *Backend) nextSeq(scope, name string) (uint64, error) {
	var next uint64
	prefix := eventPrefix(scope, name)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek to the last key under the prefix.
		seek := binary.BigEndian.AppendUint64(eventPrefix(scope, name), ^uint64(0))
		it.Seek(seek)
		if it.ValidForPrefix(prefix) {
			key := it.Item().Key()
			next = binary.BigEndian.Uint64(key[len(key)-8:]) + 1
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning %s/%s for last event: %w", scope, name, err)
	}
	return next, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	return b.db.Close()
}

type reader struct {
	backend *Backend
	scope   string
	stream  string
	group   string
	pos     uint64
}

func (r *reader) ReadNextEvent(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)

	for {
		ev, found, err := r.get(r.pos)
		if err != nil {
			return nil, err
		}
		if found {
			r.pos++
			r.persist()
			return ev, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		if remaining > readPollInterval {
			remaining = readPollInterval
		}
		time.Sleep(remaining)
	}
}

func (r *reader) get(pos uint64) ([]byte, bool, error) {
	var ev []byte
	err := r.backend.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(r.scope, r.stream, pos))
		if err != nil {
			return err
		}
		ev, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s/%s at %d: %w", r.scope, r.stream, pos, err)
	}
	return ev, true, nil
}

// persist records the group position. The store has no separate commit step,
// so every read advances the durable position.
func (r *reader) persist() {
	err := r.backend.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey(r.scope, r.stream, r.group), binary.BigEndian.AppendUint64(nil, r.pos))
	})
	if err != nil {
		r.backend.logger.Warn("persisting reader position",
			slog.String("stream", r.scope+"/"+r.stream),
			slog.String("group", r.group),
			slog.Any("error", err))
	}
}

func (r *reader) Close() error {
	r.persist()
	return nil
}

type writer struct {
	backend *Backend
	scope   string
	stream  string
	counter *seqCounter
	breaker *gobreaker.CircuitBreaker
}

func (w *writer) WriteEvent(event []byte) <-chan error {
	buf := make([]byte, len(event))
	copy(buf, event)

	ch := make(chan error, 1)
	go func() {
		_, err := w.breaker.Execute(func() (any, error) {
			return nil, w.append(buf)
		})
		ch <- err
	}()
	return ch
}

func (w *writer) append(event []byte) error {
	w.counter.mu.Lock()
	defer w.counter.mu.Unlock()

	err := w.backend.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(w.scope, w.stream, w.counter.next), event)
	})
	if err != nil {
		return fmt.Errorf("appending to %s/%s: %w", w.scope, w.stream, err)
	}
	w.counter.next++
	return nil
}

func (w *writer) Flush() error {
	return w.backend.db.Sync()
}

func (w *writer) Close() error {
	return nil
}
