// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package producer emulates a partitioned-log producer API on top of a
// stream backend. Send runs the interceptor chain, resolves a cached
// per-topic writer and issues an asynchronous write whose completion fans
// out to a future and an optional callback.
package producer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohan-flutterint/kafka-adapter/config"
	"github.com/rohan-flutterint/kafka-adapter/serde"
	"github.com/rohan-flutterint/kafka-adapter/stream"
	"github.com/rohan-flutterint/kafka-adapter/types"
)

// Callback receives the send completion: metadata on success, or a
// *WriteError when the underlying write failed. Invoked exactly once, on the
// completion goroutine, after the write settles.
type Callback func(md *types.RecordMetadata, err error)

// Producer writes records to topics.
type Producer struct {
	cfg          *config.ProducerConfig
	backend      stream.Backend
	ownsBackend  bool
	serializer   serde.Serializer
	interceptors []Interceptor
	logger       *slog.Logger

	mu      sync.Mutex
	writers map[string]stream.Writer

	closed atomic.Bool
}

// New creates a Producer. Unless cfg carries a pre-opened Backend, the
// endpoint URI is resolved through the stream driver registry and the
// resulting backend is owned (and closed) by the producer.
func New(cfg *config.ProducerConfig) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	serializer, err := serde.New(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	chain, err := newInterceptors(cfg.Interceptors)
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend
	ownsBackend := false
	if backend == nil {
		backend, err = stream.Open(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		ownsBackend = true
	}

	return &Producer{
		cfg:          cfg,
		backend:      backend,
		ownsBackend:  ownsBackend,
		serializer:   serializer,
		interceptors: chain,
		logger:       cfg.Logger,
		writers:      make(map[string]stream.Writer),
	}, nil
}

// Send writes the record to its topic and returns a future for the
// completion. The record first passes through the interceptor chain, which
// may rewrite it.
//
// A failed underlying write is logged and swallowed: the future resolves
// successfully with nil metadata while the callback, if supplied, receives
// the fault wrapped in *WriteError. See Future for why this asymmetry is
// kept.
func (p *Producer) Send(record *types.ProducerRecord, cb Callback) (*Future, error) {
	if p.closed.Load() {
		return nil, ErrProducerClosed
	}
	if record == nil {
		return nil, ErrNilRecord
	}
	if record.Topic == "" {
		return nil, ErrEmptyTopic
	}

	record = applyInterceptors(p.logger, p.interceptors, record)

	payload, err := p.serializer.Serialize(record.Value)
	if err != nil {
		return nil, fmt.Errorf("serializing record for %q: %w", record.Topic, err)
	}

	w, err := p.writer(record.Topic)
	if err != nil {
		return nil, err
	}

	fut := newFuture()
	errCh := w.WriteEvent(payload)
	go p.settle(record.Topic, errCh, fut, cb)
	return fut, nil
}

// settle observes the write completion and fans it out to the future and
// the callback as two independent observers.
func (p *Producer) settle(topic string, errCh <-chan error, fut *Future, cb Callback) {
	err := <-errCh

	var md *types.RecordMetadata
	if err != nil {
		p.logger.Error("writing event failed", slog.String("topic", topic), slog.Any("error", err))
	} else {
		md = &types.RecordMetadata{
			Topic:     topic,
			Partition: -1,
			Offset:    -1,
			Timestamp: time.Now().UnixMilli(),
		}
	}

	fut.complete(md)

	if cb != nil {
		if err != nil {
			cb(nil, &WriteError{Topic: topic, Err: err})
		} else {
			cb(md, nil)
		}
	}
}

// writer resolves the cached writer for the topic, creating it on first use.
func (p *Producer) writer(topic string) (stream.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w, nil
	}
	w, err := p.backend.CreateWriter(p.cfg.Scope, topic)
	if err != nil {
		return nil, fmt.Errorf("creating writer for %q: %w", topic, err)
	}
	p.writers[topic] = w
	return w, nil
}

// Flush flushes every cached writer sequentially. Individual failures are
// logged and do not stop the remaining writers; they are joined into the
// returned error.
func (p *Producer) Flush() error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for topic, w := range p.writers {
		if err := w.Flush(); err != nil {
			p.logger.Warn("flushing writer", slog.String("topic", topic), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("flushing %q: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// PartitionsFor reports no partitions; the store has none to enumerate.
func (p *Producer) PartitionsFor(topic string) []types.PartitionInfo {
	return nil
}

// InitTransactions is not supported; the store has no transactions.
func (p *Producer) InitTransactions() error { return ErrNotSupported }

// BeginTransaction is not supported.
func (p *Producer) BeginTransaction() error { return ErrNotSupported }

// CommitTransaction is not supported.
func (p *Producer) CommitTransaction() error { return ErrNotSupported }

// AbortTransaction is not supported.
func (p *Producer) AbortTransaction() error { return ErrNotSupported }

// SendOffsetsToTransaction is not supported.
func (p *Producer) SendOffsetsToTransaction(offsets map[types.TopicPartition]int64, groupID string) error {
	return ErrNotSupported
}

// Close closes all cached writers (failures logged) and the owned backend.
// Idempotent.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.mu.Lock()
	writers := p.writers
	p.writers = make(map[string]stream.Writer)
	p.mu.Unlock()

	for topic, w := range writers {
		if err := w.Close(); err != nil {
			p.logger.Warn("closing writer", slog.String("topic", topic), slog.Any("error", err))
		}
	}
	if p.ownsBackend {
		if err := p.backend.Close(); err != nil {
			p.logger.Warn("closing stream backend", slog.Any("error", err))
		}
	}
	return nil
}
