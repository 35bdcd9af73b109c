// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package consumer emulates a partitioned-log consumer API on top of a
// stream backend. Subscriptions map topics to reader handles; Poll drains
// the readers fairly within a wall-clock budget and returns the batch keyed
// by topic-partition.
package consumer

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rohan-flutterint/kafka-adapter/config"
	"github.com/rohan-flutterint/kafka-adapter/serde"
	"github.com/rohan-flutterint/kafka-adapter/stream"
	"github.com/rohan-flutterint/kafka-adapter/types"
)

const (
	// defaultPollTimeout replaces a zero poll timeout. The emulated API
	// would return immediately; here every poll makes bounded-but-nonzero
	// progress instead, because the backing reads are blocking.
	defaultPollTimeout = 500 * time.Millisecond

	// recordsPerReaderPerPass caps how many events one topic may
	// contribute in a single pass, so one busy topic cannot starve the
	// rest of the poll budget.
	recordsPerReaderPerPass = 10
)

// Consumer reads records from subscribed topics.
//
// A Consumer is not safe for concurrent polling: Subscribe, Unsubscribe and
// Poll must be called from one goroutine at a time. Close may be called
// concurrently; an in-flight poll aborts at its next closed-flag check.
type Consumer struct {
	cfg          *config.ConsumerConfig
	backend      stream.Backend
	ownsBackend  bool
	deserializer serde.Serializer
	interceptors []Interceptor
	logger       *slog.Logger

	readers map[string]stream.Reader
	order   []string // subscription insertion order, drained fairly per pass

	closed atomic.Bool
}

// New creates a Consumer. Unless cfg carries a pre-opened Backend, the
// endpoint URI is resolved through the stream driver registry and the
// resulting backend is owned (and closed) by the consumer.
func New(cfg *config.ConsumerConfig) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deserializer, err := serde.New(cfg.Serializer)
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

	return &Consumer{
		cfg:          cfg,
		backend:      backend,
		ownsBackend:  ownsBackend,
		deserializer: deserializer,
		interceptors: chain,
		logger:       cfg.Logger,
		readers:      make(map[string]stream.Reader),
	}, nil
}

// Subscription returns the currently subscribed topics in insertion order.
func (c *Consumer) Subscription() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Subscribe replaces the current subscription with the given topics. All
// existing readers are closed (failures logged) and fresh ones created, even
// for topics that were already subscribed: reader-group naming depends on
// the topic's position in the set, so handles cannot be reused across
// membership changes. With more than one topic each reader group name gets a
// 1-based ordinal suffix to keep group identities distinct.
func (c *Consumer) Subscribe(topics ...string) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}

	c.closeAllReaders()
	c.readers = make(map[string]stream.Reader)
	c.order = nil

	for i, topic := range topics {
		if _, ok := c.readers[topic]; ok {
			continue
		}

		group := c.cfg.GroupID
		if len(topics) > 1 {
			group = fmt.Sprintf("%s-%d", group, i+1)
		}

		r, err := c.backend.CreateReader(c.cfg.Scope, topic, group, c.cfg.ClientID)
		if err != nil {
			return fmt.Errorf("creating reader for %q: %w", topic, err)
		}
		c.readers[topic] = r
		c.order = append(c.order, topic)
	}
	return nil
}

// Unsubscribe drops the entire subscription, closing all readers.
func (c *Consumer) Unsubscribe() error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	c.closeAllReaders()
	c.readers = make(map[string]stream.Reader)
	c.order = nil
	return nil
}

func (c *Consumer) closeAllReaders() {
	for topic, r := range c.readers {
		if err := r.Close(); err != nil {
			c.logger.Warn("closing reader", slog.String("topic", topic), slog.Any("error", err))
		}
	}
}

// Poll drains the subscribed topics until the timeout elapses and returns
// the aggregated batch. A zero timeout is replaced with an internal default
// rather than returning immediately. A reader signalling
// stream.ErrReinitializationRequired aborts the poll; the caller must
// resubscribe.
func (c *Consumer) Poll(timeout time.Duration) (types.ConsumerRecords, error) {
	if c.closed.Load() {
		return nil, ErrConsumerClosed
	}
	if timeout < 0 {
		return nil, ErrNegativeTimeout
	}
	if len(c.order) == 0 {
		return nil, ErrNoSubscription
	}

	if timeout == 0 {
		timeout = defaultPollTimeout
	}

	batch, err := c.read(timeout, recordsPerReaderPerPass, c.cfg.MaxPollRecords)
	if err != nil {
		return nil, err
	}
	return applyInterceptors(c.logger, c.interceptors, batch), nil
}

// read makes repeated passes over the topic list in insertion order until
// the deadline. Per topic per pass it accumulates bounded single-event reads
// until the per-pass cap, the total cap, the deadline, or an empty read.
// Revisiting busy topics across many short passes gives round-robin-like
// fairness instead of letting one topic monopolize the budget.
func (c *Consumer) read(timeout time.Duration, perPass, maxTotal int) (types.ConsumerRecords, error) {
	deadline := time.Now().Add(timeout)
	batch := make(types.ConsumerRecords)
	total := 0

	for time.Now().Before(deadline) {
		for _, topic := range c.order {
			if c.closed.Load() {
				return nil, ErrConsumerClosed
			}
			if !time.Now().Before(deadline) {
				break
			}

			reader := c.readers[topic]
			var added []types.ConsumerRecord

			for total < maxTotal && len(added) < perPass {
				if c.closed.Load() {
					return nil, ErrConsumerClosed
				}

				ev, err := reader.ReadNextEvent(c.cfg.ReadTimeout)
				if err != nil {
					return nil, fmt.Errorf("reading from %q: %w", topic, err)
				}
				if ev == nil {
					break
				}

				rec, err := c.translate(topic, ev)
				if err != nil {
					return nil, err
				}
				added = append(added, rec)
				total++

				if !time.Now().Before(deadline) {
					break
				}
			}

			if len(added) > 0 {
				tp := types.TopicPartition{Topic: topic, Partition: types.PlaceholderPartition}
				batch[tp] = append(batch[tp], added...)
			}
		}

		// Once the total cap is hit nothing more may be accumulated;
		// spinning until the deadline would only burn the budget.
		if total >= maxTotal {
			break
		}
	}
	return batch, nil
}

// translate maps a raw event to a consumer record with synthesized identity:
// the store has no fixed partition/offset addressing, so positional fields
// carry placeholders.
func (c *Consumer) translate(topic string, event []byte) (types.ConsumerRecord, error) {
	value, err := c.deserializer.Deserialize(event)
	if err != nil {
		return types.ConsumerRecord{}, fmt.Errorf("deserializing record from %q: %w", topic, err)
	}
	return types.ConsumerRecord{
		Topic:     topic,
		Partition: types.PlaceholderPartition,
		Offset:    types.PlaceholderOffset,
		Timestamp: types.NoTimestamp,
		Value:     value,
	}, nil
}

// Close closes all readers and the owned backend. Idempotent; safe to call
// concurrently with an in-flight poll, which aborts at its next check point.
func (c *Consumer) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.closeAllReaders()
	if c.ownsBackend {
		if err := c.backend.Close(); err != nil {
			c.logger.Warn("closing stream backend", slog.Any("error", err))
		}
	}
	return nil
}
