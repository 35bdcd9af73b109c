// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package consumer

import "github.com/rohan-flutterint/kafka-adapter/types"

// This file carries the rest of the emulated consumer surface. The backing
// store has no fixed partition/offset addressing, so these operations are
// either explicit ErrNotSupported failures, intentional no-op successes, or
// placeholder answers kept for callers (notably the Flink connector) that
// probe them.

// Assignment returns the empty set; partitions are never assigned manually.
func (c *Consumer) Assignment() []types.TopicPartition {
	return nil
}

// Assign subscribes to the topics named by the given partitions. Manual
// partition assignment has no meaning here, so it degrades to Subscribe.
func (c *Consumer) Assign(partitions []types.TopicPartition) error {
	var topics []string
	seen := make(map[string]bool)
	for _, tp := range partitions {
		if !seen[tp.Topic] {
			seen[tp.Topic] = true
			topics = append(topics, tp.Topic)
		}
	}
	return c.Subscribe(topics...)
}

// CommitSync succeeds without doing anything: every read is already
// committed by the backing store, there is no separate commit step.
func (c *Consumer) CommitSync() error {
	return nil
}

// CommitAsync succeeds without doing anything, like CommitSync.
func (c *Consumer) CommitAsync() error {
	return nil
}

// Seek is not supported: there is no offset to seek to.
func (c *Consumer) Seek(tp types.TopicPartition, offset int64) error {
	return ErrNotSupported
}

// SeekToBeginning is not supported.
func (c *Consumer) SeekToBeginning(partitions ...types.TopicPartition) error {
	return ErrNotSupported
}

// SeekToEnd is not supported.
func (c *Consumer) SeekToEnd(partitions ...types.TopicPartition) error {
	return ErrNotSupported
}

// Position always reports -1; there is no numeric read position.
func (c *Consumer) Position(tp types.TopicPartition) int64 {
	return -1
}

// Committed is not supported.
func (c *Consumer) Committed(tp types.TopicPartition) (int64, error) {
	return 0, ErrNotSupported
}

// Paused is not supported.
func (c *Consumer) Paused() ([]types.TopicPartition, error) {
	return nil, ErrNotSupported
}

// Pause is not supported.
func (c *Consumer) Pause(partitions []types.TopicPartition) error {
	return ErrNotSupported
}

// Resume is not supported.
func (c *Consumer) Resume(partitions []types.TopicPartition) error {
	return ErrNotSupported
}

// OffsetsForTimes is not supported.
func (c *Consumer) OffsetsForTimes(times map[types.TopicPartition]int64) (map[types.TopicPartition]int64, error) {
	return nil, ErrNotSupported
}

// BeginningOffsets is not supported.
func (c *Consumer) BeginningOffsets(partitions []types.TopicPartition) (map[types.TopicPartition]int64, error) {
	return nil, ErrNotSupported
}

// EndOffsets is not supported.
func (c *Consumer) EndOffsets(partitions []types.TopicPartition) (map[types.TopicPartition]int64, error) {
	return nil, ErrNotSupported
}

// PartitionsFor reports the single placeholder partition every topic has.
func (c *Consumer) PartitionsFor(topic string) []types.PartitionInfo {
	return []types.PartitionInfo{{Topic: topic, Partition: types.PlaceholderPartition}}
}

// ListTopics reports the placeholder partition for each subscribed topic.
func (c *Consumer) ListTopics() map[string][]types.PartitionInfo {
	out := make(map[string][]types.PartitionInfo, len(c.order))
	for _, topic := range c.order {
		out[topic] = c.PartitionsFor(topic)
	}
	return out
}

// Wakeup does nothing; there is no blocked network call to interrupt.
func (c *Consumer) Wakeup() {}
