// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package types

// Placeholder values for positional fields the backing store cannot supply.
// Streams have no fixed partition or offset addressing, so translated records
// carry these constants instead.
const (
	PlaceholderPartition = 0
	PlaceholderOffset    = int64(0)

	// NoTimestamp marks a record whose timestamp is unknown.
	NoTimestamp = int64(-1)
)

// TopicPartition identifies a topic and a partition within it.
type TopicPartition struct {
	Topic     string
	Partition int
}

// ConsumerRecord is a single record returned by a poll call.
type ConsumerRecord struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp int64 // Unix millis, NoTimestamp when unknown
	Key       any
	Value     any
	Headers   map[string][]byte
}

// ConsumerRecords is the aggregated result of one poll call, keyed by
// topic-partition. Record order within a key matches read order.
type ConsumerRecords map[TopicPartition][]ConsumerRecord

// Count returns the total number of records across all topic-partitions.
func (r ConsumerRecords) Count() int {
	n := 0
	for _, recs := range r {
		n += len(recs)
	}
	return n
}

// Records returns the records read from the given topic.
func (r ConsumerRecords) Records(topic string) []ConsumerRecord {
	var out []ConsumerRecord
	for tp, recs := range r {
		if tp.Topic == topic {
			out = append(out, recs...)
		}
	}
	return out
}

// Empty reports whether the batch contains no records.
func (r ConsumerRecords) Empty() bool {
	return r.Count() == 0
}

// ProducerRecord is an outbound record handed to Send.
type ProducerRecord struct {
	Topic   string
	Key     any
	Value   any
	Headers map[string][]byte
}

// RecordMetadata describes a completed send. The backing store does not
// report positional information on write, so Partition and Offset hold -1
// and Timestamp is the pipeline completion time.
type RecordMetadata struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp int64 // Unix millis
}

// PartitionInfo describes a topic partition for metadata queries. Every
// topic reports a single placeholder partition 0.
type PartitionInfo struct {
	Topic     string
	Partition int
}
