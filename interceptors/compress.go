// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package interceptors provides stock interceptors. Importing the package
// registers them by name, so configs can reference "compress-s2" and
// "decompress-s2" without extra wiring. The compression pair operates on raw
// byte values and is meant to be used together with the "bytes" codec.
package interceptors

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/rohan-flutterint/kafka-adapter/consumer"
	"github.com/rohan-flutterint/kafka-adapter/producer"
	"github.com/rohan-flutterint/kafka-adapter/types"
)

func init() {
	producer.RegisterInterceptor("compress-s2", func() producer.Interceptor { return Compress{} })
	consumer.RegisterInterceptor("decompress-s2", func() consumer.Interceptor { return Decompress{} })
}

// Compress s2-encodes outgoing byte payloads. Records whose value is not
// []byte pass through untouched.
type Compress struct{}

func (Compress) OnSend(record *types.ProducerRecord) (*types.ProducerRecord, error) {
	raw, ok := record.Value.([]byte)
	if !ok {
		return record, nil
	}
	out := *record
	out.Value = s2.Encode(nil, raw)
	return &out, nil
}

// Decompress s2-decodes polled byte payloads. Records whose value is not
// []byte pass through untouched.
type Decompress struct{}

func (Decompress) OnConsume(records types.ConsumerRecords) (types.ConsumerRecords, error) {
	out := make(types.ConsumerRecords, len(records))
	for tp, recs := range records {
		decoded := make([]types.ConsumerRecord, len(recs))
		for i, rec := range recs {
			raw, ok := rec.Value.([]byte)
			if !ok {
				decoded[i] = rec
				continue
			}
			plain, err := s2.Decode(nil, raw)
			if err != nil {
				return nil, fmt.Errorf("decompressing record from %q: %w", tp.Topic, err)
			}
			rec.Value = plain
			decoded[i] = rec
		}
		out[tp] = decoded
	}
	return out, nil
}
