// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"time"

	"github.com/rohan-flutterint/kafka-adapter/types"
)

// Future resolves once the underlying write settles.
//
// The future never carries the write fault: a failed write resolves it with
// nil metadata while the per-send callback receives the wrapped error. This
// asymmetric silent-failure policy is kept for compatibility with the
// emulated client's behavior.
type Future struct {
	done chan struct{}
	md   *types.RecordMetadata
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(md *types.RecordMetadata) {
	f.md = md
	close(f.done)
}

// Done returns a channel that closes when the send settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the send settles and returns the completion metadata,
// which is nil when the underlying write failed.
func (f *Future) Get() *types.RecordMetadata {
	<-f.done
	return f.md
}

// GetTimeout is Get with a deadline.
func (f *Future) GetTimeout(timeout time.Duration) (*types.RecordMetadata, error) {
	select {
	case <-f.done:
		return f.md, nil
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}
