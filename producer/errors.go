// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"errors"
	"fmt"
)

// Producer errors.
var (
	ErrProducerClosed = errors.New("producer is closed")
	ErrEmptyTopic     = errors.New("record topic cannot be empty")
	ErrNilRecord      = errors.New("record cannot be nil")

	// ErrTimeout is returned by Future.GetTimeout when the send has not
	// settled in time.
	ErrTimeout = errors.New("timed out waiting for send completion")

	// ErrNotSupported is returned by emulated operations (transactions)
	// that have no equivalent in the backing store.
	ErrNotSupported = errors.New("operation not supported")

	// ErrUnknownInterceptor is returned when config names an interceptor
	// that was never registered.
	ErrUnknownInterceptor = errors.New("unknown producer interceptor")
)

// WriteError wraps an underlying write fault handed to send callbacks, so
// callers see one uniform error shape at that boundary.
type WriteError struct {
	Topic string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing to %q: %v", e.Topic, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
