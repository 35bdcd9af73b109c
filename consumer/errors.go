// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package consumer

import "errors"

// Consumer errors.
var (
	// Usage errors.
	ErrConsumerClosed  = errors.New("consumer is closed")
	ErrNegativeTimeout = errors.New("poll timeout must not be negative")
	ErrNoSubscription  = errors.New("consumer is not subscribed to any topic")

	// ErrNotSupported is returned by emulated operations that have no
	// equivalent in the backing store.
	ErrNotSupported = errors.New("operation not supported")

	// ErrUnknownInterceptor is returned when config names an interceptor
	// that was never registered.
	ErrUnknownInterceptor = errors.New("unknown consumer interceptor")
)
