// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package consumer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rohan-flutterint/kafka-adapter/types"
)

// Interceptor post-processes polled batches. Interceptors are best-effort: a
// failing stage is logged and skipped, and must never abort the poll.
type Interceptor interface {
	OnConsume(records types.ConsumerRecords) (types.ConsumerRecords, error)
}

var (
	interceptorsMu sync.RWMutex
	interceptorFns = make(map[string]func() Interceptor)
)

// RegisterInterceptor makes an interceptor available under the given name so
// configs can reference it. It panics if the name is already taken.
func RegisterInterceptor(name string, factory func() Interceptor) {
	interceptorsMu.Lock()
	defer interceptorsMu.Unlock()
	if _, dup := interceptorFns[name]; dup {
		panic(fmt.Sprintf("consumer: interceptor %q registered twice", name))
	}
	interceptorFns[name] = factory
}

func newInterceptors(names []string) ([]Interceptor, error) {
	if len(names) == 0 {
		return nil, nil
	}

	interceptorsMu.RLock()
	defer interceptorsMu.RUnlock()

	out := make([]Interceptor, 0, len(names))
	for _, name := range names {
		factory, ok := interceptorFns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInterceptor, name)
		}
		out = append(out, factory())
	}
	return out, nil
}

// applyInterceptors runs the chain in registration order. Each stage's error
// or panic is contained at the call site: the stage is skipped and the chain
// continues with the previous value.
func applyInterceptors(logger *slog.Logger, chain []Interceptor, records types.ConsumerRecords) types.ConsumerRecords {
	out := records
	for _, ic := range chain {
		next, err := runInterceptor(ic, out)
		if err != nil {
			logger.Warn("consumer interceptor failed, skipping stage",
				slog.String("interceptor", fmt.Sprintf("%T", ic)),
				slog.Any("error", err))
			continue
		}
		out = next
	}
	return out
}

func runInterceptor(ic Interceptor, records types.ConsumerRecords) (out types.ConsumerRecords, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interceptor panic: %v", r)
		}
	}()
	return ic.OnConsume(records)
}
