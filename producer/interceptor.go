// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rohan-flutterint/kafka-adapter/types"
)

// Interceptor rewrites outgoing records before they are serialized and
// written. Interceptors are best-effort: a failing stage is logged and
// skipped, and must never abort the send.
type Interceptor interface {
	OnSend(record *types.ProducerRecord) (*types.ProducerRecord, error)
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
		panic(fmt.Sprintf("producer: interceptor %q registered twice", name))
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
// continues with the previous record.
func applyInterceptors(logger *slog.Logger, chain []Interceptor, record *types.ProducerRecord) *types.ProducerRecord {
	out := record
	for _, ic := range chain {
		next, err := runInterceptor(ic, out)
		if err != nil {
			logger.Warn("producer interceptor failed, skipping stage",
				slog.String("interceptor", fmt.Sprintf("%T", ic)),
				slog.Any("error", err))
			continue
		}
		out = next
	}
	return out
}

func runInterceptor(ic Interceptor, record *types.ProducerRecord) (out *types.ProducerRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interceptor panic: %v", r)
		}
	}()
	return ic.OnSend(record)
}
