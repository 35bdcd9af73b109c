// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package serde provides pluggable payload codecs selected by name.
package serde

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownCodec is returned when no codec is registered under the
// requested name.
var ErrUnknownCodec = errors.New("unknown serde codec")

// Serializer converts record values to and from their wire representation.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte) (any, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = make(map[string]func() Serializer)
)

// Register makes a codec available under the given name. It panics if the
// name is already taken.
func Register(name string, factory func() Serializer) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	if _, dup := codecs[name]; dup {
		panic(fmt.Sprintf("serde: codec %q registered twice", name))
	}
	codecs[name] = factory
}

// New returns a fresh codec instance for the given name.
func New(name string) (Serializer, error) {
	codecsMu.RLock()
	factory, ok := codecs[name]
	codecsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return factory(), nil
}

func init() {
	Register("string", func() Serializer { return String{} })
	Register("bytes", func() Serializer { return Bytes{} })
	Register("json", func() Serializer { return JSON{} })
}

// String encodes string (or raw byte) values as UTF-8 bytes and decodes
// payloads back to strings. It is the default codec.
type String struct{}

func (String) Serialize(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		return val, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("string codec cannot serialize %T", v)
	}
}

func (String) Deserialize(data []byte) (any, error) {
	return string(data), nil
}

// Bytes passes payloads through untouched.
type Bytes struct{}

func (Bytes) Serialize(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("bytes codec cannot serialize %T", v)
	}
}

func (Bytes) Deserialize(data []byte) (any, error) {
	return data, nil
}

// JSON encodes values with encoding/json.
type JSON struct{}

func (JSON) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Deserialize(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
