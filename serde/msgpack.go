// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package serde

import "github.com/vmihailenco/msgpack/v5"

func init() {
	Register("msgpack", func() Serializer { return Msgpack{} })
}

// Msgpack encodes values with MessagePack, a compact alternative to JSON for
// structured payloads.
type Msgpack struct{}

func (Msgpack) Serialize(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack) Deserialize(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
