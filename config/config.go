// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the configuration value objects consumed by the
// consumer and producer. Configs can be built directly, loaded from YAML, or
// derived from a Kafka-style property map so existing client configs keep
// working.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rohan-flutterint/kafka-adapter/stream"
)

// Property keys understood by the FromProperties constructors. The Kafka
// names are honored alongside the pravega.* overrides.
const (
	PropBootstrapServers  = "bootstrap.servers"
	PropControllerURI     = "pravega.controller.uri"
	PropScope             = "pravega.scope"
	PropGroupID           = "group.id"
	PropClientID          = "client.id"
	PropValueSerializer   = "value.serializer"
	PropValueDeserializer = "value.deserializer"
	PropReadTimeout       = "pravega.read.timeout.ms"
	PropMaxPollRecords    = "max.poll.records"
	PropInterceptors      = "interceptor.classes"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultScope          = "migrated-from-kafka"
	DefaultSerializer     = "string"
	DefaultClientID       = "default-reader"
	DefaultReadTimeout    = 500 * time.Millisecond
	DefaultMaxPollRecords = 1000
)

// ErrNoEndpoint is returned when neither an endpoint nor a pre-opened
// backend is configured.
var ErrNoEndpoint = errors.New("no server endpoint configured")

// Common holds settings shared by consumers and producers.
type Common struct {
	// Endpoint is the backend URI, e.g. "memory://" or "badger:///var/data".
	Endpoint string `yaml:"endpoint"`

	// Scope is the logical namespace streams live in.
	Scope string `yaml:"scope"`

	// Serializer names the registered serde codec for record values.
	Serializer string `yaml:"serializer"`

	// ReadTimeout bounds each single-event read issued by the poll loop.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// Backend overrides endpoint resolution with an already-open backend.
	// Used by tests and embedders; the owner keeps responsibility for
	// closing it.
	Backend stream.Backend `yaml:"-"`

	Logger *slog.Logger `yaml:"-"`
}

// ApplyDefaults fills unset fields with their default values.
func (c *Common) ApplyDefaults() {
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.Serializer == "" {
		c.Serializer = DefaultSerializer
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate checks that the config can reach a backend.
func (c *Common) Validate() error {
	if c.Endpoint == "" && c.Backend == nil {
		return ErrNoEndpoint
	}
	return nil
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Common `yaml:",inline"`

	// GroupID names the reader group. A fresh UUID is generated when empty.
	GroupID string `yaml:"group_id"`

	// ClientID identifies this reader within the group.
	ClientID string `yaml:"client_id"`

	// MaxPollRecords caps the total records returned by one poll call.
	MaxPollRecords int `yaml:"max_poll_records"`

	// Interceptors lists registered consumer interceptor names, applied in
	// order to every polled batch.
	Interceptors []string `yaml:"interceptors"`
}

// ApplyDefaults fills unset fields with their default values.
func (c *ConsumerConfig) ApplyDefaults() {
	c.Common.ApplyDefaults()
	if c.GroupID == "" {
		c.GroupID = uuid.NewString()
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.MaxPollRecords <= 0 {
		c.MaxPollRecords = DefaultMaxPollRecords
	}
}

// ProducerConfig configures a Producer.
type ProducerConfig struct {
	Common `yaml:",inline"`

	// Interceptors lists registered producer interceptor names, applied in
	// order to every outgoing record.
	Interceptors []string `yaml:"interceptors"`
}

// ApplyDefaults fills unset fields with their default values.
func (c *ProducerConfig) ApplyDefaults() {
	c.Common.ApplyDefaults()
}

// ConsumerFromProperties builds a ConsumerConfig from a Kafka-style property
// map, applies defaults and validates it.
func ConsumerFromProperties(props map[string]string) (*ConsumerConfig, error) {
	cfg := &ConsumerConfig{
		Common: commonFromProperties(props, props[PropValueDeserializer]),
	}
	cfg.GroupID = props[PropGroupID]
	cfg.ClientID = props[PropClientID]
	cfg.Interceptors = splitList(props[PropInterceptors])

	if raw, ok := props[PropMaxPollRecords]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", PropMaxPollRecords, err)
		}
		cfg.MaxPollRecords = n
	}

	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// ProducerFromProperties builds a ProducerConfig from a Kafka-style property
// map, applies defaults and validates it.
func ProducerFromProperties(props map[string]string) (*ProducerConfig, error) {
	cfg := &ProducerConfig{
		Common: commonFromProperties(props, props[PropValueSerializer]),
	}
	cfg.Interceptors = splitList(props[PropInterceptors])

	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func commonFromProperties(props map[string]string, serdeProp string) Common {
	c := Common{
		Scope:      props[PropScope],
		Serializer: serdeName(serdeProp),
	}

	// The pravega endpoint wins over the emulated bootstrap list.
	c.Endpoint = props[PropControllerURI]
	if c.Endpoint == "" {
		c.Endpoint = props[PropBootstrapServers]
	}

	if raw, ok := props[PropReadTimeout]; ok {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			c.ReadTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	return c
}

// serdeName maps the emulated client's serializer class names onto registered
// codec names; anything else is taken as a codec name verbatim.
func serdeName(prop string) string {
	switch prop {
	case "":
		return ""
	case "org.apache.kafka.common.serialization.StringSerializer",
		"org.apache.kafka.common.serialization.StringDeserializer":
		return "string"
	case "org.apache.kafka.common.serialization.ByteArraySerializer",
		"org.apache.kafka.common.serialization.ByteArrayDeserializer":
		return "bytes"
	default:
		return prop
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LoadConsumer reads a ConsumerConfig from a YAML file.
func LoadConsumer(path string) (*ConsumerConfig, error) {
	cfg := &ConsumerConfig{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// LoadProducer reads a ProducerConfig from a YAML file.
func LoadProducer(path string) (*ProducerConfig, error) {
	cfg := &ProducerConfig{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return nil
}
