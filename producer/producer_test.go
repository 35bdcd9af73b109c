// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan-flutterint/kafka-adapter/config"
	"github.com/rohan-flutterint/kafka-adapter/stream"
	"github.com/rohan-flutterint/kafka-adapter/types"
)

// fakeWriter records written events and settles each write with writeErr.
type fakeWriter struct {
	mu         sync.Mutex
	events     [][]byte
	writeErr   error
	flushErr   error
	closeCount int
}

func (w *fakeWriter) WriteEvent(event []byte) <-chan error {
	w.mu.Lock()
	w.events = append(w.events, event)
	err := w.writeErr
	w.mu.Unlock()

	ch := make(chan error, 1)
	ch <- err
	return ch
}

func (w *fakeWriter) Flush() error { return w.flushErr }

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeCount++
	return nil
}

func (w *fakeWriter) written() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.events...)
}

type fakeBackend struct {
	mu      sync.Mutex
	writers map[string]*fakeWriter
	creates int
}

func (b *fakeBackend) CreateReader(scope, topic, group, readerID string) (stream.Reader, error) {
	panic("not used in producer tests")
}

func (b *fakeBackend) CreateWriter(scope, topic string) (stream.Writer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates++
	if b.writers == nil {
		b.writers = make(map[string]*fakeWriter)
	}
	w, ok := b.writers[topic]
	if !ok {
		w = &fakeWriter{}
		b.writers[topic] = w
	}
	return w, nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) writer(topic string) *fakeWriter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writers[topic]
}

func newTestProducer(t *testing.T, backend *fakeBackend, mutate ...func(*config.ProducerConfig)) *Producer {
	t.Helper()

	cfg := &config.ProducerConfig{
		Common: config.Common{
			Backend: backend,
			Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	p, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSendWritesSerializedValue(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestProducer(t, backend)

	fut, err := p.Send(&types.ProducerRecord{Topic: "orders", Value: "order-1"}, nil)
	require.NoError(t, err)

	md := fut.Get()
	require.NotNil(t, md)
	assert.Equal(t, "orders", md.Topic)
	assert.Equal(t, -1, md.Partition)
	assert.Equal(t, int64(-1), md.Offset)
	assert.NotZero(t, md.Timestamp)

	require.Equal(t, [][]byte{[]byte("order-1")}, backend.writer("orders").written())
}

func TestSendInvokesCallbackOnSuccess(t *testing.T) {
	p := newTestProducer(t, &fakeBackend{})

	done := make(chan struct{})
	var gotMD *types.RecordMetadata
	var gotErr error
	_, err := p.Send(&types.ProducerRecord{Topic: "orders", Value: "v"}, func(md *types.RecordMetadata, err error) {
		gotMD, gotErr = md, err
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
	require.NoError(t, gotErr)
	require.NotNil(t, gotMD)
	assert.Equal(t, "orders", gotMD.Topic)
}

func TestSendSwallowsWriteFault(t *testing.T) {
	backend := &fakeBackend{writers: map[string]*fakeWriter{
		"orders": {writeErr: errors.New("disk full")},
	}}
	p := newTestProducer(t, backend)

	done := make(chan struct{})
	var cbMD *types.RecordMetadata
	var cbErr error
	fut, err := p.Send(&types.ProducerRecord{Topic: "orders", Value: "v"}, func(md *types.RecordMetadata, err error) {
		cbMD, cbErr = md, err
		close(done)
	})
	require.NoError(t, err)

	// The future resolves successfully with no metadata while the callback
	// sees the fault. Both observers settle from the same write.
	assert.Nil(t, fut.Get())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
	assert.Nil(t, cbMD)
	var we *WriteError
	require.ErrorAs(t, cbErr, &we)
	assert.Equal(t, "orders", we.Topic)
	assert.ErrorContains(t, we, "disk full")
}

func TestSendWriteFaultWithoutCallback(t *testing.T) {
	backend := &fakeBackend{writers: map[string]*fakeWriter{
		"orders": {writeErr: errors.New("boom")},
	}}
	p := newTestProducer(t, backend)

	fut, err := p.Send(&types.ProducerRecord{Topic: "orders", Value: "v"}, nil)
	require.NoError(t, err)
	assert.Nil(t, fut.Get())
}

func TestSendValidation(t *testing.T) {
	p := newTestProducer(t, &fakeBackend{})

	_, err := p.Send(nil, nil)
	assert.ErrorIs(t, err, ErrNilRecord)

	_, err = p.Send(&types.ProducerRecord{Value: "v"}, nil)
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestSendCachesWriterPerTopic(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestProducer(t, backend)

	for i := 0; i < 3; i++ {
		fut, err := p.Send(&types.ProducerRecord{Topic: "orders", Value: "v"}, nil)
		require.NoError(t, err)
		fut.Get()
	}
	fut, err := p.Send(&types.ProducerRecord{Topic: "payments", Value: "v"}, nil)
	require.NoError(t, err)
	fut.Get()

	assert.Equal(t, 2, backend.creates, "one writer per topic")
}

type upperInterceptor struct{}

func (upperInterceptor) OnSend(record *types.ProducerRecord) (*types.ProducerRecord, error) {
	out := *record
	if s, ok := record.Value.(string); ok {
		out.Value = strings.ToUpper(s)
	}
	return &out, nil
}

type failingInterceptor struct{}

func (failingInterceptor) OnSend(record *types.ProducerRecord) (*types.ProducerRecord, error) {
	return nil, errors.New("stage down")
}

type panickyInterceptor struct{}

func (panickyInterceptor) OnSend(record *types.ProducerRecord) (*types.ProducerRecord, error) {
	panic("stage panicked")
}

func TestSendAppliesInterceptors(t *testing.T) {
	RegisterInterceptor("test-upper", func() Interceptor { return upperInterceptor{} })

	backend := &fakeBackend{}
	p := newTestProducer(t, backend, func(cfg *config.ProducerConfig) {
		cfg.Interceptors = []string{"test-upper"}
	})

	fut, err := p.Send(&types.ProducerRecord{Topic: "orders", Value: "order-1"}, nil)
	require.NoError(t, err)
	fut.Get()

	require.Equal(t, [][]byte{[]byte("ORDER-1")}, backend.writer("orders").written())
}

func TestFailingInterceptorStageIsSkipped(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain := []Interceptor{failingInterceptor{}, upperInterceptor{}, panickyInterceptor{}}

	out := applyInterceptors(logger, chain, &types.ProducerRecord{Topic: "orders", Value: "v"})
	require.NotNil(t, out)
	assert.Equal(t, "V", out.Value, "surviving stages still apply")
}

func TestNewRejectsUnknownInterceptor(t *testing.T) {
	_, err := New(&config.ProducerConfig{
		Common:       config.Common{Backend: &fakeBackend{}},
		Interceptors: []string{"no-such-interceptor"},
	})
	assert.ErrorIs(t, err, ErrUnknownInterceptor)
}

func TestFlushJoinsFailures(t *testing.T) {
	backend := &fakeBackend{writers: map[string]*fakeWriter{
		"orders":   {flushErr: errors.New("orders flush failed")},
		"payments": {},
	}}
	p := newTestProducer(t, backend)

	for _, topic := range []string{"orders", "payments"} {
		fut, err := p.Send(&types.ProducerRecord{Topic: topic, Value: "v"}, nil)
		require.NoError(t, err)
		fut.Get()
	}

	err := p.Flush()
	require.Error(t, err)
	assert.ErrorContains(t, err, "orders flush failed")
}

func TestCloseIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestProducer(t, backend)

	fut, err := p.Send(&types.ProducerRecord{Topic: "orders", Value: "v"}, nil)
	require.NoError(t, err)
	fut.Get()

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, backend.writer("orders").closeCount)

	_, err = p.Send(&types.ProducerRecord{Topic: "orders", Value: "v"}, nil)
	assert.ErrorIs(t, err, ErrProducerClosed)
	assert.ErrorIs(t, p.Flush(), ErrProducerClosed)
}

func TestTransactionsNotSupported(t *testing.T) {
	p := newTestProducer(t, &fakeBackend{})

	assert.ErrorIs(t, p.InitTransactions(), ErrNotSupported)
	assert.ErrorIs(t, p.BeginTransaction(), ErrNotSupported)
	assert.ErrorIs(t, p.CommitTransaction(), ErrNotSupported)
	assert.ErrorIs(t, p.AbortTransaction(), ErrNotSupported)
	assert.ErrorIs(t, p.SendOffsetsToTransaction(nil, "g"), ErrNotSupported)
	assert.Nil(t, p.PartitionsFor("orders"))
}

func TestFutureGetTimeout(t *testing.T) {
	fut := newFuture()

	_, err := fut.GetTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	fut.complete(&types.RecordMetadata{Topic: "orders"})
	md, err := fut.GetTimeout(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "orders", md.Topic)

	select {
	case <-fut.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}
