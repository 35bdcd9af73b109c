// Copyright (c) Pravega Authors
// SPDX-License-Identifier: Apache-2.0

package badger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan-flutterint/kafka-adapter/stream"
)

func openTestBackend(t *testing.T, dir string) *Backend {
	t.Helper()
	b, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func mustWrite(t *testing.T, w stream.Writer, event string) {
	t.Helper()
	require.NoError(t, <-w.WriteEvent([]byte(event)))
}

func mustRead(t *testing.T, r stream.Reader) []byte {
	t.Helper()
	ev, err := r.ReadNextEvent(time.Second)
	require.NoError(t, err)
	require.NotNil(t, ev)
	return ev
}

func TestWriteThenRead(t *testing.T) {
	b := openTestBackend(t, t.TempDir())

	w, err := b.CreateWriter("scope", "orders")
	require.NoError(t, err)
	mustWrite(t, w, "a")
	mustWrite(t, w, "b")

	r, err := b.CreateReader("scope", "orders", "g", "reader-1")
	require.NoError(t, err)

	assert.Equal(t, []byte("a"), mustRead(t, r))
	assert.Equal(t, []byte("b"), mustRead(t, r))

	ev, err := r.ReadNextEvent(30 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, ev, "drained stream reports no event")
}

func TestReadTimesOutOnEmptyStream(t *testing.T) {
	b := openTestBackend(t, t.TempDir())

	r, err := b.CreateReader("scope", "orders", "g", "reader-1")
	require.NoError(t, err)

	start := time.Now()
	ev, err := r.ReadNextEvent(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestGroupPositionSurvivesReaderRecreation(t *testing.T) {
	b := openTestBackend(t, t.TempDir())

	w, err := b.CreateWriter("scope", "orders")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		mustWrite(t, w, fmt.Sprintf("ev-%d", i))
	}

	r, err := b.CreateReader("scope", "orders", "g", "reader-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ev-0"), mustRead(t, r))
	require.NoError(t, r.Close())

	// A fresh reader of the same group resumes, a new group replays.
	r2, err := b.CreateReader("scope", "orders", "g", "reader-2")
	require.NoError(t, err)
	assert.Equal(t, []byte("ev-1"), mustRead(t, r2))

	r3, err := b.CreateReader("scope", "orders", "fresh", "reader-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ev-0"), mustRead(t, r3))
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(Config{Dir: dir})
	require.NoError(t, err)

	w, err := b.CreateWriter("scope", "orders")
	require.NoError(t, err)
	mustWrite(t, w, "ev-0")
	mustWrite(t, w, "ev-1")

	r, err := b.CreateReader("scope", "orders", "g", "reader-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ev-0"), mustRead(t, r))
	require.NoError(t, r.Close())
	require.NoError(t, b.Close())

	b = openTestBackend(t, dir)

	// The append sequence continues without gaps, so the resumed group
	// sees the old tail followed by the new event.
	w, err = b.CreateWriter("scope", "orders")
	require.NoError(t, err)
	mustWrite(t, w, "ev-2")

	r, err = b.CreateReader("scope", "orders", "g", "reader-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ev-1"), mustRead(t, r))
	assert.Equal(t, []byte("ev-2"), mustRead(t, r))
}

func TestBlockedReaderSeesLateWrite(t *testing.T) {
	b := openTestBackend(t, t.TempDir())

	w, err := b.CreateWriter("scope", "orders")
	require.NoError(t, err)
	r, err := b.CreateReader("scope", "orders", "g", "reader-1")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		w.WriteEvent([]byte("late"))
	}()

	ev, err := r.ReadNextEvent(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), ev)
}

func TestStreamsAreIndependent(t *testing.T) {
	b := openTestBackend(t, t.TempDir())

	wo, err := b.CreateWriter("scope", "orders")
	require.NoError(t, err)
	wp, err := b.CreateWriter("scope", "payments")
	require.NoError(t, err)
	mustWrite(t, wo, "order")
	mustWrite(t, wp, "payment")

	r, err := b.CreateReader("scope", "payments", "g", "reader-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payment"), mustRead(t, r))

	ev, err := r.ReadNextEvent(30 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestClosedBackend(t *testing.T) {
	b, err := Open(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.CreateReader("scope", "orders", "g", "reader-1")
	assert.ErrorIs(t, err, stream.ErrBackendClosed)
	_, err = b.CreateWriter("scope", "orders")
	assert.ErrorIs(t, err, stream.ErrBackendClosed)
}

func TestFlushSyncsDatabase(t *testing.T) {
	b := openTestBackend(t, t.TempDir())

	w, err := b.CreateWriter("scope", "orders")
	require.NoError(t, err)
	mustWrite(t, w, "a")
	assert.NoError(t, w.Flush())
	assert.NoError(t, w.Close())
}
