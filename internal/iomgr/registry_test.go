package iomgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopWrite(error) {}

func Test_Registry_Lifecycle(t *testing.T) {
	r := newRegistry(2)
	op := newWriteOp(3, make([]byte, 8), 8, nopWrite)

	ready, err := r.admit(op)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.NotEqual(t, SHUTDOWN_KEY, op.hdr.Key)
	assert.Equal(t, uint64(op.ticket) + 1, op.hdr.Key)

	// nothing lodged yet
	_, ok := r.take(op.hdr.Key)
	assert.False(t, ok)

	r.lodge(op)
	got, ok := r.take(op.hdr.Key)
	assert.True(t, ok)
	assert.Same(t, op, got)

	// taken once, a second completion for the same key finds nothing
	_, ok = r.take(op.hdr.Key)
	assert.False(t, ok)

	// resubmission keeps the key
	key := op.hdr.Key
	r.lodge(op)
	got, ok = r.take(key)
	assert.True(t, ok)
	assert.Same(t, op, got)

	assert.Nil(t, r.release(op))
	live, parked, free := r.stats()
	assert.Equal(t, 0, live)
	assert.Equal(t, 0, parked)
	assert.Equal(t, 2, free)
}

func Test_Registry_Reserved_Keys(t *testing.T) {
	r := newRegistry(1)
	_, ok := r.take(SHUTDOWN_KEY)
	assert.False(t, ok)
	_, ok = r.take(SKIP_KEY)
	assert.False(t, ok)
	_, ok = r.take(12345)
	assert.False(t, ok)
}

func Test_Registry_Backlog_Handoff(t *testing.T) {
	r := newRegistry(1)
	a := newWriteOp(3, make([]byte, 8), 8, nopWrite)
	b := newWriteOp(3, make([]byte, 8), 8, nopWrite)
	c := newWriteOp(3, make([]byte, 8), 8, nopWrite)

	ready, _ := r.admit(a)
	assert.True(t, ready)
	ready, _ = r.admit(b)
	assert.False(t, ready)
	ready, _ = r.admit(c)
	assert.False(t, ready)

	live, parked, free := r.stats()
	assert.Equal(t, 3, live)
	assert.Equal(t, 2, parked)
	assert.Equal(t, 0, free)

	// fifo, and the ticket moves along with the release
	next := r.release(a)
	assert.Same(t, b, next)
	assert.Equal(t, -1, a.ticket)
	assert.Equal(t, uint64(b.ticket) + 1, b.hdr.Key)

	next = r.release(b)
	assert.Same(t, c, next)
	assert.Nil(t, r.release(c))

	live, parked, free = r.stats()
	assert.Equal(t, 0, live)
	assert.Equal(t, 0, parked)
	assert.Equal(t, 1, free)
}

func Test_Registry_Shutdown_Waits(t *testing.T) {
	r := newRegistry(4)
	op := newWriteOp(3, make([]byte, 8), 8, nopWrite)
	_, err := r.admit(op)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r.shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned with an op still live")
	case <-time.After(50 * time.Millisecond):
	}

	r.release(op)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown never returned")
	}

	_, err = r.admit(newWriteOp(3, make([]byte, 8), 8, nopWrite))
	assert.ErrorIs(t, err, ErrClosed)
}
