//go:build linux

package iomgr

import (
	c "moooio/internal"
	"moooio/internal/system"

	"testing"
	"time"

	"github.com/cespare/xxhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ringEngine(t *testing.T, factory PortFactory) *Engine {
	probe, err := factory(8)
	if err != nil {
		t.Skip("completion port unavailable:", err)
	}
	probe.Close()

	e := NewEngine(Config{
		RingEntries: 	c.RING_ENTRIES,
		Workers: 		4,
		Direct: 		true,
		NewPort: 		factory,
	})
	require.NoError(t, e.Init())
	t.Cleanup(func() { assert.NoError(t, e.Close()) })
	return e
}

// Write through the engine then read back through the engine, on whichever port.
func roundTrip(t *testing.T, e *Engine, size int) {
	path := tempfile(t)
	h, err := system.OpenAsync(path, system.CreateNew, true)
	require.NoError(t, err)
	defer system.CloseHandle(h.Fd)
	require.NoError(t, e.Associate(h.Fd))

	align := c.DEFAULT_ALIGN
	data := makeData(size)
	padded, err := system.AllocAligned(c.RoundUp(size, align), align)
	require.NoError(t, err)
	copy(padded, data)

	if size > 0 {
		ch := make(chan error, 1)
		e.Write(h.Fd, padded, size, func(err error) { ch <- err })
		require.NoError(t, waitErr(t, ch))
	}

	got := make(chan readResult, 1)
	e.Read(h.Fd, align, align, func(data []byte, err error) { got <- readResult{data, err} })
	var res readResult
	select {
	case res = <-got:
	case <-time.After(TIMEOUT):
		t.Fatal("Timeout!")
	}
	require.NoError(t, res.err)
	assert.Len(t, res.data, size)
	assert.Equal(t, xxhash.Sum64(data), xxhash.Sum64(res.data), "direct=%v size=%d", h.Direct, size)
}

func Test_RingPort_Round_Trip(t *testing.T) {
	e := ringEngine(t, NewRingPort)
	for _, size := range []int{1, 42, c.DEFAULT_ALIGN, c.DEFAULT_ALIGN + 3, 3 * c.DEFAULT_ALIGN} {
		roundTrip(t, e, size)
	}
}

func Test_PoolPort_Round_Trip(t *testing.T) {
	e := ringEngine(t, NewPoolPort)
	for _, size := range []int{0, 1, 42, c.DEFAULT_ALIGN, c.DEFAULT_ALIGN + 3, 3 * c.DEFAULT_ALIGN} {
		roundTrip(t, e, size)
	}
}

func Test_RingPort_Bad_Handle(t *testing.T) {
	e := ringEngine(t, NewRingPort)

	var rerr error
	e.Read(-1, c.DEFAULT_ALIGN, c.DEFAULT_ALIGN, func(data []byte, err error) { rerr = err })
	var oerr *OpError
	require.ErrorAs(t, rerr, &oerr)
	assert.Equal(t, "read", oerr.Op)
	assert.Error(t, e.Associate(-1))
}

func Test_RingPort_Wake_And_Close(t *testing.T) {
	p, err := NewRingPort(8)
	if err != nil { t.Skip("io_uring unavailable:", err) }

	require.NoError(t, p.Wake(3))
	for range 3 {
		cmp, err := p.Wait()
		require.NoError(t, err)
		assert.Equal(t, SHUTDOWN_KEY, cmp.Key)
	}
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Close(), ErrClosed)

	_, err = p.Submit(OpRead, 0, make([]byte, 8), &Header{Key: 1})
	assert.ErrorIs(t, err, ErrClosed)
}
