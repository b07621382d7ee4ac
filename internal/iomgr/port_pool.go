//go:build linux

package iomgr

import (
	"moooio/internal/system"

	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

// poolPort stands in for the ring where io_uring is not available (old kernels,
// seccomp profiles that block io_uring_setup). Each request runs as a positioned
// read/write on its own goroutine and posts a completion, so the engine sees the
// same pending-then-complete lifecycle.
type poolPort struct {
	log			*slog.Logger
	cq			chan Completion
	mu			sync.RWMutex
	closed		bool
}

func NewPoolPort(entries uint32) (Port, error) {
	if entries == 0 { return nil, unix.EINVAL }
	return &poolPort{
		log: 	slog.With("src", "PoolPort"),
		// every request has a slot, plus room for a wake per worker
		cq: 	make(chan Completion, 2*entries),
	}, nil
}

// DefaultPort is an io_uring when the kernel lets us have one, a poolPort otherwise.
func DefaultPort(entries uint32) (Port, error) {
	port, err := NewRingPort(entries)
	if err == nil { return port, nil }
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		slog.Warn("io_uring unavailable, using thread pool completions", "err", err)
		return NewPoolPort(entries)
	}
	return nil, err
}

func (p *poolPort) Associate(fd int) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed { return ErrClosed }
	if !system.Valid(fd) { return unix.EBADF }
	return nil
}

func (p *poolPort) Submit(opcode OpCode, fd int, region []byte, hdr *Header) (Status, error) {
	if fd < 0 { return StatusPending, unix.EBADF }
	if opcode != OpRead && opcode != OpWrite { return StatusPending, unix.EINVAL }
	if len(region) == 0 { return StatusPending, unix.EINVAL }

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed { return StatusPending, ErrClosed }

	key, pos := hdr.Key, int64(hdr.Pos())
	go func() {
		var n int
		var err error
		for {
			if opcode == OpRead {
				n, err = unix.Pread(fd, region, pos)
			} else {
				n, err = unix.Pwrite(fd, region, pos)
			}
			if !errors.Is(err, unix.EINTR) { break }
		}

		cmp := Completion{Key: key}
		switch {
		case err != nil:
			cmp.Err = err
		case n == 0:
			cmp.EOF = true
		default:
			cmp.Bytes = uint32(n)
		}
		p.cq <- cmp
	}()
	return StatusPending, nil
}

func (p *poolPort) Wait() (Completion, error) {
	cmp, ok := <-p.cq
	if !ok { return Completion{}, ErrClosed }
	return cmp, nil
}

func (p *poolPort) Wake(n int) error {
	go func() {
		for range n {
			p.cq <- Completion{Key: SHUTDOWN_KEY}
		}
	}()
	return nil
}

func (p *poolPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed { return ErrClosed }
	p.closed = true
	return nil
}
