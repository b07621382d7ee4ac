//go:build linux

package iomgr

import (
	"moooio/internal/system"

	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/aethne0/giouring"
	"golang.org/x/sys/unix"
)

// ringPort is a Port on a single io_uring. The submission side and the completion
// side each get their own lock: submitters never wait behind a worker that is parked
// in WaitCQE, and workers take turns owning the CQ head.
//
// PERF: register files and buffers (fixed read/write) once handles live long enough
type ringPort struct {
	log			*slog.Logger
	ring		*giouring.Ring
	sqMu		sync.Mutex
	cqMu		sync.Mutex
	closed		atomic.Bool
}

func NewRingPort(entries uint32) (Port, error) {
	ring, err := giouring.CreateRing(entries)
	if err != nil { return nil, err }

	return &ringPort{
		log: 	slog.With("src", "RingPort"),
		ring: 	ring,
	}, nil
}

// io_uring has nothing like a per-handle association, requests name their fd.
// We only make sure the fd is real so a bad handle fails at open time.
func (p *ringPort) Associate(fd int) error {
	if p.closed.Load() { return ErrClosed }
	if !system.Valid(fd) { return unix.EBADF }
	return nil
}

func (p *ringPort) Submit(opcode OpCode, fd int, region []byte, hdr *Header) (Status, error) {
	if fd < 0 { return StatusPending, unix.EBADF }
	if opcode != OpRead && opcode != OpWrite { return StatusPending, unix.EINVAL }
	if len(region) == 0 || len(region) > math.MaxUint32 { return StatusPending, unix.EINVAL }

	p.sqMu.Lock()
	defer p.sqMu.Unlock()

	if p.closed.Load() { return StatusPending, ErrClosed }

	sqe, err := p.getSQE()
	if err != nil { return StatusPending, err }

	buf := uintptr(unsafe.Pointer(&region[0]))
	switch opcode {
	case OpRead:
		sqe.PrepareRead(fd, buf, uint32(len(region)), hdr.Pos())
	case OpWrite:
		sqe.PrepareWrite(fd, buf, uint32(len(region)), hdr.Pos())
	}
	sqe.UserData = hdr.Key

	if err := p.submit(); err != nil {
		// The SQE never left the ring. Turn it into a nop nobody listens for so a later
		// submit can't hand the kernel a request whose Op we already gave back.
		sqe.PrepareNop()
		sqe.UserData = SKIP_KEY
		p.log.Warn("Submit", "err", err, "opcode", opcode, "fd", fd)
		return StatusPending, err
	}
	return StatusPending, nil
}

// caller holds sqMu
func (p *ringPort) getSQE() (*giouring.SubmissionQueueEntry, error) {
	sqe := p.ring.GetSQE()
	if sqe != nil { return sqe, nil }

	// SQ full of prepared entries, flush them and try again once
	if err := p.submit(); err != nil { return nil, err }
	sqe = p.ring.GetSQE()
	if sqe == nil { return nil, unix.EBUSY }
	return sqe, nil
}

// caller holds sqMu
func (p *ringPort) submit() error {
	for {
		_, err := p.ring.Submit()
		if errors.Is(err, unix.EINTR) { continue }
		return err
	}
}

func (p *ringPort) Wait() (Completion, error) {
	p.cqMu.Lock()
	defer p.cqMu.Unlock()

	for {
		cqe, err := p.ring.WaitCQE()
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ETIME) {
			continue
		}
		if err != nil { return Completion{}, err }
		if cqe == nil {
			p.log.Warn("cqe == nil but no err?")
			continue
		}

		cmp := Completion{Key: cqe.UserData}
		switch {
		case cqe.Res < 0:
			cmp.Err = unix.Errno(-cqe.Res)
		case cqe.Res == 0:
			cmp.EOF = true
		default:
			cmp.Bytes = uint32(cqe.Res)
		}
		p.ring.CQESeen(cqe)

		// The kernel orders the submitter's header reads before this completion, but
		// the race detector can't see that. Pair with the submitter's unlock.
		p.sqMu.Lock()
		p.sqMu.Unlock()
		return cmp, nil
	}
}

func (p *ringPort) Wake(n int) error {
	p.sqMu.Lock()
	defer p.sqMu.Unlock()

	for range n {
		sqe, err := p.getSQE()
		if err != nil { return err }
		sqe.PrepareNop()
		sqe.UserData = SHUTDOWN_KEY
	}
	return p.submit()
}

// Only once nobody is waiting on or submitting to the ring anymore
func (p *ringPort) Close() error {
	if p.closed.Swap(true) { return ErrClosed }
	p.ring.QueueExit()
	return nil
}
