//go:build linux

package iomgr

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

type submission struct {
	opcode	OpCode
	fd		int
	len		int
	pos		uint64
	key		uint64
}

// scriptPort does real positioned io like poolPort but lets a test see every
// submission, fail or inline them, hold completions back, under-report writes by
// short bytes and inject queue events.
type scriptPort struct {
	mu			sync.Mutex
	subs		[]submission
	failWith	error
	inline		bool
	short		int
	gate		chan struct{}

	cq			chan Completion
	errs		chan error
	wakes		int
}

func newScriptPort() *scriptPort {
	gate := make(chan struct{})
	close(gate)
	return &scriptPort{
		gate: 	gate,
		cq: 	make(chan Completion, 256),
		errs: 	make(chan error, 1),
	}
}

func (p *scriptPort) factory() PortFactory {
	return func(uint32) (Port, error) { return p, nil }
}

// completions stay queued until release
func (p *scriptPort) hold() {
	p.mu.Lock()
	p.gate = make(chan struct{})
	p.mu.Unlock()
}

func (p *scriptPort) release() {
	p.mu.Lock()
	close(p.gate)
	p.mu.Unlock()
}

func (p *scriptPort) submissions() []submission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]submission(nil), p.subs...)
}

func (p *scriptPort) Associate(fd int) error {
	if fd < 0 { return unix.EBADF }
	return nil
}

func (p *scriptPort) Submit(opcode OpCode, fd int, region []byte, hdr *Header) (Status, error) {
	p.mu.Lock()
	p.subs = append(p.subs, submission{opcode, fd, len(region), hdr.Pos(), hdr.Key})
	failWith, inline, short, gate := p.failWith, p.inline, p.short, p.gate
	p.mu.Unlock()

	if failWith != nil { return StatusPending, failWith }
	if inline { return StatusInline, nil }
	if fd < 0 { return StatusPending, unix.EBADF }

	key, pos := hdr.Key, int64(hdr.Pos())
	go func() {
		<-gate
		var n int
		var err error
		if opcode == OpRead {
			n, err = unix.Pread(fd, region, pos)
		} else {
			n, err = unix.Pwrite(fd, region, pos)
			if err == nil { n = max(n - short, 0) }
		}
		cmp := Completion{Key: key}
		switch {
		case err != nil:	cmp.Err = err
		case n == 0:		cmp.EOF = true
		default:			cmp.Bytes = uint32(n)
		}
		p.cq <- cmp
	}()
	return StatusPending, nil
}

func (p *scriptPort) Wait() (Completion, error) {
	select {
	case cmp := <-p.cq:
		return cmp, nil
	case err := <-p.errs:
		return Completion{}, err
	}
}

func (p *scriptPort) Wake(n int) error {
	p.mu.Lock()
	p.wakes += n
	p.mu.Unlock()
	go func() {
		for range n {
			p.cq <- Completion{Key: SHUTDOWN_KEY}
		}
	}()
	return nil
}

func (p *scriptPort) Close() error { return nil }

var errBoom = errors.New("boom")
