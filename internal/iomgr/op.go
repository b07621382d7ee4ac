package iomgr

import (
	"moooio/internal/system"
)

type OpCode uint16
const (
	OpNop 	OpCode = iota
	OpWrite
	OpRead
)

func (o OpCode) String() string {
	switch o {
	case OpNop:		return "nop"
	case OpWrite:	return "write"
	case OpRead:	return "read"
	}
	return "invalid"
}

type ReadFunc func(data []byte, err error)
type WriteFunc func(err error)

// Op is one logical read-all or write-all. At any moment exactly one party owns it:
// the code submitting it, the kernel (parked in the registry under hdr.Key), or the
// worker that pulled its completion. Nothing ever holds a second reference.
//
// hdr must stay the first field.
type Op struct {
	hdr		Header

	fd		int // not owned
	buf		[]byte
	align	int
	ticket	int

	Opcode	OpCode
	chunk	int // read: bytes asked for per request, fixed
	target	int // write: bytes the caller actually wanted on disk, fixed

	onRead	ReadFunc
	onWrite	WriteFunc
}

// buf must already be padded to the alignment unit; target is the unpadded length.
func newWriteOp(fd int, buf []byte, target int, cb WriteFunc) *Op {
	return &Op{
		fd: 		fd,
		buf: 		buf,
		ticket: 	-1,
		Opcode: 	OpWrite,
		target: 	target,
		onWrite: 	cb,
	}
}

// The first chunk is allocated zero-filled and aligned so O_DIRECT is happy with it.
func newReadOp(fd int, chunk int, align int, cb ReadFunc) (*Op, error) {
	buf, err := system.AllocAligned(chunk, align)
	if err != nil { return nil, err }

	return &Op{
		fd: 		fd,
		buf: 		buf,
		align: 		align,
		ticket: 	-1,
		Opcode: 	OpRead,
		chunk: 		chunk,
		onRead: 	cb,
	}, nil
}

// Runs the callback with a failure. The op is done after this.
func (op *Op) fail(err error) {
	switch op.Opcode {
	case OpRead:
		op.onRead(nil, err)
	case OpWrite:
		op.onWrite(err)
	}
}

// Extends the read buffer by n zeroed bytes and returns just the new tail, which is
// what the next request targets. Reallocation only ever happens between requests,
// while no request against buf is outstanding.
func (op *Op) grow(n int) ([]byte, error) {
	old := len(op.buf)
	if cap(op.buf) - old >= n {
		op.buf = op.buf[:old+n]
		clear(op.buf[old:])
		return op.buf[old:], nil
	}

	nb, err := system.AllocAligned(max(2*cap(op.buf), old+n), op.align)
	if err != nil { return nil, err }
	nb = nb[:old+n]
	copy(nb, op.buf)
	op.buf = nb
	return op.buf[old:], nil
}

// Drops the unfilled tail of the last chunk
func (op *Op) shrink(n int) {
	op.buf = op.buf[:len(op.buf)-n]
}
