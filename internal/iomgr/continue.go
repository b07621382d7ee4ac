package iomgr

import (
	"moooio/internal/system"

	"github.com/negrel/assert"
)

// proceed decides what a completed request means for its logical operation: call
// back and finish, or ask the kernel for more.
func (e *Engine) proceed(op *Op, n int) {
	switch op.Opcode {
	case OpRead:
		e.proceedRead(op, n)
	case OpWrite:
		e.proceedWrite(op, n)
	default:
		e.fatal(newOpError(op.Opcode, ErrCompletedSync))
	}
}

// We never know the file length up front. A full chunk means there may be more, so
// ask for another one right behind it; the first short chunk (often 0 bytes, one
// probe past the end) is the end of data.
func (e *Engine) proceedRead(op *Op, n int) {
	assert.LessOrEqual(n, op.chunk, "kernel returned more than we asked for")
	n = min(n, op.chunk)

	if n < op.chunk {
		op.shrink(op.chunk - n)
		op.onRead(op.buf, nil)
		e.finalize(op)
		return
	}

	region, err := op.grow(op.chunk)
	if err != nil {
		op.fail(newOpError(OpRead, err))
		e.finalize(op)
		return
	}
	op.hdr.Advance(uint64(op.chunk))
	e.dispatch(op, region)
}

// The kernel wrote the padded buffer. Cut the file back to what the caller asked
// for: delta (usually <= 0) relative to the end of what we just wrote.
func (e *Engine) proceedWrite(op *Op, n int) {
	if n < op.target {
		op.onWrite(newOpError(OpWrite, ErrShortWrite))
		e.finalize(op)
		return
	}

	delta := int64(op.target) - int64(n)
	err := trimTail(op.fd, int64(op.hdr.Pos()) + int64(n), delta)
	if err != nil {
		op.onWrite(newOpError(OpWrite, err))
	} else {
		op.onWrite(nil)
	}
	e.finalize(op)
}

// Moves the file pointer delta bytes from end of file and truncates there. When the
// file was already longer than writeEnd, the end we mean is writeEnd, not the old
// end, so the difference is folded into delta.
func trimTail(fd int, writeEnd int64, delta int64) error {
	end, err := system.SeekEnd(fd, 0)
	if err != nil { return err }
	delta += writeEnd - end

	pos, err := system.SeekEnd(fd, delta)
	if err != nil { return err }
	return system.Truncate(fd, pos)
}
