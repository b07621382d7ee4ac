package iomgr

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	ErrClosed			= errors.New("iomgr: engine closed")
	ErrCompletedSync	= errors.New("operation completed synchronously")
	ErrInvalidChunk		= errors.New("iomgr: read chunk size must be positive")
	ErrEmptyWrite		= errors.New("iomgr: empty write buffer")
	ErrShortWrite		= errors.New("short write")
)

const UNKNOWN_ERROR_MSG = "unknown error"

// OpError is how a failed read/write reaches its callback: which kind of operation,
// the OS code (0 when the failure isn't an errno) and a readable message.
type OpError struct {
	Op		string
	Code	unix.Errno
	Msg		string
	Err		error
}

// NewOpError wraps err for opcode, carrying the errno when there is one.
func NewOpError(opcode OpCode, err error) *OpError {
	return newOpError(opcode, err)
}

func newOpError(opcode OpCode, err error) *OpError {
	e := &OpError{Op: opcode.String(), Err: err}

	var errno unix.Errno
	if errors.As(err, &errno) {
		e.Code = errno
	}
	if err != nil {
		e.Msg = err.Error()
	}
	if e.Msg == "" {
		e.Msg = UNKNOWN_ERROR_MSG
	}
	return e
}

func (e *OpError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (errno %d)", e.Op, e.Msg, int(e.Code))
	}
	return e.Op + ": " + e.Msg
}

func (e *OpError) Unwrap() error {
	return e.Err
}
