package iomgr

import (
	"fmt"
	"strings"
	"unsafe"
)

func (o *Op) String() string {
	if o == nil {
		return "<nil>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Op | Opcode: %v, Fd: 0x%x, Key: 0x%x, Ticket: %d | Buf: @0x%x Len: 0x%08x Cap: 0x%08x\n",
		o.Opcode, o.fd, o.hdr.Key, o.ticket, unsafe.Pointer(unsafe.SliceData(o.buf)), len(o.buf), cap(o.buf))

	switch o.Opcode {
	case OpWrite:
		fmt.Fprintf(&b, "   > WRITE [ Target: 0x%08x | Padded: 0x%08x | Off: 0x%08x:%08x ]\n",
			o.target, len(o.buf), o.hdr.OffsetHigh, o.hdr.Offset)
	case OpRead:
		fmt.Fprintf(&b, "   > READ  [ Chunk: 0x%08x | Chunks: %d | Off: 0x%08x:%08x ]\n",
			o.chunk, chunks(o), o.hdr.OffsetHigh, o.hdr.Offset)
	}

	return b.String()
}

func chunks(o *Op) int {
	if o.chunk == 0 { return 0 }
	return len(o.buf) / o.chunk
}
