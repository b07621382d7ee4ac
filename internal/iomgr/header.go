package iomgr

// Header is the per-request block the kernel sees. Key comes back to us verbatim in
// the completion (SQE user data) and is the only way a completion finds its Op.
// The target offset is kept as a low/high pair of 32-bit halves.
type Header struct {
	Key			uint64
	Offset		uint32
	OffsetHigh	uint32
}

// Reserved keys. Registry keys are ticket+1 so they never collide with these.
const SHUTDOWN_KEY	= uint64(0)
const SKIP_KEY		= ^uint64(0)

func (h *Header) Pos() uint64 {
	return uint64(h.Offset) | uint64(h.OffsetHigh) << 32
}

func (h *Header) SetPos(pos uint64) {
	h.Offset = uint32(pos)
	h.OffsetHigh = uint32(pos >> 32)
}

func (h *Header) Advance(n uint64) {
	h.Offset, h.OffsetHigh = AddToOffsetPair(h.Offset, h.OffsetHigh, n)
}

// AddToOffsetPair adds n to the 64-bit value split across lo/hi. The carry out of
// the low half goes into the high half, anything past 64 bits wraps.
func AddToOffsetPair(lo uint32, hi uint32, n uint64) (uint32, uint32) {
	sum := uint64(lo) + (n & 0xffffffff)
	carry := uint32(sum >> 32)
	return uint32(sum), hi + uint32(n >> 32) + carry
}
