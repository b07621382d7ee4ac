package iomgr

// Status is what a submission says about itself when it returns without error.
type Status uint8
const (
	// The kernel has it and will post a completion later
	StatusPending	Status = iota
	// Finished inline, no completion will be posted. Never expected on an async handle.
	StatusInline
)

// Completion is one event off the queue. Err is a per-request failure and belongs
// to the Op behind Key. EOF means the request ran into end of file.
type Completion struct {
	Key		uint64
	Bytes	uint32
	EOF		bool
	Err		error
}

// Port is the completion queue as the engine sees it.
//
// Submit must not touch hdr or region after it returns StatusPending, the owning
// Op may already be running on a worker by then. Wait blocks until a completion
// is available; an error from Wait is about the queue itself and is fatal.
// Wake posts n completions carrying SHUTDOWN_KEY.
type Port interface {
	Associate(fd int) error
	Submit(opcode OpCode, fd int, region []byte, hdr *Header) (Status, error)
	Wait() (Completion, error)
	Wake(n int) error
	Close() error
}

type PortFactory func(entries uint32) (Port, error)
