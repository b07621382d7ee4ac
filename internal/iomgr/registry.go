package iomgr

import (
	"moooio/internal/util"

	"sync"

	"github.com/eapache/queue"
)

// registry owns every Op the kernel might be holding. An admitted Op gets a ticket
// for its whole logical lifetime (all chunks of a read reuse it); the ticket+1 is the
// key the kernel hands back. While a request is outstanding the Op sits in its slot,
// a worker takes it out when the completion arrives.
//
// Ops admitted while every ticket is out wait in the backlog and get the ticket of
// the next Op to be released.
type registry struct {
	mu			sync.Mutex
	idle		*sync.Cond
	slots		util.TicketQueue[*Op]
	backlog		*queue.Queue
	live		int // admitted and not yet released, backlog included
	closed		bool
}

func newRegistry(size int) *registry {
	r := &registry{
		slots: 		util.CreateTicketQueue[*Op](size),
		backlog: 	queue.New(),
	}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// admit takes a new logical Op. ready is false when it was parked in the backlog,
// in which case whoever releases a ticket will dispatch it.
func (r *registry) admit(op *Op) (ready bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed { return false, ErrClosed }
	r.live++

	if r.backlog.Length() == 0 {
		if ticket, ok := r.slots.TryAcq(nil); ok {
			bind(op, ticket)
			return true, nil
		}
	}
	r.backlog.Add(op)
	return false, nil
}

func bind(op *Op, ticket int) {
	op.ticket = ticket
	op.hdr.Key = uint64(ticket) + 1
}

// lodge parks op in its slot right before it goes to the kernel
func (r *registry) lodge(op *Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots.Put(op.ticket, op)
}

// take removes the Op a completion key refers to. false means the key is not
// something we handed out, or nothing is lodged under it.
func (r *registry) take(key uint64) (*Op, bool) {
	if key == SHUTDOWN_KEY || key == SKIP_KEY { return nil, false }
	ticket := int(key - 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.slots.Held(ticket) { return nil, false }
	op := r.slots.Take(ticket)
	if op == nil { return nil, false }
	return op, true
}

// release ends op's lifetime and returns the backlogged Op that inherited its
// ticket, if any. That one must be dispatched by the caller.
func (r *registry) release(op *Op) *Op {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots.Rel(op.ticket)
	op.ticket = -1
	r.live--

	var next *Op
	if r.backlog.Length() > 0 {
		next = r.backlog.Remove().(*Op)
		bind(next, r.slots.Acq(nil))
	}

	if r.live == 0 { r.idle.Broadcast() }
	return next
}

// shutdown refuses new Ops and waits until every admitted one has been released.
func (r *registry) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for r.live > 0 {
		r.idle.Wait()
	}
}

func (r *registry) stats() (live int, parked int, free int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live, r.backlog.Length(), r.slots.Free()
}
