package util

func mod(a int, b int) int {
	return ((a % b) + b) % b
}

// fixed-size ring-buffer queue
type Queue[T any] struct {
	data	[]T
	head	int // next slot to write to
	cnt 	int
}

func CreateQueue[T any](size int) Queue[T] {
	return Queue[T] {
		head: 	0,
		cnt: 	0,
		data: 	make([]T, size),
	}
}

func (q *Queue[T]) Cnt() int {
	return q.cnt
}

func (q *Queue[T]) Cap() int {
	return len(q.data)
}

// will panic if out of space.
func (q *Queue[T]) Push(val T) {
	if q.cnt == len(q.data) { panic("queue overflow") }
	q.data[q.head] = val
	q.head = mod((q.head + 1), len(q.data))
	q.cnt++
}

func (q *Queue[T]) Pop() T {
	if q.cnt == 0 { panic("queue underflow") }
	i := mod((q.head - q.cnt), len(q.data))
	q.cnt--
	return q.data[i]
}


// TicketQueue combines a fixed contiguous array and a queue of numbered "tickets" which
// correspond to slots in the contiguous array. A ticket is reserved from Acq until Rel,
// the slot contents can come and go in between (Take/Put) without giving the ticket up.
//
// Not safe for concurrent use, callers bring their own lock.
type TicketQueue[T any] struct {
	queue		Queue[int]
	data		[]T
	held		[]bool
}

func CreateTicketQueue[T any](size int) TicketQueue[T] {
	queue := CreateQueue[int](size)
	for i := range size {
		queue.Push(i)
	}

	return TicketQueue[T]{
		queue: 	queue,
		data: 	make([]T, size),
		held: 	make([]bool, size),
	}
}

// This acquires a ticket and sets the slot to the passed value. Panics when empty.
func (tq *TicketQueue[T]) Acq(val T) int {
	ticket, ok := tq.TryAcq(val)
	if !ok { panic("ticket queue exhausted") }
	return ticket
}

func (tq *TicketQueue[T]) TryAcq(val T) (int, bool) {
	if tq.queue.Cnt() == 0 { return -1, false }
	ticket := tq.queue.Pop()
	tq.data[ticket] = val
	tq.held[ticket] = true
	return ticket, true
}

func (tq *TicketQueue[T]) Rel(ticket int) {
	if !tq.held[ticket] { panic("ticket released twice") }
	var zero T
	tq.data[ticket] = zero
	tq.held[ticket] = false
	tq.queue.Push(ticket)
}

func (tq *TicketQueue[T]) Get(ticket int) T {
	return tq.data[ticket]
}

// Empties the slot but keeps the ticket reserved
func (tq *TicketQueue[T]) Take(ticket int) T {
	val := tq.data[ticket]
	var zero T
	tq.data[ticket] = zero
	return val
}

func (tq *TicketQueue[T]) Put(ticket int, val T) {
	if !tq.held[ticket] { panic("put into unreserved ticket") }
	tq.data[ticket] = val
}

func (tq *TicketQueue[T]) Held(ticket int) bool {
	return ticket >= 0 && ticket < len(tq.held) && tq.held[ticket]
}

func (tq *TicketQueue[T]) Free() int {
	return tq.queue.Cnt()
}

func (tq *TicketQueue[T]) Size() int {
	return len(tq.data)
}
