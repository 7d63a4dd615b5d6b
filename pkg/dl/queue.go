package dl

import "sync"

// DefaultQueueDepth is the ring capacity used by NewTxQueue callers
// that don't care: enough for 2 maximum-size messages in flight.
const DefaultQueueDepth = 2 * MaxMessageSize / PayloadSize

// TxQueue holds fragments awaiting transmission, in send order.
//
// Slots are pre-allocated at construction so the enqueue and dequeue
// paths never allocate; the scheduler consumes from completion-callback
// context where allocation failure has nowhere to go.
type TxQueue struct {
	slots []Frame
	head  int
	count int
	lock  sync.Mutex
}

// NewTxQueue creates a queue with the given ring capacity (in frames).
func NewTxQueue(depth int) *TxQueue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &TxQueue{slots: make([]Frame, depth)}
}

// Enqueue fragments msg and appends every fragment, or nothing at all.
//
// All fragments but the last carry the more bit. A zero-length msg
// produces no fragments and succeeds; the caller still gets a chance to
// kick the scheduler, matching the reference firmware.
func (q *TxQueue) Enqueue(msg []byte) error {
	if len(msg) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	n := FragmentCount(len(msg))

	q.lock.Lock()
	defer q.lock.Unlock()
	if n > len(q.slots)-q.count {
		return ErrQueueFull
	}
	for remaining := msg; len(remaining) > 0; {
		chunk := remaining
		if len(chunk) > PayloadSize {
			chunk = chunk[:PayloadSize]
		}
		remaining = remaining[len(chunk):]
		q.slots[(q.head+q.count)%len(q.slots)] = NewFrame(chunk, len(remaining) > 0)
		q.count++
	}
	return nil
}

// Dequeue copies the head frame into dst and removes it.
func (q *TxQueue) Dequeue(dst *Frame) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.count == 0 {
		return false
	}
	*dst = q.slots[q.head]
	q.slots[q.head] = Frame{}
	q.head = (q.head + 1) % len(q.slots)
	q.count--
	return true
}

// Drain discards all pending fragments and reports how many.
func (q *TxQueue) Drain() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	n := q.count
	for i := 0; i < n; i++ {
		q.slots[(q.head+i)%len(q.slots)] = Frame{}
	}
	q.head, q.count = 0, 0
	return n
}

// Len reports the number of pending fragments.
func (q *TxQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.count
}
