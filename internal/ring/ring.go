package ring

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrCapacityExceeded is returned when a payload can never fit,
	// even into an empty buffer.
	ErrCapacityExceeded = errors.New("ring: payload exceeds buffer capacity")

	// ErrClosed signals that the buffer is closed and drained. It drives
	// consumer shutdown and is not a failure.
	ErrClosed = errors.New("ring: closed")
)

// Ring is a bounded circular byte buffer. A single mutex guards the
// cursors, the occupancy count and the closing flag; both condition
// variables wait on that same mutex so every predicate is re-checked
// under the lock that protects it.
type Ring struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	data     []byte
	readPos  int
	writePos int
	occupied int
	closing  bool
}

// New allocates a buffer of capacity bytes.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring: invalid capacity %d", capacity)
	}
	r := &Ring{data: make([]byte, capacity)}
	r.notEmpty = sync.NewCond(&r.mu)
	r.notFull = sync.NewCond(&r.mu)
	return r, nil
}

// Enqueue copies p into the buffer as one atomic unit, blocking until
// enough space is free. It never writes partially. Enqueue after Close
// returns ErrClosed.
func (r *Ring) Enqueue(p []byte) (int, error) {
	if len(p) > len(r.data) {
		return 0, ErrCapacityExceeded
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.occupied+len(p) > len(r.data) && !r.closing {
		r.notFull.Wait()
	}
	if r.closing {
		return 0, ErrClosed
	}

	r.copyIn(p)
	r.occupied += len(p)

	// A single consumer of a known fixed size can now make progress;
	// waking one is enough.
	r.notEmpty.Signal()
	return len(p), nil
}

// Dequeue fills p completely, blocking until len(p) bytes are buffered.
// A request larger than the total capacity can never be satisfied and
// fails immediately. If the buffer is closing and the remaining bytes
// cannot satisfy the request, it returns ErrClosed instead of blocking
// forever.
func (r *Ring) Dequeue(p []byte) (int, error) {
	if len(p) > len(r.data) {
		return 0, ErrCapacityExceeded
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.occupied < len(p) && !r.closing {
		r.notEmpty.Wait()
	}
	if r.occupied < len(p) {
		return 0, ErrClosed
	}

	r.copyOut(p)
	r.occupied -= len(p)

	r.notFull.Signal()
	return len(p), nil
}

// Close marks the buffer as closing and wakes every blocked producer and
// consumer so each can re-evaluate its predicate. Idempotent.
func (r *Ring) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing {
		return
	}
	r.closing = true
	r.notEmpty.Broadcast()
	r.notFull.Broadcast()
}

// Len reports the number of buffered bytes.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.occupied
}

// Cap reports the total capacity in bytes.
func (r *Ring) Cap() int {
	return len(r.data)
}

// copyIn writes src at the write cursor. A copy that straddles the wrap
// point is split into two bounded moves.
func (r *Ring) copyIn(src []byte) {
	n := copy(r.data[r.writePos:], src)
	if n < len(src) {
		copy(r.data, src[n:])
	}
	r.writePos = (r.writePos + len(src)) % len(r.data)
}

// copyOut reads into dst from the read cursor, split the same way.
func (r *Ring) copyOut(dst []byte) {
	n := copy(dst, r.data[r.readPos:])
	if n < len(dst) {
		copy(dst[n:], r.data[:len(dst)-n])
	}
	r.readPos = (r.readPos + len(dst)) % len(r.data)
}
