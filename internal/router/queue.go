package router

import "sync"

// controlQueue holds encoded records waiting for the transport to write
// them to one peripheral's control channel.
type controlQueue struct {
	mu      sync.Mutex
	records [][]byte
	closed  bool
}

func newControlQueue() *controlQueue {
	return &controlQueue{}
}

func (q *controlQueue) push(rec []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrPeripheralClosed
	}
	q.records = append(q.records, rec)
	return nil
}

// drain returns every queued record in push order and empties the queue.
func (q *controlQueue) drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.records
	q.records = nil
	return out
}

func (q *controlQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// close discards pending records and refuses further pushes.
func (q *controlQueue) close() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := len(q.records)
	q.records = nil
	q.closed = true
	return dropped
}
