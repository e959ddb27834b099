package workflow

import "sync"

// progressQueue is an unbounded FIFO of progress messages. push never
// blocks, so a slow reader cannot stall a run.
type progressQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func newProgressQueue() *progressQueue {
	q := &progressQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *progressQueue) push(msg string) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, msg)
	}
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *progressQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// next blocks until a message is available. It returns false once the queue
// is closed and drained.
func (q *progressQueue) next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return "", false
	}
	msg := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return msg, true
}
