package auth

// RequestQueue holds callers parked behind an in-flight refresh. It is not
// safe for concurrent use; Coordinator only touches it under its own lock.
type RequestQueue struct {
	waiters []chan Outcome
}

// Enqueue parks a new caller and returns the channel its outcome arrives on.
// The channel is buffered so releasing never blocks on a caller that has
// stopped listening.
func (q *RequestQueue) Enqueue() <-chan Outcome {
	ch := make(chan Outcome, 1)
	q.waiters = append(q.waiters, ch)
	return ch
}

func (q *RequestQueue) Len() int {
	return len(q.waiters)
}

// Detach empties the queue and hands back everyone who was waiting.
func (q *RequestQueue) Detach() Waiters {
	w := Waiters(q.waiters)
	q.waiters = nil
	return w
}

// Waiters is a detached batch of parked callers.
type Waiters []chan Outcome

// Release delivers the same outcome to every waiter in enqueue order.
func (w Waiters) Release(o Outcome) {
	for _, ch := range w {
		ch <- o
	}
}
