package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestQueueReleasesAllWithSameOutcome(t *testing.T) {
	var q RequestQueue
	a := q.Enqueue()
	b := q.Enqueue()
	c := q.Enqueue()
	require.Equal(t, 3, q.Len())

	waiters := q.Detach()
	assert.Equal(t, 0, q.Len())

	boom := errors.New("boom")
	waiters.Release(Outcome{Err: boom})

	for _, ch := range []<-chan Outcome{a, b, c} {
		out := <-ch
		assert.ErrorIs(t, out.Err, boom)
		assert.Empty(t, out.Token)
	}
}

func TestRequestQueueDetachKeepsEnqueueOrder(t *testing.T) {
	var q RequestQueue
	chans := make([]<-chan Outcome, 5)
	for i := range chans {
		chans[i] = q.Enqueue()
	}
	waiters := q.Detach()
	require.Len(t, waiters, 5)
	for i := range waiters {
		assert.Equal(t, chans[i], (<-chan Outcome)(waiters[i]))
	}

	// A fresh enqueue after Detach is not part of the released batch.
	late := q.Enqueue()
	waiters.Release(Outcome{Token: "t"})
	assert.Len(t, late, 0)
	assert.Equal(t, 1, q.Len())
}

func TestRequestQueueReleaseDoesNotBlockOnAbandonedWaiter(t *testing.T) {
	var q RequestQueue
	q.Enqueue() // never read
	done := make(chan struct{})
	go func() {
		q.Detach().Release(Outcome{Token: "t"})
		close(done)
	}()
	<-done
}
