package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueOrder(t *testing.T) {
	rq := NewRingQueue[int](3)
	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	require.NoError(t, rq.Enqueue(3))

	assert.True(t, rq.IsFull())
	assert.Error(t, rq.Enqueue(4))

	v, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, rq.Len())
}

func TestDequeueEmpty(t *testing.T) {
	rq := NewRingQueue[float64](2)
	_, err := rq.Dequeue()
	assert.Error(t, err)
}

func TestPushEvictsOldest(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 5; i++ {
		rq.Push(i)
	}

	var got []int
	rq.Each(func(v int) {
		got = append(got, v)
	})
	assert.Equal(t, []int{3, 4, 5}, got)
}
