package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	var q Queue[int]
	assert.True(t, q.Empty())

	q.Push(1)
	assert.False(t, q.Empty())
	assert.Equal(t, q.Pop(), 1)
	assert.True(t, q.Empty())

	q.Push(2)
	q.Push(3)

	assert.Equal(t, q.Pop(), 2)
	assert.Equal(t, q.Pop(), 3)
	assert.True(t, q.Empty())

	assert.Panics(t, func() { q.Pop() })
}

func TestQueueDedup(t *testing.T) {
	var q Queue[string]

	q.Push("a")
	q.Push("a")
	q.Push("b")
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, "a", q.Pop())
	q.Push("a") // re-queueing after pop is allowed again
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, "b", q.Pop())
	assert.Equal(t, "a", q.Pop())
	assert.True(t, q.Empty())
}
