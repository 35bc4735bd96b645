package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferAdd(t *testing.T) {
	rb := NewRingBuffer[Sample](5)
	for i := 0; i < 3; i++ {
		rb.Add(Sample{Total: float64(i)})
	}
	assert.Equal(t, 3, rb.Len())
	assert.Equal(t, []Sample{{Total: 0}, {Total: 1}, {Total: 2}}, rb.All())
}

func TestRingBufferWrap(t *testing.T) {
	rb := NewRingBuffer[Sample](3)
	rb.AddAll([]Sample{{Total: 0}, {Total: 1}, {Total: 2}, {Total: 3}, {Total: 4}})
	require.Equal(t, 3, rb.Len())
	items := rb.All()
	assert.Equal(t, 2.0, items[0].Total, "oldest")
	assert.Equal(t, 4.0, items[2].Total, "newest")
}

func TestRingBufferPartialOrder(t *testing.T) {
	rb := NewRingBuffer[int](4)
	rb.AddAll([]int{7, 8})
	assert.Equal(t, []int{7, 8}, rb.All())
}

func TestRingBufferEmpty(t *testing.T) {
	rb := NewRingBuffer[Sample](10)
	assert.Zero(t, rb.Len())
	assert.Empty(t, rb.All())
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := NewRingBuffer[int](0)
	rb.AddAll([]int{1, 2})
	assert.Equal(t, []int{2}, rb.All())
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer[int](3)
	rb.AddAll([]int{1, 2, 3, 4})
	rb.Clear()
	assert.Zero(t, rb.Len())
	rb.Add(9)
	assert.Equal(t, []int{9}, rb.All())
}
