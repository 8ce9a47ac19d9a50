package utils

import (
	"market-pulse/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of history points.
// Oldest points are evicted on overflow. Not safe for concurrent use; the
// cache guards each ring with its own lock.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MHistoryPoint
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 20
	}

	return &RingBuffer{
		data:     make([]models.MHistoryPoint, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a point, overwriting the oldest one when full.
func (rb *RingBuffer) Append(point models.MHistoryPoint) {
	rb.data[rb.index] = point
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest points, oldest first.
func (rb *RingBuffer) GetLatest(n int) []models.MHistoryPoint {
	if rb.size == 0 || n <= 0 {
		return []models.MHistoryPoint{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MHistoryPoint, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest). The result
// is a copy and may be retained by the caller.
func (rb *RingBuffer) GetAll() []models.MHistoryPoint {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Last returns the newest point.
func (rb *RingBuffer) Last() (models.MHistoryPoint, bool) {
	if rb.size == 0 {
		return models.MHistoryPoint{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
