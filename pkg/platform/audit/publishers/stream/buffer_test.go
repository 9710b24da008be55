package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	audit "fairdraw/pkg/platform/audit"
)

func TestRingBuffer(t *testing.T) {
	b := NewRingBuffer(3)
	for i := 0; i < 3; i++ {
		assert.True(t, b.Enqueue(audit.Record{Index: i}))
	}
	assert.False(t, b.Enqueue(audit.Record{Index: 3}), "full buffer drops the oldest")
	assert.Equal(t, int64(1), b.Dropped())
	assert.Equal(t, 3, b.Len())

	batch := b.DequeueBatch(2)
	assert.Equal(t, 1, batch[0].Index)
	assert.Equal(t, 2, batch[1].Index)

	batch = b.DequeueBatch(10)
	assert.Len(t, batch, 1)
	assert.Equal(t, 3, batch[0].Index)
	assert.Nil(t, b.DequeueBatch(1))
}
