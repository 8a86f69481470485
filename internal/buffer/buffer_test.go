package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		threshold int
		errMsg    string
	}{
		{"not power of two", 1024, 100, "not a power of two"},
		{"zero threshold", 1024, 0, "not a power of two"},
		{"smaller than record", 1024, 8, "smaller than a record"},
		{"exceeds capacity", 64, 128, "exceeds capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.capacity, tt.threshold)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	b, err := New(DefaultCapacity, DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity+Headroom, b.Cap())
	assert.Equal(t, DefaultThreshold, b.Threshold())
}

func TestBuffer_AppendAdvancesCursor(t *testing.T) {
	b, err := New(256, 128)
	require.NoError(t, err)

	b.Append([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, 8, b.Len())

	b.Append([]byte{9, 10, 11, 12, 13, 14, 15, 16})
	assert.Equal(t, 16, b.Len())

	assert.Equal(t,
		[]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		b.Drain(),
	)
}

func TestBuffer_NextReservesInPlace(t *testing.T) {
	b, err := New(256, 128)
	require.NoError(t, err)

	p := b.Next(8)
	require.Len(t, p, 8)
	copy(p, "abcdefgh")

	assert.Equal(t, 8, b.Len())
	assert.Equal(t, []byte("abcdefgh"), b.Drain())
}

func TestBuffer_IsFullAtThreshold(t *testing.T) {
	for _, width := range []int{8, 16} {
		b, err := New(256, 128)
		require.NoError(t, err)

		record := bytes.Repeat([]byte{0xAB}, width)
		appends := 0

		for !b.IsFull() {
			require.False(t, b.Len() >= 128, "width %d", width)
			b.Append(record)
			appends++
		}

		assert.Equal(t, 128, b.Len(), "width %d", width)
		assert.Equal(t, 128/width, appends, "width %d", width)
	}
}

func TestBuffer_DrainResetsCursor(t *testing.T) {
	b, err := New(64, 32)
	require.NoError(t, err)

	b.Append(bytes.Repeat([]byte{1}, 32))
	require.True(t, b.IsFull())

	drained := b.Drain()
	assert.Len(t, drained, 32)
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.IsFull())
}

func TestBuffer_CursorStaysWithinArena(t *testing.T) {
	b, err := New(64, 64)
	require.NoError(t, err)

	record := make([]byte, 16)
	maxCursor := 0

	for range 1000 {
		b.Append(record)

		if b.Len() > maxCursor {
			maxCursor = b.Len()
		}

		if b.IsFull() {
			b.Drain()
		}
	}

	assert.LessOrEqual(t, maxCursor, b.Cap())
	assert.Equal(t, 64, maxCursor)
}

func TestBuffer_AppendDoesNotAllocate(t *testing.T) {
	b, err := New(DefaultCapacity, DefaultThreshold)
	require.NoError(t, err)

	record := make([]byte, 8)

	allocs := testing.AllocsPerRun(1000, func() {
		b.Append(record)

		if b.IsFull() {
			b.Drain()
		}
	})
	assert.Zero(t, allocs)
}
