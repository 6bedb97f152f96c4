package signal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/esdr/signal"
)

func TestAlloc(t *testing.T) {
	c := signal.Complex.Alloc(10)
	assert.Equal(t, signal.Complex, c.Kind())
	assert.Equal(t, 10, c.Len())
	_, ok := c.(signal.ComplexBuffer)
	assert.True(t, ok)

	r := signal.Real.Alloc(5)
	assert.Equal(t, signal.Real, r.Kind())
	assert.Equal(t, 5, r.Len())

	assert.Panics(t, func() { signal.Kind(0).Alloc(1) })
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "complex", signal.Complex.String())
	assert.Equal(t, "real", signal.Real.String())
	assert.Equal(t, "Kind(7)", signal.Kind(7).String())
}

func TestDurationOf(t *testing.T) {
	var tests = []struct {
		sampleRate int
		samples    int64
		expected   time.Duration
	}{
		{sampleRate: 48000, samples: 48000, expected: time.Second},
		{sampleRate: 1000000, samples: 500000, expected: 500 * time.Millisecond},
		{sampleRate: 44100, samples: 0, expected: 0},
	}
	for _, c := range tests {
		assert.Equal(t, c.expected, signal.DurationOf(c.sampleRate, c.samples))
	}
}

func TestSlice(t *testing.T) {
	c := signal.Slice(signal.Complex.Alloc(10), 4)
	assert.Equal(t, 4, c.Len())
	r := signal.Slice(signal.RealBuffer{1, 2, 3}, 2)
	assert.Equal(t, signal.RealBuffer{1, 2}, r)
}
