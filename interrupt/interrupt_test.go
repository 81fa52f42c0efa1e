package interrupt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueuedDeliveryDrainsInOrder(t *testing.T) {
	d := New()
	var got []int
	d.Register(BreakpointASM, func(data any) { got = append(got, data.(int)) })
	d.Post(BreakpointASM, 1)
	d.Post(BreakpointASM, 2)
	assert.True(t, d.Pending())
	d.Drain()
	assert.Equal(t, []int{1, 2}, got)
	assert.False(t, d.Pending())
}

func TestImmediateDeliveryBypassesQueue(t *testing.T) {
	d := New()
	fired := false
	d.Register(ControlError, func(data any) { fired = true })
	d.PostImmediate(ControlError, nil)
	assert.True(t, fired)
	assert.False(t, d.Pending())
}

func TestHandlerLookupAtDrainTime(t *testing.T) {
	d := New()
	d.Post(MemoryError, "oops")
	fired := false
	d.Register(MemoryError, func(data any) { fired = true })
	d.Drain()
	assert.True(t, fired, "handler registered after Post but before Drain must still fire")
}

func TestMultipleHandlersPerChannel(t *testing.T) {
	d := New()
	count := 0
	d.Register(BreakpointMicro, func(data any) { count++ })
	d.Register(BreakpointMicro, func(data any) { count++ })
	d.PostImmediate(BreakpointMicro, nil)
	assert.Equal(t, 2, count)
}

func TestDrainWithNoQueueIsNoop(t *testing.T) {
	d := New()
	assert.NotPanics(t, func() { d.Drain() })
}
