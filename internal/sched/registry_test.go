package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGoroutineIDIsStableAndDistinct(t *testing.T) {
	id := goroutineID()
	require.NotZero(t, id)
	require.Equal(t, id, goroutineID())

	other := make(chan uint64, 1)
	go func() { other <- goroutineID() }()
	require.NotEqual(t, id, <-other)
}

func TestRegisterCurrentRoundTrip(t *testing.T) {
	f := &Fiber{id: ID(nextID.Add(1))}
	registerCurrent(f)
	defer unregisterCurrent()

	require.True(t, InFiber())
	require.Same(t, f, Current())
}
