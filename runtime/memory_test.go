package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jasonwyatt/wasmkit/runtime"
)

// memory.grow is monotonic: on success it extends by exactly delta pages
// of zeroed memory and returns the previous page count; on failure it
// returns -1 and leaves the memory completely unchanged.
func TestMemoryGrowMonotonic(t *testing.T) {
	max := uint32(2)
	mem := runtime.NewMemoryInstance(1, &max)
	require.EqualValues(t, 1, mem.Pages())

	prev := mem.Grow(1)
	require.EqualValues(t, 1, prev)
	require.EqualValues(t, 2, mem.Pages())

	b, err := mem.Read(runtime.PageSize, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, b)

	before := mem.Pages()
	result := mem.Grow(1)
	require.EqualValues(t, -1, result)
	require.Equal(t, before, mem.Pages(), "a failed grow must not change the memory's size")
}

func TestMemoryOutOfBoundsAccessTraps(t *testing.T) {
	mem := runtime.NewMemoryInstance(1, nil)
	_, err := mem.Read(runtime.PageSize-3, 8)
	require.Error(t, err)
}

func TestMemoryWriteThenReadRoundTrip(t *testing.T) {
	mem := runtime.NewMemoryInstance(1, nil)
	require.NoError(t, mem.WriteU32(12, 42))
	v, err := mem.ReadU32(12)
	require.NoError(t, err)
	require.EqualValues(t, 42, v)
}
