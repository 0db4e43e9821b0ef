package transaction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
)

func TestAllocateReturnsLowestAvailableID(t *testing.T) {
	tb := New(10, 13) // ids 10, 11, 12

	id1, err := tb.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint16(10), id1)

	id2, err := tb.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint16(11), id2)

	tb.Release(id1)

	id3, err := tb.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint16(10), id3, "releasing the lowest id must make it the next allocation")
}

func TestAllocateExhaustion(t *testing.T) {
	tb := New(0, 2)
	_, err := tb.Allocate()
	require.NoError(t, err)
	_, err = tb.Allocate()
	require.NoError(t, err)
	_, err = tb.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestAllocationIsABijectionUnderConcurrency(t *testing.T) {
	const n = 64
	tb := New(0, n)

	ids := make(chan uint16, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := tb.Allocate()
			require.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint16]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	_, err := tb.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestDeliverInvokesCallbackOnceAndReleasesSlot(t *testing.T) {
	tb := New(0, 4)
	id, err := tb.Allocate()
	require.NoError(t, err)

	called := 0
	var gotPacket rmap.Packet
	tb.Install(id, func(p rmap.Packet, ok bool) {
		called++
		gotPacket = p
		assert.True(t, ok)
	})

	want := rmap.Packet{TransactionID: id, Status: 0}
	tb.Deliver(id, want)

	assert.Equal(t, 1, called)
	assert.Equal(t, want, gotPacket)
	assert.Equal(t, 4, tb.Free()) // slot released back
}

func TestDrainAbortedCompletesOutstandingCallbacksOnly(t *testing.T) {
	tb := New(0, 4)

	id1, err := tb.Allocate()
	require.NoError(t, err)
	id2, err := tb.Allocate()
	require.NoError(t, err)

	var aborted []uint16
	tb.Install(id1, func(p rmap.Packet, ok bool) {
		if !ok {
			aborted = append(aborted, id1)
		}
	})
	tb.Install(id2, func(p rmap.Packet, ok bool) {
		if !ok {
			aborted = append(aborted, id2)
		}
	})

	tb.DrainAborted()

	assert.ElementsMatch(t, []uint16{id1, id2}, aborted)
	assert.Equal(t, 4, tb.Free())
}
