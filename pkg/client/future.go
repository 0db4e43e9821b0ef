package client

import (
	"context"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
)

// Future is the result of an asynchronous transaction, resolved exactly
// once: either with the reply packet, or with ErrAborted if the
// connection is lost before a reply arrives.
type Future struct {
	ch chan futureResult
}

type futureResult struct {
	packet rmap.Packet
	err    error
}

func newFuture() *Future {
	return &Future{ch: make(chan futureResult, 1)}
}

func (f *Future) resolve(packet rmap.Packet, err error) {
	f.ch <- futureResult{packet: packet, err: err}
}

// Wait blocks until the transaction completes or ctx is cancelled.
// Cancelling ctx does not abort the transaction itself — a reply or the
// eventual ErrAborted is still delivered, only not observed here.
func (f *Future) Wait(ctx context.Context) (rmap.Packet, error) {
	select {
	case r := <-f.ch:
		return r.packet, r.err
	case <-ctx.Done():
		return rmap.Packet{}, ctx.Err()
	}
}
