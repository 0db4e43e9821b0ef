// Package transaction implements the bounded transaction-identifier
// allocator that demultiplexes concurrent outstanding RMAP requests.
package transaction

import (
	"errors"
	"sync"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
)

// ErrExhausted is returned by Allocate when every id in [idMin, idMax) is
// currently in use.
var ErrExhausted = errors.New("transaction: table exhausted")

// Callback is invoked exactly once when a reply for its transaction
// arrives, or with ok=false when the slot is drained on shutdown.
type Callback func(packet rmap.Packet, ok bool)

type slot struct {
	mu        sync.Mutex
	available bool
	callback  Callback
}

// Table is a fixed-size, contiguous set of transaction-id slots covering
// [idMin, idMax). Allocate/Deliver/Release/DrainAborted are the only ways
// the set of "in use" ids changes; at most one callback fires per slot per
// transaction.
type Table struct {
	idMin uint16
	idMax uint16

	allocMu sync.Mutex
	slots   []slot
}

// New builds a Table over [idMin, idMax). It panics if idMax <= idMin.
func New(idMin, idMax uint16) *Table {
	if idMax <= idMin {
		panic("transaction: idMax must be greater than idMin")
	}
	t := &Table{idMin: idMin, idMax: idMax, slots: make([]slot, int(idMax)-int(idMin))}
	for i := range t.slots {
		t.slots[i].available = true
	}
	return t
}

// Allocate returns the lowest available transaction id and marks it
// taken, or ErrExhausted if none remain.
func (t *Table) Allocate() (uint16, error) {
	t.allocMu.Lock()
	defer t.allocMu.Unlock()

	for idx := range t.slots {
		s := &t.slots[idx]
		s.mu.Lock()
		if s.available {
			s.available = false
			s.mu.Unlock()
			return t.idMin + uint16(idx), nil
		}
		s.mu.Unlock()
	}
	return 0, ErrExhausted
}

// Install records the callback to invoke when id's reply arrives. It is
// the caller's responsibility to call Install only for an id it holds
// from a successful Allocate.
func (t *Table) Install(id uint16, cb Callback) {
	s := t.slotFor(id)
	s.mu.Lock()
	s.callback = cb
	s.mu.Unlock()
}

// Deliver invokes id's installed callback (if any) with the given packet
// and releases the slot back to the pool. It is a no-op if no callback is
// installed — e.g. a reply arriving after Release.
func (t *Table) Deliver(id uint16, packet rmap.Packet) {
	s := t.slotFor(id)
	s.mu.Lock()
	cb := s.callback
	if cb != nil {
		s.callback = nil
		s.available = true
	}
	s.mu.Unlock()
	if cb != nil {
		cb(packet, true)
	}
}

// Release returns id to the pool without invoking its callback — used
// when a send fails after Allocate but before a reply could ever arrive.
func (t *Table) Release(id uint16) {
	s := t.slotFor(id)
	s.mu.Lock()
	s.callback = nil
	s.available = true
	s.mu.Unlock()
}

// DrainAborted completes every still-installed callback with ok=false and
// releases its slot. Called once when the receive loop exits, so no
// waiter blocks forever on a reply that will never come.
func (t *Table) DrainAborted() {
	for i := range t.slots {
		s := &t.slots[i]
		s.mu.Lock()
		cb := s.callback
		s.callback = nil
		wasTaken := !s.available
		s.available = true
		s.mu.Unlock()
		if wasTaken && cb != nil {
			cb(rmap.Packet{}, false)
		}
	}
}

func (t *Table) slotFor(id uint16) *slot {
	idx := int(id) - int(t.idMin)
	return &t.slots[idx]
}

// IDMin and IDMax expose the configured range, e.g. for metrics.
func (t *Table) IDMin() uint16 { return t.idMin }
func (t *Table) IDMax() uint16 { return t.idMax }

// Free reports how many ids are currently available — used by metrics.
func (t *Table) Free() int {
	n := 0
	for i := range t.slots {
		t.slots[i].mu.Lock()
		if t.slots[i].available {
			n++
		}
		t.slots[i].mu.Unlock()
	}
	return n
}
