package client

import (
	"time"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
)

// Observer receives best-effort notifications of node activity. All
// methods must return quickly; a Node may call them from its receive
// loop. Implementations that only care about some events can embed
// NopObserver and override the rest.
type Observer interface {
	TransactionAllocated(id uint16, kind rmap.PacketType)
	TransactionCompleted(id uint16, kind rmap.PacketType, ok bool, elapsed time.Duration)
	BadFrame(err error)
	TimeCodeEmitted(tc uint8)
	TimeCodeReceived(tc uint8)
}

// NopObserver implements Observer with no-ops, for embedding by partial
// implementations (e.g. something that only wants BadFrame).
type NopObserver struct{}

func (NopObserver) TransactionAllocated(uint16, rmap.PacketType)                   {}
func (NopObserver) TransactionCompleted(uint16, rmap.PacketType, bool, time.Duration) {}
func (NopObserver) BadFrame(error)                                                 {}
func (NopObserver) TimeCodeEmitted(uint8)                                          {}
func (NopObserver) TimeCodeReceived(uint8)                                         {}

// multiObserver fans a single notification out to every attached
// Observer, so Node itself only ever calls one Observer.
type multiObserver []Observer

func (m multiObserver) TransactionAllocated(id uint16, kind rmap.PacketType) {
	for _, o := range m {
		o.TransactionAllocated(id, kind)
	}
}

func (m multiObserver) TransactionCompleted(id uint16, kind rmap.PacketType, ok bool, elapsed time.Duration) {
	for _, o := range m {
		o.TransactionCompleted(id, kind, ok, elapsed)
	}
}

func (m multiObserver) BadFrame(err error) {
	for _, o := range m {
		o.BadFrame(err)
	}
}

func (m multiObserver) TimeCodeEmitted(tc uint8) {
	for _, o := range m {
		o.TimeCodeEmitted(tc)
	}
}

func (m multiObserver) TimeCodeReceived(tc uint8) {
	for _, o := range m {
		o.TimeCodeReceived(tc)
	}
}
