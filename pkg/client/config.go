package client

import (
	"time"

	"github.com/spacewire-tools/spwrmap/pkg/ssdtp2"
)

// Config parameterizes a Node. Zero-value timeouts mean "no deadline".
type Config struct {
	Address string

	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	RecvTimeout    time.Duration

	InitiatorLogicalAddress uint8

	// TransactionIDMin/Max bound the allocator's id range [Min, Max).
	TransactionIDMin uint16
	TransactionIDMax uint16

	// RecvBufferSize is the initial capacity of the RMAP reassembly
	// buffer; BufferPolicy governs what happens when a packet exceeds it.
	RecvBufferSize int
	BufferPolicy   ssdtp2.Policy

	// WorkerPoolSize bounds how many reply callbacks can run
	// concurrently off the receive loop.
	WorkerPoolSize int

	// Observers receive best-effort activity notifications; nil is fine.
	Observers []Observer
}

func (c Config) withDefaults() Config {
	if c.TransactionIDMax == 0 {
		c.TransactionIDMin = 0
		c.TransactionIDMax = 60000
	}
	if c.RecvBufferSize == 0 {
		c.RecvBufferSize = 4096
	}
	if c.WorkerPoolSize == 0 {
		c.WorkerPoolSize = 4
	}
	return c
}
