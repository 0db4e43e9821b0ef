// Package client implements the host-side RMAP node: it owns the TCP
// connection, the SSDTP2 framing, the transaction table, and the
// callback worker pool, and exposes read/write/time-code operations to
// application code.
package client

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
	"github.com/spacewire-tools/spwrmap/pkg/ssdtp2"
	"github.com/spacewire-tools/spwrmap/pkg/target"
	"github.com/spacewire-tools/spwrmap/pkg/transaction"
	"github.com/spacewire-tools/spwrmap/pkg/transport"
	"github.com/spacewire-tools/spwrmap/pkg/workerpool"
)

// state values for Node.state, in the order a Node moves through them.
const (
	stateUnconnected int32 = iota
	stateConnected
	stateRunning
	stateShuttingDown
	stateClosed
)

// Node is a connected SpwRmap client. The zero value is not usable; use
// New. A Node is safe for concurrent use once Run has been started.
type Node struct {
	cfg    Config
	conn   *transport.Conn
	table  *transaction.Table
	pool   *workerpool.Pool
	obs    multiObserver
	logger *log.Logger

	state  atomic.Int32
	stopCh chan struct{}
}

// New builds a Node for cfg. It does not connect; call Connect and then
// Run.
func New(cfg Config, logger *log.Logger) *Node {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Node{
		cfg:    cfg,
		conn:   transport.New(cfg.Address, cfg.ConnectTimeout, cfg.SendTimeout, cfg.RecvTimeout),
		table:  transaction.New(cfg.TransactionIDMin, cfg.TransactionIDMax),
		pool:   workerpool.New(cfg.WorkerPoolSize),
		obs:    multiObserver(cfg.Observers),
		logger: logger,
	}
}

// Connect dials the configured address.
func (n *Node) Connect() error {
	if err := n.conn.Connect(); err != nil {
		return err
	}
	n.state.Store(stateConnected)
	return nil
}

// Run drives the receive loop until the connection is lost or Stop is
// called. It blocks and should be run from its own goroutine. Run
// returns nil on an orderly Stop, or the error that ended the
// connection.
func (n *Node) Run() error {
	if !n.state.CompareAndSwap(stateConnected, stateRunning) {
		return ErrAlreadyRunning
	}
	n.stopCh = make(chan struct{})

	decoder := ssdtp2.NewDecoder(n.cfg.RecvBufferSize, n.cfg.BufferPolicy)
	parser := &rmap.Parser{}
	readBuf := make([]byte, 4096)

	var runErr error
loop:
	for {
		select {
		case <-n.stopCh:
			break loop
		default:
		}

		nread, err := n.conn.RecvSome(readBuf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-n.stopCh:
				// Stop closed the socket under us: an orderly stop.
			default:
				runErr = err
			}
			break loop
		}
		if nread == 0 {
			runErr = fmt.Errorf("client: connection closed by peer")
			break loop
		}

		events, _ := decoder.Feed(readBuf[:nread])
		for _, ev := range events {
			n.handleEvent(ev, parser)
		}
	}

	n.state.Store(stateShuttingDown)
	n.table.DrainAborted()
	n.pool.Stop()
	n.state.Store(stateClosed)
	return runErr
}

func (n *Node) handleEvent(ev ssdtp2.Event, parser *rmap.Parser) {
	switch ev.Kind {
	case ssdtp2.EventBadMessage:
		n.obs.BadFrame(ev.Err)
		n.logger.Printf("spwrmap: bad frame: %v", ev.Err)
	case ssdtp2.EventTimeCode:
		n.obs.TimeCodeReceived(ev.TimeCode)
	case ssdtp2.EventPacket:
		if err := parser.Parse(ev.Packet); err != nil {
			n.obs.BadFrame(err)
			n.logger.Printf("spwrmap: failed to parse packet: %v", err)
			return
		}
		packet := parser.Result()
		switch packet.Type {
		case rmap.TypeReadReply, rmap.TypeWriteReply:
			n.deliverReply(packet)
		default:
			n.logger.Printf("spwrmap: received unexpected packet type %s", packet.Type)
		}
	}
}

func (n *Node) deliverReply(packet rmap.Packet) {
	if packet.TransactionID < n.table.IDMin() || packet.TransactionID >= n.table.IDMax() {
		n.logger.Printf("spwrmap: reply with out-of-range transaction id %d", packet.TransactionID)
		return
	}
	// Copy the slices out before handing off to a worker, so the
	// delivered packet owns its bytes rather than sharing the event
	// buffer the parser read from.
	packet.Data = append([]byte(nil), packet.Data...)
	packet.TargetPath = append([]byte(nil), packet.TargetPath...)
	packet.ReplyPath = append([]byte(nil), packet.ReplyPath...)
	n.pool.Post(func() {
		n.table.Deliver(packet.TransactionID, packet)
	})
}

// Stop ends the receive loop and aborts any outstanding transactions.
// It is safe to call once Run has returned; it is not safe to call
// concurrently with itself.
func (n *Node) Stop() {
	if n.stopCh != nil {
		select {
		case <-n.stopCh:
		default:
			close(n.stopCh)
		}
	}
	n.conn.Disconnect()
}

// checkRunning reports whether the receive loop is currently running,
// so a caller can't allocate a transaction id against a connection
// that has already shut down or closed.
func (n *Node) checkRunning() error {
	switch n.state.Load() {
	case stateRunning:
		return nil
	case stateShuttingDown, stateClosed:
		return ErrNotConnected
	default:
		return ErrNotRunning
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

// WriteAsync sends a Write-Command and returns a Future resolved when
// the reply (or shutdown) arrives. If wantReply is false, the Future
// resolves immediately with a zero Packet once the command is sent.
func (n *Node) WriteAsync(tgt target.Descriptor, address uint32, data []byte, wantReply bool) (*Future, error) {
	if err := n.checkRunning(); err != nil {
		return nil, err
	}
	id, err := n.table.Allocate()
	if err != nil {
		return nil, err
	}
	n.obs.TransactionAllocated(id, rmap.TypeWrite)
	started := time.Now()

	cfg := rmap.WriteConfig{
		TargetPath:              tgt.TargetPath(),
		ReplyPath:               tgt.ReplyPath(),
		TargetLogicalAddress:    tgt.TargetLogicalAddress(),
		InitiatorLogicalAddress: tgt.InitiatorLogicalAddress(),
		TransactionID:           id,
		Address:                 address,
		Reply:                   wantReply,
		Data:                    data,
	}
	buf := make([]byte, ssdtp2.HeaderLen+rmap.SizeWrite(cfg))
	written, err := rmap.EncodeWrite(cfg, buf[ssdtp2.HeaderLen:])
	if err != nil {
		n.table.Release(id)
		return nil, err
	}
	ssdtp2.EncodeHeader(ssdtp2.FlagEOP, uint64(written), buf)
	frame := buf[:ssdtp2.HeaderLen+written]

	future := newFuture()
	if !wantReply {
		n.table.Release(id)
		if err := n.conn.SendAll(frame); err != nil {
			return nil, err
		}
		future.resolve(rmap.Packet{}, nil)
		return future, nil
	}

	n.table.Install(id, func(packet rmap.Packet, ok bool) {
		if ok {
			n.obs.TransactionCompleted(id, rmap.TypeWrite, true, time.Since(started))
			future.resolve(packet, nil)
		} else {
			n.obs.TransactionCompleted(id, rmap.TypeWrite, false, time.Since(started))
			future.resolve(rmap.Packet{}, ErrAborted)
		}
	})
	if err := n.conn.SendAll(frame); err != nil {
		n.table.Release(id)
		return nil, err
	}
	return future, nil
}

// Write sends a Write-Command and blocks for its reply (if wantReply is
// true) until ctx is cancelled.
func (n *Node) Write(ctx context.Context, tgt target.Descriptor, address uint32, data []byte, wantReply bool) (rmap.Packet, error) {
	future, err := n.WriteAsync(tgt, address, data, wantReply)
	if err != nil {
		return rmap.Packet{}, err
	}
	return future.Wait(ctx)
}

// ReadAsync sends a Read-Command for length bytes at address and
// returns a Future resolved with the Read-Reply packet.
func (n *Node) ReadAsync(tgt target.Descriptor, address uint32, length uint32) (*Future, error) {
	if err := n.checkRunning(); err != nil {
		return nil, err
	}
	id, err := n.table.Allocate()
	if err != nil {
		return nil, err
	}
	n.obs.TransactionAllocated(id, rmap.TypeRead)
	started := time.Now()

	cfg := rmap.ReadConfig{
		TargetPath:              tgt.TargetPath(),
		ReplyPath:               tgt.ReplyPath(),
		TargetLogicalAddress:    tgt.TargetLogicalAddress(),
		InitiatorLogicalAddress: tgt.InitiatorLogicalAddress(),
		TransactionID:           id,
		Address:                 address,
		DataLength:              length,
	}
	buf := make([]byte, ssdtp2.HeaderLen+rmap.SizeRead(cfg))
	written, err := rmap.EncodeRead(cfg, buf[ssdtp2.HeaderLen:])
	if err != nil {
		n.table.Release(id)
		return nil, err
	}
	ssdtp2.EncodeHeader(ssdtp2.FlagEOP, uint64(written), buf)
	frame := buf[:ssdtp2.HeaderLen+written]

	future := newFuture()
	n.table.Install(id, func(packet rmap.Packet, ok bool) {
		if ok {
			n.obs.TransactionCompleted(id, rmap.TypeRead, true, time.Since(started))
			future.resolve(packet, nil)
		} else {
			n.obs.TransactionCompleted(id, rmap.TypeRead, false, time.Since(started))
			future.resolve(rmap.Packet{}, ErrAborted)
		}
	})
	if err := n.conn.SendAll(frame); err != nil {
		n.table.Release(id)
		return nil, err
	}
	return future, nil
}

// Read sends a Read-Command and blocks for its reply until ctx is
// cancelled.
func (n *Node) Read(ctx context.Context, tgt target.Descriptor, address uint32, length uint32) (rmap.Packet, error) {
	future, err := n.ReadAsync(tgt, address, length)
	if err != nil {
		return rmap.Packet{}, err
	}
	return future.Wait(ctx)
}

// EmitTimeCode sends a SpaceWire time code. Only the low 6 bits of tc
// are significant.
func (n *Node) EmitTimeCode(tc uint8) error {
	var frame [ssdtp2.TimeCodeFrameLen]byte
	ssdtp2.EncodeTimeCodeFrame(tc, frame[:])
	if err := n.conn.SendAll(frame[:]); err != nil {
		return err
	}
	n.obs.TimeCodeEmitted(tc & 0x3F)
	return nil
}

// Free reports how many transaction ids are currently available.
func (n *Node) Free() int { return n.table.Free() }
