// Package loopback implements an in-process RMAP responder used to
// exercise a client end-to-end without real SpaceWire hardware: it
// accepts one TCP connection, mirrors Write/Read commands against a
// 1 MiB backing store, and replies with deliberately fragmented SSDTP2
// frames to exercise the client's reassembly path.
package loopback

import (
	"math/rand"
	"net"
	"sync"
	"sync/atomic"

	"github.com/spacewire-tools/spwrmap/pkg/rmap"
	"github.com/spacewire-tools/spwrmap/pkg/ssdtp2"
)

const storeSize = 1 << 20 // 1 MiB

// minFragment and maxFragment bound the size of each continuation frame
// a reply is split into, per the fragmentation requirement.
const (
	minFragment = 5
	maxFragment = 400
)

// Responder is a single-connection RMAP loopback server. The zero value
// is not usable; use New.
type Responder struct {
	listener net.Listener

	mu    sync.Mutex
	store [storeSize]byte

	timeCodes atomic.Uint32

	fragMu       sync.Mutex
	nextFragment []int // consumed whole by the next reply, then cleared
}

// ForceNextFragmentSizes pins the exact chunk sizes the next reply is
// split into (tests use this to reproduce a specific fragmentation
// pattern). The sizes must sum to the reply's length; they are consumed
// by the single next reply sent and then cleared.
func (r *Responder) ForceNextFragmentSizes(sizes []int) {
	r.fragMu.Lock()
	r.nextFragment = append([]int(nil), sizes...)
	r.fragMu.Unlock()
}

func (r *Responder) takeForcedFragmentSizes() []int {
	r.fragMu.Lock()
	defer r.fragMu.Unlock()
	sizes := r.nextFragment
	r.nextFragment = nil
	return sizes
}

// New starts listening on address ("host:port", or "host:0" to pick a
// free port).
func New(address string) (*Responder, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &Responder{listener: ln}, nil
}

// Addr returns the bound listen address.
func (r *Responder) Addr() string { return r.listener.Addr().String() }

// Preload copies data into the backing store starting at offset, for
// tests that need a known pattern to read back.
func (r *Responder) Preload(offset uint32, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.store[offset:], data)
}

// TimeCodeCount reports how many time-code frames have been received.
func (r *Responder) TimeCodeCount() uint32 { return r.timeCodes.Load() }

// Close stops accepting new connections.
func (r *Responder) Close() error { return r.listener.Close() }

// Serve accepts a single connection and services it until the
// connection closes or an unrecoverable error occurs. It blocks.
func (r *Responder) Serve() error {
	conn, err := r.listener.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()
	return r.serveConn(conn)
}

func (r *Responder) serveConn(conn net.Conn) error {
	decoder := ssdtp2.NewDecoder(4096, ssdtp2.AutoResize)
	parser := &rmap.Parser{}
	readBuf := make([]byte, 4096)

	for {
		n, err := conn.Read(readBuf)
		if err != nil {
			return err
		}
		events, _ := decoder.Feed(readBuf[:n])
		for _, ev := range events {
			switch ev.Kind {
			case ssdtp2.EventTimeCode:
				r.timeCodes.Add(1)
			case ssdtp2.EventBadMessage:
				// Ignored: a real node logs and resynchronises; the
				// responder has nothing useful to do with it either.
			case ssdtp2.EventPacket:
				if perr := parser.Parse(ev.Packet); perr != nil {
					continue
				}
				reply, rerr := r.handle(parser.Result())
				if rerr != nil {
					continue
				}
				if err := writeFragmented(conn, reply, r.takeForcedFragmentSizes()); err != nil {
					return err
				}
			}
		}
	}
}

func (r *Responder) handle(packet rmap.Packet) ([]byte, error) {
	switch packet.Type {
	case rmap.TypeWrite:
		r.mu.Lock()
		copy(r.store[packet.Address:], packet.Data)
		r.mu.Unlock()
		if !packet.ReplyRequested() {
			return nil, nil
		}
		cfg := rmap.WriteReplyConfig{
			ReplyPath:               packet.ReplyPath,
			InitiatorLogicalAddress: packet.InitiatorLogicalAddress,
			TargetLogicalAddress:    packet.TargetLogicalAddress,
			TransactionID:           packet.TransactionID,
			Status:                  0,
			Verify:                  packet.Verify(),
			Increment:               packet.Increment(),
		}
		buf := make([]byte, rmap.SizeWriteReply(cfg))
		n, err := rmap.EncodeWriteReply(cfg, buf)
		if err != nil {
			return nil, err
		}
		return buf[:n], nil

	case rmap.TypeRead:
		r.mu.Lock()
		data := append([]byte(nil), r.store[packet.Address:int(packet.Address)+int(packet.DataLength)]...)
		r.mu.Unlock()
		cfg := rmap.ReadReplyConfig{
			ReplyPath:               packet.ReplyPath,
			InitiatorLogicalAddress: packet.InitiatorLogicalAddress,
			TargetLogicalAddress:    packet.TargetLogicalAddress,
			TransactionID:           packet.TransactionID,
			Status:                  0,
			Increment:               packet.Increment(),
			Data:                    data,
		}
		buf := make([]byte, rmap.SizeReadReply(cfg))
		n, err := rmap.EncodeReadReply(cfg, buf)
		if err != nil {
			return nil, err
		}
		return buf[:n], nil

	default:
		return nil, nil
	}
}

// writeFragmented splits payload into 0x02-flagged continuation frames
// followed by a single 0x00-flagged (EOP) frame, so a client's
// reassembly path is exercised on every reply. If forcedSizes is
// non-nil it dictates the exact chunk sizes (must sum to len(payload));
// otherwise sizes are random in [minFragment, maxFragment].
func writeFragmented(conn net.Conn, payload []byte, forcedSizes []int) error {
	if len(payload) == 0 {
		var out [ssdtp2.HeaderLen]byte
		ssdtp2.EncodeHeader(ssdtp2.FlagEOP, 0, out[:])
		_, err := conn.Write(out[:])
		return err
	}

	fi := 0
	for len(payload) > 0 {
		chunkLen := len(payload)
		last := true
		switch {
		case forcedSizes != nil:
			chunkLen = forcedSizes[fi]
			fi++
			last = fi == len(forcedSizes)
		default:
			chunkLen = minFragment + rand.Intn(maxFragment-minFragment+1)
			if chunkLen > len(payload) {
				chunkLen = len(payload)
			}
			last = chunkLen == len(payload)
		}
		chunk := payload[:chunkLen]
		payload = payload[chunkLen:]

		flag := ssdtp2.FlagContinuation
		if last {
			flag = ssdtp2.FlagEOP
		}
		out := make([]byte, ssdtp2.HeaderLen+len(chunk))
		ssdtp2.EncodeHeader(flag, uint64(len(chunk)), out)
		copy(out[ssdtp2.HeaderLen:], chunk)
		if _, err := conn.Write(out); err != nil {
			return err
		}
	}
	return nil
}
