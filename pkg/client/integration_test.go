package client_test

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacewire-tools/spwrmap/pkg/client"
	"github.com/spacewire-tools/spwrmap/pkg/loopback"
	"github.com/spacewire-tools/spwrmap/pkg/target"
)

func newTestNode(t *testing.T, responder *loopback.Responder, idMin, idMax uint16) *client.Node {
	t.Helper()
	cfg := client.Config{
		Address:                 responder.Addr(),
		InitiatorLogicalAddress: 0xFE,
		TransactionIDMin:        idMin,
		TransactionIDMax:        idMax,
	}
	node := client.New(cfg, log.New(testWriter{t}, "", 0))
	require.NoError(t, node.Connect())

	runDone := make(chan error, 1)
	go func() { runDone <- node.Run() }()
	t.Cleanup(func() {
		node.Stop()
		<-runDone
	})
	return node
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func newTestResponder(t *testing.T) *loopback.Responder {
	t.Helper()
	r, err := loopback.New("127.0.0.1:0")
	require.NoError(t, err)
	go r.Serve()
	t.Cleanup(func() { r.Close() })
	return r
}

func testTarget() target.Descriptor {
	return target.NewDynamic(0x32, 0xFE, []byte{0x02}, []byte{0x03})
}

// TestWriteThenReadRoundtrip is end-to-end scenario 1 from the protocol
// test plan.
func TestWriteThenReadRoundtrip(t *testing.T) {
	responder := newTestResponder(t)
	node := newTestNode(t, responder, 0x0020, 0x0040)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	writeReply, err := node.Write(ctx, testTarget(), 0x00000000, []byte{0x01, 0x02, 0x03, 0x04}, true)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), writeReply.Status)

	readReply, err := node.Read(ctx, testTarget(), 0x00000000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, readReply.Data)
}

// TestFragmentedReply is end-to-end scenario 2: a read whose reply is
// forced into 50/100/106-byte fragments, plus a final 14-byte fragment,
// still arrives as one payload. The Read-Reply is 270 bytes: 1 reply-path
// byte, 12 header bytes, 256 data bytes and 1 data CRC byte.
func TestFragmentedReply(t *testing.T) {
	responder := newTestResponder(t)
	pattern := make([]byte, 256)
	for i := range pattern {
		pattern[i] = byte(i)
	}
	responder.Preload(0x1000, pattern)

	node := newTestNode(t, responder, 0x0020, 0x0040)

	responder.ForceNextFragmentSizes([]int{50, 100, 106, 14})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reply, err := node.Read(ctx, testTarget(), 0x1000, 256)
	require.NoError(t, err)
	assert.Equal(t, pattern, reply.Data)
}

// TestConcurrentOutOfOrderReads covers end-to-end scenario 3 in part: two
// concurrent read_asyncs, awaited in reverse order, each resolve to the
// correct window. The loopback responder answers in arrival order, so the
// replies themselves are not reordered, and transaction ids are not
// checked here.
func TestConcurrentOutOfOrderReads(t *testing.T) {
	responder := newTestResponder(t)
	var a, b [64]byte
	for i := range a {
		a[i] = byte(i)
		b[i] = byte(0x80 + i)
	}
	responder.Preload(0x0, a[:])
	responder.Preload(0x40, b[:])

	node := newTestNode(t, responder, 0x0020, 0x0040)

	futureA, err := node.ReadAsync(testTarget(), 0x0, 64)
	require.NoError(t, err)
	futureB, err := node.ReadAsync(testTarget(), 0x40, 64)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Whichever order the responder replies in, each future resolves
	// with its own window's data.
	replyB, err := futureB.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, b[:], replyB.Data)

	replyA, err := futureA.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, a[:], replyA.Data)
}

// TestTransactionExhaustion is end-to-end scenario 4: with only two ids
// available, a third concurrent write fails immediately with the
// table-exhausted error rather than blocking.
func TestTransactionExhaustion(t *testing.T) {
	responder := newTestResponder(t)
	node := newTestNode(t, responder, 0, 2)

	_, err1 := node.WriteAsync(testTarget(), 0x0, []byte{0x01}, true)
	_, err2 := node.WriteAsync(testTarget(), 0x4, []byte{0x02}, true)
	_, err3 := node.WriteAsync(testTarget(), 0x8, []byte{0x03}, true)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Error(t, err3)
}

// TestTimeCodeEmitWireFormat is end-to-end scenario 5.
func TestTimeCodeEmitWireFormat(t *testing.T) {
	responder := newTestResponder(t)
	node := newTestNode(t, responder, 0x0020, 0x0040)

	require.NoError(t, node.EmitTimeCode(0x2A))

	require.Eventually(t, func() bool {
		return responder.TimeCodeCount() == 1
	}, time.Second, 10*time.Millisecond)
}

// TestNodeSurvivesAfterTransactionCompletes: end-to-end scenario 6 (bad
// framing) is exercised at the decoder level in pkg/ssdtp2; here we only
// check that a live Node keeps completing back-to-back transactions and
// returns every transaction id to the table.
func TestNodeSurvivesAfterTransactionCompletes(t *testing.T) {
	responder := newTestResponder(t)
	node := newTestNode(t, responder, 0x0020, 0x0040)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		_, err := node.Write(ctx, testTarget(), uint32(i*4), []byte{byte(i)}, true)
		require.NoError(t, err)
	}
	assert.Equal(t, 0x0040-0x0020, node.Free())
}
