package rmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCommandRoundtrip(t *testing.T) {
	cfg := ReadConfig{
		TargetPath:              []byte{0x01, 0x02},
		ReplyPath:               []byte{0x09},
		TargetLogicalAddress:    0x32,
		InitiatorLogicalAddress: 0xFE,
		TransactionID:           0x1234,
		ExtendedAddress:         0x00,
		Address:                 0xDEADBEEF,
		DataLength:              64,
		Key:                     0x01,
		Increment:               true,
	}
	buf := make([]byte, SizeRead(cfg))
	n, err := EncodeRead(cfg, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	var p Parser
	require.NoError(t, p.Parse(buf))
	got := p.Result()
	assert.Equal(t, TypeRead, got.Type)
	assert.Equal(t, cfg.TargetLogicalAddress, got.TargetLogicalAddress)
	assert.Equal(t, cfg.InitiatorLogicalAddress, got.InitiatorLogicalAddress)
	assert.Equal(t, cfg.TransactionID, got.TransactionID)
	assert.Equal(t, cfg.Address, got.Address)
	assert.Equal(t, cfg.DataLength, got.DataLength)
	assert.Equal(t, cfg.Key, got.Key)
	assert.True(t, got.Increment())
	assert.Equal(t, cfg.ReplyPath, got.ReplyPath)
}

func TestWriteCommandRoundtrip(t *testing.T) {
	cfg := WriteConfig{
		TargetPath:              []byte{0x05},
		ReplyPath:               []byte{0x0A, 0x0B, 0x0C},
		TargetLogicalAddress:    0x32,
		InitiatorLogicalAddress: 0xFE,
		TransactionID:           0x0001,
		Address:                 0x00000010,
		Key:                     0x00,
		Increment:               true,
		Reply:                   true,
		Verify:                  true,
		Data:                    []byte{0x01, 0x02, 0x03, 0x04},
	}
	buf := make([]byte, SizeWrite(cfg))
	n, err := EncodeWrite(cfg, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	var p Parser
	require.NoError(t, p.Parse(buf))
	got := p.Result()
	assert.Equal(t, TypeWrite, got.Type)
	assert.Equal(t, cfg.Address, got.Address)
	assert.Equal(t, cfg.TransactionID, got.TransactionID)
	assert.True(t, got.Verify())
	assert.True(t, got.ReplyRequested())
	assert.Equal(t, cfg.Data, got.Data)
	assert.Equal(t, cfg.ReplyPath, got.ReplyPath)
}

func TestReadReplyRoundtrip(t *testing.T) {
	cfg := ReadReplyConfig{
		ReplyPath:               []byte{0x0A},
		InitiatorLogicalAddress: 0xFE,
		TargetLogicalAddress:    0x32,
		TransactionID:           0x4242,
		Status:                  0,
		Data:                    []byte{0xAA, 0xBB, 0xCC, 0xDD},
	}
	buf := make([]byte, SizeReadReply(cfg))
	n, err := EncodeReadReply(cfg, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	var p Parser
	require.NoError(t, p.Parse(buf))
	got := p.Result()
	assert.Equal(t, TypeReadReply, got.Type)
	assert.Equal(t, cfg.TransactionID, got.TransactionID)
	assert.Equal(t, cfg.Status, got.Status)
	assert.Equal(t, cfg.Data, got.Data)
}

func TestWriteReplyRoundtrip(t *testing.T) {
	cfg := WriteReplyConfig{
		ReplyPath:               []byte{0x0A, 0x0B},
		InitiatorLogicalAddress: 0xFE,
		TargetLogicalAddress:    0x32,
		TransactionID:           0x0007,
		Status:                  0x03,
		Verify:                  true,
	}
	buf := make([]byte, SizeWriteReply(cfg))
	n, err := EncodeWriteReply(cfg, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	var p Parser
	require.NoError(t, p.Parse(buf))
	got := p.Result()
	assert.Equal(t, TypeWriteReply, got.Type)
	assert.Equal(t, cfg.TransactionID, got.TransactionID)
	assert.Equal(t, cfg.Status, got.Status)
	assert.True(t, got.Verify())
}

// TestHeaderCRCWitness flips a single bit in the header of an encoded
// Write-Command and expects a header CRC failure.
func TestHeaderCRCWitness(t *testing.T) {
	cfg := WriteConfig{
		TargetLogicalAddress:    0x32,
		InitiatorLogicalAddress: 0xFE,
		TransactionID:           0x0001,
		Address:                 0x10,
		Data:                    []byte{0x01},
	}
	buf := make([]byte, SizeWrite(cfg))
	_, err := EncodeWrite(cfg, buf)
	require.NoError(t, err)

	buf[3] ^= 0x01 // flip a bit inside the header span (Key byte, not the instruction byte)
	var p Parser
	assert.ErrorIs(t, p.Parse(buf), ErrHeaderCRC)
}

// TestDataCRCWitness flips a bit in the data span and expects a data CRC
// failure.
func TestDataCRCWitness(t *testing.T) {
	cfg := WriteConfig{
		TargetLogicalAddress:    0x32,
		InitiatorLogicalAddress: 0xFE,
		TransactionID:           0x0001,
		Address:                 0x10,
		Data:                    []byte{0x01, 0x02, 0x03},
	}
	buf := make([]byte, SizeWrite(cfg))
	_, err := EncodeWrite(cfg, buf)
	require.NoError(t, err)

	dataStart := len(buf) - len(cfg.Data) - 1
	buf[dataStart] ^= 0x01
	var p Parser
	assert.ErrorIs(t, p.Parse(buf), ErrDataCRC)
}

// TestReplyPathPacking checks every reply path length from 0 to 12
// bytes packs to ceil(k/4)*4 wire bytes and parses back to exactly k
// bytes.
func TestReplyPathPacking(t *testing.T) {
	for k := 0; k <= 12; k++ {
		path := make([]byte, k)
		for i := range path {
			path[i] = byte(i + 1)
		}

		cfg := ReadConfig{
			TargetLogicalAddress:    0x32,
			InitiatorLogicalAddress: 0xFE,
			ReplyPath:               path,
			TransactionID:           1,
			DataLength:              4,
		}
		wireLen := replyAddressWireLen(k)
		assert.Equal(t, (k+3)/4*4, wireLen, "k=%d", k)

		buf := make([]byte, SizeRead(cfg))
		_, err := EncodeRead(cfg, buf)
		require.NoError(t, err, "k=%d", k)

		var p Parser
		require.NoError(t, p.Parse(buf), "k=%d", k)
		assert.Equal(t, path, p.Result().ReplyPath, "k=%d", k)
	}
}
