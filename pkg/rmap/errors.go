package rmap

import "errors"

// Encoder-side errors.
var (
	// ErrBufferTooSmall is returned by Encode when out is shorter than
	// Size(config) would report.
	ErrBufferTooSmall = errors.New("rmap: output buffer too small")
)

// Parser-side errors — the taxonomy from spec.md §7 Protocol.
var (
	ErrIncompletePacket         = errors.New("rmap: incomplete packet")
	ErrHeaderCRC                = errors.New("rmap: header CRC mismatch")
	ErrDataCRC                  = errors.New("rmap: data CRC mismatch")
	ErrUnknownProtocolIdentifier = errors.New("rmap: unknown protocol identifier")
	ErrInvalidPacket            = errors.New("rmap: invalid packet")
)
