package ssdtp2

import "errors"

var (
	// ErrBadMessage is reported for a malformed SSDTP2 envelope: an
	// unrecognised flag byte, a non-zero pad byte, a discard-flagged
	// frame, or a malformed time-code envelope.
	ErrBadMessage = errors.New("ssdtp2: bad message")
	// ErrNoBufferSpace is returned by a Fixed-policy RecvBuffer when an
	// incoming payload would exceed the remaining reassembly space.
	ErrNoBufferSpace = errors.New("ssdtp2: no buffer space")
)
