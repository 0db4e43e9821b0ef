// Package ssdtp2 implements the SSDTP2 TCP framing used to carry RMAP
// packets and SpaceWire time codes over a byte stream.
//
// Every message on the wire is a 12-byte envelope followed by length
// bytes of payload:
//
//	offset  meaning
//	0       flag: 0x00 RMAP-EOP, 0x01 discard, 0x02 RMAP-continuation, 0x31 time-code
//	1       must be 0x00
//	2..3    reserved, 0x00 0x00
//	4..11   big-endian 64-bit payload length
package ssdtp2

const (
	FlagEOP          uint8 = 0x00
	FlagDiscard      uint8 = 0x01
	FlagContinuation uint8 = 0x02
	FlagTimeCode     uint8 = 0x31
)

// HeaderLen is the fixed size of the SSDTP2 envelope.
const HeaderLen = 12

// TimeCodeFrameLen is the fixed size of a time-code frame: 12-byte
// envelope (length field value 2) plus a 2-byte payload.
const TimeCodeFrameLen = HeaderLen + 2

// EncodeHeader writes a 12-byte envelope for flag/length into out, which
// must be at least HeaderLen bytes.
func EncodeHeader(flag uint8, length uint64, out []byte) {
	out[0] = flag
	out[1] = 0x00
	out[2] = 0x00
	out[3] = 0x00
	out[4] = uint8(length >> 56)
	out[5] = uint8(length >> 48)
	out[6] = uint8(length >> 40)
	out[7] = uint8(length >> 32)
	out[8] = uint8(length >> 24)
	out[9] = uint8(length >> 16)
	out[10] = uint8(length >> 8)
	out[11] = uint8(length)
}

// EncodePacketFrame writes the envelope and payload for a single
// RMAP-EOP frame into out, which must be at least HeaderLen+len(payload)
// bytes. It returns the total number of bytes written.
func EncodePacketFrame(payload []byte, out []byte) int {
	EncodeHeader(FlagEOP, uint64(len(payload)), out)
	n := copy(out[HeaderLen:], payload)
	return HeaderLen + n
}

// EncodeTimeCodeFrame writes the fixed 14-byte time-code frame for tc
// (only the low 6 bits are significant) into out, which must be at least
// TimeCodeFrameLen bytes. It returns TimeCodeFrameLen.
func EncodeTimeCodeFrame(tc uint8, out []byte) int {
	EncodeHeader(FlagTimeCode, 2, out)
	out[HeaderLen] = tc & 0x3F
	out[HeaderLen+1] = 0x00
	return TimeCodeFrameLen
}
