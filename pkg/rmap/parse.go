package rmap

import "github.com/spacewire-tools/spwrmap/pkg/crc"

// Parser turns raw RMAP packet bytes into a Packet. A single Parser may be
// reused across calls to Parse; the previously returned Packet's slice
// fields become invalid the moment Parse is called again.
type Parser struct {
	packet Packet
}

// Result returns the Packet populated by the most recent successful Parse.
func (p *Parser) Result() Packet { return p.packet }

// Parse decodes bytes in place, recognising the variant from the
// instruction byte and validating header and data CRCs. On success it
// records the decoded fields, retrievable via Result.
func (p *Parser) Parse(data []byte) error {
	head := 0
	for {
		if head >= len(data) {
			return ErrIncompletePacket
		}
		if data[head] >= 0x20 {
			break
		}
		head++
	}

	if len(data)-head < 4 {
		return ErrIncompletePacket
	}

	instruction := data[head+2]
	p.packet.Instruction = instruction
	isCommand := instruction&instrCommand != 0
	isWrite := instruction&instrWrite != 0

	switch {
	case !isCommand && !isWrite:
		p.packet.Type = TypeReadReply
		p.packet.ReplyPath = data[:head]
		return p.parseReadReply(data[head:])
	case !isCommand && isWrite:
		p.packet.Type = TypeWriteReply
		p.packet.ReplyPath = data[:head]
		return p.parseWriteReply(data[head:])
	case isCommand && !isWrite:
		p.packet.Type = TypeRead
		p.packet.TargetPath = data[:head]
		return p.parseRead(data[head:])
	default:
		p.packet.Type = TypeWrite
		p.packet.TargetPath = data[:head]
		return p.parseWrite(data[head:])
	}
}

// stripReplyAddressPad mirrors the reference parser's zero-pad stripping:
// the wire field is replyAddrLen bytes, left-padded with zeros up to a
// 4-byte boundary; this returns the offset and length of the real path
// inside packet[0:replyAddrLen].
func stripReplyAddressPad(packet []byte, replyAddrLen int) (offset, length int) {
	offset = 0
	length = replyAddrLen
	head := 0
	for i := 0; i < replyAddrLen; i++ {
		b := packet[head]
		head++
		if b == 0x00 {
			offset = head
			length--
		} else {
			head += length - 1
			break
		}
	}
	return offset, length
}

func (p *Parser) parseRead(packet []byte) error {
	replyAddrLen := int(p.packet.Instruction&instrReplyAddrLenMask) * 4
	if len(packet) != 16+replyAddrLen {
		return ErrIncompletePacket
	}
	if !crc.Check(packet[:16+replyAddrLen]) {
		return ErrHeaderCRC
	}

	head := 0
	p.packet.TargetLogicalAddress = packet[head]
	head++
	if packet[head] != protocolIdentifier {
		return ErrUnknownProtocolIdentifier
	}
	head++
	head++ // instruction, already recorded
	p.packet.Key = packet[head]
	head++

	off, length := stripReplyAddressPad(packet[head:], replyAddrLen)
	p.packet.ReplyPath = packet[head+off : head+off+length]
	head += replyAddrLen

	p.packet.InitiatorLogicalAddress = packet[head]
	head++
	p.packet.TransactionID = uint16(packet[head])<<8 | uint16(packet[head+1])
	head += 2
	p.packet.ExtendedAddress = packet[head]
	head++
	p.packet.Address = uint32(packet[head])<<24 | uint32(packet[head+1])<<16 | uint32(packet[head+2])<<8 | uint32(packet[head+3])
	head += 4
	p.packet.DataLength = uint32(packet[head])<<16 | uint32(packet[head+1])<<8 | uint32(packet[head+2])
	head += 3
	return nil
}

func (p *Parser) parseWrite(packet []byte) error {
	replyAddrLen := int(p.packet.Instruction&instrReplyAddrLenMask) * 4
	if len(packet) <= 16+replyAddrLen {
		return ErrIncompletePacket
	}
	if !crc.Check(packet[:16+replyAddrLen]) {
		return ErrHeaderCRC
	}

	head := 0
	p.packet.TargetLogicalAddress = packet[head]
	head++
	if packet[head] != protocolIdentifier {
		return ErrUnknownProtocolIdentifier
	}
	head++
	head++
	p.packet.Key = packet[head]
	head++

	off, length := stripReplyAddressPad(packet[head:], replyAddrLen)
	p.packet.ReplyPath = packet[head+off : head+off+length]
	head += replyAddrLen

	p.packet.InitiatorLogicalAddress = packet[head]
	head++
	p.packet.TransactionID = uint16(packet[head])<<8 | uint16(packet[head+1])
	head += 2
	p.packet.ExtendedAddress = packet[head]
	head++
	p.packet.Address = uint32(packet[head])<<24 | uint32(packet[head+1])<<16 | uint32(packet[head+2])<<8 | uint32(packet[head+3])
	head += 4
	p.packet.DataLength = uint32(packet[head])<<16 | uint32(packet[head+1])<<8 | uint32(packet[head+2])
	head += 3

	if len(packet) != 16+replyAddrLen+int(p.packet.DataLength)+1 {
		return ErrIncompletePacket
	}
	dataSpan := packet[16+replyAddrLen : 16+replyAddrLen+int(p.packet.DataLength)+1]
	if !crc.Check(dataSpan) {
		return ErrDataCRC
	}
	head++ // CRC byte
	p.packet.Data = packet[head : head+int(p.packet.DataLength)]
	return nil
}

func (p *Parser) parseReadReply(packet []byte) error {
	if len(packet) < 12 {
		return ErrIncompletePacket
	}
	if !crc.Check(packet[:12]) {
		return ErrHeaderCRC
	}

	head := 0
	p.packet.InitiatorLogicalAddress = packet[head]
	head++
	if packet[head] != protocolIdentifier {
		return ErrUnknownProtocolIdentifier
	}
	head++
	head++
	p.packet.Status = packet[head]
	head++
	p.packet.TargetLogicalAddress = packet[head]
	head++
	p.packet.TransactionID = uint16(packet[head])<<8 | uint16(packet[head+1])
	head += 2
	head++ // reserved byte
	p.packet.DataLength = uint32(packet[head])<<16 | uint32(packet[head+1])<<8 | uint32(packet[head+2])
	head += 3

	if len(packet) != 12+int(p.packet.DataLength)+1 {
		return ErrIncompletePacket
	}
	if !crc.Check(packet[12 : 12+int(p.packet.DataLength)+1]) {
		return ErrDataCRC
	}
	head++ // CRC byte
	p.packet.Data = packet[head : head+int(p.packet.DataLength)]
	return nil
}

func (p *Parser) parseWriteReply(packet []byte) error {
	if len(packet) != 8 {
		return ErrIncompletePacket
	}
	if !crc.Check(packet[:8]) {
		return ErrHeaderCRC
	}

	head := 0
	p.packet.InitiatorLogicalAddress = packet[head]
	head++
	if packet[head] != protocolIdentifier {
		return ErrUnknownProtocolIdentifier
	}
	head++
	head++
	p.packet.Status = packet[head]
	head++
	p.packet.TargetLogicalAddress = packet[head]
	head++
	p.packet.TransactionID = uint16(packet[head])<<8 | uint16(packet[head+1])
	head += 2
	return nil
}
