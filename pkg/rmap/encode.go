package rmap

import "github.com/spacewire-tools/spwrmap/pkg/crc"

// SizeRead returns the exact byte count EncodeRead will write for config.
func SizeRead(config ReadConfig) int {
	return len(config.TargetPath) + 4 + replyAddressWireLen(len(config.ReplyPath)) + 12
}

// EncodeRead writes a Read-Command packet into out, returning the number
// of bytes written. out must be at least SizeRead(config) bytes.
func EncodeRead(config ReadConfig, out []byte) (int, error) {
	size := SizeRead(config)
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}

	head := 0
	head += copy(out[head:], config.TargetPath)
	out[head] = config.TargetLogicalAddress
	head++
	out[head] = protocolIdentifier
	head++

	instrOffset := head
	head++ // instruction byte filled in below
	out[head] = config.Key
	head++

	replyWireLen := replyAddressWireLen(len(config.ReplyPath))
	pad := replyWireLen - len(config.ReplyPath)
	for i := 0; i < pad; i++ {
		out[head] = 0x00
		head++
	}
	head += copy(out[head:], config.ReplyPath)

	instruction := instrCommand | instrReply
	if config.Increment {
		instruction |= instrIncrement
	}
	if replyWireLen != 0 {
		instruction |= uint8(replyWireLen/4) & instrReplyAddrLenMask
	}
	out[instrOffset] = instruction

	out[head] = config.InitiatorLogicalAddress
	head++
	out[head] = uint8(config.TransactionID >> 8)
	head++
	out[head] = uint8(config.TransactionID)
	head++
	out[head] = config.ExtendedAddress
	head++
	out[head] = uint8(config.Address >> 24)
	head++
	out[head] = uint8(config.Address >> 16)
	head++
	out[head] = uint8(config.Address >> 8)
	head++
	out[head] = uint8(config.Address)
	head++
	out[head] = uint8(config.DataLength >> 16)
	head++
	out[head] = uint8(config.DataLength >> 8)
	head++
	out[head] = uint8(config.DataLength)
	head++

	headerCRC := crc.Compute(out[len(config.TargetPath):head], 0)
	out[head] = headerCRC
	head++

	return head, nil
}

// SizeWrite returns the exact byte count EncodeWrite will write for config.
func SizeWrite(config WriteConfig) int {
	return len(config.TargetPath) + 4 + replyAddressWireLen(len(config.ReplyPath)) + 12 + len(config.Data) + 1
}

// EncodeWrite writes a Write-Command packet into out, returning the number
// of bytes written. out must be at least SizeWrite(config) bytes.
func EncodeWrite(config WriteConfig, out []byte) (int, error) {
	size := SizeWrite(config)
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}

	head := 0
	head += copy(out[head:], config.TargetPath)
	out[head] = config.TargetLogicalAddress
	head++
	out[head] = protocolIdentifier
	head++

	instrOffset := head
	head++
	out[head] = config.Key
	head++

	replyWireLen := replyAddressWireLen(len(config.ReplyPath))
	pad := replyWireLen - len(config.ReplyPath)
	for i := 0; i < pad; i++ {
		out[head] = 0x00
		head++
	}
	head += copy(out[head:], config.ReplyPath)

	instruction := instrCommand | instrWrite
	if config.Reply {
		instruction |= instrReply
	}
	if config.Verify {
		instruction |= instrVerify
	}
	if config.Increment {
		instruction |= instrIncrement
	}
	if replyWireLen != 0 {
		instruction |= uint8(replyWireLen/4) & instrReplyAddrLenMask
	}
	out[instrOffset] = instruction

	out[head] = config.InitiatorLogicalAddress
	head++
	out[head] = uint8(config.TransactionID >> 8)
	head++
	out[head] = uint8(config.TransactionID)
	head++
	out[head] = config.ExtendedAddress
	head++
	out[head] = uint8(config.Address >> 24)
	head++
	out[head] = uint8(config.Address >> 16)
	head++
	out[head] = uint8(config.Address >> 8)
	head++
	out[head] = uint8(config.Address)
	head++

	dataLength := uint32(len(config.Data))
	out[head] = uint8(dataLength >> 16)
	head++
	out[head] = uint8(dataLength >> 8)
	head++
	out[head] = uint8(dataLength)
	head++

	headerCRC := crc.Compute(out[len(config.TargetPath):head], 0)
	out[head] = headerCRC
	head++

	head += copy(out[head:], config.Data)
	out[head] = crc.Compute(config.Data, 0)
	head++

	return head, nil
}

// SizeWriteReply returns the exact byte count EncodeWriteReply will write.
func SizeWriteReply(config WriteReplyConfig) int {
	return len(config.ReplyPath) + 8
}

// EncodeWriteReply writes a Write-Reply packet into out.
func EncodeWriteReply(config WriteReplyConfig, out []byte) (int, error) {
	size := SizeWriteReply(config)
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}

	head := 0
	head += copy(out[head:], config.ReplyPath)
	out[head] = config.InitiatorLogicalAddress
	head++
	out[head] = protocolIdentifier
	head++

	instrOffset := head
	head++

	instruction := instrWrite | instrReply
	if config.Verify {
		instruction |= instrVerify
	}
	if config.Increment {
		instruction |= instrIncrement
	}
	out[instrOffset] = instruction

	out[head] = config.Status
	head++
	out[head] = config.TargetLogicalAddress
	head++
	out[head] = uint8(config.TransactionID >> 8)
	head++
	out[head] = uint8(config.TransactionID)
	head++

	headerCRC := crc.Compute(out[len(config.ReplyPath):head], 0)
	out[head] = headerCRC
	head++

	return head, nil
}

// SizeReadReply returns the exact byte count EncodeReadReply will write.
func SizeReadReply(config ReadReplyConfig) int {
	return len(config.ReplyPath) + 12 + len(config.Data) + 1
}

// EncodeReadReply writes a Read-Reply packet into out.
func EncodeReadReply(config ReadReplyConfig, out []byte) (int, error) {
	size := SizeReadReply(config)
	if len(out) < size {
		return 0, ErrBufferTooSmall
	}

	head := 0
	head += copy(out[head:], config.ReplyPath)
	out[head] = config.InitiatorLogicalAddress
	head++
	out[head] = protocolIdentifier
	head++

	instrOffset := head
	head++

	instruction := instrReply
	if config.Increment {
		instruction |= instrIncrement
	}
	out[instrOffset] = instruction

	out[head] = config.Status
	head++
	out[head] = config.TargetLogicalAddress
	head++
	out[head] = uint8(config.TransactionID >> 8)
	head++
	out[head] = uint8(config.TransactionID)
	head++
	out[head] = 0x00 // reserved
	head++

	dataLength := uint32(len(config.Data))
	out[head] = uint8(dataLength >> 16)
	head++
	out[head] = uint8(dataLength >> 8)
	head++
	out[head] = uint8(dataLength)
	head++

	headerCRC := crc.Compute(out[len(config.ReplyPath):head], 0)
	out[head] = headerCRC
	head++

	head += copy(out[head:], config.Data)
	out[head] = crc.Compute(config.Data, 0)
	head++

	return head, nil
}
