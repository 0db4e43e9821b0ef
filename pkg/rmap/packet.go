package rmap

// PacketType identifies which of the four RMAP packet variants a parsed
// packet is.
type PacketType int

const (
	TypeRead PacketType = iota
	TypeWrite
	TypeReadReply
	TypeWriteReply
)

func (t PacketType) String() string {
	switch t {
	case TypeRead:
		return "Read"
	case TypeWrite:
		return "Write"
	case TypeReadReply:
		return "ReadReply"
	case TypeWriteReply:
		return "WriteReply"
	default:
		return "Unknown"
	}
}

// Packet is the decoded view Parser.Parse populates. Its slice fields
// (TargetPath, ReplyPath, Data) reference the buffer passed to Parse and
// are only valid until the next call to Parse on the same Parser.
type Packet struct {
	Type                    PacketType
	TargetPath              []byte
	ReplyPath               []byte
	TargetLogicalAddress    uint8
	InitiatorLogicalAddress uint8
	Instruction             uint8
	Key                     uint8
	Status                  uint8
	TransactionID           uint16
	ExtendedAddress         uint8
	Address                 uint32
	DataLength              uint32
	Data                    []byte
}

// Increment reports the instruction byte's increment-address bit.
func (p Packet) Increment() bool { return p.Instruction&instrIncrement != 0 }

// Verify reports the instruction byte's verify-before-write bit.
func (p Packet) Verify() bool { return p.Instruction&instrVerify != 0 }

// ReplyRequested reports the instruction byte's reply-requested bit.
func (p Packet) ReplyRequested() bool { return p.Instruction&instrReply != 0 }
