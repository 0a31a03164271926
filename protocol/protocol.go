package protocol

import (
	"fmt"
)

/*
Every command starts with a header byte, MSB first:

	+--------+---------------+---------+----------+
	| cmd_id | channel index | or mode | reserved |
	+--------+---------------+---------+----------+
	| 3 bits | 3 bits        | 1 bit   | 1 bit    |
	+--------+---------------+---------+----------+

GET carries nothing else. SET carries one value byte. The bulk commands carry
a length byte, and SET_BULK follows it with length value bytes.
*/

// ID is the 3 bit command id
type ID uint8

// command ids:
const (
	Get     ID = 0
	Set     ID = 1
	GetBulk ID = 2
	SetBulk ID = 3
	Read    ID = 4
	Write   ID = 5
	Ack     ID = 6
	Unused  ID = 7
)

// header layout
const (
	idShift      = 5
	idMask       = 0x7
	channelShift = 2
	channelMask  = 0x7
	orShift      = 1
	orMask       = 0x1
)

// reply bytes
const (
	AckByte  = byte(Ack) << idShift
	NackByte = byte(Unused) << idShift
)

// String returns the command name
func (id ID) String() string {
	switch id {
	case Get:
		return "GET"
	case Set:
		return "SET"
	case GetBulk:
		return "GET_BULK"
	case SetBulk:
		return "SET_BULK"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case Ack:
		return "ACK"
	default:
		return fmt.Sprintf("ID(%d)", uint8(id))
	}
}

// Header is the decoded first byte of a command.
type Header struct {
	ID      ID
	Channel int
	Or      bool
}

// ParseHeader splits a header byte into its fields.
func ParseHeader(b byte) Header {
	return Header{
		ID:      ID((b >> idShift) & idMask),
		Channel: int((b >> channelShift) & channelMask),
		Or:      (b>>orShift)&orMask != 0,
	}
}

// Byte packs the header. Fields wider than their slot are truncated.
func (h Header) Byte() byte {
	b := (byte(h.ID) & idMask) << idShift
	b |= (byte(h.Channel) & channelMask) << channelShift
	if h.Or {
		b |= orMask << orShift
	}
	return b
}

// Command is one decoded request.
type Command struct {
	Header

	// Length of a bulk command
	Length int

	// Payload: the value byte of SET, the values of SET_BULK
	Payload []byte
}

// Bytes returns the command as sent on the wire.
func (c Command) Bytes() []byte {
	out := []byte{c.Header.Byte()}
	switch c.ID {
	case Set:
		out = append(out, c.Payload...)
	case GetBulk:
		out = append(out, byte(c.Length))
	case SetBulk:
		out = append(out, byte(c.Length))
		out = append(out, c.Payload...)
	}
	return out
}

// ValueReply encodes the reply to GET, upper bits cleared.
func ValueReply(v uint8) byte {
	return v & 0x1F
}
