package gtpv2c

import (
	"encoding/binary"
	"fmt"
)

// MaxMessageLength is the capacity ceiling for one outbound GTPv2-C message,
// header included. Every reservation and commit enforces it.
const MaxMessageLength = 4096

const (
	// gtpcHeaderLen covers the mandatory part of the header: flags, message
	// type and the 2-octet length field. The length field counts everything
	// after these 4 octets.
	gtpcHeaderLen = 4

	// teidSeqLen is the TEID (4) plus sequence number (3) plus spare octet
	// that precede the IE region in messages carrying a TEID.
	teidSeqLen = 8

	// ieHeaderLen is type (1), length (2, network order), spare+instance (1).
	ieHeaderLen = 4
)

// GTPv2-C message types, TS 29.274 Table 6.1-1.
const (
	MsgTypeEchoRequest           uint8 = 1
	MsgTypeEchoResponse          uint8 = 2
	MsgTypeCreateSessionRequest  uint8 = 32
	MsgTypeCreateSessionResponse uint8 = 33
	MsgTypeCreateBearerRequest   uint8 = 95
	MsgTypeCreateBearerResponse  uint8 = 96
)

// CapacityError reports a reservation or commit that would grow a message
// past MaxMessageLength. The message is unusable and must be discarded;
// other messages are unaffected.
type CapacityError struct {
	IEType uint8
	Needed int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("message capacity exceeded: IE type %d needs %d bytes, ceiling is %d",
		e.IEType, e.Needed, MaxMessageLength)
}

// Message owns the transmit buffer for one outbound GTPv2-C message. The
// running length field in the header is the authoritative write cursor: the
// next IE always starts at gtpcHeaderLen + length. A Message is built by one
// goroutine and never shared while encoding.
type Message struct {
	buf []byte
}

// New returns a message with an initialized header: version 2, TEID flag
// set, the given type, destination TEID and sequence number. The length
// field starts at teidSeqLen so the first IE lands after the sequence.
func New(msgType uint8, teid, seq uint32) *Message {
	m := &Message{buf: make([]byte, MaxMessageLength)}
	m.buf[0] = 0x48 // version 2, piggybacking off, TEID present
	m.buf[1] = msgType
	m.setLength(teidSeqLen)
	binary.BigEndian.PutUint32(m.buf[4:8], teid)
	m.buf[8] = uint8(seq >> 16)
	m.buf[9] = uint8(seq >> 8)
	m.buf[10] = uint8(seq)
	m.buf[11] = 0
	return m
}

// Type returns the message type octet.
func (m *Message) Type() uint8 { return m.buf[1] }

// TEID returns the destination tunnel endpoint identifier.
func (m *Message) TEID() uint32 { return binary.BigEndian.Uint32(m.buf[4:8]) }

// Sequence returns the 24-bit sequence number.
func (m *Message) Sequence() uint32 {
	return uint32(m.buf[8])<<16 | uint32(m.buf[9])<<8 | uint32(m.buf[10])
}

// Length returns the header length field: the byte count of everything after
// the mandatory 4-octet header part.
func (m *Message) Length() uint16 { return binary.BigEndian.Uint16(m.buf[2:4]) }

func (m *Message) setLength(v uint16) { binary.BigEndian.PutUint16(m.buf[2:4], v) }

// Len returns the total message size in bytes.
func (m *Message) Len() int { return gtpcHeaderLen + int(m.Length()) }

// Bytes returns the wire form of the message. The returned slice aliases the
// internal buffer and is only valid until the next encoder call.
func (m *Message) Bytes() []byte { return m.buf[:m.Len()] }

// reserve places the next IE at the current cursor when its payload length
// is known up front. It writes the IE header and advances the header length
// by the IE's full footprint. On overflow nothing is written and the header
// length is untouched.
func (m *Message) reserve(ieType, instance uint8, length uint16) (*IE, error) {
	if m.Len()+ieHeaderLen+int(length) > MaxMessageLength {
		return nil, &CapacityError{IEType: ieType, Needed: m.Len() + ieHeaderLen + int(length)}
	}

	ie := &IE{msg: m, off: m.Len()}
	m.buf[ie.off] = ieType
	binary.BigEndian.PutUint16(m.buf[ie.off+1:ie.off+3], length)
	m.buf[ie.off+3] = instance & 0x0f

	m.setLength(m.Length() + ieHeaderLen + length)
	return ie, nil
}

// reserveUnsized places the next IE when its payload length is not known
// yet. The IE header is written with a zero length and the header length
// field does not move; the caller must finish with commitSize.
func (m *Message) reserveUnsized(ieType, instance uint8) (*IE, error) {
	if m.Len()+ieHeaderLen > MaxMessageLength {
		return nil, &CapacityError{IEType: ieType, Needed: m.Len() + ieHeaderLen}
	}

	ie := &IE{msg: m, off: m.Len()}
	m.buf[ie.off] = ieType
	binary.BigEndian.PutUint16(m.buf[ie.off+1:ie.off+3], 0)
	m.buf[ie.off+3] = instance & 0x0f
	return ie, nil
}

// commitSize finalizes an IE placed with reserveUnsized: it writes the IE's
// length field and advances the header length by the full footprint, under
// the same capacity check as reserve. Called exactly once per unsized IE.
func (m *Message) commitSize(ie *IE, length uint16) error {
	if m.Len()+ieHeaderLen+int(length) > MaxMessageLength {
		return &CapacityError{IEType: ie.Type(), Needed: m.Len() + ieHeaderLen + int(length)}
	}
	ie.setLength(length)
	m.setLength(m.Length() + ieHeaderLen + length)
	return nil
}
