package gtpv2c

import "encoding/binary"

// IE type codes, TS 29.274 Table 8.1-1.
const (
	IETypeCause          uint8 = 2
	IETypeRecovery       uint8 = 3
	IETypeEBI            uint8 = 73
	IETypePAA            uint8 = 79
	IETypeBearerQoS      uint8 = 80
	IETypeBearerTFT      uint8 = 84
	IETypeFTEID          uint8 = 87
	IETypeBearerContext  uint8 = 93
	IETypePTI            uint8 = 100
	IETypeAPNRestriction uint8 = 127
	IETypeARP            uint8 = 155
)

// F-TEID interface types, TS 29.274 clause 8.22.
const (
	IfTypeS1UeNodeBGTPU uint8 = 0
	IfTypeS1USGWGTPU    uint8 = 1
	IfTypeS5S8SGWGTPC   uint8 = 6
	IfTypeS5S8PGWGTPC   uint8 = 7
	IfTypeS11MMEGTPC    uint8 = 10
	IfTypeS11S4SGWGTPC  uint8 = 11
)

// CauseRequestAccepted is the success cause value, TS 29.274 Table 8.4-1.
const CauseRequestAccepted uint8 = 16

// IE is a writable handle to an information element inside a message buffer.
// It never outlives the message that produced it.
type IE struct {
	msg *Message
	off int
}

// Type returns the 3GPP-assigned IE type code.
func (ie *IE) Type() uint8 { return ie.msg.buf[ie.off] }

// Instance returns the instance discriminator (low nibble of the 4th octet).
func (ie *IE) Instance() uint8 { return ie.msg.buf[ie.off+3] & 0x0f }

// Length returns the IE payload length field.
func (ie *IE) Length() uint16 {
	return binary.BigEndian.Uint16(ie.msg.buf[ie.off+1 : ie.off+3])
}

func (ie *IE) setLength(v uint16) {
	binary.BigEndian.PutUint16(ie.msg.buf[ie.off+1:ie.off+3], v)
}

// TrailingSize is the IE's full footprint in the message: header plus
// payload. Callers use it to propagate child sizes into enclosing lengths.
func (ie *IE) TrailingSize() uint16 { return ieHeaderLen + ie.Length() }

// payload returns the writable payload region for a sized IE.
func (ie *IE) payload() []byte {
	return ie.msg.buf[ie.off+ieHeaderLen : ie.off+ieHeaderLen+int(ie.Length())]
}
