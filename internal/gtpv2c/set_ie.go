package gtpv2c

import (
	"encoding/binary"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"gtpv2c-generator/pkg/types"
)

// Payload sizes of the fixed-shape IEs in scope.
const (
	causePayloadLen     = 5
	arpPayloadLen       = 1
	fteidIPv4PayloadLen = 9
	paaIPv4PayloadLen   = 5
	bearerQoSPayloadLen = 1 + types.QoSProfileLen
)

// addUint8IE appends a single-octet IE and returns its footprint.
func (m *Message) addUint8IE(ieType, instance, value uint8) (uint16, error) {
	ie, err := m.reserve(ieType, instance, 1)
	if err != nil {
		return 0, err
	}
	ie.payload()[0] = value
	return ie.TrailingSize(), nil
}

// AddCauseAccepted appends a Cause IE with the fixed "request accepted"
// value and all error/source sub-fields cleared.
func (m *Message) AddCauseAccepted(instance uint8) (uint16, error) {
	ie, err := m.reserve(IETypeCause, instance, causePayloadLen)
	if err != nil {
		return 0, err
	}
	p := ie.payload()
	p[0] = CauseRequestAccepted
	p[1] = 0 // cause source, bearer-context error, PDN-connection error
	p[2] = 0 // offending IE type
	p[3] = 0 // offending IE length
	p[4] = 0
	return ie.TrailingSize(), nil
}

// arpOctet packs the Allocation/Retention Priority bit layout: PVI in bit 0,
// priority level in bits 2-5, PCI in bit 6, spare elsewhere.
func arpOctet(arp types.ARP) uint8 {
	var b uint8
	if arp.PreemptionVulnerability {
		b |= 0x01
	}
	b |= (arp.PriorityLevel & 0x0f) << 2
	if arp.PreemptionCapability {
		b |= 0x40
	}
	return b
}

// AddARP appends an Allocation/Retention Priority IE from the bearer's ARP
// attributes.
func (m *Message) AddARP(instance uint8, arp types.ARP) (uint16, error) {
	ie, err := m.reserve(IETypeARP, instance, arpPayloadLen)
	if err != nil {
		return 0, err
	}
	ie.payload()[0] = arpOctet(arp)
	return ie.TrailingSize(), nil
}

// AddIPv4FTEID appends a Fully Qualified TEID IE: v4 flag set, v6 clear, the
// interface type discriminator, the tunnel endpoint identifier and the IPv4
// address.
func (m *Message) AddIPv4FTEID(instance, ifType uint8, teid uint32, addr net.IP) (uint16, error) {
	ip4 := addr.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("F-TEID requires an IPv4 address, got %v", addr)
	}

	ie, err := m.reserve(IETypeFTEID, instance, fteidIPv4PayloadLen)
	if err != nil {
		return 0, err
	}
	p := ie.payload()
	p[0] = 0x80 | (ifType & 0x3f) // v4 set, v6 clear
	binary.BigEndian.PutUint32(p[1:5], teid)
	copy(p[5:9], ip4)
	return ie.TrailingSize(), nil
}

// AddIPv4PAA appends a PDN Address Allocation IE with PDN type IPv4.
func (m *Message) AddIPv4PAA(instance uint8, addr net.IP) (uint16, error) {
	ip4 := addr.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("PAA requires an IPv4 address, got %v", addr)
	}

	ie, err := m.reserve(IETypePAA, instance, paaIPv4PayloadLen)
	if err != nil {
		return 0, err
	}
	p := ie.payload()
	p[0] = 0x01 // PDN type IPv4, spare cleared
	copy(p[1:5], ip4)
	return ie.TrailingSize(), nil
}

// AddAPNRestriction appends an APN Restriction IE.
func (m *Message) AddAPNRestriction(instance, restriction uint8) (uint16, error) {
	return m.addUint8IE(IETypeAPNRestriction, instance, restriction)
}

// AddEBI appends an EPS Bearer ID IE. EBI is a 4-bit identifier; values
// above 15 are logged and still encoded verbatim so the peer sees exactly
// what the caller supplied.
func (m *Message) AddEBI(instance, ebi uint8) (uint16, error) {
	if ebi&0xf0 != 0 {
		log.WithField("ebi", ebi).Warn("EBI value exceeds 4 bits, encoding as-is")
	}
	return m.addUint8IE(IETypeEBI, instance, ebi)
}

// AddPTI appends a Procedure Transaction ID IE.
func (m *Message) AddPTI(instance, pti uint8) (uint16, error) {
	return m.addUint8IE(IETypePTI, instance, pti)
}

// AddRecovery appends a Recovery IE carrying the local restart counter.
func (m *Message) AddRecovery(instance, restartCounter uint8) (uint16, error) {
	return m.addUint8IE(IETypeRecovery, instance, restartCounter)
}

// AddBearerQoS appends a Bearer QoS IE: the ARP octet followed by the
// bearer's pre-formed QoS profile block, copied verbatim.
func (m *Message) AddBearerQoS(instance uint8, qos types.BearerQoS) (uint16, error) {
	ie, err := m.reserve(IETypeBearerQoS, instance, bearerQoSPayloadLen)
	if err != nil {
		return 0, err
	}
	p := ie.payload()
	p[0] = arpOctet(qos.ARP)
	copy(p[1:], qos.Profile[:])
	return ie.TrailingSize(), nil
}

// GroupedIE is an open container IE (e.g. Bearer Context) whose children are
// appended by further encoder calls on the same message. Child sizes are
// accumulated through the header length field, so Close derives the
// container length without any caller arithmetic.
type GroupedIE struct {
	ie      *IE
	openLen uint16
}

// OpenGroup appends a zero-length container IE. Every IE appended before
// Close lands inside the container's logical region.
func (m *Message) OpenGroup(ieType, instance uint8) (*GroupedIE, error) {
	ie, err := m.reserve(ieType, instance, 0)
	if err != nil {
		return nil, err
	}
	return &GroupedIE{ie: ie, openLen: m.Length()}, nil
}

// Close back-patches the container's length field with the bytes its
// children added since OpenGroup. Returns the container's full footprint.
func (g *GroupedIE) Close() uint16 {
	g.ie.setLength(g.ie.msg.Length() - g.openLen)
	return g.ie.TrailingSize()
}
