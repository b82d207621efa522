package types

import (
	"net"
	"time"
)

// MaxFiltersPerUE is the number of packet-filter slots a bearer carries.
const MaxFiltersPerUE = 16

// FilterSlotAbsent marks an empty slot in a bearer's packet-filter map.
const FilterSlotAbsent = -1

// QoSProfileLen is the size of the pre-formed QoS byte block carried in the
// Bearer QoS IE after the ARP octet: QCI plus four 40-bit bitrates.
const QoSProfileLen = 21

// Packet filter directions, TS 24.008 10.5.6.12.
const (
	DirectionDownlink      uint8 = 1
	DirectionUplink        uint8 = 2
	DirectionBidirectional uint8 = 3
)

// ARP holds the Allocation/Retention Priority attributes of a bearer.
type ARP struct {
	PriorityLevel           uint8 // 1..15, lower is higher priority
	PreemptionCapability    bool
	PreemptionVulnerability bool
}

// BearerQoS holds the QoS attributes of an EPS bearer. Profile is the
// pre-formed byte block copied verbatim into the Bearer QoS IE.
type BearerQoS struct {
	ARP     ARP
	Profile [QoSProfileLen]byte
}

// PacketFilter describes one traffic flow filter. Address and protocol
// attributes are optional; a zero mask means "not specified". A port pair
// with low == 0 and high == 65535 means "unrestricted" and is not encoded.
type PacketFilter struct {
	Direction  uint8
	Precedence uint8

	RemoteIPAddr net.IP
	RemoteIPMask uint8 // prefix length in bits, 0 = absent
	LocalIPAddr  net.IP
	LocalIPMask  uint8

	Proto     uint8
	ProtoMask uint8 // 0 = absent, 0xff = Proto is significant

	RemotePortLow  uint16
	RemotePortHigh uint16
	LocalPortLow   uint16
	LocalPortHigh  uint16
}

// EpsBearer is the domain object the IE encoders read. PacketFilterMap maps
// slot index to an index in the packet-filter store, or FilterSlotAbsent.
type EpsBearer struct {
	EBI             uint8
	QoS             BearerQoS
	PacketFilterMap [MaxFiltersPerUE]int
}

// SessionInfo holds the state of one generated GTPv2-C session.
type SessionInfo struct {
	LocalTEID  uint32 // local control-plane TEID advertised in F-TEID IEs
	RemoteTEID uint32 // peer TEID outbound messages are addressed to
	UEIP       net.IP
	State      string // "created", "bearer_pending", "active", "failed"
	CreatedAt  time.Time
}

// TransactionResult holds the outcome of one tracked request.
type TransactionResult struct {
	SeqNum       uint32
	Response     []byte
	ResponseTime time.Duration
	Error        error
}
