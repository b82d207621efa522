package gtpv2c

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"

	"gtpv2c-generator/pkg/types"
)

// FilterLookup resolves a packet-filter reference from a bearer's slot map.
// The encoder only reads through it; a failed lookup is skipped silently.
type FilterLookup interface {
	PacketFilter(id int) (*types.PacketFilter, bool)
}

// Packet filter component type codes, TS 24.008 Table 10.5.162.
const (
	pfCompIPv4RemoteAddr   uint8 = 0x10
	pfCompIPv4LocalAddr    uint8 = 0x11
	pfCompProtocolID       uint8 = 0x30
	pfCompSingleLocalPort  uint8 = 0x40
	pfCompLocalPortRange   uint8 = 0x41
	pfCompSingleRemotePort uint8 = 0x50
	pfCompRemotePortRange  uint8 = 0x51
)

const (
	// tftOpCreateNew is the "create new TFT" operation code in bits 5-7 of
	// the first TFT octet, E bit clear.
	tftOpCreateNew uint8 = 0x20

	// tftMetaLen is the fixed TFT payload prefix: op-code/num-filters octet
	// and the parameter-list length octet.
	tftMetaLen = 2

	// pfRecordHeaderLen is the fixed part of one packet-filter record:
	// direction/id octet, precedence, component-block length.
	pfRecordHeaderLen = 3
)

// pfComponent is one tagged filter component. Only the fields its type needs
// are meaningful.
type pfComponent struct {
	typ      uint8
	addr     [4]byte
	mask     [4]byte
	proto    uint8
	portLow  uint16
	portHigh uint16
}

func (c pfComponent) size() int {
	switch c.typ {
	case pfCompIPv4RemoteAddr, pfCompIPv4LocalAddr:
		return 1 + 4 + 4
	case pfCompProtocolID:
		return 1 + 1
	case pfCompSingleRemotePort, pfCompSingleLocalPort:
		return 1 + 2
	default: // port range
		return 1 + 2 + 2
	}
}

// marshal writes the component into b, which must hold size() bytes.
func (c pfComponent) marshal(b []byte) {
	b[0] = c.typ
	switch c.typ {
	case pfCompIPv4RemoteAddr, pfCompIPv4LocalAddr:
		copy(b[1:5], c.addr[:])
		copy(b[5:9], c.mask[:])
	case pfCompProtocolID:
		b[1] = c.proto
	case pfCompSingleRemotePort, pfCompSingleLocalPort:
		binary.BigEndian.PutUint16(b[1:3], c.portLow)
	default:
		binary.BigEndian.PutUint16(b[1:3], c.portLow)
		binary.BigEndian.PutUint16(b[3:5], c.portHigh)
	}
}

func addrComponent(typ uint8, addr []byte, maskBits uint8) pfComponent {
	c := pfComponent{typ: typ}
	copy(c.addr[:], addr)
	binary.BigEndian.PutUint32(c.mask[:], ^uint32(0)<<(32-maskBits))
	return c
}

// portComponents applies the single/range/unrestricted policy shared by the
// remote and local port predicates: equal bounds encode a single port, a
// full-space range encodes nothing, anything else encodes a range.
func portComponents(comps []pfComponent, singleType, rangeType uint8, low, high uint16) []pfComponent {
	if low == high {
		return append(comps, pfComponent{typ: singleType, portLow: low})
	}
	if low != 0 || high != 0xffff {
		return append(comps, pfComponent{typ: rangeType, portLow: low, portHigh: high})
	}
	return comps
}

// buildFilterComponents evaluates the presence predicates in their fixed
// order (remote address, local address, protocol, remote port, local port)
// and returns the components the filter encodes.
func buildFilterComponents(pf *types.PacketFilter) []pfComponent {
	var comps []pfComponent

	if pf.RemoteIPMask != 0 {
		comps = append(comps, addrComponent(pfCompIPv4RemoteAddr, pf.RemoteIPAddr.To4(), pf.RemoteIPMask))
	}
	if pf.LocalIPMask != 0 {
		comps = append(comps, addrComponent(pfCompIPv4LocalAddr, pf.LocalIPAddr.To4(), pf.LocalIPMask))
	}
	if pf.ProtoMask != 0 {
		comps = append(comps, pfComponent{typ: pfCompProtocolID, proto: pf.Proto})
	}
	comps = portComponents(comps, pfCompSingleRemotePort, pfCompRemotePortRange,
		pf.RemotePortLow, pf.RemotePortHigh)
	comps = portComponents(comps, pfCompSingleLocalPort, pfCompLocalPortRange,
		pf.LocalPortLow, pf.LocalPortHigh)
	return comps
}

// AddBearerTFT appends a Bearer TFT IE with one "create new TFT" packet
// filter record per occupied slot of the bearer, in slot order. The IE is
// reserved unsized; record bytes advance a raw cursor past the reserved
// header and the total payload is committed once all slots are processed.
func (m *Message) AddBearerTFT(instance uint8, bearer *types.EpsBearer, filters FilterLookup) (uint16, error) {
	ie, err := m.reserveUnsized(IETypeBearerTFT, instance)
	if err != nil {
		return 0, err
	}

	metaOff := ie.off + ieHeaderLen
	if metaOff+tftMetaLen > MaxMessageLength {
		return 0, &CapacityError{IEType: IETypeBearerTFT, Needed: metaOff + tftMetaLen}
	}

	w := metaOff + tftMetaLen
	numFilters := 0

	for slot, ref := range bearer.PacketFilterMap {
		if ref == types.FilterSlotAbsent {
			continue
		}
		pf, ok := filters.PacketFilter(ref)
		if !ok {
			log.WithFields(log.Fields{"slot": slot, "filter": ref}).
				Debug("Packet filter reference did not resolve, skipping slot")
			continue
		}

		comps := buildFilterComponents(pf)
		contentLen := 0
		for _, c := range comps {
			contentLen += c.size()
		}

		recordLen := pfRecordHeaderLen + contentLen
		if w+recordLen > MaxMessageLength {
			return 0, &CapacityError{IEType: IETypeBearerTFT, Needed: w + recordLen}
		}

		m.buf[w] = uint8(slot)&0x0f | (pf.Direction&0x03)<<4
		m.buf[w+1] = pf.Precedence
		m.buf[w+2] = uint8(contentLen)

		off := w + pfRecordHeaderLen
		for _, c := range comps {
			c.marshal(m.buf[off:])
			off += c.size()
		}

		w += recordLen
		numFilters++
	}

	m.buf[metaOff] = tftOpCreateNew | uint8(numFilters)&0x0f
	m.buf[metaOff+1] = 0 // no parameter list

	if err := m.commitSize(ie, uint16(w-metaOff)); err != nil {
		return 0, err
	}
	return ie.TrailingSize(), nil
}
