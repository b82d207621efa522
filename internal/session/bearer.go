package session

import (
	"fmt"
	"net"
	"sync"

	"gtpv2c-generator/internal/config"
	"gtpv2c-generator/pkg/types"
)

// FilterStore owns the packet-filter domain objects bearers reference by
// index. Filters are immutable once installed; the TFT encoder reads them
// through the FilterLookup interface.
type FilterStore struct {
	filters []types.PacketFilter
	mu      sync.RWMutex
}

// NewFilterStore creates an empty packet-filter store.
func NewFilterStore() *FilterStore {
	return &FilterStore{}
}

// Install adds a filter and returns its index.
func (s *FilterStore) Install(pf types.PacketFilter) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, pf)
	return len(s.filters) - 1
}

// PacketFilter resolves a filter index. The second return is false for
// indices that were never installed.
func (s *FilterStore) PacketFilter(id int) (*types.PacketFilter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.filters) {
		return nil, false
	}
	return &s.filters[id], true
}

// Count returns the number of installed filters.
func (s *FilterStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filters)
}

// BuildQoSProfile packs the QoS byte block the Bearer QoS IE copies
// verbatim: QCI followed by MBR uplink/downlink and GBR uplink/downlink as
// 40-bit big-endian kbps values, TS 29.274 clause 8.15.
func BuildQoSProfile(qci uint8, mbrUL, mbrDL, gbrUL, gbrDL uint64) [types.QoSProfileLen]byte {
	var p [types.QoSProfileLen]byte
	p[0] = qci
	put40(p[1:6], mbrUL)
	put40(p[6:11], mbrDL)
	put40(p[11:16], gbrUL)
	put40(p[16:21], gbrDL)
	return p
}

func put40(b []byte, v uint64) {
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
}

func parseDirection(s string) (uint8, error) {
	switch s {
	case "downlink":
		return types.DirectionDownlink, nil
	case "uplink":
		return types.DirectionUplink, nil
	case "bidirectional":
		return types.DirectionBidirectional, nil
	default:
		return 0, fmt.Errorf("unknown filter direction %q", s)
	}
}

// filterFromConfig converts one configured filter spec into the domain
// object the TFT encoder reads. Unset port bounds mean "unrestricted"; a
// set low bound with no high bound means a single port.
func filterFromConfig(fc config.FilterConfig) (types.PacketFilter, error) {
	pf := types.PacketFilter{Precedence: uint8(fc.Precedence)}

	dir, err := parseDirection(fc.Direction)
	if err != nil {
		return pf, err
	}
	pf.Direction = dir

	if fc.RemoteCIDR != "" {
		ip, ipnet, err := net.ParseCIDR(fc.RemoteCIDR)
		if err != nil {
			return pf, fmt.Errorf("invalid remote CIDR %q: %w", fc.RemoteCIDR, err)
		}
		ones, _ := ipnet.Mask.Size()
		pf.RemoteIPAddr = ip.To4()
		pf.RemoteIPMask = uint8(ones)
	}
	if fc.LocalCIDR != "" {
		ip, ipnet, err := net.ParseCIDR(fc.LocalCIDR)
		if err != nil {
			return pf, fmt.Errorf("invalid local CIDR %q: %w", fc.LocalCIDR, err)
		}
		ones, _ := ipnet.Mask.Size()
		pf.LocalIPAddr = ip.To4()
		pf.LocalIPMask = uint8(ones)
	}

	if fc.Proto != 0 {
		pf.Proto = uint8(fc.Proto)
		pf.ProtoMask = 0xff
	}

	pf.RemotePortLow, pf.RemotePortHigh = portBounds(fc.RemotePortLow, fc.RemotePortHigh)
	pf.LocalPortLow, pf.LocalPortHigh = portBounds(fc.LocalPortLow, fc.LocalPortHigh)
	return pf, nil
}

func portBounds(low, high int) (uint16, uint16) {
	if low == 0 && high == 0 {
		return 0, 0xffff
	}
	if high == 0 {
		high = low
	}
	return uint16(low), uint16(high)
}

// BuildBearer installs the configured packet filters into the store and
// returns the bearer the message builders encode. Filters occupy slots in
// configuration order.
func BuildBearer(cfg *config.Config, store *FilterStore) (*types.EpsBearer, error) {
	if len(cfg.Filters) > types.MaxFiltersPerUE {
		return nil, fmt.Errorf("too many packet filters: %d, limit is %d",
			len(cfg.Filters), types.MaxFiltersPerUE)
	}

	bearer := &types.EpsBearer{
		EBI: uint8(cfg.Bearer.EBI),
		QoS: types.BearerQoS{
			ARP: types.ARP{
				PriorityLevel:           uint8(cfg.Bearer.ARPPriorityLevel),
				PreemptionCapability:    cfg.Bearer.ARPPreemptionCapability,
				PreemptionVulnerability: cfg.Bearer.ARPPreemptionVulnerability,
			},
			Profile: BuildQoSProfile(uint8(cfg.Bearer.QCI),
				cfg.Bearer.MBRUplinkKbps, cfg.Bearer.MBRDownlinkKbps,
				cfg.Bearer.GBRUplinkKbps, cfg.Bearer.GBRDownlinkKbps),
		},
	}
	for i := range bearer.PacketFilterMap {
		bearer.PacketFilterMap[i] = types.FilterSlotAbsent
	}

	for i, fc := range cfg.Filters {
		pf, err := filterFromConfig(fc)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		bearer.PacketFilterMap[i] = store.Install(pf)
	}
	return bearer, nil
}
