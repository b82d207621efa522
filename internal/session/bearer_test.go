package session

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtpv2c-generator/internal/config"
	"gtpv2c-generator/pkg/types"
)

func TestFilterStore_InstallAndLookup(t *testing.T) {
	store := NewFilterStore()

	id := store.Install(types.PacketFilter{Precedence: 10})
	assert.Equal(t, 0, id)
	assert.Equal(t, 1, store.Count())

	pf, ok := store.PacketFilter(id)
	require.True(t, ok)
	assert.Equal(t, uint8(10), pf.Precedence)

	_, ok = store.PacketFilter(5)
	assert.False(t, ok)
	_, ok = store.PacketFilter(types.FilterSlotAbsent)
	assert.False(t, ok)
}

func TestBuildQoSProfile_Packing(t *testing.T) {
	p := BuildQoSProfile(9, 0x0102030405, 1000, 0, 1)

	assert.Equal(t, byte(9), p[0])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05}, p[1:6], "MBR uplink")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x03, 0xe8}, p[6:11], "MBR downlink")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x00}, p[11:16], "GBR uplink")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x01}, p[16:21], "GBR downlink")
}

func TestFilterFromConfig_CIDRAndProto(t *testing.T) {
	pf, err := filterFromConfig(config.FilterConfig{
		Direction:  "downlink",
		Precedence: 100,
		RemoteCIDR: "203.0.113.0/24",
		LocalCIDR:  "10.60.0.5/32",
		Proto:      17,
	})
	require.NoError(t, err)

	assert.Equal(t, uint8(types.DirectionDownlink), pf.Direction)
	assert.Equal(t, uint8(100), pf.Precedence)
	assert.Equal(t, net.IP{203, 0, 113, 0}, pf.RemoteIPAddr)
	assert.Equal(t, uint8(24), pf.RemoteIPMask)
	assert.Equal(t, net.IP{10, 60, 0, 5}, pf.LocalIPAddr)
	assert.Equal(t, uint8(32), pf.LocalIPMask)
	assert.Equal(t, uint8(17), pf.Proto)
	assert.Equal(t, uint8(0xff), pf.ProtoMask)
}

func TestFilterFromConfig_PortBounds(t *testing.T) {
	cases := []struct {
		name       string
		low, high  int
		wantLow    uint16
		wantHigh   uint16
	}{
		{"unset means unrestricted", 0, 0, 0, 0xffff},
		{"low only means single port", 80, 0, 80, 80},
		{"explicit range", 8000, 8080, 8000, 8080},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pf, err := filterFromConfig(config.FilterConfig{
				Direction:     "uplink",
				RemotePortLow: tc.low, RemotePortHigh: tc.high,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantLow, pf.RemotePortLow)
			assert.Equal(t, tc.wantHigh, pf.RemotePortHigh)
		})
	}
}

func TestFilterFromConfig_BadDirection(t *testing.T) {
	_, err := filterFromConfig(config.FilterConfig{Direction: "sideways"})
	assert.Error(t, err)
}

func TestFilterFromConfig_BadCIDR(t *testing.T) {
	_, err := filterFromConfig(config.FilterConfig{
		Direction:  "downlink",
		RemoteCIDR: "300.0.0.0/24",
	})
	assert.Error(t, err)
}

func TestBuildBearer_SlotMapping(t *testing.T) {
	cfg := &config.Config{
		Bearer: config.BearerConfig{
			EBI: 6, QCI: 7,
			MBRUplinkKbps: 5000, MBRDownlinkKbps: 10000,
			ARPPriorityLevel:        3,
			ARPPreemptionCapability: true,
		},
		Filters: []config.FilterConfig{
			{Direction: "downlink", Precedence: 10, RemoteCIDR: "203.0.113.0/24"},
			{Direction: "uplink", Precedence: 20, Proto: 6},
		},
	}
	store := NewFilterStore()

	bearer, err := BuildBearer(cfg, store)
	require.NoError(t, err)

	assert.Equal(t, uint8(6), bearer.EBI)
	assert.Equal(t, uint8(3), bearer.QoS.ARP.PriorityLevel)
	assert.True(t, bearer.QoS.ARP.PreemptionCapability)
	assert.Equal(t, byte(7), bearer.QoS.Profile[0])

	assert.Equal(t, 2, store.Count())
	assert.Equal(t, 0, bearer.PacketFilterMap[0])
	assert.Equal(t, 1, bearer.PacketFilterMap[1])
	for i := 2; i < types.MaxFiltersPerUE; i++ {
		assert.Equal(t, types.FilterSlotAbsent, bearer.PacketFilterMap[i])
	}
}

func TestBuildBearer_TooManyFilters(t *testing.T) {
	cfg := &config.Config{}
	for i := 0; i <= types.MaxFiltersPerUE; i++ {
		cfg.Filters = append(cfg.Filters, config.FilterConfig{Direction: "uplink"})
	}

	_, err := BuildBearer(cfg, NewFilterStore())
	assert.Error(t, err)
}
