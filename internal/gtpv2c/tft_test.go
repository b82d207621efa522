package gtpv2c

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtpv2c-generator/pkg/types"
)

type stubLookup map[int]*types.PacketFilter

func (s stubLookup) PacketFilter(id int) (*types.PacketFilter, bool) {
	pf, ok := s[id]
	return pf, ok
}

func emptyBearer() *types.EpsBearer {
	b := &types.EpsBearer{EBI: 5}
	for i := range b.PacketFilterMap {
		b.PacketFilterMap[i] = types.FilterSlotAbsent
	}
	return b
}

func TestAddBearerTFT_NoFilters(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	n, err := m.AddBearerTFT(0, emptyBearer(), stubLookup{})
	require.NoError(t, err)
	assert.Equal(t, uint16(ieHeaderLen+tftMetaLen), n)

	expected := []byte{
		IETypeBearerTFT, 0x00, 0x02, 0x00,
		tftOpCreateNew, // zero packet filters
		0x00,           // no parameter list
	}
	assert.Equal(t, expected, ieRegion(m))
	assert.Equal(t, uint16(8+6), m.Length())
}

func TestAddBearerTFT_RemoteAddrAndSinglePort(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	bearer := emptyBearer()
	bearer.PacketFilterMap[0] = 7
	store := stubLookup{7: {
		Direction:      types.DirectionDownlink,
		Precedence:     10,
		RemoteIPAddr:   net.ParseIP("93.184.216.0"),
		RemoteIPMask:   24,
		RemotePortLow:  80,
		RemotePortHigh: 80,
		LocalPortLow:   0,
		LocalPortHigh:  0xffff, // unrestricted, omitted
	}}

	n, err := m.AddBearerTFT(0, bearer, store)
	require.NoError(t, err)

	// Exactly two components: remote address then single remote port.
	expected := []byte{
		IETypeBearerTFT, 0x00, 17, 0x00,
		tftOpCreateNew | 1, 0x00,
		0x10, // filter id 0, direction downlink
		10,   // precedence
		12,   // component block length
		pfCompIPv4RemoteAddr, 93, 184, 216, 0, 0xff, 0xff, 0xff, 0x00,
		pfCompSingleRemotePort, 0x00, 80,
	}
	assert.Equal(t, expected, ieRegion(m))
	assert.Equal(t, uint16(ieHeaderLen+17), n)
}

func TestAddBearerTFT_AllComponentKinds(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	bearer := emptyBearer()
	bearer.PacketFilterMap[2] = 0
	store := stubLookup{0: {
		Direction:      types.DirectionBidirectional,
		Precedence:     255,
		RemoteIPAddr:   net.ParseIP("10.1.0.0"),
		RemoteIPMask:   16,
		LocalIPAddr:    net.ParseIP("10.60.0.8"),
		LocalIPMask:    32,
		Proto:          17,
		ProtoMask:      0xff,
		RemotePortLow:  2152,
		RemotePortHigh: 2152,
		LocalPortLow:   1000,
		LocalPortHigh:  2000,
	}}

	_, err := m.AddBearerTFT(0, bearer, store)
	require.NoError(t, err)

	expected := []byte{
		IETypeBearerTFT, 0x00, 2 + 3 + 9 + 9 + 2 + 3 + 5, 0x00,
		tftOpCreateNew | 1, 0x00,
		0x32, // filter id 2, direction bidirectional
		255,
		9 + 9 + 2 + 3 + 5,
		pfCompIPv4RemoteAddr, 10, 1, 0, 0, 0xff, 0xff, 0x00, 0x00,
		pfCompIPv4LocalAddr, 10, 60, 0, 8, 0xff, 0xff, 0xff, 0xff,
		pfCompProtocolID, 17,
		pfCompSingleRemotePort, 0x08, 0x68,
		pfCompLocalPortRange, 0x03, 0xE8, 0x07, 0xD0,
	}
	assert.Equal(t, expected, ieRegion(m))
}

func TestAddBearerTFT_SlotOrderPreserved(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	bearer := emptyBearer()
	bearer.PacketFilterMap[3] = 1
	bearer.PacketFilterMap[9] = 2
	store := stubLookup{
		// Higher precedence on the later slot; encoding order must still
		// follow slot order, not precedence.
		1: {Direction: types.DirectionUplink, Precedence: 200, RemotePortLow: 443, RemotePortHigh: 443, LocalPortLow: 0, LocalPortHigh: 0xffff},
		2: {Direction: types.DirectionUplink, Precedence: 10, RemotePortLow: 53, RemotePortHigh: 53, LocalPortLow: 0, LocalPortHigh: 0xffff},
	}

	_, err := m.AddBearerTFT(0, bearer, store)
	require.NoError(t, err)

	region := ieRegion(m)
	assert.Equal(t, tftOpCreateNew|2, region[4])

	first := region[6]
	second := region[6+3+3]
	assert.Equal(t, uint8(0x23), first, "slot 3, uplink")
	assert.Equal(t, uint8(0x29), second, "slot 9, uplink")
}

func TestAddBearerTFT_DanglingReferenceSkipped(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	bearer := emptyBearer()
	bearer.PacketFilterMap[0] = 42 // nothing stored under 42

	n, err := m.AddBearerTFT(0, bearer, stubLookup{})
	require.NoError(t, err)

	assert.Equal(t, uint16(ieHeaderLen+tftMetaLen), n)
	assert.Equal(t, tftOpCreateNew, ieRegion(m)[4], "dangling slot must not count a filter")
}

func TestAddBearerTFT_CapacityExceeded(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	// Leave fewer bytes than one filter record needs.
	_, err := m.reserve(IETypeBearerContext, 0, uint16(MaxMessageLength-m.Len()-ieHeaderLen-10))
	require.NoError(t, err)
	before := m.Length()

	bearer := emptyBearer()
	bearer.PacketFilterMap[0] = 0
	store := stubLookup{0: {
		Direction: types.DirectionUplink, RemoteIPAddr: net.ParseIP("10.0.0.0"), RemoteIPMask: 8,
		RemotePortLow: 0, RemotePortHigh: 0xffff, LocalPortLow: 0, LocalPortHigh: 0xffff,
	}}

	_, err = m.AddBearerTFT(0, bearer, store)
	require.Error(t, err)

	var capErr *CapacityError
	assert.ErrorAs(t, err, &capErr)
	assert.Equal(t, before, m.Length(), "failed TFT must not advance the committed length")
}
