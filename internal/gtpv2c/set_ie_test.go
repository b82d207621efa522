package gtpv2c

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtpv2c-generator/pkg/types"
)

// ieRegion returns the bytes appended after the fixed header so tests can
// compare whole IEs against their expected wire form.
func ieRegion(m *Message) []byte {
	return m.Bytes()[gtpcHeaderLen+teidSeqLen:]
}

func TestAddCauseAccepted_FixedPayload(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	n, err := m.AddCauseAccepted(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(9), n)

	expected := []byte{
		IETypeCause, 0x00, 0x05, 0x00,
		16, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, expected, ieRegion(m))
}

func TestAddARP_BitPacking(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	n, err := m.AddARP(0, types.ARP{
		PriorityLevel:           11,
		PreemptionCapability:    true,
		PreemptionVulnerability: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(5), n)

	// PVI bit 0, priority level bits 2-5, PCI bit 6.
	expected := []byte{IETypeARP, 0x00, 0x01, 0x00, 0x6D}
	assert.Equal(t, expected, ieRegion(m))
}

func TestAddIPv4FTEID_Layout(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	n, err := m.AddIPv4FTEID(1, IfTypeS11S4SGWGTPC, 0xDEADBEEF, net.ParseIP("192.168.0.1"))
	require.NoError(t, err)
	assert.Equal(t, uint16(13), n)

	expected := []byte{
		IETypeFTEID, 0x00, 0x09, 0x01,
		0x80 | IfTypeS11S4SGWGTPC, // v4 set, v6 clear
		0xDE, 0xAD, 0xBE, 0xEF,
		192, 168, 0, 1,
	}
	assert.Equal(t, expected, ieRegion(m))
}

func TestAddIPv4FTEID_RejectsNonIPv4(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	_, err := m.AddIPv4FTEID(0, IfTypeS1USGWGTPU, 1, net.ParseIP("2001:db8::1"))
	assert.Error(t, err)
	assert.Equal(t, uint16(8), m.Length(), "rejected IE must not move the cursor")
}

func TestAddIPv4PAA_Layout(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	n, err := m.AddIPv4PAA(0, net.ParseIP("10.60.0.5"))
	require.NoError(t, err)
	assert.Equal(t, uint16(9), n)

	expected := []byte{
		IETypePAA, 0x00, 0x05, 0x00,
		0x01, // PDN type IPv4
		10, 60, 0, 5,
	}
	assert.Equal(t, expected, ieRegion(m))
}

func TestAddScalarIEs(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	n, err := m.AddPTI(0, 5)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), n)

	n, err = m.AddAPNRestriction(0, 3)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), n)

	n, err = m.AddRecovery(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), n)

	expected := []byte{
		IETypePTI, 0x00, 0x01, 0x00, 5,
		IETypeAPNRestriction, 0x00, 0x01, 0x00, 3,
		IETypeRecovery, 0x00, 0x01, 0x00, 0,
	}
	assert.Equal(t, expected, ieRegion(m))
}

func TestAddEBI_OutOfRangeEncodedVerbatim(t *testing.T) {
	m := New(MsgTypeCreateBearerRequest, 1, 1)

	n, err := m.AddEBI(0, 16)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), n)

	expected := []byte{IETypeEBI, 0x00, 0x01, 0x00, 16}
	assert.Equal(t, expected, ieRegion(m))
}

func TestAddBearerQoS_CopiesProfileVerbatim(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	qos := types.BearerQoS{
		ARP: types.ARP{PriorityLevel: 9},
	}
	for i := range qos.Profile {
		qos.Profile[i] = byte(i + 1)
	}

	n, err := m.AddBearerQoS(2, qos)
	require.NoError(t, err)
	assert.Equal(t, uint16(ieHeaderLen+bearerQoSPayloadLen), n)

	region := ieRegion(m)
	assert.Equal(t, []byte{IETypeBearerQoS, 0x00, 22, 0x02}, region[:4])
	assert.Equal(t, uint8(9<<2), region[4])
	assert.Equal(t, qos.Profile[:], region[5:])
}

func TestOpenGroup_CloseAccumulatesChildren(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	group, err := m.OpenGroup(IETypeBearerContext, 0)
	require.NoError(t, err)

	_, err = m.AddEBI(0, 5)
	require.NoError(t, err)
	_, err = m.AddIPv4PAA(0, net.ParseIP("10.0.0.1"))
	require.NoError(t, err)

	n := group.Close()

	// Children: EBI (4+1) + PAA (4+5).
	assert.Equal(t, uint16(14), group.ie.Length())
	assert.Equal(t, uint16(18), n)
	assert.Equal(t, uint16(8+4+14), m.Length())

	region := ieRegion(m)
	assert.Equal(t, []byte{IETypeBearerContext, 0x00, 14, 0x00}, region[:4])
	assert.Equal(t, IETypeEBI, region[4], "first child follows the container header")
}

func TestOpenGroup_EmptyGroupHasZeroLength(t *testing.T) {
	m := New(MsgTypeCreateSessionResponse, 1, 1)

	group, err := m.OpenGroup(IETypeBearerContext, 1)
	require.NoError(t, err)
	n := group.Close()

	assert.Equal(t, uint16(ieHeaderLen), n)
	assert.Equal(t, uint16(0), group.ie.Length())
}
