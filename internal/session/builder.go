package session

import (
	"fmt"
	"net"

	"gtpv2c-generator/internal/gtpv2c"
	"gtpv2c-generator/pkg/types"
)

// Builder assembles outbound GTPv2-C messages for one emulated SGW node.
// Each Build call produces one message; the encoders track the cursor and
// reject overflow, so a builder error means the message must be discarded.
type Builder struct {
	localIP        net.IP
	apnRestriction uint8
	restartCounter uint8
}

// NewBuilder creates a message builder advertising the given local address
// in F-TEID IEs.
func NewBuilder(localIP net.IP, apnRestriction, restartCounter uint8) *Builder {
	return &Builder{
		localIP:        localIP,
		apnRestriction: apnRestriction,
		restartCounter: restartCounter,
	}
}

// BuildCreateSessionResponse builds the accepted response for a new session:
// Cause, control-plane F-TEID, PAA, APN Restriction, Recovery and a Bearer
// Context container carrying the default bearer's EBI, user-plane F-TEID
// and QoS.
func (b *Builder) BuildCreateSessionResponse(sess *types.SessionInfo, bearer *types.EpsBearer, seq uint32) (*gtpv2c.Message, error) {
	m := gtpv2c.New(gtpv2c.MsgTypeCreateSessionResponse, sess.RemoteTEID, seq)

	if _, err := m.AddCauseAccepted(0); err != nil {
		return nil, fmt.Errorf("cause: %w", err)
	}
	if _, err := m.AddIPv4FTEID(0, gtpv2c.IfTypeS11S4SGWGTPC, sess.LocalTEID, b.localIP); err != nil {
		return nil, fmt.Errorf("sender F-TEID: %w", err)
	}
	if _, err := m.AddIPv4PAA(0, sess.UEIP); err != nil {
		return nil, fmt.Errorf("PAA: %w", err)
	}
	if _, err := m.AddAPNRestriction(0, b.apnRestriction); err != nil {
		return nil, fmt.Errorf("APN restriction: %w", err)
	}
	if _, err := m.AddRecovery(0, b.restartCounter); err != nil {
		return nil, fmt.Errorf("recovery: %w", err)
	}

	group, err := m.OpenGroup(gtpv2c.IETypeBearerContext, 0)
	if err != nil {
		return nil, fmt.Errorf("bearer context: %w", err)
	}
	if _, err := m.AddEBI(0, bearer.EBI); err != nil {
		return nil, fmt.Errorf("EBI: %w", err)
	}
	if _, err := m.AddIPv4FTEID(0, gtpv2c.IfTypeS1USGWGTPU, sess.LocalTEID, b.localIP); err != nil {
		return nil, fmt.Errorf("S1-U F-TEID: %w", err)
	}
	if _, err := m.AddBearerQoS(0, bearer.QoS); err != nil {
		return nil, fmt.Errorf("bearer QoS: %w", err)
	}
	group.Close()

	return m, nil
}

// BuildCreateBearerRequest builds a dedicated-bearer activation request:
// PTI and a Bearer Context container carrying the EBI, the Bearer TFT built
// from the bearer's packet-filter slots, the user-plane F-TEID and QoS.
func (b *Builder) BuildCreateBearerRequest(sess *types.SessionInfo, bearer *types.EpsBearer, filters gtpv2c.FilterLookup, pti uint8, seq uint32) (*gtpv2c.Message, error) {
	m := gtpv2c.New(gtpv2c.MsgTypeCreateBearerRequest, sess.RemoteTEID, seq)

	if _, err := m.AddPTI(0, pti); err != nil {
		return nil, fmt.Errorf("PTI: %w", err)
	}

	group, err := m.OpenGroup(gtpv2c.IETypeBearerContext, 0)
	if err != nil {
		return nil, fmt.Errorf("bearer context: %w", err)
	}
	if _, err := m.AddEBI(0, bearer.EBI); err != nil {
		return nil, fmt.Errorf("EBI: %w", err)
	}
	if _, err := m.AddBearerTFT(0, bearer, filters); err != nil {
		return nil, fmt.Errorf("bearer TFT: %w", err)
	}
	if _, err := m.AddIPv4FTEID(0, gtpv2c.IfTypeS1USGWGTPU, sess.LocalTEID, b.localIP); err != nil {
		return nil, fmt.Errorf("S1-U F-TEID: %w", err)
	}
	if _, err := m.AddBearerQoS(0, bearer.QoS); err != nil {
		return nil, fmt.Errorf("bearer QoS: %w", err)
	}
	group.Close()

	return m, nil
}
