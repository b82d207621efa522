package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gtpv2c-generator/internal/config"
	"gtpv2c-generator/internal/gtpv2c"
	"gtpv2c-generator/internal/network"
	"gtpv2c-generator/internal/pcap"
	"gtpv2c-generator/internal/stats"
	"gtpv2c-generator/pkg/types"
)

// Manager orchestrates the session generation workflow: for each session it
// allocates identifiers, builds the Create Session Response and Create
// Bearer Request messages, and dispatches them to the peer, the capture
// writer, or both.
type Manager struct {
	cfg       *config.Config
	client    *network.UDPClient // nil in dry-run mode
	receiver  *network.Receiver
	tracker   *network.TransactionTracker
	builder   *Builder
	store     *FilterStore
	bearer    *types.EpsBearer
	teidAlloc *TEIDAllocator
	ipPool    *UEIPv4Pool
	stats     *stats.Collector
	capture   *pcap.Writer // nil when pcap output is disabled
	seq       *SequenceCounter

	sessions map[uint32]*types.SessionInfo // by local TEID
	mu       sync.RWMutex
}

// SequenceCounter hands out GTPv2-C sequence numbers (24-bit, wrapping).
type SequenceCounter struct {
	current uint32
	mu      sync.Mutex
}

// Next returns the next sequence number.
func (s *SequenceCounter) Next() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current++
	if s.current > 0xFFFFFF {
		s.current = 1
	}
	return s.current
}

// NewManager creates a session manager. client may be nil for dry-run mode
// and capture may be nil when no pcap output is configured.
func NewManager(
	cfg *config.Config,
	client *network.UDPClient,
	receiver *network.Receiver,
	tracker *network.TransactionTracker,
	statsCollector *stats.Collector,
	capture *pcap.Writer,
) (*Manager, error) {
	store := NewFilterStore()
	bearer, err := BuildBearer(cfg, store)
	if err != nil {
		return nil, fmt.Errorf("failed to build bearer: %w", err)
	}

	ipPool, err := NewUEIPv4Pool(cfg.Session.UEIPPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create UE IP pool: %w", err)
	}

	return &Manager{
		cfg:       cfg,
		client:    client,
		receiver:  receiver,
		tracker:   tracker,
		builder:   NewBuilder(net.ParseIP(cfg.Local.Address), uint8(cfg.Session.APNRestriction), uint8(cfg.Session.RestartCounter)),
		store:     store,
		bearer:    bearer,
		teidAlloc: NewTEIDAllocator(cfg.Session.TEIDStrategy, cfg.Session.TEIDStart),
		ipPool:    ipPool,
		stats:     statsCollector,
		capture:   capture,
		seq:       &SequenceCounter{},
		sessions:  make(map[uint32]*types.SessionInfo),
	}, nil
}

// Run generates all configured sessions in order.
func (m *Manager) Run(ctx context.Context) error {
	if m.receiver != nil {
		go m.handleResponses(ctx)
	}

	interval := time.Duration(m.cfg.Timing.MessageIntervalMs) * time.Millisecond

	for i := 0; i < m.cfg.Session.Count; i++ {
		select {
		case <-ctx.Done():
			log.Info("Generation cancelled")
			return ctx.Err()
		default:
		}

		if err := m.generateSession(ctx, i); err != nil {
			log.WithError(err).WithField("index", i).Error("Failed to generate session")
			m.stats.RecordSessionFailed()
		}

		if interval > 0 && i < m.cfg.Session.Count-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return nil
}

func (m *Manager) generateSession(ctx context.Context, index int) error {
	teid, err := m.teidAlloc.Allocate()
	if err != nil {
		return fmt.Errorf("failed to allocate TEID: %w", err)
	}

	ueIP, err := m.ipPool.Allocate()
	if err != nil {
		m.teidAlloc.Release(teid)
		return fmt.Errorf("failed to allocate UE IP: %w", err)
	}

	sess := &types.SessionInfo{
		LocalTEID:  teid,
		RemoteTEID: m.cfg.Session.PeerTEIDStart + uint32(index),
		UEIP:       ueIP,
		State:      "created",
		CreatedAt:  time.Now(),
	}
	m.mu.Lock()
	m.sessions[teid] = sess
	m.mu.Unlock()

	// Create Session Response: unsolicited in this workflow, nothing to
	// track.
	seq := m.seq.Next()
	csr, err := m.builder.BuildCreateSessionResponse(sess, m.bearer, seq)
	if err != nil {
		return fmt.Errorf("failed to build Create Session Response: %w", err)
	}
	if err := m.dispatch("CreateSessionResponse", csr); err != nil {
		return err
	}
	m.stats.RecordSessionCreated()

	log.WithFields(log.Fields{
		"seq":        seq,
		"local_teid": teid,
		"ue_ip":      ueIP,
	}).Info("Sent Create Session Response")

	return m.activateBearer(ctx, sess)
}

// activateBearer sends the Create Bearer Request carrying the TFT and waits
// for the peer's answer.
func (m *Manager) activateBearer(ctx context.Context, sess *types.SessionInfo) error {
	seq := m.seq.Next()
	pti := uint8(m.cfg.Session.PTIStart)

	cbr, err := m.builder.BuildCreateBearerRequest(sess, m.bearer, m.store, pti, seq)
	if err != nil {
		return fmt.Errorf("failed to build Create Bearer Request: %w", err)
	}

	msgTypeName := "CreateBearerRequest"
	if m.client == nil {
		// Dry-run: record the message and treat the bearer as activated.
		if err := m.dispatch(msgTypeName, cbr); err != nil {
			return err
		}
		sess.State = "active"
		m.stats.RecordBearerActivated()
		return nil
	}

	data := cbr.Bytes()
	resultCh := m.tracker.Track(seq, data)
	if err := m.dispatch(msgTypeName, cbr); err != nil {
		return err
	}
	sess.State = "bearer_pending"

	log.WithFields(log.Fields{
		"seq":        seq,
		"local_teid": sess.LocalTEID,
		"filters":    m.store.Count(),
	}).Info("Sent Create Bearer Request")

	result := m.waitForResult(ctx, resultCh)
	if result.Error != nil {
		if errors.Is(result.Error, network.ErrTimeout) {
			m.stats.RecordTimeout(msgTypeName)
		} else {
			m.stats.RecordFailure(msgTypeName)
		}
		sess.State = "failed"
		return fmt.Errorf("Create Bearer Request failed: %w", result.Error)
	}

	m.stats.RecordSuccess(msgTypeName, result.ResponseTime)
	m.stats.RecordBearerActivated()
	sess.State = "active"

	log.WithFields(log.Fields{
		"seq":           seq,
		"response_time": result.ResponseTime.Round(time.Microsecond),
	}).Info("Bearer activated")
	return nil
}

// dispatch writes the message to the capture file and/or the wire.
func (m *Manager) dispatch(msgTypeName string, msg *gtpv2c.Message) error {
	data := msg.Bytes()

	if m.capture != nil {
		if err := m.capture.WriteMessage(data); err != nil {
			log.WithError(err).Warn("Failed to write message to pcap")
		}
	}
	if m.client == nil {
		return nil
	}

	m.stats.RecordSent(msgTypeName, len(data))
	if err := m.client.Send(data); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgTypeName, err)
	}
	return nil
}

func (m *Manager) handleResponses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rm, ok := <-m.receiver.Messages():
			if !ok {
				return
			}
			m.stats.RecordReceived(rm.Message.MessageTypeName())
			if gtpv2c.IsTriggeredResponse(rm.Message) {
				m.tracker.Resolve(rm.Message.Sequence(), rm.Data)
			} else {
				log.WithFields(log.Fields{
					"msg_type": rm.Message.MessageTypeName(),
					"from":     rm.From,
				}).Debug("Ignoring unsolicited message")
			}
		}
	}
}

func (m *Manager) waitForResult(ctx context.Context, ch <-chan types.TransactionResult) types.TransactionResult {
	select {
	case <-ctx.Done():
		return types.TransactionResult{Error: ctx.Err()}
	case result := <-ch:
		return result
	}
}

// SessionCount returns the number of sessions tracked by the manager.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
