package network

import (
	"context"
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/wmnsk/go-gtp/gtpv2/message"

	"gtpv2c-generator/internal/gtpv2c"
)

// ReceivedMessage represents a GTPv2-C message received from the peer.
type ReceivedMessage struct {
	Message message.Message
	Data    []byte
	From    *net.UDPAddr
}

// Receiver listens for GTPv2-C responses from the peer.
type Receiver struct {
	conn    *net.UDPConn
	msgChan chan ReceivedMessage
}

// NewReceiver creates a receiver using the same UDP connection as the sender.
func NewReceiver(conn *net.UDPConn) *Receiver {
	return &Receiver{
		conn:    conn,
		msgChan: make(chan ReceivedMessage, 1000),
	}
}

// Start begins listening for incoming messages in a goroutine.
func (r *Receiver) Start(ctx context.Context) {
	go r.listen(ctx)
}

// Messages returns the channel of received messages.
func (r *Receiver) Messages() <-chan ReceivedMessage {
	return r.msgChan
}

func (r *Receiver) listen(ctx context.Context) {
	defer close(r.msgChan)

	buf := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return // shutdown
			}
			log.WithError(err).Warn("Error reading from UDP")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		msg, err := gtpv2c.Decode(data)
		if err != nil {
			log.WithError(err).WithField("from", addr).Warn("Failed to parse received GTPv2-C message")
			continue
		}

		select {
		case r.msgChan <- ReceivedMessage{
			Message: msg,
			Data:    data,
			From:    addr,
		}:
		case <-ctx.Done():
			return
		}
	}
}
