package network

import (
	"fmt"
	"net"
	"sync"
)

// UDPClient handles UDP communication with the GTPv2-C peer.
type UDPClient struct {
	conn     *net.UDPConn
	peerAddr *net.UDPAddr
	mu       sync.Mutex
}

// NewUDPClient creates a client bound to the local control-plane address and
// targeting the peer's GTP-C port.
func NewUDPClient(localAddr string, localPort int, peerAddr string, peerPort int) (*UDPClient, error) {
	local := &net.UDPAddr{
		IP:   net.ParseIP(localAddr),
		Port: localPort,
	}
	remote := &net.UDPAddr{
		IP:   net.ParseIP(peerAddr),
		Port: peerPort,
	}

	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP to %s:%d: %w", localAddr, localPort, err)
	}

	return &UDPClient{
		conn:     conn,
		peerAddr: remote,
	}, nil
}

// Send transmits one message to the peer.
func (c *UDPClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.WriteToUDP(data, c.peerAddr); err != nil {
		return fmt.Errorf("failed to send to peer %s: %w", c.peerAddr, err)
	}
	return nil
}

// Conn returns the underlying UDP connection (for the receiver to read from).
func (c *UDPClient) Conn() *net.UDPConn {
	return c.conn
}

// Close closes the UDP connection.
func (c *UDPClient) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the local address the client is bound to.
func (c *UDPClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}
