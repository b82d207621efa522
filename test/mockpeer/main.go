// Mock GTPv2-C peer for end-to-end testing of the generator.
// Listens on UDP 2123, parses incoming GTPv2-C messages, and answers
// Create Bearer Requests with an accepted Create Bearer Response.
//
// Usage:
//
//	go run test/mockpeer/main.go [--addr 127.0.0.1:2123]
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wmnsk/go-gtp/gtpv2/message"

	"gtpv2c-generator/internal/gtpv2c"
)

type mockPeer struct {
	addr string
	conn *net.UDPConn

	mu    sync.Mutex
	stats struct {
		received int
		sent     int
		errors   int
	}
}

func newMockPeer(addr string) *mockPeer {
	return &mockPeer{addr: addr}
}

func (p *mockPeer) run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", p.addr)
	if err != nil {
		return fmt.Errorf("resolve addr: %w", err)
	}

	p.conn, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer p.conn.Close()

	log.Printf("Mock peer listening on %s", p.addr)

	buf := make([]byte, 65535)
	for {
		n, remoteAddr, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Err.Error() == "use of closed network connection" {
				return nil
			}
			log.Printf("read error: %v", err)
			continue
		}

		p.mu.Lock()
		p.stats.received++
		p.mu.Unlock()

		resp, err := p.handleMessage(buf[:n])
		if err != nil {
			log.Printf("handle error: %v", err)
			p.mu.Lock()
			p.stats.errors++
			p.mu.Unlock()
			continue
		}

		if resp != nil {
			if _, err := p.conn.WriteToUDP(resp, remoteAddr); err != nil {
				log.Printf("write error: %v", err)
				p.mu.Lock()
				p.stats.errors++
				p.mu.Unlock()
				continue
			}
			p.mu.Lock()
			p.stats.sent++
			p.mu.Unlock()
		}
	}
}

// handleMessage parses one inbound message and builds the response with the
// generator's own encoder.
func (p *mockPeer) handleMessage(data []byte) ([]byte, error) {
	msg, err := message.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	switch msg.MessageType() {
	case message.MsgTypeCreateBearerRequest:
		return p.buildCreateBearerResponse(msg)
	case message.MsgTypeCreateSessionResponse:
		// Unsolicited in this workflow; nothing to answer.
		log.Printf("received Create Session Response seq=%d", msg.Sequence())
		return nil, nil
	default:
		log.Printf("ignoring %s", msg.MessageTypeName())
		return nil, nil
	}
}

func (p *mockPeer) buildCreateBearerResponse(req message.Message) ([]byte, error) {
	resp := gtpv2c.New(gtpv2c.MsgTypeCreateBearerResponse, req.TEID(), req.Sequence())

	if _, err := resp.AddCauseAccepted(0); err != nil {
		return nil, err
	}
	group, err := resp.OpenGroup(gtpv2c.IETypeBearerContext, 0)
	if err != nil {
		return nil, err
	}
	if _, err := resp.AddEBI(0, 5); err != nil {
		return nil, err
	}
	if _, err := resp.AddCauseAccepted(0); err != nil {
		return nil, err
	}
	group.Close()

	out := make([]byte, resp.Len())
	copy(out, resp.Bytes())
	return out, nil
}

func (p *mockPeer) printStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.Printf("stats: received=%d sent=%d errors=%d", p.stats.received, p.stats.sent, p.stats.errors)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:2123", "listen address")
	flag.Parse()

	peer := newMockPeer(*addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		peer.printStats()
		peer.conn.Close()
	}()

	if err := peer.run(); err != nil {
		log.Printf("mock peer error: %v", err)
		os.Exit(1)
	}
}
