package pcap

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Writer records generated GTPv2-C messages to a pcap file, framed as
// Ethernet/IPv4/UDP so standard tooling can dissect them.
type Writer struct {
	f       *os.File
	w       *pcapgo.Writer
	srcIP   net.IP
	dstIP   net.IP
	srcPort uint16
	dstPort uint16
}

// NewWriter creates a pcap file and writes its header. Frames use the given
// endpoint addresses for every packet.
func NewWriter(filename string, srcIP, dstIP net.IP, srcPort, dstPort int) (*Writer, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file %s: %w", filename, err)
	}

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}

	return &Writer{
		f:       f,
		w:       w,
		srcIP:   srcIP,
		dstIP:   dstIP,
		srcPort: uint16(srcPort),
		dstPort: uint16(dstPort),
	}, nil
}

// WriteMessage appends one message as a captured packet.
func (w *Writer) WriteMessage(data []byte) error {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    w.srcIP,
		DstIP:    w.dstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(w.srcPort),
		DstPort: layers.UDPPort(w.dstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return fmt.Errorf("failed to bind UDP checksum layer: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(data)); err != nil {
		return fmt.Errorf("failed to serialize packet: %w", err)
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}
	if err := w.w.WritePacket(ci, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

// Close flushes and closes the pcap file.
func (w *Writer) Close() error {
	return w.f.Close()
}
