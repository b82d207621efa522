package session

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// UEIPv4Pool allocates UE addresses for PDN Address Allocation IEs from an
// IPv4 CIDR range. The network and broadcast addresses are never handed out.
type UEIPv4Pool struct {
	base      uint32 // network address
	size      uint32 // total addresses in the range
	next      uint32 // offset of the next candidate
	allocated map[uint32]bool
	mu        sync.Mutex
}

// NewUEIPv4Pool creates a pool from a CIDR string such as "10.60.0.0/24".
// Only IPv4 ranges with room for at least one host are accepted.
func NewUEIPv4Pool(cidr string) (*UEIPv4Pool, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	ip4 := ipnet.IP.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("UE pool must be an IPv4 range, got %q", cidr)
	}
	ones, bits := ipnet.Mask.Size()
	if bits-ones < 2 {
		return nil, fmt.Errorf("UE pool %q has no allocatable host addresses", cidr)
	}

	return &UEIPv4Pool{
		base:      binary.BigEndian.Uint32(ip4),
		size:      1 << (bits - ones),
		next:      1, // skip the network address
		allocated: make(map[uint32]bool),
	}, nil
}

// Allocate returns the next free address in the range.
func (p *UEIPv4Pool) Allocate() (net.IP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hosts := p.size - 2 // exclude network and broadcast
	for scanned := uint32(0); scanned < hosts; scanned++ {
		off := p.next
		p.next++
		if p.next >= p.size-1 {
			p.next = 1
		}
		if !p.allocated[off] {
			p.allocated[off] = true
			ip := make(net.IP, net.IPv4len)
			binary.BigEndian.PutUint32(ip, p.base+off)
			return ip, nil
		}
	}
	return nil, fmt.Errorf("UE IP pool exhausted (all %d addresses allocated)", len(p.allocated))
}

// Release returns an address to the pool. Addresses outside the range are
// ignored.
func (p *UEIPv4Pool) Release(ip net.IP) {
	ip4 := ip.To4()
	if ip4 == nil {
		return
	}
	off := binary.BigEndian.Uint32(ip4) - p.base
	if off == 0 || off >= p.size-1 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.allocated, off)
}

// AllocatedCount returns the number of addresses currently allocated.
func (p *UEIPv4Pool) AllocatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.allocated)
}

// Available returns the number of addresses still free.
func (p *UEIPv4Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.size) - 2 - len(p.allocated)
}
