package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks that the configuration is valid. Network-related checks
// can be skipped for dry-run mode via ValidateOffline.
func (c *Config) Validate() error {
	var errs []string

	if net.ParseIP(c.Local.Address) == nil {
		errs = append(errs, fmt.Sprintf("local.address must be a valid IP address, got %q", c.Local.Address))
	}
	if c.Local.Port <= 0 || c.Local.Port > 65535 {
		errs = append(errs, fmt.Sprintf("local.port must be between 1 and 65535, got %d", c.Local.Port))
	}
	if net.ParseIP(c.Peer.Address) == nil {
		errs = append(errs, fmt.Sprintf("peer.address must be a valid IP address, got %q", c.Peer.Address))
	}
	if c.Peer.Port <= 0 || c.Peer.Port > 65535 {
		errs = append(errs, fmt.Sprintf("peer.port must be between 1 and 65535, got %d", c.Peer.Port))
	}
	if c.Timing.ResponseTimeoutMs <= 0 {
		errs = append(errs, "timing.response_timeout_ms must be > 0")
	}
	if c.Timing.MaxRetries < 0 {
		errs = append(errs, "timing.max_retries must be >= 0")
	}

	errs = append(errs, c.offlineErrors()...)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateOffline checks only the parts needed to build messages without
// sending them.
func (c *Config) ValidateOffline() error {
	if errs := c.offlineErrors(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) offlineErrors() []string {
	var errs []string

	if c.Session.Count <= 0 {
		errs = append(errs, fmt.Sprintf("session.count must be > 0, got %d", c.Session.Count))
	}
	if c.Session.UEIPPool == "" {
		errs = append(errs, "session.ue_ip_pool must be specified")
	} else if _, _, err := net.ParseCIDR(c.Session.UEIPPool); err != nil {
		errs = append(errs, fmt.Sprintf("invalid UE IP pool CIDR %q: %v", c.Session.UEIPPool, err))
	}
	if c.Session.TEIDStrategy != "sequential" && c.Session.TEIDStrategy != "random" {
		errs = append(errs, fmt.Sprintf("session.teid_strategy must be 'sequential' or 'random', got %q", c.Session.TEIDStrategy))
	}
	if c.Session.APNRestriction < 0 || c.Session.APNRestriction > 4 {
		errs = append(errs, fmt.Sprintf("session.apn_restriction must be between 0 and 4, got %d", c.Session.APNRestriction))
	}
	if c.Session.RestartCounter < 0 || c.Session.RestartCounter > 255 {
		errs = append(errs, fmt.Sprintf("session.restart_counter must fit one octet, got %d", c.Session.RestartCounter))
	}

	if c.Bearer.EBI < 0 || c.Bearer.EBI > 15 {
		errs = append(errs, fmt.Sprintf("bearer.ebi must be a 4-bit value, got %d", c.Bearer.EBI))
	}
	if c.Bearer.QCI < 1 || c.Bearer.QCI > 255 {
		errs = append(errs, fmt.Sprintf("bearer.qci must be between 1 and 255, got %d", c.Bearer.QCI))
	}
	if c.Bearer.ARPPriorityLevel < 1 || c.Bearer.ARPPriorityLevel > 15 {
		errs = append(errs, fmt.Sprintf("bearer.arp_priority_level must be between 1 and 15, got %d", c.Bearer.ARPPriorityLevel))
	}

	for i, f := range c.Filters {
		errs = append(errs, f.errors(i)...)
	}
	return errs
}

func (f *FilterConfig) errors(index int) []string {
	var errs []string
	prefix := fmt.Sprintf("filters[%d]", index)

	switch f.Direction {
	case "uplink", "downlink", "bidirectional":
	default:
		errs = append(errs, fmt.Sprintf("%s.direction must be uplink, downlink or bidirectional, got %q", prefix, f.Direction))
	}
	if f.Precedence < 0 || f.Precedence > 255 {
		errs = append(errs, fmt.Sprintf("%s.precedence must fit one octet, got %d", prefix, f.Precedence))
	}
	if f.RemoteCIDR != "" {
		if ip, _, err := net.ParseCIDR(f.RemoteCIDR); err != nil || ip.To4() == nil {
			errs = append(errs, fmt.Sprintf("%s.remote_cidr must be a valid IPv4 CIDR, got %q", prefix, f.RemoteCIDR))
		}
	}
	if f.LocalCIDR != "" {
		if ip, _, err := net.ParseCIDR(f.LocalCIDR); err != nil || ip.To4() == nil {
			errs = append(errs, fmt.Sprintf("%s.local_cidr must be a valid IPv4 CIDR, got %q", prefix, f.LocalCIDR))
		}
	}
	if f.Proto < 0 || f.Proto > 255 {
		errs = append(errs, fmt.Sprintf("%s.proto must fit one octet, got %d", prefix, f.Proto))
	}
	for _, p := range []struct {
		name string
		val  int
	}{
		{"remote_port_low", f.RemotePortLow},
		{"remote_port_high", f.RemotePortHigh},
		{"local_port_low", f.LocalPortLow},
		{"local_port_high", f.LocalPortHigh},
	} {
		if p.val < 0 || p.val > 65535 {
			errs = append(errs, fmt.Sprintf("%s.%s must be between 0 and 65535, got %d", prefix, p.name, p.val))
		}
	}
	if f.RemotePortHigh != 0 && f.RemotePortLow > f.RemotePortHigh {
		errs = append(errs, fmt.Sprintf("%s remote port range is inverted", prefix))
	}
	if f.LocalPortHigh != 0 && f.LocalPortLow > f.LocalPortHigh {
		errs = append(errs, fmt.Sprintf("%s local port range is inverted", prefix))
	}
	return errs
}
