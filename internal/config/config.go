package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the GTPv2-C generator.
type Config struct {
	Local   LocalConfig    `yaml:"local"   mapstructure:"local"`
	Peer    PeerConfig     `yaml:"peer"    mapstructure:"peer"`
	Session SessionConfig  `yaml:"session" mapstructure:"session"`
	Bearer  BearerConfig   `yaml:"bearer"  mapstructure:"bearer"`
	Filters []FilterConfig `yaml:"filters" mapstructure:"filters"`
	Timing  TimingConfig   `yaml:"timing"  mapstructure:"timing"`
	Output  OutputConfig   `yaml:"output"  mapstructure:"output"`
	Logging LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Stats   StatsConfig    `yaml:"stats"   mapstructure:"stats"`
}

type LocalConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

type PeerConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

type SessionConfig struct {
	Count          int    `yaml:"count"           mapstructure:"count"`
	TEIDStart      uint32 `yaml:"teid_start"      mapstructure:"teid_start"`
	PeerTEIDStart  uint32 `yaml:"peer_teid_start" mapstructure:"peer_teid_start"`
	TEIDStrategy   string `yaml:"teid_strategy"   mapstructure:"teid_strategy"`
	UEIPPool       string `yaml:"ue_ip_pool"      mapstructure:"ue_ip_pool"`
	APNRestriction int    `yaml:"apn_restriction" mapstructure:"apn_restriction"`
	RestartCounter int    `yaml:"restart_counter" mapstructure:"restart_counter"`
	PTIStart       int    `yaml:"pti_start"       mapstructure:"pti_start"`
}

type BearerConfig struct {
	EBI                        int    `yaml:"ebi"                       mapstructure:"ebi"`
	QCI                        int    `yaml:"qci"                       mapstructure:"qci"`
	MBRUplinkKbps              uint64 `yaml:"mbr_uplink_kbps"           mapstructure:"mbr_uplink_kbps"`
	MBRDownlinkKbps            uint64 `yaml:"mbr_downlink_kbps"         mapstructure:"mbr_downlink_kbps"`
	GBRUplinkKbps              uint64 `yaml:"gbr_uplink_kbps"           mapstructure:"gbr_uplink_kbps"`
	GBRDownlinkKbps            uint64 `yaml:"gbr_downlink_kbps"         mapstructure:"gbr_downlink_kbps"`
	ARPPriorityLevel           int    `yaml:"arp_priority_level"        mapstructure:"arp_priority_level"`
	ARPPreemptionCapability    bool   `yaml:"arp_preemption_capability" mapstructure:"arp_preemption_capability"`
	ARPPreemptionVulnerability bool   `yaml:"arp_preemption_vulnerability" mapstructure:"arp_preemption_vulnerability"`
}

type FilterConfig struct {
	Direction      string `yaml:"direction"        mapstructure:"direction"`
	Precedence     int    `yaml:"precedence"       mapstructure:"precedence"`
	RemoteCIDR     string `yaml:"remote_cidr"      mapstructure:"remote_cidr"`
	LocalCIDR      string `yaml:"local_cidr"       mapstructure:"local_cidr"`
	Proto          int    `yaml:"proto"            mapstructure:"proto"`
	RemotePortLow  int    `yaml:"remote_port_low"  mapstructure:"remote_port_low"`
	RemotePortHigh int    `yaml:"remote_port_high" mapstructure:"remote_port_high"`
	LocalPortLow   int    `yaml:"local_port_low"   mapstructure:"local_port_low"`
	LocalPortHigh  int    `yaml:"local_port_high"  mapstructure:"local_port_high"`
}

type TimingConfig struct {
	MessageIntervalMs int `yaml:"message_interval_ms" mapstructure:"message_interval_ms"`
	ResponseTimeoutMs int `yaml:"response_timeout_ms" mapstructure:"response_timeout_ms"`
	MaxRetries        int `yaml:"max_retries"         mapstructure:"max_retries"`
}

type OutputConfig struct {
	PcapFile string `yaml:"pcap_file" mapstructure:"pcap_file"`
}

type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file"  mapstructure:"file"`
}

type StatsConfig struct {
	Enabled           bool   `yaml:"enabled"             mapstructure:"enabled"`
	ReportIntervalSec int    `yaml:"report_interval_sec" mapstructure:"report_interval_sec"`
	ExportFile        string `yaml:"export_file"         mapstructure:"export_file"`
}

// SetDefaults configures default values for the configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("local.port", 2123)
	v.SetDefault("peer.port", 2123)
	v.SetDefault("session.count", 1)
	v.SetDefault("session.teid_start", 1)
	v.SetDefault("session.peer_teid_start", 1)
	v.SetDefault("session.teid_strategy", "sequential")
	v.SetDefault("session.apn_restriction", 0)
	v.SetDefault("session.restart_counter", 0)
	v.SetDefault("session.pti_start", 1)
	v.SetDefault("bearer.ebi", 5)
	v.SetDefault("bearer.qci", 9)
	v.SetDefault("bearer.arp_priority_level", 9)
	v.SetDefault("timing.message_interval_ms", 100)
	v.SetDefault("timing.response_timeout_ms", 5000)
	v.SetDefault("timing.max_retries", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.report_interval_sec", 10)
}

// Load reads configuration from a YAML file and returns a Config.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper reads configuration using an existing viper instance (for
// CLI flag binding).
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Summary returns a human-readable summary of the configuration.
func (c *Config) Summary() string {
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Local:         %s:%d\n", c.Local.Address, c.Local.Port))
	sb.WriteString(fmt.Sprintf("  Peer:          %s:%d\n", c.Peer.Address, c.Peer.Port))
	sb.WriteString(fmt.Sprintf("  Sessions:      %d\n", c.Session.Count))
	sb.WriteString(fmt.Sprintf("  UE Pool:       %s\n", c.Session.UEIPPool))
	sb.WriteString(fmt.Sprintf("  TEID Start:    %d (%s)\n", c.Session.TEIDStart, c.Session.TEIDStrategy))
	sb.WriteString(fmt.Sprintf("  Bearer:        EBI %d, QCI %d\n", c.Bearer.EBI, c.Bearer.QCI))
	sb.WriteString(fmt.Sprintf("  Filters:       %d\n", len(c.Filters)))
	sb.WriteString(fmt.Sprintf("  Msg Interval:  %dms\n", c.Timing.MessageIntervalMs))
	sb.WriteString(fmt.Sprintf("  Timeout:       %dms (retries: %d)\n", c.Timing.ResponseTimeoutMs, c.Timing.MaxRetries))
	if c.Output.PcapFile != "" {
		sb.WriteString(fmt.Sprintf("  PCAP Out:      %s\n", c.Output.PcapFile))
	}
	return sb.String()
}
