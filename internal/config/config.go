// Package config handles configuration loading using viper.
package config

import (
	"fmt"

	"github.com/gameobs/photometer/internal/event"
	"github.com/gameobs/photometer/internal/log"
)

// Config is the top-level configuration. Maps to the `photometer:`
// root key in YAML.
type Config struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Meter   MeterConfig   `mapstructure:"meter"`
	Roster  RosterConfig  `mapstructure:"roster"`
	Events  event.Codes   `mapstructure:"events"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Items   ItemsConfig   `mapstructure:"items"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     log.Config    `mapstructure:"log"`
}

// CaptureConfig selects and tunes the packet source.
type CaptureConfig struct {
	Interface   string   `mapstructure:"interface"`
	PcapFile    string   `mapstructure:"pcap_file"`
	BPF         string   `mapstructure:"bpf"`
	ServerPorts []uint16 `mapstructure:"server_ports"`
	ZonePorts   []uint16 `mapstructure:"zone_ports"`
	SnapLen     int      `mapstructure:"snap_len"`
	QueueSize   int      `mapstructure:"queue_size"`
}

// MeterConfig tunes the session engine.
type MeterConfig struct {
	Mode            string  `mapstructure:"mode"`
	BattleTimeoutS  float64 `mapstructure:"battle_timeout_s"`
	CombatGraceS    float64 `mapstructure:"combat_grace_s"`
	RateWindowS     float64 `mapstructure:"rate_window_s"`
	HistoryCap      int     `mapstructure:"history_cap"`
	ReassemblyTTLs  float64 `mapstructure:"reassembly_ttl_s"`
	ReassemblyArena int     `mapstructure:"reassembly_arena_bytes"`
}

// RosterConfig seeds the identity tracker.
type RosterConfig struct {
	SelfName    string `mapstructure:"self_name"`
	SelfID      uint32 `mapstructure:"self_id"`
	DeferredCap int    `mapstructure:"deferred_cap"`
}

// SinkConfig controls the unknown-payload dump directory.
type SinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// ItemsConfig points at the optional lookup tables used to resolve
// weapon categories and zone names.
type ItemsConfig struct {
	ItemsPath   string `mapstructure:"items_path"`
	ZoneMapPath string `mapstructure:"zone_map_path"`
}

// MetricsConfig controls the Prometheus exposition server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := parseModeString(c.Meter.Mode); err != nil {
		return err
	}
	if c.Capture.QueueSize < 0 {
		return fmt.Errorf("photometer: capture.queue_size must not be negative")
	}
	if c.Meter.HistoryCap < 0 {
		return fmt.Errorf("photometer: meter.history_cap must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("photometer: metrics.listen required when metrics are enabled")
	}
	if c.Sink.Enabled && c.Sink.Dir == "" {
		return fmt.Errorf("photometer: sink.dir required when the payload sink is enabled")
	}
	return nil
}

func parseModeString(s string) (string, error) {
	switch s {
	case "", "battle", "zone", "manual":
		return s, nil
	default:
		return "", fmt.Errorf("photometer: unknown meter.mode %q", s)
	}
}
