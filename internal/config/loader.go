package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type configRoot struct {
	Photometer Config `mapstructure:"photometer"`
}

// Load reads the YAML file at path. Env vars override file values via
// the key replacer, e.g. key "photometer.log.level" maps to
// PHOTOMETER_LOG_LEVEL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Photometer

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration. All keys use the
// "photometer." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("photometer.capture.bpf", "udp and (port 5055 or port 5056 or port 5058)")
	v.SetDefault("photometer.capture.server_ports", []int{5055, 5056, 5058})
	v.SetDefault("photometer.capture.zone_ports", []int{5056, 5058})
	v.SetDefault("photometer.capture.snap_len", 65535)
	v.SetDefault("photometer.capture.queue_size", 4096)

	v.SetDefault("photometer.meter.mode", "battle")
	v.SetDefault("photometer.meter.battle_timeout_s", 20.0)
	v.SetDefault("photometer.meter.combat_grace_s", 0.25)
	v.SetDefault("photometer.meter.rate_window_s", 10.0)
	v.SetDefault("photometer.meter.history_cap", 20)
	v.SetDefault("photometer.meter.reassembly_ttl_s", 30.0)
	v.SetDefault("photometer.meter.reassembly_arena_bytes", 16<<20)

	v.SetDefault("photometer.roster.deferred_cap", 256)

	v.SetDefault("photometer.events.health_update", 6)
	v.SetDefault("photometer.events.self_identified", 2)
	v.SetDefault("photometer.events.player_joined", 27)
	v.SetDefault("photometer.events.party_update", 225)
	v.SetDefault("photometer.events.party_disbanded", 226)
	v.SetDefault("photometer.events.combat_state", 18)
	v.SetDefault("photometer.events.fame_gained", 71)

	v.SetDefault("photometer.sink.enabled", false)
	v.SetDefault("photometer.sink.dir", "unknown-payloads")

	v.SetDefault("photometer.metrics.enabled", false)
	v.SetDefault("photometer.metrics.listen", ":9091")
	v.SetDefault("photometer.metrics.path", "/metrics")

	v.SetDefault("photometer.log.level", "info")
	v.SetDefault("photometer.log.file.enabled", false)
	v.SetDefault("photometer.log.file.path", "photometer.log")
	v.SetDefault("photometer.log.file.max_size_mb", 100)
	v.SetDefault("photometer.log.file.max_backups", 5)
	v.SetDefault("photometer.log.file.max_age_days", 30)
	v.SetDefault("photometer.log.file.compress", true)
}
