package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "battle", cfg.Meter.Mode)
	assert.Equal(t, 20.0, cfg.Meter.BattleTimeoutS)
	assert.Equal(t, 0.25, cfg.Meter.CombatGraceS)
	assert.Equal(t, 20, cfg.Meter.HistoryCap)
	assert.Equal(t, 4096, cfg.Capture.QueueSize)
	assert.Equal(t, []uint16{5056, 5058}, cfg.Capture.ZonePorts)
	assert.Equal(t, uint8(6), cfg.Events.HealthUpdate)
	assert.Equal(t, uint8(225), cfg.Events.PartyUpdate)
	assert.Equal(t, 256, cfg.Roster.DeferredCap)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photometer.yaml")
	data := `
photometer:
  capture:
    pcap_file: /tmp/session.pcap
  meter:
    mode: zone
    battle_timeout_s: 5
  roster:
    self_name: Alice
    self_id: 42
  events:
    health_update: 99
  log:
    level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/session.pcap", cfg.Capture.PcapFile)
	assert.Equal(t, "zone", cfg.Meter.Mode)
	assert.Equal(t, 5.0, cfg.Meter.BattleTimeoutS)
	assert.Equal(t, "Alice", cfg.Roster.SelfName)
	assert.Equal(t, uint32(42), cfg.Roster.SelfID)
	assert.Equal(t, uint8(99), cfg.Events.HealthUpdate)
	assert.Equal(t, uint8(27), cfg.Events.PlayerJoined, "unset codes keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photometer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("photometer:\n  meter:\n    mode: raid\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meter.mode")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
